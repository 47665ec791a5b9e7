// Package rpcclient talks to the node's JSON-RPC interface over HTTP
// with basic auth (spec §6 "RPC methods consumed"). It is the
// indexer's only window onto the live chain tip; the live controller
// in package livesync and the status paths of cmd/pivx-indexerd call it.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/pivx-project/pivx-indexer/errs"
	"github.com/pivx-project/pivx-indexer/log"
)

var logger = log.NewModuleLogger(log.RPCClient)

// DefaultTimeout is the per-call timeout (spec §5 "RPC calls have a
// per-call timeout (default 10s)").
const DefaultTimeout = 10 * time.Second

// DefaultMaxRetries is R_max (spec §5, §6).
const DefaultMaxRetries = 6

// Config holds the node endpoint and credentials (spec §6 "rpc.{host,user,pass}").
type Config struct {
	Host       string
	User       string
	Pass       string
	Timeout    time.Duration
	MaxRetries int
}

// Client is a minimal bitcoind-style JSON-RPC client: one POST per
// call, HTTP basic auth, retried with exponential backoff the same
// way the block pipeline retries transient blk-file reads.
type Client struct {
	cfg  Config
	http *retryablehttp.Client
	id   int
}

// New returns a Client for cfg. Missing Timeout/MaxRetries fall back
// to the documented defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.MaxRetries
	hc.RetryWaitMin = 100 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.HTTPClient.Timeout = cfg.Timeout
	hc.Logger = nil
	hc.CheckRetry = checkRetry

	return &Client{cfg: cfg, http: hc}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// checkRetry treats connection failures, 429 and 5xx responses as
// retryable, matching retryablehttp's default policy; any other 4xx
// (including the 401 a bad rpc.user/rpc.pass produces) is not retried.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

// call issues one JSON-RPC request and decodes result into out.
func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	c.id++
	body, err := json.Marshal(rpcRequest{JSONRPC: "1.0", ID: c.id, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.User, c.cfg.Pass)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.NewIoError(errs.IoTransient, fmt.Sprintf("rpc %s", method), err)
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errs.NewIoError(errs.IoTransient, fmt.Sprintf("rpc %s: read body", method), err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return errs.NewRpcError(-1, "unauthorized: check rpc.user/rpc.pass")
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return errs.NewRpcError(resp.StatusCode, fmt.Sprintf("http %d: %s", resp.StatusCode, string(raw)))
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return errs.NewParseError("rpc-response", method, err)
	}
	if rr.Error != nil {
		return errs.NewRpcError(rr.Error.Code, rr.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rr.Result, out)
}
