// Package errs defines the indexer's error taxonomy (spec §7). Each
// type is wrapped with github.com/pkg/errors at the point it is first
// raised so component boundaries keep a stack trace, matching the
// wrapping style already used in storage/database and work/worker.go.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// CorruptIndex signals that the node's block-index store is internally
// inconsistent (missing prev, cycle, missing genesis). Fatal.
type CorruptIndex struct {
	Reason string
}

func (e *CorruptIndex) Error() string {
	return fmt.Sprintf("corrupt node index: %s", e.Reason)
}

// NewCorruptIndex wraps reason as a CorruptIndex with a stack trace.
func NewCorruptIndex(reason string) error {
	return errors.WithStack(&CorruptIndex{Reason: reason})
}

// ParseError describes a per-entity decoding failure (spec §7).
type ParseError struct {
	What  string // "block" | "transaction" | "header"
	Where string // identifying context, e.g. a hash or height
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s at %s: %v", e.What, e.Where, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func NewParseError(what, where string, err error) error {
	return errors.WithStack(&ParseError{What: what, Where: where, Err: err})
}

// IoErrorKind distinguishes transient from fatal I/O failures.
type IoErrorKind int

const (
	IoTransient IoErrorKind = iota
	IoFatal
)

// IoError wraps a file or network error with a transient/fatal tag so
// callers know whether to retry (spec §7).
type IoError struct {
	Kind IoErrorKind
	Op   string
	Err  error
}

func (e *IoError) Error() string {
	kind := "transient"
	if e.Kind == IoFatal {
		kind = "fatal"
	}
	return fmt.Sprintf("io error (%s) during %s: %v", kind, e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

func NewIoError(kind IoErrorKind, op string, err error) error {
	return errors.WithStack(&IoError{Kind: kind, Op: op, Err: err})
}

// RpcError mirrors a JSON-RPC {code, message} error (spec §6, §7).
type RpcError struct {
	Code    int
	Message string
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NoRetryCodes are JSON-RPC codes that must not be retried (auth failure
// and similar permanent rejections).
var NoRetryCodes = map[int]bool{
	-32600: true, // invalid request
	-32601: true, // method not found
	-1:     true, // unauthorized; rpcclient reports an HTTP 401 with this code
}

// Retryable reports whether an RpcError should be retried by the caller.
func (e *RpcError) Retryable() bool {
	return !NoRetryCodes[e.Code]
}

// NotFound reports the standard JSON-RPC -5 ("not found") convention
// used by getblock/getrawtransaction (spec §6).
func (e *RpcError) NotFound() bool { return e.Code == -5 }

// BadParameter reports JSON-RPC -8 ("bad parameter").
func (e *RpcError) BadParameter() bool { return e.Code == -8 }

// NewRpcError wraps a JSON-RPC {code, message} pair with a stack trace.
func NewRpcError(code int, message string) error {
	return errors.WithStack(&RpcError{Code: code, Message: message})
}

// DeepReorg is raised when a detected reorg exceeds reorg.max_depth
// (spec §4.4, §7). Sync is paused; operator action is required.
type DeepReorg struct {
	Depth uint64
	Max   uint64
}

func (e *DeepReorg) Error() string {
	return fmt.Sprintf("reorg depth %d exceeds max %d", e.Depth, e.Max)
}

func NewDeepReorg(depth, max uint64) error {
	return errors.WithStack(&DeepReorg{Depth: depth, Max: max})
}

// InvariantViolation reports a failed persisted invariant check
// (INV-1..INV-4, spec §3, §8). Fatal.
type InvariantViolation struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation %s: %s", e.Invariant, e.Detail)
}

func NewInvariantViolation(inv, detail string) error {
	return errors.WithStack(&InvariantViolation{Invariant: inv, Detail: detail})
}
