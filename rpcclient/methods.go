package rpcclient

import (
	"bytes"
	"context"
	"encoding/hex"

	"github.com/pivx-project/pivx-indexer/common"
	"github.com/pivx-project/pivx-indexer/errs"
	"github.com/pivx-project/pivx-indexer/primitives"
)

// GetBlockCount returns the node's current tip height (spec §6).
func (c *Client) GetBlockCount(ctx context.Context) (uint32, error) {
	var height uint32
	if err := c.call(ctx, "getblockcount", []interface{}{}, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// GetBlockHash returns the hash of the block at height (spec §6).
func (c *Client) GetBlockHash(ctx context.Context, height uint32) (common.Hash, error) {
	var hashHex string
	if err := c.call(ctx, "getblockhash", []interface{}{height}, &hashHex); err != nil {
		return common.Hash{}, err
	}
	return common.HashFromString(hashHex)
}

// GetBlock fetches block hash in raw (verbosity 0) form and decodes
// it into a primitives.Block (spec §6 "getblock(hash, verbosity)").
func (c *Client) GetBlock(ctx context.Context, hash common.Hash) (*primitives.Block, error) {
	var rawHex string
	if err := c.call(ctx, "getblock", []interface{}{hash.String(), 0}, &rawHex); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, errs.NewParseError("block", hash.String(), err)
	}
	block, err := primitives.DecodeBlock(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.NewParseError("block", hash.String(), err)
	}
	return block, nil
}

// GetRawTransaction fetches a transaction by txid in raw hex form and
// decodes it (spec §6 "getrawtransaction(txid)").
func (c *Client) GetRawTransaction(ctx context.Context, txid common.Hash) (*primitives.Transaction, error) {
	var rawHex string
	if err := c.call(ctx, "getrawtransaction", []interface{}{txid.String()}, &rawHex); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, errs.NewParseError("transaction", txid.String(), err)
	}
	tx, err := primitives.DecodeTransaction(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.NewParseError("transaction", txid.String(), err)
	}
	return tx, nil
}
