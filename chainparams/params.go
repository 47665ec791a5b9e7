// Package chainparams holds the network-specific constants (address
// version bytes, maturity windows, genesis) that primitives and
// indexwriter need but that differ between the chain's networks,
// mirroring the role params/config_params.go plays for klaytn's
// multiple network presets.
package chainparams

import "github.com/pivx-project/pivx-indexer/common"

// Params bundles the constants that vary between mainnet and testnet.
type Params struct {
	Name string

	// Magic is the 4-byte block-file separator (spec §8 scenario 1).
	Magic [4]byte

	// GenesisHash is the hash of height-0, used by the header resolver
	// to anchor the chain walk (spec §4.1).
	GenesisHash common.Hash

	// PubKeyHashAddrID and ScriptHashAddrID are the base58check version
	// bytes for P2PKH and P2SH addresses (spec §4.3 "address extraction").
	PubKeyHashAddrID byte
	ScriptHashAddrID byte

	// CoinbaseMaturity and CoinstakeMaturity are the confirmation counts
	// an output of that kind needs before it is considered spendable
	// (spec §3, GLOSSARY "Maturity").
	CoinbaseMaturity  uint32
	CoinstakeMaturity uint32

	// SaplingHeight is the activation height for version>=3 transactions.
	SaplingHeight uint32

	// MaxClockSkew bounds how far a header's timestamp may sit ahead of
	// local time before it is treated as suspect (spec §8).
	MaxClockSkew uint32
}

// MainNet mirrors PIVX mainnet's chainparams.cpp values.
var MainNet = Params{
	Name: "main",
	Magic: [4]byte{0xE9, 0xFD, 0xC4, 0xD9},
	GenesisHash: common.HashFromStringPanic(
		"0000041e482b9b9691d98eefb48473405c0b8ec31b76df3797c74a78680ef818",
	),
	PubKeyHashAddrID:  30,
	ScriptHashAddrID:  13,
	CoinbaseMaturity:  100,
	CoinstakeMaturity: 20,
	SaplingHeight:     2070000,
	MaxClockSkew:      2 * 60 * 60,
}

// TestNet mirrors PIVX testnet's chainparams.cpp values.
var TestNet = Params{
	Name: "test",
	Magic: [4]byte{0x45, 0x76, 0x65, 0x65},
	GenesisHash: common.HashFromStringPanic(
		"0000041e482b9b9691d98eefb48473405c0b8ec31b76df3797c74a78680ef818",
	),
	PubKeyHashAddrID:  139,
	ScriptHashAddrID:  19,
	CoinbaseMaturity:  100,
	CoinstakeMaturity: 20,
	SaplingHeight:     1347000,
	MaxClockSkew:      2 * 60 * 60,
}

// ByName resolves a network preset the way config.Config selects one
// from its "network" option.
func ByName(name string) (Params, bool) {
	switch name {
	case "main", "":
		return MainNet, true
	case "test":
		return TestNet, true
	default:
		return Params{}, false
	}
}
