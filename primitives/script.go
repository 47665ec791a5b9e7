package primitives

import (
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/pivx-project/pivx-indexer/chainparams"
)

// Opcodes relevant to script classification (spec §4.3 "address
// extraction is a separate pass"). Only the handful this indexer needs
// to recognize are named; everything else is matched structurally.
const (
	opDup                  = 0x76
	opHash160              = 0xa9
	opEqualVerify          = 0x88
	opEqual                = 0x87
	opCheckSig             = 0xac
	opRot                  = 0x7b
	opIf                   = 0x63
	opElse                 = 0x67
	opEndIf                = 0x68
	opCheckColdStakeVerify = 0xd1
	hash160Len             = 20
)

// ScriptKind tags the recognized output script shapes (spec §3
// "Polymorphism over transaction variants" extended to scripts).
type ScriptKind int

const (
	ScriptUnknown ScriptKind = iota
	ScriptP2PKH
	ScriptP2SH
	ScriptColdStake
)

// ScriptInfo is the result of classifying one output script.
type ScriptInfo struct {
	Kind ScriptKind
	// Addresses holds the address(es) a script pays to. A cold-staking
	// script carries two: index 0 is the staking key, index 1 is the
	// owner key. Per the source chain's semantics the owner — index 1
	// — is the one credited as spendable (spec §3, Open Question 3).
	Addresses []string
}

// ClassifyScript recognizes P2PKH, P2SH, and cold-staking output
// scripts and extracts the address(es) they pay. Unrecognized scripts
// (bare multisig, OP_RETURN, shielded-only sapling outputs) return
// ScriptUnknown with no addresses, matching spec §4.3's "best-effort,
// unrecognized scripts contribute no addr_index entries".
func ClassifyScript(script []byte, p chainparams.Params) ScriptInfo {
	if info, ok := classifyColdStake(script, p); ok {
		return info
	}
	if info, ok := classifyP2PKH(script, p); ok {
		return info
	}
	if info, ok := classifyP2SH(script, p); ok {
		return info
	}
	return ScriptInfo{Kind: ScriptUnknown}
}

// classifyP2PKH matches OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG.
func classifyP2PKH(s []byte, p chainparams.Params) (ScriptInfo, bool) {
	if len(s) != 25 || s[0] != opDup || s[1] != opHash160 || s[2] != hash160Len {
		return ScriptInfo{}, false
	}
	if s[23] != opEqualVerify || s[24] != opCheckSig {
		return ScriptInfo{}, false
	}
	addr := encodeAddr(p.PubKeyHashAddrID, s[3:23])
	return ScriptInfo{Kind: ScriptP2PKH, Addresses: []string{addr}}, true
}

// classifyP2SH matches OP_HASH160 <20> OP_EQUAL.
func classifyP2SH(s []byte, p chainparams.Params) (ScriptInfo, bool) {
	if len(s) != 23 || s[0] != opHash160 || s[1] != hash160Len || s[22] != opEqual {
		return ScriptInfo{}, false
	}
	addr := encodeAddr(p.ScriptHashAddrID, s[2:22])
	return ScriptInfo{Kind: ScriptP2SH, Addresses: []string{addr}}, true
}

// classifyColdStake matches the delegated-staking pattern (spec §3
// "Coldstake"):
//
//	OP_DUP OP_HASH160 OP_ROT OP_IF OP_CHECKCOLDSTAKEVERIFY <20:staker>
//	OP_ELSE <20:owner> OP_ENDIF OP_EQUALVERIFY OP_CHECKSIG
func classifyColdStake(s []byte, p chainparams.Params) (ScriptInfo, bool) {
	const want = 1 + 1 + 1 + 1 + 1 + 1 + hash160Len + 1 + 1 + hash160Len + 1 + 1 + 1
	if len(s) != want {
		return ScriptInfo{}, false
	}
	i := 0
	next := func() byte { b := s[i]; i++; return b }
	if next() != opDup || next() != opHash160 || next() != opRot || next() != opIf {
		return ScriptInfo{}, false
	}
	if next() != opCheckColdStakeVerify {
		return ScriptInfo{}, false
	}
	if next() != hash160Len {
		return ScriptInfo{}, false
	}
	staker := s[i : i+hash160Len]
	i += hash160Len
	if next() != opElse {
		return ScriptInfo{}, false
	}
	if next() != hash160Len {
		return ScriptInfo{}, false
	}
	owner := s[i : i+hash160Len]
	i += hash160Len
	if next() != opEndIf || next() != opEqualVerify || next() != opCheckSig {
		return ScriptInfo{}, false
	}
	return ScriptInfo{
		Kind: ScriptColdStake,
		Addresses: []string{
			encodeAddr(p.PubKeyHashAddrID, staker),
			encodeAddr(p.PubKeyHashAddrID, owner),
		},
	}, true
}

// ColdStakeOwnerIndex is the addr_index position credited as spendable
// for a cold-staking output (spec Open Question 3): the owner key.
const ColdStakeOwnerIndex = 1

// encodeAddr base58check-encodes a version byte and a 20-byte hash,
// the same scheme btcutil.AddressPubKeyHash uses for Bitcoin-family
// chains, applied here with this chain's own version bytes.
func encodeAddr(version byte, hash160 []byte) string {
	return base58.CheckEncode(hash160, version)
}
