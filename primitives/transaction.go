package primitives

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/pivx-project/pivx-indexer/common"
)

// saplingSpendSize and saplingOutputSize are the fixed wire sizes of a
// Sapling SpendDescription and OutputDescription (spec §3 "Sapling
// shielded data"): cv|anchor|nullifier|rk|zkproof|spendAuthSig and
// cv|cmu|ephemeralKey|encCiphertext|outCiphertext|zkproof respectively.
// The indexer treats their contents as opaque — it never needs to
// verify the proofs, only to skip over them correctly (spec Non-goals:
// "consensus validation beyond what is needed to select the active chain").
const (
	saplingSpendSize  = 32 + 32 + 32 + 32 + 192 + 64
	saplingOutputSize = 32 + 32 + 32 + 580 + 80 + 192
	saplingVersion    = 3 // tx.Version >= saplingVersion may carry Sapling data
)

// Outpoint identifies a transaction output by (txid, vout).
type Outpoint struct {
	Hash  common.Hash
	Index uint32
}

// TxIn is a transaction input (spec §3).
type TxIn struct {
	PrevOut  Outpoint
	Script   []byte
	Sequence uint32
}

// IsCoinbasePrevOut reports the null-outpoint convention a coinbase
// input's PrevOut always uses (spec §3).
func (in *TxIn) IsCoinbasePrevOut() bool {
	return in.PrevOut.Hash.IsZero() && in.PrevOut.Index == 0xFFFFFFFF
}

// TxOut is a transaction output (spec §3).
type TxOut struct {
	Value  int64
	Script []byte
}

// SaplingData holds the shielded-transfer fields appended after
// locktime on version>=3 transactions (spec §3). Spend and output
// descriptions are kept as opaque byte blobs; Partial is set when the
// trailing bytes could not be fully accounted for, per spec §4.2's
// "retain transparent fields and mark sapling.partial = true".
type SaplingData struct {
	ValueBalance int64
	Spends       [][]byte // each saplingSpendSize bytes
	Outputs      [][]byte // each saplingOutputSize bytes
	BindingSig   [64]byte
	Partial      bool
}

// Transaction is a parsed chain transaction (spec §3).
type Transaction struct {
	Version  int32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
	Sapling  *SaplingData

	raw  []byte      // exact bytes as read from the block file
	txid common.Hash // cached once computed
}

// IsCoinbase reports whether this is the block's reward-emitting
// transaction (spec §3, GLOSSARY).
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].IsCoinbasePrevOut()
}

// IsCoinstake reports whether this is a PoS reward transaction (spec
// §3, GLOSSARY): at least two outputs, and the first is a zero-value
// output with an empty script.
func (tx *Transaction) IsCoinstake() bool {
	return len(tx.Outputs) >= 2 && tx.Outputs[0].Value == 0 && len(tx.Outputs[0].Script) == 0
}

// Raw returns the exact bytes the transaction was parsed from.
func (tx *Transaction) Raw() []byte { return tx.raw }

// TxID returns the double-SHA-256 transaction id, computed once and cached.
func (tx *Transaction) TxID() common.Hash {
	if tx.txid.IsZero() && tx.raw != nil {
		tx.txid = common.BytesToHash(chainhash.DoubleHashB(tx.raw))
	}
	return tx.txid
}

// DecodeTransaction reads one transaction from r. It consumes exactly
// the bytes belonging to this transaction so callers can continue
// reading the next one from the same stream (spec §4.2 parsing rules).
func DecodeTransaction(r io.Reader) (*Transaction, error) {
	var buf bytes.Buffer
	tr := io.TeeReader(r, &buf)

	tx := &Transaction{}

	var versionBuf [4]byte
	if _, err := io.ReadFull(tr, versionBuf[:]); err != nil {
		return nil, err
	}
	tx.Version = int32(binary.LittleEndian.Uint32(versionBuf[:]))

	inCount, err := ReadVarInt(tr)
	if err != nil {
		return nil, err
	}
	tx.Inputs = make([]TxIn, inCount)
	for i := range tx.Inputs {
		in, err := decodeTxIn(tr)
		if err != nil {
			return nil, err
		}
		tx.Inputs[i] = *in
	}

	outCount, err := ReadVarInt(tr)
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]TxOut, outCount)
	for i := range tx.Outputs {
		out, err := decodeTxOut(tr)
		if err != nil {
			return nil, err
		}
		tx.Outputs[i] = *out
	}

	var lockTimeBuf [4]byte
	if _, err := io.ReadFull(tr, lockTimeBuf[:]); err != nil {
		return nil, err
	}
	tx.LockTime = binary.LittleEndian.Uint32(lockTimeBuf[:])

	if tx.Version >= saplingVersion {
		sapling, err := decodeSapling(tr)
		if err != nil {
			// Per spec §4.2: keep the transparent fields, flag partial.
			tx.Sapling = &SaplingData{Partial: true}
		} else {
			tx.Sapling = sapling
		}
	}

	tx.raw = append([]byte(nil), buf.Bytes()...)
	return tx, nil
}

func decodeTxIn(r io.Reader) (*TxIn, error) {
	var prevHash [32]byte
	if _, err := io.ReadFull(r, prevHash[:]); err != nil {
		return nil, err
	}
	var voutBuf [4]byte
	if _, err := io.ReadFull(r, voutBuf[:]); err != nil {
		return nil, err
	}
	script, err := ReadVarBytes(r, maxScriptSize)
	if err != nil {
		return nil, err
	}
	var seqBuf [4]byte
	if _, err := io.ReadFull(r, seqBuf[:]); err != nil {
		return nil, err
	}
	return &TxIn{
		PrevOut: Outpoint{
			Hash:  common.BytesToHash(prevHash[:]),
			Index: binary.LittleEndian.Uint32(voutBuf[:]),
		},
		Script:   script,
		Sequence: binary.LittleEndian.Uint32(seqBuf[:]),
	}, nil
}

func decodeTxOut(r io.Reader) (*TxOut, error) {
	var valueBuf [8]byte
	if _, err := io.ReadFull(r, valueBuf[:]); err != nil {
		return nil, err
	}
	script, err := ReadVarBytes(r, maxScriptSize)
	if err != nil {
		return nil, err
	}
	return &TxOut{
		Value:  int64(binary.LittleEndian.Uint64(valueBuf[:])),
		Script: script,
	}, nil
}

func decodeSapling(r io.Reader) (*SaplingData, error) {
	var balBuf [8]byte
	if _, err := io.ReadFull(r, balBuf[:]); err != nil {
		return nil, err
	}
	data := &SaplingData{ValueBalance: int64(binary.LittleEndian.Uint64(balBuf[:]))}

	spendCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < spendCount; i++ {
		blob := make([]byte, saplingSpendSize)
		if _, err := io.ReadFull(r, blob); err != nil {
			return nil, err
		}
		data.Spends = append(data.Spends, blob)
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < outCount; i++ {
		blob := make([]byte, saplingOutputSize)
		if _, err := io.ReadFull(r, blob); err != nil {
			return nil, err
		}
		data.Outputs = append(data.Outputs, blob)
	}

	if len(data.Spends) > 0 || len(data.Outputs) > 0 {
		if _, err := io.ReadFull(r, data.BindingSig[:]); err != nil {
			return nil, err
		}
	}
	return data, nil
}
