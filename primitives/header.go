package primitives

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/pivx-project/pivx-indexer/common"
)

// HeaderSize is the fixed wire size of a block header (spec §3).
const HeaderSize = 80

// Header is the 80-byte block header shared by every block on the
// chain (spec §3: version|prev|merkle|time|bits|nonce).
type Header struct {
	Version    int32
	PrevBlock  common.Hash
	MerkleRoot common.Hash
	Time       uint32
	Bits       uint32
	Nonce      uint32
}

// Encode serializes the header to its canonical 80-byte little-endian form.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.PrevBlock.Bytes())
	copy(buf[36:68], h.MerkleRoot.Bytes())
	binary.LittleEndian.PutUint32(buf[68:72], h.Time)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return buf
}

// DecodeHeader reads a Header from r.
func DecodeHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("primitives: short header: %w", err)
	}
	return decodeHeaderBytes(buf[:]), nil
}

func decodeHeaderBytes(buf []byte) *Header {
	h := &Header{}
	h.Version = int32(binary.LittleEndian.Uint32(buf[0:4]))
	h.PrevBlock = common.BytesToHash(buf[4:36])
	h.MerkleRoot = common.BytesToHash(buf[36:68])
	h.Time = binary.LittleEndian.Uint32(buf[68:72])
	h.Bits = binary.LittleEndian.Uint32(buf[72:76])
	h.Nonce = binary.LittleEndian.Uint32(buf[76:80])
	return h
}

// Hash returns the double-SHA-256 of the 80-byte encoding (spec §3).
func (h *Header) Hash() common.Hash {
	sum := chainhash.DoubleHashB(h.Encode())
	return common.BytesToHash(sum)
}
