package primitives

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivx-project/pivx-indexer/common"
)

func sampleHeader() *Header {
	return &Header{
		Version:    4,
		PrevBlock:  common.BytesToHash([]byte{1, 2, 3}),
		MerkleRoot: common.BytesToHash([]byte{4, 5, 6}),
		Time:       1700000000,
		Bits:       0x1c00ffff,
		Nonce:      987654321,
	}
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := sampleHeader()
	encoded := h.Encode()
	require.Len(t, encoded, HeaderSize)

	decoded, err := DecodeHeader(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestHeaderHashIsDeterministic(t *testing.T) {
	h := sampleHeader()
	h1 := h.Hash()
	h2 := h.Hash()
	assert.Equal(t, h1, h2)
	assert.False(t, h1.IsZero())
}

func TestHeaderHashChangesWithNonce(t *testing.T) {
	h := sampleHeader()
	before := h.Hash()
	h.Nonce++
	after := h.Hash()
	assert.NotEqual(t, before, after)
}

func TestDecodeHeader_ShortInputIsError(t *testing.T) {
	_, err := DecodeHeader(bytes.NewReader(make([]byte, HeaderSize-1)))
	assert.Error(t, err)
}
