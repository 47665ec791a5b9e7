package primitives

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 0xFC, 0xFD, 0xFFFF, 0x10000, 0xFFFFFFFF, 0x100000000, 1 << 63}
	for _, v := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteVarInt(&buf, v))
		got, err := ReadVarInt(&buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestVarBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	require.NoError(t, WriteVarBytes(&buf, payload))

	got, err := ReadVarBytes(&buf, maxScriptSize)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadVarBytes_RejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, maxScriptSize+1))
	_, err := ReadVarBytes(&buf, maxScriptSize)
	assert.Error(t, err)
}
