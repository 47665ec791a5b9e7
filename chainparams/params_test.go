package chainparams

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByName(t *testing.T) {
	p, ok := ByName("main")
	assert.True(t, ok)
	assert.Equal(t, "main", p.Name)

	p, ok = ByName("")
	assert.True(t, ok)
	assert.Equal(t, "main", p.Name)

	p, ok = ByName("test")
	assert.True(t, ok)
	assert.Equal(t, "test", p.Name)

	_, ok = ByName("regtest")
	assert.False(t, ok)
}

func TestMainNetAddressVersionsDiffer(t *testing.T) {
	assert.NotEqual(t, MainNet.PubKeyHashAddrID, MainNet.ScriptHashAddrID)
}
