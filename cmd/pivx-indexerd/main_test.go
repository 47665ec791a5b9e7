package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_RegistersExpectedCommands(t *testing.T) {
	app := newApp()

	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"run", "enrich", "status", "quarantine"} {
		assert.True(t, names[want], "expected command %q to be registered", want)
	}
}

func TestResolveConfigAndParams_UnknownNetwork(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.toml"
	writeFile(t, path, `
network = "not-a-real-network"

[paths]
db_path = "`+dir+`/db"
blk_dir = "`+dir+`/blocks"
node_index_dir = "`+dir+`/blocks/index"

[rpc]
host = "http://127.0.0.1:51473"
user = "u"
pass = "p"
`)

	_, _, err := resolveConfigAndParams(path)
	assert.Error(t, err)
}

func TestResolveConfigAndParams_KnownNetwork(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/good.toml"
	writeFile(t, path, `
network = "test"

[paths]
db_path = "`+dir+`/db"
blk_dir = "`+dir+`/blocks"
node_index_dir = "`+dir+`/blocks/index"

[rpc]
host = "http://127.0.0.1:51473"
user = "u"
pass = "p"
`)

	cfg, params, err := resolveConfigAndParams(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Network)
	assert.Equal(t, "test", params.Name)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
