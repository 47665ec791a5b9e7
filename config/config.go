// Package config loads the indexer's TOML configuration (spec §6
// "Configuration options"), following the load/dump pattern
// cmd/ranger/config.go uses for its own node configuration.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
)

// tomlSettings maps TOML keys to struct fields. A field's toml tag, which
// every field below carries, is its key; a field without a tag would use
// its Go field name unchanged, the same normalization cmd/ranger/config.go's
// rangerConfig loader uses.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) {
			link = fmt.Sprintf(", see the %s struct definition for available fields", rt.String())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Paths holds the three on-disk locations the indexer depends on
// (spec §6): the embedded store, the node's blk*.dat directory, and
// the node's block-index directory.
type Paths struct {
	DBPath       string `toml:"db_path"`
	BlkDir       string `toml:"blk_dir"`
	NodeIndexDir string `toml:"node_index_dir"`
}

// Sync controls the initial catch-up and ongoing ingestion behavior.
type Sync struct {
	FastSync      bool `toml:"fast_sync"`
	ParallelFiles uint8 `toml:"parallel_files"`
	RPCBatch      uint8 `toml:"rpc_batch"`
}

// RPC holds the node's JSON-RPC endpoint credentials.
type RPC struct {
	Host string `toml:"host"`
	User string `toml:"user"`
	Pass string `toml:"pass"`
}

// Reorg bounds how deep a reorganization may go before live sync pauses.
type Reorg struct {
	MaxDepth uint32 `toml:"max_depth"`
}

// Store controls batching/flush behavior of the embedded store writer.
type Store struct {
	FlushThresholdMs uint32 `toml:"flush_threshold_ms"`
}

// Config is the full recognized configuration surface (spec §6).
type Config struct {
	Network string `toml:"network"`

	Paths Paths `toml:"paths"`
	Sync  Sync  `toml:"sync"`
	RPC   RPC   `toml:"rpc"`
	Reorg Reorg `toml:"reorg"`
	Store Store `toml:"store"`
}

// Default returns a Config with every documented default applied
// (spec §6).
func Default() Config {
	return Config{
		Network: "main",
		Sync: Sync{
			FastSync:      true,
			ParallelFiles: 8,
			RPCBatch:      50,
		},
		Reorg: Reorg{MaxDepth: 100},
		Store: Store{FlushThresholdMs: 30000},
	}
}

// Load reads and decodes a TOML file on top of Default(), the same
// "defaults then overlay file" sequence cmd/ranger/config.go's makeConfigRanger
// follows.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		var lineErr *toml.LineError
		if errors.As(err, &lineErr) {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the required fields (spec §6 "required") are present.
func (c Config) Validate() error {
	var missing []string
	if c.Paths.DBPath == "" {
		missing = append(missing, "paths.db_path")
	}
	if c.Paths.BlkDir == "" {
		missing = append(missing, "paths.blk_dir")
	}
	if c.Paths.NodeIndexDir == "" {
		missing = append(missing, "paths.node_index_dir")
	}
	if c.RPC.Host == "" {
		missing = append(missing, "rpc.host")
	}
	if c.RPC.User == "" {
		missing = append(missing, "rpc.user")
	}
	if c.RPC.Pass == "" {
		missing = append(missing, "rpc.pass")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required fields: %v", missing)
	}
	return nil
}

// Dump marshals cfg back to TOML, mirroring cmd/utils/nodecmd/dumpconfigcmd.go's dumpconfig
// command.
func Dump(w io.Writer, cfg Config) error {
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
