package config

import (
	"flag"
	"fmt"
	"strconv"
)

// NewFlagSet registers all configuration flags on a fresh [flag.FlagSet] and
// returns it together with the config the flags write into. The config is
// only meaningful after the set has been parsed.
//
// Flags:
//
//	-d/-dsn          SQLite DSN
//	-journal         bbolt change journal path
//	-key-file        path to a raw or hex 32-byte key
//	-search-disabled turn the search index off
//	-sync-disabled   turn the change queue off
//	-sync-interval   background sync period (e.g. "5m"); 0 disables it
//	-argon-time      Argon2id iterations
//	-argon-memory    Argon2id memory in KiB
//	-argon-threads   Argon2id parallelism
//	-log-level       zerolog level name
//	-c/-config       json file path with configs
//
// The passphrase is deliberately env/JSON only so it never shows up in a
// process listing.
func NewFlagSet(name string) (*flag.FlagSet, *StructuredConfig) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg := &StructuredConfig{}

	fs.StringVar(&cfg.Storage.DB.DSN, "d", "", "Database DSN")
	fs.StringVar(&cfg.Storage.DB.DSN, "dsn", "", "Database DSN (alias)")
	fs.StringVar(&cfg.Storage.Journal.Path, "journal", "", "Change journal path")
	fs.StringVar(&cfg.Vault.KeyFile, "key-file", "", "Vault key file path")
	fs.BoolVar(&cfg.Vault.SearchDisabled, "search-disabled", false, "Disable the search index")
	fs.BoolVar(&cfg.Vault.SyncDisabled, "sync-disabled", false, "Disable the sync engine")
	fs.DurationVar(&cfg.Workers.SyncInterval, "sync-interval", 0, "Background sync interval (e.g., 30s, 5m)")
	fs.Var((*uint32Value)(&cfg.Crypto.ArgonTime), "argon-time", "Argon2id iterations")
	fs.Var((*uint32Value)(&cfg.Crypto.ArgonMemoryKiB), "argon-memory", "Argon2id memory in KiB")
	fs.Var((*uint8Value)(&cfg.Crypto.ArgonThreads), "argon-threads", "Argon2id parallelism")
	fs.StringVar(&cfg.Log.Level, "log-level", "", "Log level")
	fs.StringVar(&cfg.JSONFilePath, "c", "", "JSON config file path")
	fs.StringVar(&cfg.JSONFilePath, "config", "", "JSON config file path (alias)")

	return fs, cfg
}

// uint32Value implements flag.Value for uint32 fields.
type uint32Value uint32

func (v *uint32Value) String() string { return strconv.FormatUint(uint64(*v), 10) }

func (v *uint32Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("need an unsigned 32-bit integer: %w", err)
	}
	*v = uint32Value(n)
	return nil
}

// uint8Value implements flag.Value for uint8 fields.
type uint8Value uint8

func (v *uint8Value) String() string { return strconv.FormatUint(uint64(*v), 10) }

func (v *uint8Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return fmt.Errorf("need an integer in [0, 255]: %w", err)
	}
	*v = uint8Value(n)
	return nil
}
