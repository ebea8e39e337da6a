package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func writeTempJSONConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

// ── builder ───────────────────────────────────────────────────────────────────

func TestNewConfigBuilder_InitialState(t *testing.T) {
	b := newConfigBuilder()
	require.NotNil(t, b)
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

func TestBuild_PropagatesBuilderError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

// TestBuild_LaterSourcesOverride verifies that non-zero fields of later
// sources win while zero fields keep earlier values.
func TestBuild_LaterSourcesOverride(t *testing.T) {
	b := newConfigBuilder().withDefaults()
	b.configs = append(b.configs, &StructuredConfig{
		Storage: Storage{DB: DB{DSN: "/tmp/a.db"}},
		Workers: Workers{SyncInterval: time.Minute},
	})
	b.configs = append(b.configs, &StructuredConfig{
		Storage: Storage{DB: DB{DSN: "/tmp/b.db"}},
	})

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.db", cfg.Storage.DB.DSN)
	assert.Equal(t, time.Minute, cfg.Workers.SyncInterval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StructuredConfig
		wantErr error
	}{
		{
			name:    "passphrase and key file",
			cfg:     StructuredConfig{Vault: Vault{Passphrase: "p", KeyFile: "k"}},
			wantErr: ErrInvalidVaultConfigs,
		},
		{
			name:    "negative interval",
			cfg:     StructuredConfig{Workers: Workers{SyncInterval: -time.Second}},
			wantErr: ErrInvalidWorkerConfigs,
		},
		{
			name:    "tiny argon memory",
			cfg:     StructuredConfig{Crypto: Crypto{ArgonMemoryKiB: 4}},
			wantErr: ErrInvalidCryptoConfigs,
		},
		{
			name:    "unknown log level",
			cfg:     StructuredConfig{Log: Log{Level: "chatty"}},
			wantErr: ErrInvalidLogConfigs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newConfigBuilder().withDefaults()
			cfg := tt.cfg
			b.configs = append(b.configs, &cfg)

			_, err := b.build()
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ── env ───────────────────────────────────────────────────────────────────────

func TestParseEnv_AllFields(t *testing.T) {
	environ := map[string]string{
		"CONFIG":                  "/path/to/config.json",
		"VAULT_PASSPHRASE":        "secret",
		"VAULT_SEARCH_DISABLED":   "true",
		"CRYPTO_ARGON_TIME":       "3",
		"CRYPTO_ARGON_MEMORY_KIB": "1024",
		"CRYPTO_ARGON_THREADS":    "2",
		"STORAGE_DB_DSN":          "/var/lib/vault.db",
		"STORAGE_JOURNAL_PATH":    "/var/lib/journal.bolt",
		"WORKERS_SYNC_INTERVAL":   "30s",
		"LOG_LEVEL":               "debug",
	}

	cfg := &StructuredConfig{}
	require.NoError(t, parseEnvFrom(cfg, environ))

	assert.Equal(t, "/path/to/config.json", cfg.JSONFilePath)
	assert.Equal(t, "secret", cfg.Vault.Passphrase)
	assert.False(t, cfg.Vault.SearchEnabled())
	assert.True(t, cfg.Vault.SyncEnabled())
	assert.Equal(t, uint32(3), cfg.Crypto.ArgonTime)
	assert.Equal(t, uint32(1024), cfg.Crypto.ArgonMemoryKiB)
	assert.Equal(t, uint8(2), cfg.Crypto.ArgonThreads)
	assert.Equal(t, "/var/lib/vault.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "/var/lib/journal.bolt", cfg.Storage.Journal.Path)
	assert.Equal(t, 30*time.Second, cfg.Workers.SyncInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseEnv_BadDuration(t *testing.T) {
	err := parseEnvFrom(&StructuredConfig{}, map[string]string{"WORKERS_SYNC_INTERVAL": "soon"})
	require.Error(t, err)
}

// ── flags ─────────────────────────────────────────────────────────────────────

func TestNewFlagSet_ParsesAll(t *testing.T) {
	fs, cfg := NewFlagSet("test")
	err := fs.Parse([]string{
		"-dsn", "/tmp/v.db",
		"-journal", "/tmp/j.bolt",
		"-key-file", "/tmp/key",
		"-sync-disabled",
		"-sync-interval", "2m",
		"-argon-time", "2",
		"-argon-memory", "65536",
		"-argon-threads", "8",
		"-log-level", "warn",
		"-c", "/tmp/cfg.json",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/v.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "/tmp/j.bolt", cfg.Storage.Journal.Path)
	assert.Equal(t, "/tmp/key", cfg.Vault.KeyFile)
	assert.False(t, cfg.Vault.SyncEnabled())
	assert.Equal(t, 2*time.Minute, cfg.Workers.SyncInterval)
	assert.Equal(t, uint32(2), cfg.Crypto.ArgonTime)
	assert.Equal(t, uint32(65536), cfg.Crypto.ArgonMemoryKiB)
	assert.Equal(t, uint8(8), cfg.Crypto.ArgonThreads)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/cfg.json", cfg.JSONFilePath)
}

func TestNewFlagSet_RejectsOutOfRange(t *testing.T) {
	fs, _ := NewFlagSet("test")
	fs.SetOutput(new(nopWriter))
	require.Error(t, fs.Parse([]string{"-argon-threads", "300"}))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// ── json ──────────────────────────────────────────────────────────────────────

func TestParseJSON_Success(t *testing.T) {
	path := writeTempJSONConfig(t, map[string]any{
		"vault":   map[string]any{"key_file": "/k", "sync_disabled": true},
		"crypto":  map[string]any{"argon_time": 4},
		"storage": map[string]any{"db": map[string]any{"dsn": "/data/v.db"}, "journal": map[string]any{"path": "/data/j"}},
		"workers": map[string]any{"sync_interval": "45s"},
		"log":     map[string]any{"level": "error"},
	})

	cfg, err := parseJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "/k", cfg.Vault.KeyFile)
	assert.True(t, cfg.Vault.SyncDisabled)
	assert.Equal(t, uint32(4), cfg.Crypto.ArgonTime)
	assert.Equal(t, "/data/v.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "/data/j", cfg.Storage.Journal.Path)
	assert.Equal(t, 45*time.Second, cfg.Workers.SyncInterval)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestParseJSON_Errors(t *testing.T) {
	_, err := parseJSON("/definitely/not/here.json")
	require.Error(t, err)

	f, err := os.CreateTemp(t.TempDir(), "bad-*.json")
	require.NoError(t, err)
	_, _ = f.WriteString("{not json")
	require.NoError(t, f.Close())

	_, err = parseJSON(f.Name())
	require.Error(t, err)
}

// ── end to end ────────────────────────────────────────────────────────────────

// TestGetStructuredConfig_Priority verifies defaults < env < flags < json.
func TestGetStructuredConfig_Priority(t *testing.T) {
	jsonPath := writeTempJSONConfig(t, map[string]any{
		"log": map[string]any{"level": "error"},
	})

	t.Setenv("STORAGE_DB_DSN", "/env.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORKERS_SYNC_INTERVAL", "1m")

	cfg, err := GetStructuredConfig([]string{"-dsn", "/flag.db", "-config", jsonPath})
	require.NoError(t, err)

	assert.Equal(t, "/flag.db", cfg.Storage.DB.DSN)
	assert.Equal(t, time.Minute, cfg.Workers.SyncInterval)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestGetStructuredConfig_Defaults(t *testing.T) {
	cfg, err := GetStructuredConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "vault.db", cfg.Storage.DB.DSN)
	assert.True(t, cfg.Vault.SearchEnabled())
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1h30m"`), &d))
	assert.Equal(t, 90*time.Minute, time.Duration(d))

	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, time.Duration(d))

	out, err := json.Marshal(Duration(time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1s"`, string(out))
}
