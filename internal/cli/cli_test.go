package cli_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-doc-vault/internal/cli"
	"github.com/MKhiriev/go-doc-vault/internal/config"
	"github.com/MKhiriev/go-doc-vault/internal/crypto"
	"github.com/MKhiriev/go-doc-vault/internal/logger"
	"github.com/MKhiriev/go-doc-vault/internal/vault"
	"github.com/MKhiriev/go-doc-vault/models"
)

type fixture struct {
	dir   string
	flags []string
	ids   []string
}

// newFixture seeds a vault on disk and returns the flags that open it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	key, err := crypto.NewKeyChain().GenerateKey()
	require.NoError(t, err)
	keyFile := filepath.Join(dir, "vault.key")
	require.NoError(t, os.WriteFile(keyFile, []byte(hex.EncodeToString(key.Bytes())+"\n"), 0o600))

	dsn := filepath.Join(dir, "vault.db")
	journal := filepath.Join(dir, "sync.bolt")

	v := vault.New(vault.Options{
		DB:          config.DB{DSN: dsn},
		Key:         key.Bytes(),
		JournalPath: journal,
	}, logger.Nop())
	ctx := context.Background()
	require.NoError(t, v.Initialize(ctx))

	f := &fixture{dir: dir}
	for _, text := range []string{"alpha report", "beta notes"} {
		doc, err := v.CreateDocument(ctx, "note", models.MustFromAny(map[string]any{"text": text}), models.MetadataInput{})
		require.NoError(t, err)
		f.ids = append(f.ids, doc.ID)
	}
	require.NoError(t, v.Close())

	f.flags = []string{
		"--dsn", dsn,
		"--key-file", keyFile,
		"--journal", journal,
		"--log-level", "error",
		"--argon-time", "1",
		"--argon-memory", "1024",
		"--argon-threads", "1",
	}
	return f
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommand(models.BuildInfo{Version: "1.2.3", Commit: "abc"})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, f.flags...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	f := &fixture{}

	out, err := f.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vaultctl 1.2.3 (built N/A, commit abc)\n", out)

	out, err = f.run(t, "version", "--format", "json")
	require.NoError(t, err)
	var info models.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info.Version)
}

func TestInvalidFormat(t *testing.T) {
	f := &fixture{}
	_, err := f.run(t, "version", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "stats", "--format", "json")
	require.NoError(t, err)

	var stats models.VaultStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(2), stats.Storage.Count)
	assert.Equal(t, 2, stats.Indexed)
	require.NotNil(t, stats.Sync)
	assert.Equal(t, 2, stats.Sync.Pending)

	out, err = f.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "documents")
	assert.Contains(t, out, "note")
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "search", "alpha")
	require.NoError(t, err)
	assert.Contains(t, out, f.ids[0])
	assert.NotContains(t, out, f.ids[1])

	out, err = f.run(t, "search", "--type", "task", "--format", "json", "alpha")
	require.NoError(t, err)
	var results []models.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Empty(t, results)
}

func TestReindex(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "reindex")
	require.NoError(t, err)
	assert.Equal(t, "indexed 2 documents\n", out)
}

func TestSyncState(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "sync-state", "--format", "json")
	require.NoError(t, err)

	var state models.CRDTState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.NotEmpty(t, state.ActorID)
	assert.Equal(t, int64(2), state.Clock)
	require.Len(t, state.Changes, 2)
	assert.Equal(t, f.ids[0], state.Changes[0].ID)
}

func TestBackupRestore(t *testing.T) {
	f := newFixture(t)
	t.Setenv("VAULTCTL_TEST_PASSWORD", "backup secret")
	file := filepath.Join(f.dir, "backup.json")

	out, err := f.run(t, "backup", "--out", file, "--password-env", "VAULTCTL_TEST_PASSWORD")
	require.NoError(t, err)
	assert.Contains(t, out, "backup of 2 documents")

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	var backup models.BackupData
	require.NoError(t, json.Unmarshal(raw, &backup))
	assert.NotEmpty(t, backup.Salt)

	out, err = f.run(t, "restore", "--in", file, "--password-env", "VAULTCTL_TEST_PASSWORD")
	require.NoError(t, err)
	assert.Contains(t, out, "restored 2 documents")

	_, err = f.run(t, "restore", "--in", file)
	assert.ErrorIs(t, err, vault.ErrBackupVerification, "password protected backup without password")

	_, err = f.run(t, "backup", "--out", file, "--password-env", "VAULTCTL_TEST_UNSET")
	assert.ErrorContains(t, err, "VAULTCTL_TEST_UNSET")
}

func TestRestoreRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	file := filepath.Join(f.dir, "garbage.json")
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o600))

	_, err := f.run(t, "restore", "--in", file)
	assert.ErrorIs(t, err, vault.ErrBackupVerification)
}

func TestWrongKeyFile(t *testing.T) {
	f := newFixture(t)

	other, err := crypto.NewKeyChain().GenerateKey()
	require.NoError(t, err)
	otherFile := filepath.Join(f.dir, "other.key")
	require.NoError(t, os.WriteFile(otherFile, other.Bytes(), 0o600))

	cmd := cli.NewRootCommand(models.BuildInfo{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats", "--dsn", filepath.Join(f.dir, "vault.db"), "--key-file", otherFile, "--log-level", "error"})
	assert.ErrorIs(t, cmd.Execute(), vault.ErrKeyMismatch)
}
