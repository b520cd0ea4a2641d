package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	opts, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, opts.Store.Driver)
	assert.Equal(t, "bodylog.db", filepath.Base(opts.Store.DSN))
	assert.Equal(t, "127.0.0.1:8080", opts.Server.Addr)
	assert.Equal(t, 170.0, opts.Journal.HeightCM)
	assert.Equal(t, 30*time.Second, opts.Sink.Timeout)
	assert.Zero(t, opts.Sync.Interval)
	assert.Equal(t, "info", opts.Log.Level)
	assert.Empty(t, opts.Sink.URL)
}

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "bodylog.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{
		"sink": {"url": "https://file.example/exec", "sheet_id": "from-file"},
		"server": {"addr": "127.0.0.1:9000"},
		"sync": {"interval": "5m"}
	}`), 0o600))

	t.Setenv("BODYLOG_SINK_SHEET_ID", "from-env")
	t.Setenv("BODYLOG_SERVER_ADDR", "127.0.0.1:9100")

	opts, err := Load(newFlags(t, "--config", cfg, "--addr", "127.0.0.1:9200"))
	require.NoError(t, err)

	assert.Equal(t, cfg, opts.Config)
	assert.Equal(t, "https://file.example/exec", opts.Sink.URL)
	assert.Equal(t, "from-env", opts.Sink.SheetID)
	assert.Equal(t, "127.0.0.1:9200", opts.Server.Addr)
	assert.Equal(t, 5*time.Minute, opts.Sync.Interval)
}

func TestLoad_FileDriverDefaultPath(t *testing.T) {
	opts, err := Load(newFlags(t, "--store-driver", "FILE"))
	require.NoError(t, err)
	assert.Equal(t, DriverFile, opts.Store.Driver)
	assert.Equal(t, "entries.json", filepath.Base(opts.Store.DSN))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(newFlags(t, "--store-driver", "mongo"))
	assert.ErrorContains(t, err, "unknown store driver")

	_, err = Load(newFlags(t, "--store-driver", "postgres"))
	assert.ErrorContains(t, err, "store.dsn is required")

	_, err = Load(newFlags(t, "--height", "0"))
	assert.ErrorContains(t, err, "height_cm")

	_, err = Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.json")))
	assert.ErrorContains(t, err, "read config")
}

func TestSetFlagDefault(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, SetFlagDefault(fs, "log-level", "warn"))
	require.NoError(t, fs.Parse(nil))

	opts, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "warn", opts.Log.Level)

	t.Setenv("BODYLOG_LOG_LEVEL", "debug")
	opts, err = Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "debug", opts.Log.Level)

	assert.Error(t, SetFlagDefault(fs, "nope", "x"))
}
