// Package config layers the application settings: built-in defaults, an
// optional config file, BODYLOG_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/bodylog/internal/models"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// EnvPrefix prefixes every environment override, e.g. BODYLOG_SINK_URL.
const EnvPrefix = "BODYLOG"

// Options holds the configuration values for the application.
type Options struct {
	// Config is the path of the config file that was read, if any.
	Config string

	Store   StoreOptions
	Sink    SinkOptions
	Journal JournalOptions
	Server  ServerOptions
	Sync    SyncOptions
	Log     LogOptions
}

// StoreOptions selects the local entry store.
type StoreOptions struct {
	// Driver is one of sqlite, postgres or file.
	Driver string
	// DSN is a file path for sqlite/file, a connection URL for postgres.
	DSN string
}

// SinkOptions locate the spreadsheet web app.
type SinkOptions struct {
	URL      string
	SheetID  string
	Timeout  time.Duration
	CAFile   string
	CertFile string
	KeyFile  string
}

// JournalOptions tune new entries.
type JournalOptions struct {
	HeightCM float64
}

// ServerOptions configure the local journal API.
type ServerOptions struct {
	Addr string
}

// SyncOptions configure background syncing.
type SyncOptions struct {
	// Interval between automatic sync attempts. Zero disables them.
	Interval time.Duration
}

// LogOptions configure logging.
type LogOptions struct {
	Level string
	File  string
}

// flag name -> config key
var flagKeys = map[string]string{
	"store-driver":  "store.driver",
	"store-dsn":     "store.dsn",
	"sink-url":      "sink.url",
	"sheet-id":      "sink.sheet_id",
	"sink-timeout":  "sink.timeout",
	"sink-ca":       "sink.ca_file",
	"sink-cert":     "sink.cert_file",
	"sink-key":      "sink.key_file",
	"height":        "journal.height_cm",
	"addr":          "server.addr",
	"sync-interval": "sync.interval",
	"log-level":     "log.level",
	"log-file":      "log.file",
}

// DefaultDataDir is where local data lives unless store.dsn says otherwise.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bodylog"
	}
	return filepath.Join(home, ".bodylog")
}

// RegisterFlags adds every configuration flag to fs. Flag defaults are the
// configuration defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to config file (json, yaml or toml)")
	fs.String("store-driver", DriverSQLite, "local store: sqlite, postgres or file")
	fs.String("store-dsn", "", "store path or postgres URL (default ~/.bodylog/bodylog.db)")
	fs.String("sink-url", "", "Apps Script web app URL")
	fs.String("sheet-id", "", "destination spreadsheet id")
	fs.Duration("sink-timeout", 30*time.Second, "timeout for one sync request")
	fs.String("sink-ca", "", "extra CA bundle for the sink")
	fs.String("sink-cert", "", "client certificate for the sink")
	fs.String("sink-key", "", "client key for the sink")
	fs.Float64("height", models.DefaultHeightCM, "height in cm stamped on new entries")
	fs.String("addr", "127.0.0.1:8080", "journal API listen address")
	fs.Duration("sync-interval", 0, "automatic sync interval, 0 disables")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-file", "", "also write logs to this rotated file")
}

// SetFlagDefault changes the default of a registered flag.
func SetFlagDefault(fs *pflag.FlagSet, name, value string) error {
	f := fs.Lookup(name)
	if f == nil {
		return fmt.Errorf("unknown flag %q", name)
	}
	if err := f.Value.Set(value); err != nil {
		return err
	}
	f.DefValue = value
	return nil
}

// Load resolves the options from fs, the environment and the optional
// config file. fs must have been set up with RegisterFlags.
func Load(fs *pflag.FlagSet) (*Options, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfgFile := os.Getenv(EnvPrefix + "_CONFIG")
	if f := fs.Lookup("config"); f != nil && f.Changed {
		cfgFile = f.Value.String()
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	opts := &Options{
		Config: cfgFile,
		Store: StoreOptions{
			Driver: strings.ToLower(v.GetString("store.driver")),
			DSN:    v.GetString("store.dsn"),
		},
		Sink: SinkOptions{
			URL:      v.GetString("sink.url"),
			SheetID:  v.GetString("sink.sheet_id"),
			Timeout:  v.GetDuration("sink.timeout"),
			CAFile:   v.GetString("sink.ca_file"),
			CertFile: v.GetString("sink.cert_file"),
			KeyFile:  v.GetString("sink.key_file"),
		},
		Journal: JournalOptions{HeightCM: v.GetFloat64("journal.height_cm")},
		Server:  ServerOptions{Addr: v.GetString("server.addr")},
		Sync:    SyncOptions{Interval: v.GetDuration("sync.interval")},
		Log: LogOptions{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) validate() error {
	switch o.Store.Driver {
	case DriverSQLite:
		if o.Store.DSN == "" {
			o.Store.DSN = filepath.Join(DefaultDataDir(), "bodylog.db")
		}
	case DriverFile:
		if o.Store.DSN == "" {
			o.Store.DSN = filepath.Join(DefaultDataDir(), "entries.json")
		}
	case DriverPostgres:
		if o.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", o.Store.Driver)
	}
	if o.Journal.HeightCM <= 0 {
		return fmt.Errorf("journal.height_cm must be positive, got %v", o.Journal.HeightCM)
	}
	if o.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must not be negative")
	}
	return nil
}
