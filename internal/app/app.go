// Package app wires configuration into the store, the sheet client and the
// journal and sync services shared by both binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinyakov/bodylog/internal/client/sheets"
	"github.com/atinyakov/bodylog/internal/client/storage"
	"github.com/atinyakov/bodylog/internal/config"
	"github.com/atinyakov/bodylog/internal/db"
	"github.com/atinyakov/bodylog/internal/models"
	"github.com/atinyakov/bodylog/internal/repository"
	"github.com/atinyakov/bodylog/internal/service"
	"go.uber.org/zap"
)

// Store is a local entry store that also keeps the sync watermark.
type Store interface {
	service.EntryStore
	service.WatermarkStore
}

// App holds the wired services.
type App struct {
	Store   Store
	Sheets  *sheets.Client
	Journal *service.JournalService
	Sync    *service.SyncService

	presenters *service.Presenters
	closeFn    func() error
}

// OpenStore opens the store selected by opts.Driver.
func OpenStore(opts config.StoreOptions) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Driver {
	case config.DriverFile:
		if err := os.MkdirAll(filepath.Dir(opts.DSN), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w: %w", models.ErrStorage, err)
		}
		fs, err := storage.Open(opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil
	case config.DriverSQLite, config.DriverPostgres:
		dialect := db.DialectSQLite
		if opts.Driver == config.DriverPostgres {
			dialect = db.DialectPostgres
		}
		conn, err := db.Open(dialect, opts.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w: %w", opts.Driver, models.ErrStorage, err)
		}
		return repository.NewSQLEntryRepository(conn, dialect), conn.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// NewSheetsClient builds the sink client from opts.
func NewSheetsClient(opts config.SinkOptions, log *zap.Logger) (*sheets.Client, error) {
	httpClient, err := sheets.NewHTTPClient(sheets.TLSOptions{
		Timeout:  opts.Timeout,
		CAFile:   opts.CAFile,
		CertFile: opts.CertFile,
		KeyFile:  opts.KeyFile,
	})
	if err != nil {
		return nil, err
	}
	return &sheets.Client{
		URL:     opts.URL,
		SheetID: opts.SheetID,
		HTTP:    httpClient,
		Log:     log,
	}, nil
}

// New opens the configured store and wires the services around it.
func New(opts *config.Options, log *zap.Logger) (*App, error) {
	store, closeFn, err := OpenStore(opts.Store)
	if err != nil {
		return nil, err
	}
	client, err := NewSheetsClient(opts.Sink, log)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	a := Wire(store, client, opts.Journal.HeightCM, log)
	a.closeFn = closeFn
	return a, nil
}

// Wire builds the services over an already opened store.
func Wire(store Store, client *sheets.Client, heightCM float64, log *zap.Logger) *App {
	presenters := &service.Presenters{}
	sender := service.SenderFunc(func(ctx context.Context, rows []models.Row) error {
		_, err := client.Send(ctx, rows)
		return err
	})

	journal := service.NewJournalService(store, presenters, log)
	if heightCM > 0 {
		journal.HeightCM = heightCM
	}
	return &App{
		Store:      store,
		Sheets:     client,
		Journal:    journal,
		Sync:       service.NewSyncService(store, service.NewWatermark(store, log), sender, presenters, log),
		presenters: presenters,
		closeFn:    func() error { return nil },
	}
}

// AddPresenter registers p for entry list notifications. Call before use.
func (a *App) AddPresenter(p service.Presenter) {
	*a.presenters = append(*a.presenters, p)
}

// Close releases the store.
func (a *App) Close() error {
	return a.closeFn()
}
