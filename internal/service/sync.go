// Package service holds the journal business logic: saving entries and
// pushing unsynced ones to the spreadsheet sink.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/atinyakov/bodylog/internal/models"
	"go.uber.org/zap"
)

// EntryStore is the durable local store of measurement entries.
type EntryStore interface {
	// Insert persists e and returns its newly assigned id.
	// Ids are strictly increasing and never reused.
	Insert(ctx context.Context, e models.Entry) (int64, error)
	// ListAll returns every stored entry in no particular order.
	ListAll(ctx context.Context) ([]models.Entry, error)
	// DeleteMany removes the given ids. Unknown ids are ignored.
	DeleteMany(ctx context.Context, ids []int64) error
}

// AtomicPurger is implemented by stores that can delete a batch and advance
// the watermark in one committed write.
type AtomicPurger interface {
	PurgeAndAdvance(ctx context.Context, ids []int64, watermark int64) error
}

// Sender transmits a batch of rows to the remote sink in one call.
type Sender interface {
	Send(ctx context.Context, rows []models.Row) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, rows []models.Row) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, rows []models.Row) error { return f(ctx, rows) }

// Presenter is notified with the full refreshed entry list after every insert
// and every sync purge.
type Presenter interface {
	Present(entries []models.Entry)
}

// Presenters fans a notification out to several presenters.
type Presenters []Presenter

// Present notifies each presenter in order.
func (ps Presenters) Present(entries []models.Entry) {
	for _, p := range ps {
		if p != nil {
			p.Present(entries)
		}
	}
}

// SyncStatus is the terminal state of one sync attempt.
type SyncStatus int

const (
	// NothingToSync means no entry was above the watermark. No network call was made.
	NothingToSync SyncStatus = iota
	// Synced means the batch was accepted, purged and the watermark advanced.
	Synced
	// Failed means the attempt aborted. See SyncOutcome.Err.
	Failed
)

// String returns the wire name of the status.
func (s SyncStatus) String() string {
	switch s {
	case NothingToSync:
		return "nothing_to_sync"
	case Synced:
		return "synced"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("SyncStatus(%d)", int(s))
	}
}

// SyncOutcome reports the result of SyncService.Run.
type SyncOutcome struct {
	Status SyncStatus
	// Count is the number of rows transmitted. Only set when Synced.
	Count int
	// Watermark is the watermark after the attempt.
	Watermark int64
	// Err is the failure reason. Only set when Failed.
	Err error
}

// SyncService runs one sync attempt per call to Run.
type SyncService struct {
	store     EntryStore
	watermark *Watermark
	sender    Sender
	presenter Presenter
	log       *zap.Logger

	running atomic.Bool
}

// NewSyncService constructs a SyncService. presenter and log may be nil.
func NewSyncService(store EntryStore, wm *Watermark, sender Sender, presenter Presenter, log *zap.Logger) *SyncService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncService{
		store:     store,
		watermark: wm,
		sender:    sender,
		presenter: presenter,
		log:       log,
	}
}

// Run pushes every entry above the watermark to the sink as one batch, then
// purges those entries and advances the watermark. On any failure before the
// purge the store and the watermark are left untouched. Only one Run may be
// active at a time; a concurrent call fails with models.ErrSyncInProgress.
func (s *SyncService) Run(ctx context.Context) SyncOutcome {
	if !s.running.CompareAndSwap(false, true) {
		return SyncOutcome{Status: Failed, Err: models.ErrSyncInProgress}
	}
	defer s.running.Store(false)

	start := time.Now()
	w := s.watermark.Get(ctx)

	entries, err := s.store.ListAll(ctx)
	if err != nil {
		s.log.Error("sync: list entries", zap.Error(err))
		return SyncOutcome{Status: Failed, Watermark: w, Err: err}
	}

	pending := Pending(entries, w)
	if len(pending) == 0 {
		s.log.Debug("sync: nothing to sync", zap.Int64("watermark", w))
		return SyncOutcome{Status: NothingToSync, Watermark: w}
	}

	rows := make([]models.Row, len(pending))
	ids := make([]int64, len(pending))
	for i, e := range pending {
		rows[i] = e.Row()
		ids[i] = e.ID
	}
	next := ids[len(ids)-1]

	s.log.Info("sync: sending batch",
		zap.Int("rows", len(rows)),
		zap.Int64("watermark", w),
	)
	if err := s.sender.Send(ctx, rows); err != nil {
		s.log.Warn("sync: transmission failed", zap.Error(err))
		return SyncOutcome{Status: Failed, Watermark: w, Err: err}
	}

	if err := s.purge(ctx, ids, next); err != nil {
		s.log.Error("sync: purge after successful send", zap.Error(err))
		return SyncOutcome{Status: Failed, Watermark: s.watermark.Get(ctx), Err: err}
	}

	s.log.Info("sync: complete",
		zap.Int("rows", len(rows)),
		zap.Int64("watermark_before", w),
		zap.Int64("watermark_after", next),
		zap.Duration("took", time.Since(start)),
	)
	s.refresh(ctx)
	return SyncOutcome{Status: Synced, Count: len(rows), Watermark: next}
}

// purge deletes ids and then sets the watermark, atomically when the store
// supports it.
func (s *SyncService) purge(ctx context.Context, ids []int64, next int64) error {
	if ap, ok := s.store.(AtomicPurger); ok {
		return ap.PurgeAndAdvance(ctx, ids, next)
	}
	if err := s.store.DeleteMany(ctx, ids); err != nil {
		return err
	}
	if err := s.watermark.Set(ctx, next); err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

func (s *SyncService) refresh(ctx context.Context) {
	if s.presenter == nil {
		return
	}
	entries, err := s.store.ListAll(ctx)
	if err != nil {
		s.log.Warn("sync: refresh entry list", zap.Error(err))
		return
	}
	SortByID(entries)
	s.presenter.Present(entries)
}

// Pending returns the entries with an id above watermark, ascending by id.
func Pending(entries []models.Entry, watermark int64) []models.Entry {
	sorted := make([]models.Entry, len(entries))
	copy(sorted, entries)
	SortByID(sorted)
	out := sorted[:0]
	for _, e := range sorted {
		if e.ID > watermark {
			out = append(out, e)
		}
	}
	return out
}

// SortByID sorts entries ascending by id in place.
func SortByID(entries []models.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}

// IsBusy reports whether err means another sync was already running.
func IsBusy(err error) bool {
	return errors.Is(err, models.ErrSyncInProgress)
}
