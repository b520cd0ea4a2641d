package service

import (
	"context"

	"go.uber.org/zap"
)

// WatermarkStore persists the sync watermark.
type WatermarkStore interface {
	// LoadWatermark returns the stored value, or 0 when none was ever saved.
	LoadWatermark(ctx context.Context) (int64, error)
	// SaveWatermark overwrites the stored value.
	SaveWatermark(ctx context.Context, v int64) error
}

// Watermark is the accessor for the highest entry id confirmed synced and purged.
type Watermark struct {
	store WatermarkStore
	log   *zap.Logger
}

// NewWatermark wraps store. A nil log discards diagnostics.
func NewWatermark(store WatermarkStore, log *zap.Logger) *Watermark {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watermark{store: store, log: log}
}

// Get returns the persisted watermark. Read failures are logged and degrade
// to 0: a low watermark only causes rows to be sent again.
func (w *Watermark) Get(ctx context.Context) int64 {
	v, err := w.store.LoadWatermark(ctx)
	if err != nil {
		w.log.Warn("watermark read failed, using 0", zap.Error(err))
		return 0
	}
	return v
}

// Set overwrites the watermark. Monotonicity is the caller's contract.
func (w *Watermark) Set(ctx context.Context, v int64) error {
	return w.store.SaveWatermark(ctx, v)
}
