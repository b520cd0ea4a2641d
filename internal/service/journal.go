package service

import (
	"context"
	"time"

	"github.com/atinyakov/bodylog/internal/models"
	"go.uber.org/zap"
)

// JournalService records new measurement entries.
type JournalService struct {
	store     EntryStore
	presenter Presenter
	log       *zap.Logger

	// HeightCM is the height stamped on new entries.
	HeightCM float64
	// Now is the clock used for entry dates.
	Now func() time.Time
}

// NewJournalService constructs a JournalService using models.DefaultHeightCM
// and the wall clock. presenter and log may be nil.
func NewJournalService(store EntryStore, presenter Presenter, log *zap.Logger) *JournalService {
	if log == nil {
		log = zap.NewNop()
	}
	return &JournalService{
		store:     store,
		presenter: presenter,
		log:       log,
		HeightCM:  models.DefaultHeightCM,
		Now:       time.Now,
	}
}

// Save validates and stores a new entry, then notifies the presenter with the
// refreshed list. Nothing is stored if validation or the insert fails.
func (j *JournalService) Save(ctx context.Context, weight, waist float64) (models.Entry, error) {
	e, err := models.NewEntry(weight, waist, j.HeightCM, j.Now())
	if err != nil {
		return models.Entry{}, err
	}

	id, err := j.store.Insert(ctx, e)
	if err != nil {
		j.log.Error("save entry", zap.Error(err))
		return models.Entry{}, err
	}
	e.ID = id
	j.log.Info("entry saved", zap.Int64("id", id), zap.Float64("ratio", e.Ratio))

	if j.presenter != nil {
		entries, err := j.Entries(ctx)
		if err != nil {
			j.log.Warn("refresh entry list", zap.Error(err))
		} else {
			j.presenter.Present(entries)
		}
	}
	return e, nil
}

// Entries returns all stored entries ascending by id.
func (j *JournalService) Entries(ctx context.Context) ([]models.Entry, error) {
	entries, err := j.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	SortByID(entries)
	return entries, nil
}
