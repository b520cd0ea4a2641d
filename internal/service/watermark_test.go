package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/bodylog/internal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatermark_DefaultsToZero(t *testing.T) {
	wm := service.NewWatermark(newMemStore(), nil)
	assert.Equal(t, int64(0), wm.Get(context.Background()))
}

func TestWatermark_SetOverwrites(t *testing.T) {
	store := newMemStore()
	wm := service.NewWatermark(store, nil)

	assert.NoError(t, wm.Set(context.Background(), 7))
	assert.Equal(t, int64(7), wm.Get(context.Background()))

	// No monotonicity check in the accessor.
	assert.NoError(t, wm.Set(context.Background(), 3))
	assert.Equal(t, int64(3), wm.Get(context.Background()))
}

func TestWatermark_ReadFailureLogsAndReturnsZero(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newMemStore()
	store.watermark = 12
	store.LoadWMErr = errors.New("unreadable")

	wm := service.NewWatermark(store, zap.New(core))

	assert.Equal(t, int64(0), wm.Get(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("watermark read failed, using 0").Len())
}

func TestWatermark_SetFailureSurfaces(t *testing.T) {
	store := newMemStore()
	store.SaveWMErr = errors.New("disk full")
	wm := service.NewWatermark(store, nil)

	assert.Error(t, wm.Set(context.Background(), 1))
}
