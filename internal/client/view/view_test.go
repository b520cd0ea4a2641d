package view

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/bodylog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkEntry(id int64, date time.Time, weight, waist float64) models.Entry {
	e, err := models.NewEntry(weight, waist, models.DefaultHeightCM, date)
	if err != nil {
		panic(err)
	}
	e.ID = id
	return e
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "No saved data yet.", Summary(0))
	assert.Equal(t, "Total saved: 3", Summary(3))
}

func TestFormatEntry(t *testing.T) {
	e := mkEntry(1, time.Date(2024, 5, 6, 23, 30, 0, 0, time.UTC), 80, 90)
	got := FormatEntry(e, time.UTC)
	assert.Equal(t, "#1 — 2024-05-06  Weight: 80 kg · Waist: 90 cm · Height: 170 cm · W/H: 0.53", got)
}

func TestFormatEntry_UsesLocation(t *testing.T) {
	e := mkEntry(12, time.Date(2024, 5, 6, 23, 30, 0, 0, time.UTC), 79.5, 88)
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	got := FormatEntry(e, plus2)
	assert.True(t, strings.HasPrefix(got, "#12 — 2024-05-07  "), got)
	assert.Contains(t, got, "Weight: 79.5 kg")
	assert.Contains(t, got, "W/H: 0.52")
}

func TestTerminal_PresentNewestFirst(t *testing.T) {
	var buf bytes.Buffer
	term := &Terminal{Out: &buf, Loc: time.UTC}
	day := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	term.Present([]models.Entry{
		mkEntry(1, day, 80, 90),
		mkEntry(3, day.AddDate(0, 0, 2), 78, 88),
		mkEntry(2, day.AddDate(0, 0, 1), 79, 89),
	})

	out := buf.String()
	assert.Contains(t, out, "Total saved: 3")
	i1 := strings.Index(out, "#1 — 2024-01-01")
	i2 := strings.Index(out, "#2 — 2024-01-02")
	i3 := strings.Index(out, "#3 — 2024-01-03")
	require.True(t, i1 > 0 && i2 > 0 && i3 > 0)
	assert.Less(t, i3, i2)
	assert.Less(t, i2, i1)
}

func TestTerminal_PresentEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf).Present(nil)
	assert.Contains(t, buf.String(), EmptySummary)
}

func TestNewestFirst_DoesNotMutateInput(t *testing.T) {
	day := time.Now()
	in := []models.Entry{mkEntry(1, day, 80, 90), mkEntry(2, day, 80, 90)}
	out := NewestFirst(in)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, int64(1), in[0].ID)
}

func TestNotifications(t *testing.T) {
	var buf bytes.Buffer
	NotifySyncStarting(&buf)
	NotifyNothingToSync(&buf)
	NotifySyncComplete(&buf, 2)
	NotifySyncFailed(&buf, errors.New("boom"))
	NotifySaveFailed(&buf, errors.New("disk"))
	NotifyMissingInput(&buf)
	NotifySaved(&buf, time.Now())

	out := buf.String()
	for _, want := range []string{
		"Starting sync...",
		"Nothing to sync",
		"Sync complete (2 sent)",
		"Sync failed: boom",
		"Save failed: disk",
		"Please enter weight and waist values",
		"Saved: ",
	} {
		assert.Contains(t, out, want)
	}
}
