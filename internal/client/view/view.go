// Package view renders the entry list and sync notifications in the terminal.
package view

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/atinyakov/bodylog/internal/models"
)

// EmptySummary is shown when the store holds no entries.
const EmptySummary = "No saved data yet."

// Summary renders the count line.
func Summary(count int) string {
	if count == 0 {
		return EmptySummary
	}
	return fmt.Sprintf("Total saved: %d", count)
}

// FormatEntry renders one entry on a single line, led by its id. Dates show in loc.
func FormatEntry(e models.Entry, loc *time.Location) string {
	return fmt.Sprintf("#%d — %s  Weight: %s kg · Waist: %s cm · Height: %s cm · W/H: %.2f",
		e.ID,
		e.Date.In(loc).Format(time.DateOnly),
		trimFloat(e.Weight),
		trimFloat(e.Waist),
		trimFloat(e.Height),
		e.Ratio,
	)
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// NewestFirst returns a copy of entries sorted by descending id.
func NewestFirst(entries []models.Entry) []models.Entry {
	out := make([]models.Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Terminal writes the entry list to Out every time it is notified.
type Terminal struct {
	Out io.Writer
	// Loc is the zone used for dates; time.Local when nil.
	Loc *time.Location
}

// NewTerminal returns a Terminal writing to out in the local zone.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{Out: out, Loc: time.Local}
}

// Present renders the summary and the entries, newest first.
func (t *Terminal) Present(entries []models.Entry) {
	fmt.Fprintln(t.Out, Render(entries, t.location()))
}

func (t *Terminal) location() *time.Location {
	if t.Loc == nil {
		return time.Local
	}
	return t.Loc
}

// Render builds the full listing for entries.
func Render(entries []models.Entry, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(summaryStyle.Render(Summary(len(entries))))
	for _, e := range NewestFirst(entries) {
		b.WriteString("\n")
		line := FormatEntry(e, loc)
		head, rest, _ := strings.Cut(line, "  ")
		b.WriteString(dateStyle.Render(head))
		b.WriteString("  ")
		b.WriteString(detailStyle.Render(rest))
	}
	return b.String()
}
