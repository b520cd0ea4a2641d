package view

import (
	"fmt"
	"io"
	"time"
)

// Notification texts.
const (
	MsgMissingInput = "Please enter weight and waist values"
	MsgSaveFailed   = "Save failed"
	MsgSyncStarting = "Starting sync..."
	MsgNothingSync  = "Nothing to sync"
	MsgSyncComplete = "Sync complete"
)

// NotifySaved reports a stored entry by its timestamp.
func NotifySaved(w io.Writer, at time.Time) {
	fmt.Fprintln(w, successStyle.Render("Saved: "+at.Local().Format(time.DateTime)))
}

// NotifySaveFailed reports a failed save.
func NotifySaveFailed(w io.Writer, err error) {
	fmt.Fprintln(w, dangerStyle.Render(fmt.Sprintf("%s: %v", MsgSaveFailed, err)))
}

// NotifyMissingInput asks for both measurements.
func NotifyMissingInput(w io.Writer) {
	fmt.Fprintln(w, warningStyle.Render(MsgMissingInput))
}

// NotifySyncStarting announces a sync attempt.
func NotifySyncStarting(w io.Writer) {
	fmt.Fprintln(w, detailStyle.Render(MsgSyncStarting))
}

// NotifyNothingToSync reports an empty batch.
func NotifyNothingToSync(w io.Writer) {
	fmt.Fprintln(w, warningStyle.Render(MsgNothingSync))
}

// NotifySyncComplete reports a successful sync.
func NotifySyncComplete(w io.Writer, count int) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("%s (%d sent)", MsgSyncComplete, count)))
}

// NotifySyncFailed reports a failed sync with its reason.
func NotifySyncFailed(w io.Writer, err error) {
	fmt.Fprintln(w, dangerStyle.Render(fmt.Sprintf("Sync failed: %v", err)))
}
