// Package sheets pushes measurement rows to a Google Apps Script web app
// that appends them to a spreadsheet.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/atinyakov/bodylog/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceholderMarker marks a sink URL that was never filled in.
const PlaceholderMarker = "REPLACE_WITH"

// maxErrorBody caps how much of a failed response body ends up in the error.
const maxErrorBody = 512

// Payload is the request body understood by the Apps Script endpoint.
type Payload struct {
	SheetID string       `json:"sheetId"`
	Rows    []models.Row `json:"rows"`
}

// Ack is the acknowledgement returned by the sink. Unknown fields are kept in Raw.
type Ack struct {
	Status   string          `json:"status,omitempty"`
	Appended int             `json:"appended,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// Client sends row batches to the sink.
type Client struct {
	// URL is the deployed web app URL.
	URL string
	// SheetID identifies the destination spreadsheet.
	SheetID string
	// HTTP performs the request; http.DefaultClient when nil.
	HTTP *http.Client
	// Log receives transmission diagnostics; a no-op logger when nil.
	Log *zap.Logger
}

// Configured reports whether URL looks like a real endpoint.
func (c *Client) Configured() bool {
	return c.URL != "" && !strings.Contains(c.URL, PlaceholderMarker)
}

// Send posts all rows in a single request. It fails with
// models.ErrConfigurationMissing before touching the network when the URL is
// unset, and with models.ErrTransmission for any network or protocol error.
func (c *Client) Send(ctx context.Context, rows []models.Row) (*Ack, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: deploy an Apps Script web app and set the sink URL", models.ErrConfigurationMissing)
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(Payload{SheetID: c.SheetID, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %w", models.ErrTransmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", models.ErrTransmission, err)
	}
	// text/plain keeps Apps Script happy; it parses the raw body as JSON.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	req.Header.Set("Cache-Control", "no-cache")
	batchID := uuid.NewString()
	req.Header.Set("X-Batch-ID", batchID)

	log.Debug("sending rows to sheet",
		zap.String("batch_id", batchID),
		zap.Int("rows", len(rows)),
		zap.Int("bytes", len(body)),
	)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sheets sync failed: %w", models.ErrTransmission, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", models.ErrTransmission, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := strings.TrimSpace(string(data))
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: sheets sync failed: %s: %s", models.ErrTransmission, resp.Status, excerpt)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid response: body is not JSON", models.ErrTransmission)
	}
	ack := &Ack{Raw: json.RawMessage(data)}
	// Best effort: the sink may answer with any JSON value.
	_ = json.Unmarshal(data, ack)

	log.Info("sheet accepted rows",
		zap.String("batch_id", batchID),
		zap.Int("rows", len(rows)),
		zap.String("status", ack.Status),
	)
	return ack, nil
}
