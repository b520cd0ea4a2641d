package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/atinyakov/bodylog/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func sampleRows() []models.Row {
	return []models.Row{
		{ID: 2, Date: "2024-01-02T08:00:00.000Z", Weight: 80, Waist: 90, Height: 170, Ratio: 90.0 / 170.0},
		{ID: 3, Date: "2024-01-03T08:00:00.000Z", Weight: 79.5, Waist: 89, Height: 170, Ratio: 89.0 / 170.0},
	}
}

func TestSend_ConfigurationMissing(t *testing.T) {
	var calls atomic.Int32
	httpClient := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("should not be called")
	})}

	for _, url := range []string{"", "https://script.google.com/macros/s/REPLACE_WITH_DEPLOYMENT/exec"} {
		c := &Client{URL: url, SheetID: "sheet", HTTP: httpClient}
		ack, err := c.Send(context.Background(), sampleRows())
		assert.Nil(t, ack)
		assert.ErrorIs(t, err, models.ErrConfigurationMissing)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestSend_Success(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"status":"ok","appended":2}`))
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, SheetID: "sheet-42", HTTP: srv.Client()}
	ack, err := c.Send(context.Background(), sampleRows())
	require.NoError(t, err)
	assert.Equal(t, "ok", ack.Status)
	assert.Equal(t, 2, ack.Appended)

	assert.Equal(t, "text/plain;charset=utf-8", gotHeader.Get("Content-Type"))
	assert.Equal(t, "no-cache", gotHeader.Get("Cache-Control"))
	_, err = uuid.Parse(gotHeader.Get("X-Batch-ID"))
	assert.NoError(t, err)

	var payload struct {
		SheetID string          `json:"sheetId"`
		Rows    [][]interface{} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "sheet-42", payload.SheetID)
	require.Len(t, payload.Rows, 2)
	assert.Len(t, payload.Rows[0], 6)
	assert.Equal(t, float64(2), payload.Rows[0][0])
	assert.Equal(t, "2024-01-02T08:00:00.000Z", payload.Rows[0][1])
	assert.Equal(t, float64(3), payload.Rows[1][0])
}

func TestSend_AnyJSONBodyIsAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, HTTP: srv.Client()}
	ack, err := c.Send(context.Background(), sampleRows())
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(ack.Raw))
}

func TestSend_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, HTTP: srv.Client()}
	_, err := c.Send(context.Background(), sampleRows())
	require.ErrorIs(t, err, models.ErrTransmission)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSend_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, HTTP: srv.Client()}
	_, err := c.Send(context.Background(), sampleRows())
	assert.ErrorIs(t, err, models.ErrTransmission)
}

func TestSend_NetworkError(t *testing.T) {
	httpClient := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	c := &Client{URL: "https://example.invalid/exec", HTTP: httpClient}
	_, err := c.Send(context.Background(), sampleRows())
	require.ErrorIs(t, err, models.ErrTransmission)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}

func TestConfigured(t *testing.T) {
	assert.False(t, (&Client{}).Configured())
	assert.False(t, (&Client{URL: "https://x/REPLACE_WITH_URL"}).Configured())
	assert.True(t, (&Client{URL: "https://script.google.com/macros/s/abc/exec"}).Configured())
}
