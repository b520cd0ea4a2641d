package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/atinyakov/bodylog/internal/models"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const feedWriteTimeout = 5 * time.Second

type feedMessage struct {
	Type    string         `json:"type"`
	Count   int            `json:"count"`
	Entries []models.Entry `json:"entries"`
}

// Feed pushes the refreshed entry list to every connected websocket client.
// It satisfies service.Presenter.
//
// clientsMu is held exclusively while a new client receives its snapshot and
// shared while Run sends an update, so every client sees lists in the order
// they were read.
type Feed struct {
	snapshot func(ctx context.Context) ([]models.Entry, error)
	log      *zap.Logger

	notify chan struct{}

	latestMu sync.Mutex
	latest   []models.Entry

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]struct{}
}

// NewFeed creates a feed. snapshot provides the list sent to a client on
// connect and after every change; when nil the list passed to Present is used.
func NewFeed(snapshot func(ctx context.Context) ([]models.Entry, error), log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		snapshot: snapshot,
		log:      log,
		notify:   make(chan struct{}, 1),
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

func encodeEntries(entries []models.Entry) ([]byte, error) {
	resp := newEntriesResponse(entries)
	return json.Marshal(feedMessage{Type: "entries", Count: resp.Count, Entries: resp.Entries})
}

// Present records entries and wakes Run. It never blocks; pending updates
// are coalesced into one send.
func (f *Feed) Present(entries []models.Entry) {
	f.latestMu.Lock()
	f.latest = append([]models.Entry(nil), entries...)
	f.latestMu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// current returns the list to send, read fresh when a snapshot source is set.
func (f *Feed) current(ctx context.Context) ([]byte, error) {
	var entries []models.Entry
	if f.snapshot != nil {
		var err error
		if entries, err = f.snapshot(ctx); err != nil {
			return nil, err
		}
	} else {
		f.latestMu.Lock()
		entries = f.latest
		f.latestMu.Unlock()
	}
	return encodeEntries(entries)
}

// Run delivers updates until ctx is done, then disconnects all clients.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			f.clientsMu.Lock()
			for conn := range f.clients {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				delete(f.clients, conn)
			}
			f.clientsMu.Unlock()
			return
		case <-f.notify:
			for _, conn := range f.send(ctx) {
				f.remove(conn)
			}
		}
	}
}

// send writes the current list to every client and returns those that failed.
func (f *Feed) send(ctx context.Context) []*websocket.Conn {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()

	if len(f.clients) == 0 {
		return nil
	}
	data, err := f.current(ctx)
	if err != nil {
		f.log.Error("feed: load entries", zap.Error(err))
		return nil
	}
	var failed []*websocket.Conn
	for conn := range f.clients {
		if err := f.write(ctx, conn, data); err != nil {
			f.log.Debug("feed: send failed", zap.Error(err))
			failed = append(failed, conn)
		}
	}
	return failed
}

func (f *Feed) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// ServeHTTP upgrades GET /api/feed to a websocket, sends the current list and
// keeps the client registered until it disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		f.log.Warn("feed: websocket upgrade failed", zap.Error(err))
		return
	}
	ctx := conn.CloseRead(r.Context())

	if err := f.register(ctx, conn); err != nil {
		f.log.Error("feed: send snapshot", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "cannot load entries")
		return
	}
	defer f.remove(conn)

	<-ctx.Done()
}

// register sends the snapshot and adds conn to the clients in one critical
// section, so no update can reach conn before its snapshot.
func (f *Feed) register(ctx context.Context, conn *websocket.Conn) error {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	data, err := f.current(ctx)
	if err != nil {
		return err
	}
	if err := f.write(ctx, conn, data); err != nil {
		return err
	}
	f.clients[conn] = struct{}{}
	f.log.Info("feed: client connected", zap.Int("clients", len(f.clients)))
	return nil
}

func (f *Feed) remove(conn *websocket.Conn) {
	f.clientsMu.Lock()
	if _, ok := f.clients[conn]; !ok {
		f.clientsMu.Unlock()
		return
	}
	delete(f.clients, conn)
	count := len(f.clients)
	f.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	f.log.Info("feed: client disconnected", zap.Int("clients", count))
}

// ClientCount returns the number of connected clients.
func (f *Feed) ClientCount() int {
	f.clientsMu.RLock()
	defer f.clientsMu.RUnlock()
	return len(f.clients)
}
