// Package http provides the local journal API: entry listing, the save
// action, manual sync and a websocket feed of the entry list.
package http

import (
	"net/http"

	"github.com/atinyakov/bodylog/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP handler serving the journal API.
//
// Routes:
//
//	GET  /api/health   → {"ok":true}
//	GET  /api/entries  → journal.List
//	POST /api/entries  → journal.Create
//	POST /api/sync     → syncHandler.Sync
//	GET  /api/feed     → feed (websocket)
//
// POST routes only accept application/json. Requests from non-loopback
// addresses are rejected when loopbackOnly is set.
func NewRouter(
	journal *JournalHandler,
	syncHandler *SyncHandler,
	feed *Feed,
	logger *zap.Logger,
	loopbackOnly bool,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	if loopbackOnly {
		r.Use(middleware.LoopbackOnly)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/entries", journal.List)
		if feed != nil {
			r.Method(http.MethodGet, "/feed", feed)
		}

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/entries", journal.Create)
			r.Post("/sync", syncHandler.Sync)
		})
	})

	return r
}
