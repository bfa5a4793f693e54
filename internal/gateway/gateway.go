// Package gateway exposes the match engine over HTTP. Mutating endpoints
// carry the signing account in the request body; reads are unauthenticated.
package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gambitworks/chessvault/internal/engine"
	"github.com/gambitworks/chessvault/internal/events"
)

type Gateway struct {
	eng  *engine.Engine
	emit *events.Emitter
}

func New(eng *engine.Engine, emit *events.Emitter) *Gateway {
	return &Gateway{eng: eng, emit: emit}
}

func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/matches", func(r chi.Router) {
			r.Post("/", g.createMatch)
			r.Get("/nonce/{nonce}", g.matchByNonce)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", g.getMatch)
				r.Get("/incentive", g.incentivePreview)
				r.Post("/abort", g.abortMatch)
				r.Post("/join", g.joinMatch)
				r.Post("/move", g.makeMove)
				r.Post("/clear", g.clearAbandoned)
			})
		})
		r.Route("/players/{account}", func(r chi.Router) {
			r.Get("/matches", g.playerMatches)
			r.Get("/rating", g.playerRating)
		})
		r.Get("/events", g.eventsSocket)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}
