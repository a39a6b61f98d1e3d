package httpapi

import (
	"context"
	"net/http"

	"github.com/DoyleJ11/duo-trivia-backend/internal/auth"
	"github.com/DoyleJ11/duo-trivia-backend/internal/hub"
	"github.com/DoyleJ11/duo-trivia-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Games    GameService
	Rooms    ws.RoomGuard
	Hub      *hub.Hub
	Verifier auth.Verifier
	WS       ws.Options
	Ping     func(context.Context) error
	Log      *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log.Named("http")))

	// Public routes
	r.Get("/healthz", healthz(d.Ping))
	r.Get("/ws", ws.Handler(d.Hub, d.Verifier, d.Rooms, d.WS, log))

	h := gameHandlers{games: d.Games, log: log.Named("http")}
	r.Route("/games", func(r chi.Router) {
		r.Use(NewAuthMiddleware(d.Verifier, log.Named("auth")))
		r.Post("/create", h.create)
		r.Get("/{gameId}", h.get)
		r.Post("/{gameId}/submit-answer", h.submitAnswer)
		r.Post("/{gameId}/submit-prediction", h.submitPrediction)
		r.Post("/{gameId}/next-round", h.nextRound)
		r.Post("/{gameId}/end", h.end)
	})
	return r
}
