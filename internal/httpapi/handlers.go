package httpapi

import (
	"context"
	"net/http"

	"github.com/DoyleJ11/duo-trivia-backend/internal/auth"
	"github.com/DoyleJ11/duo-trivia-backend/internal/game"
	"github.com/DoyleJ11/duo-trivia-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type GameService interface {
	CreateGame(ctx context.Context, actorID string, in game.CreateGameInput) (types.Snapshot, error)
	GetGame(ctx context.Context, gameID, actorID string) (types.Snapshot, error)
	SubmitAnswer(ctx context.Context, gameID, actorID, answer string) (game.SubmitResult, error)
	SubmitPrediction(ctx context.Context, gameID, actorID, prediction string) (game.SubmitResult, error)
	AdvanceRound(ctx context.Context, gameID, actorID string) (game.AdvanceResult, error)
	EndGame(ctx context.Context, gameID, actorID string) (types.Snapshot, error)
}

type gameHandlers struct {
	games GameService
	log   *zap.Logger
}

func (h gameHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := game.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, kind, "internal error")
		return
	}
	writeError(w, status, kind, game.Message(err))
}

func (h gameHandlers) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User2ID            string `json:"user2Id"`
		SelectedCategoryID string `json:"selectedCategoryId"`
	}
	if err := readJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, game.KindValidation, "invalid json: "+err.Error())
		return
	}
	snap, err := h.games.CreateGame(r.Context(), auth.UserFrom(r.Context()), game.CreateGameInput{
		Player2ID:  body.User2ID,
		CategoryID: body.SelectedCategoryID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Message: "Game created and first round started", Game: &snap})
}

func (h gameHandlers) get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.GetGame(r.Context(), chi.URLParam(r, "gameId"), auth.UserFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Game: &snap})
}

func (h gameHandlers) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answer string `json:"answer"`
	}
	if err := readJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, game.KindValidation, "invalid json: "+err.Error())
		return
	}
	res, err := h.games.SubmitAnswer(r.Context(), chi.URLParam(r, "gameId"), auth.UserFrom(r.Context()), body.Answer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "Answer submitted. Waiting for the other player."
	if res.Resolved {
		msg = "Both answers submitted. Round evaluated."
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: msg, Game: &res.Game, Resolved: &res.Resolved})
}

func (h gameHandlers) submitPrediction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prediction string `json:"prediction"`
	}
	if err := readJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, game.KindValidation, "invalid json: "+err.Error())
		return
	}
	res, err := h.games.SubmitPrediction(r.Context(), chi.URLParam(r, "gameId"), auth.UserFrom(r.Context()), body.Prediction)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg := "Prediction submitted. Waiting for the other player."
	if res.Resolved {
		msg = "All answers and predictions submitted. Round evaluated."
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: msg, Game: &res.Game, Resolved: &res.Resolved})
}

func (h gameHandlers) nextRound(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")
	res, err := h.games.AdvanceRound(r.Context(), gameID, auth.UserFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if res.Exhausted {
		writeJSON(w, http.StatusOK, response{Success: true, Message: res.Message, GameID: gameID, Exhausted: true})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: res.Message, Game: &res.Game})
}

func (h gameHandlers) end(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.EndGame(r.Context(), chi.URLParam(r, "gameId"), auth.UserFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Game ended", Game: &snap})
}

func healthz(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
