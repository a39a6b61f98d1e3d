package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DoyleJ11/duo-trivia-backend/internal/game"
	"github.com/DoyleJ11/duo-trivia-backend/pkg/types"
)

// response is the envelope every game route answers with.
type response struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Game      *types.Snapshot `json:"game,omitempty"`
	GameID    string          `json:"gameId,omitempty"`
	Resolved  *bool           `json:"resolved,omitempty"`
	Exhausted bool            `json:"exhausted,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func readJSON(body io.Reader, dest any) error {
	err := json.NewDecoder(body).Decode(dest)
	if errors.Is(err, io.EOF) {
		return errors.New("request body is required")
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind game.Kind, message string) {
	writeJSON(w, status, response{Success: false, Message: message, Error: string(kind)})
}

func statusFor(kind game.Kind) int {
	switch kind {
	case game.KindValidation:
		return http.StatusBadRequest
	case game.KindUnauthenticated:
		return http.StatusUnauthorized
	case game.KindAuthorization:
		return http.StatusForbidden
	case game.KindNotFound:
		return http.StatusNotFound
	case game.KindConflict:
		return http.StatusConflict
	case game.KindExhaustion:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
