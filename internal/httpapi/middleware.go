package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/auth"
	"github.com/DoyleJ11/duo-trivia-backend/internal/game"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewAuthMiddleware verifies the bearer token and stores the user id in the
// request context.
func NewAuthMiddleware(verifier auth.Verifier, log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := parseBearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, game.KindUnauthenticated, err.Error())
				return
			}
			userID, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				log.Debug("rejected token", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
				writeError(w, http.StatusUnauthorized, game.KindUnauthenticated, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), userID)))
		})
	}
}

func parseBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("authorization header is missing")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return parts[1], nil
}

// RequestLogger logs one line per request once the response is written.
func RequestLogger(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
