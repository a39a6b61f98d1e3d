package game

import (
	"errors"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
	"github.com/DoyleJ11/duo-trivia-backend/internal/store"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindAuthorization   Kind = "authorization"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindExhaustion      Kind = "exhaustion"
	KindInfrastructure  Kind = "infrastructure"
)

var ErrUnauthenticated = errors.New("authentication required")

// Error is what every Service operation returns on failure. Err keeps the
// underlying cause so errors.Is still matches engine and store sentinels.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err. Errors that were never classified are
// infrastructure failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

// Message is the caller-facing text of err, without the operation prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Err.Error()
	}
	return err.Error()
}

func fail(op string, kind Kind, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// wrap classifies err unless it already carries a kind.
func wrap(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, engine.ErrNotParticipant):
		return KindAuthorization
	case errors.Is(err, engine.ErrEmptyValue),
		errors.Is(err, engine.ErrPredictionNotAllowed),
		errors.Is(err, engine.ErrUnsupportedCommand):
		return KindValidation
	case errors.Is(err, engine.ErrGameNotInProgress),
		errors.Is(err, engine.ErrGameAlreadyCompleted),
		errors.Is(err, engine.ErrRoundResolved),
		errors.Is(err, engine.ErrRoundUnresolved),
		errors.Is(err, engine.ErrAlreadyAnswered),
		errors.Is(err, engine.ErrAlreadyPredicted),
		errors.Is(err, store.ErrConflict):
		return KindConflict
	case errors.Is(err, engine.ErrNoActiveRound),
		errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, engine.ErrNoQuestion):
		return KindExhaustion
	default:
		return KindInfrastructure
	}
}
