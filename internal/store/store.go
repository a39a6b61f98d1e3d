package store

import (
	"errors"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
)

var ErrNotFound = errors.New("not found")

// ErrConflict means a guarded write lost a race: the row was not in the state
// the caller expected (game already completed, round pointer moved, round
// number taken).
var ErrConflict = errors.New("conflict")

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// RoundUpdate runs inside the store's per-round critical section with the
// game row and the round at the game's current pointer (nil when that round
// does not exist). Mutations made to *r are persisted when it returns nil;
// any error aborts the whole unit and nothing is written.
type RoundUpdate func(g engine.Game, r *engine.Round) error

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
