package engine

import (
	"strings"
	"time"
)

type Phase string

const (
	PhaseAwaitingSubmissions Phase = "awaitingSubmissions"
	PhaseResolved            Phase = "resolved"
)

func NewGame(id, player1ID, player2ID, categoryID string, now time.Time) Game {
	return Game{
		ID:           id,
		Player1ID:    player1ID,
		Player2ID:    player2ID,
		CategoryID:   categoryID,
		Status:       StatusInProgress,
		CurrentRound: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewRound(id, gameID string, number int, q Question) Round {
	return Round{
		ID:         id,
		GameID:     gameID,
		Number:     number,
		QuestionID: q.ID,
		Kind:       q.Kind,
	}
}

// SeatOf resolves an identity to a seat by equality against the stored
// participants, never by submission order.
func SeatOf(g Game, userID string) (Seat, bool) {
	switch {
	case userID == "":
		return "", false
	case userID == g.Player1ID:
		return SeatPlayer1, true
	case userID == g.Player2ID:
		return SeatPlayer2, true
	default:
		return "", false
	}
}

func IsParticipant(g Game, userID string) bool {
	_, ok := SeatOf(g, userID)
	return ok
}

func DerivePhase(r Round) Phase {
	if r.Resolved() {
		return PhaseResolved
	}
	return PhaseAwaitingSubmissions
}

func answerSlot(r *Round, seat Seat) *string {
	if seat == SeatPlayer1 {
		return &r.Player1Answer
	}
	return &r.Player2Answer
}

func predictionSlot(r *Round, seat Seat) *string {
	if seat == SeatPlayer1 {
		return &r.Player1Prediction
	}
	return &r.Player2Prediction
}

func isBlank(v string) bool {
	return strings.TrimSpace(v) == ""
}
