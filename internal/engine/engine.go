package engine

import (
	"errors"
	"time"
)

var ErrGameNotInProgress = errors.New("game not in progress")
var ErrGameAlreadyCompleted = errors.New("game already completed")
var ErrNotParticipant = errors.New("not a participant in this game")
var ErrNoActiveRound = errors.New("no active round")
var ErrRoundResolved = errors.New("round already completed")
var ErrRoundUnresolved = errors.New("current round is not yet completed")
var ErrAlreadyAnswered = errors.New("already answered this round")
var ErrAlreadyPredicted = errors.New("already made a prediction this round")
var ErrPredictionNotAllowed = errors.New("round does not accept predictions")
var ErrEmptyValue = errors.New("value is required")
var ErrNoQuestion = errors.New("no question available")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Seat string

const (
	SeatPlayer1 Seat = "player1"
	SeatPlayer2 Seat = "player2"
)

type Status string

const (
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

type Category struct {
	ID   string
	Name string
}

type Question struct {
	ID            string
	CategoryID    string
	Text          string
	Kind          Kind
	Options       []string
	CorrectAnswer string
}

type Game struct {
	ID           string
	Player1ID    string
	Player2ID    string
	CategoryID   string
	Status       Status
	CurrentRound int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Round slots are write-once; the empty string means the slot is still open.
type Round struct {
	ID                string
	GameID            string
	Number            int
	QuestionID        string
	Kind              Kind
	Player1Answer     string
	Player2Answer     string
	Player1Prediction string
	Player2Prediction string
	Player1Increment  int
	Player2Increment  int
	Outcome           []byte
}

func (r Round) Resolved() bool { return len(r.Outcome) > 0 }

type Scores struct {
	Player1 int
	Player2 int
}

// State is everything Apply needs to validate a command. Round is nil when the
// game has no active round.
type State struct {
	Game     Game
	Round    *Round
	Question Question
}

type CommandType string

const (
	CmdSubmitAnswer     CommandType = "SubmitAnswer"
	CmdSubmitPrediction CommandType = "SubmitPrediction"
	CmdAdvanceRound     CommandType = "AdvanceRound"
	CmdEndGame          CommandType = "EndGame"
)

/*
	CmdSubmitAnswer     -> EvtPlayerAnswered | EvtRoundCompleted
	CmdSubmitPrediction -> EvtPlayerMadePrediction | EvtRoundCompleted
	CmdAdvanceRound     -> EvtNewRoundStarted (NextRound must be supplied by the caller)
	CmdEndGame          -> EvtGameEnded
*/

type Command struct {
	Type      CommandType
	ActorID   string
	Value     string
	NextRound *Round
}

type EventType string

const (
	EvtPlayerAnswered       EventType = "playerAnswered"
	EvtPlayerMadePrediction EventType = "playerMadePrediction"
	EvtRoundCompleted       EventType = "roundCompleted"
	EvtNewRoundStarted      EventType = "newRoundStarted"
	EvtGameEnded            EventType = "gameEnded"
)

type Event struct {
	Type    EventType
	Seat    Seat
	ActorID string
}

func Apply(s State, cmd Command) (Event, State, error) {
	if cmd.Type == CmdEndGame {
		if s.Game.Status == StatusCompleted {
			return Event{}, s, ErrGameAlreadyCompleted
		}
		seat, ok := SeatOf(s.Game, cmd.ActorID)
		if !ok {
			return Event{}, s, ErrNotParticipant
		}
		newState := s
		newState.Game.Status = StatusCompleted
		return Event{Type: EvtGameEnded, Seat: seat, ActorID: cmd.ActorID}, newState, nil
	}

	if s.Game.Status != StatusInProgress {
		return Event{}, s, ErrGameNotInProgress
	}
	seat, ok := SeatOf(s.Game, cmd.ActorID)
	if !ok {
		return Event{}, s, ErrNotParticipant
	}
	if s.Round == nil || s.Round.Number != s.Game.CurrentRound {
		return Event{}, s, ErrNoActiveRound
	}

	switch cmd.Type {
	case CmdSubmitAnswer:
		return submit(s, seat, cmd, slotAnswer)

	case CmdSubmitPrediction:
		return submit(s, seat, cmd, slotPrediction)

	case CmdAdvanceRound:
		if !s.Round.Resolved() {
			return Event{}, s, ErrRoundUnresolved
		}
		if cmd.NextRound == nil {
			return Event{}, s, ErrNoQuestion
		}
		if _, err := RulesFor(cmd.NextRound.Kind); err != nil {
			return Event{}, s, err
		}
		next := *cmd.NextRound
		next.GameID = s.Game.ID
		next.Number = s.Game.CurrentRound + 1

		newState := s
		newState.Game.CurrentRound = next.Number
		newState.Round = &next
		return Event{Type: EvtNewRoundStarted, Seat: seat, ActorID: cmd.ActorID}, newState, nil

	default:
		return Event{}, s, ErrUnsupportedCommand
	}
}

type slotKind int

const (
	slotAnswer slotKind = iota
	slotPrediction
)

func submit(s State, seat Seat, cmd Command, slot slotKind) (Event, State, error) {
	if s.Round.Resolved() {
		return Event{}, s, ErrRoundResolved
	}
	if isBlank(cmd.Value) {
		return Event{}, s, ErrEmptyValue
	}
	rules, err := RulesFor(s.Round.Kind)
	if err != nil {
		return Event{}, s, err
	}

	// Work on a copy so a rejected command never leaks into the caller's round.
	round := *s.Round
	pending := EvtPlayerAnswered
	if slot == slotPrediction {
		if !rules.AcceptsPredictions() {
			return Event{}, s, ErrPredictionNotAllowed
		}
		target := predictionSlot(&round, seat)
		if *target != "" {
			return Event{}, s, ErrAlreadyPredicted
		}
		*target = cmd.Value
		pending = EvtPlayerMadePrediction
	} else {
		target := answerSlot(&round, seat)
		if *target != "" {
			return Event{}, s, ErrAlreadyAnswered
		}
		*target = cmd.Value
	}

	evt := Event{Type: pending, Seat: seat, ActorID: cmd.ActorID}
	if rules.Complete(round) {
		res, err := rules.Evaluate(round, s.Question)
		if err != nil {
			return Event{}, s, err
		}
		round.Player1Increment = res.Player1
		round.Player2Increment = res.Player2
		round.Outcome = res.Outcome
		evt.Type = EvtRoundCompleted
	}

	newState := s
	newState.Round = &round
	return evt, newState, nil
}
