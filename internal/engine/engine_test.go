package engine

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func newState(kind Kind) State {
	g := NewGame("game-1", alice, bob, "cat-1", time.Unix(0, 0))
	q := Question{ID: "q-1", CategoryID: "cat-1", Text: "Who is more?", Kind: kind}
	if kind == KindTrivia {
		q.CorrectAnswer = "Paris"
	}
	r := NewRound("round-1", g.ID, 1, q)
	return State{Game: g, Round: &r, Question: q}
}

func apply(t *testing.T, s State, cmd Command) (Event, State) {
	t.Helper()
	evt, next, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("Apply(%s by %s): unexpected err %v", cmd.Type, cmd.ActorID, err)
	}
	return evt, next
}

func TestSubmitAnswer_Guards(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(s *State)
		cmd     Command
		wantErr error
	}{
		{
			name:    "game completed",
			setup:   func(s *State) { s.Game.Status = StatusCompleted },
			cmd:     Command{Type: CmdSubmitAnswer, ActorID: alice, Value: "X"},
			wantErr: ErrGameNotInProgress,
		},
		{
			name:    "stranger",
			setup:   func(s *State) {},
			cmd:     Command{Type: CmdSubmitAnswer, ActorID: "user-mallory", Value: "X"},
			wantErr: ErrNotParticipant,
		},
		{
			name:    "no round",
			setup:   func(s *State) { s.Round = nil },
			cmd:     Command{Type: CmdSubmitAnswer, ActorID: alice, Value: "X"},
			wantErr: ErrNoActiveRound,
		},
		{
			name:    "round behind pointer",
			setup:   func(s *State) { s.Game.CurrentRound = 2 },
			cmd:     Command{Type: CmdSubmitAnswer, ActorID: alice, Value: "X"},
			wantErr: ErrNoActiveRound,
		},
		{
			name:    "round resolved",
			setup:   func(s *State) { s.Round.Outcome = []byte(`{}`) },
			cmd:     Command{Type: CmdSubmitAnswer, ActorID: bob, Value: "X"},
			wantErr: ErrRoundResolved,
		},
		{
			name:    "already answered",
			setup:   func(s *State) { s.Round.Player2Answer = "Y" },
			cmd:     Command{Type: CmdSubmitAnswer, ActorID: bob, Value: "X"},
			wantErr: ErrAlreadyAnswered,
		},
		{
			name:    "blank value",
			setup:   func(s *State) {},
			cmd:     Command{Type: CmdSubmitAnswer, ActorID: alice, Value: "   "},
			wantErr: ErrEmptyValue,
		},
		{
			name:    "unknown kind",
			setup:   func(s *State) { s.Round.Kind = "essay" },
			cmd:     Command{Type: CmdSubmitAnswer, ActorID: alice, Value: "X"},
			wantErr: ErrUnknownKind,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newState(KindWhoIsMore)
			tc.setup(&s)
			before := s.Round
			var snapshot Round
			if before != nil {
				snapshot = *before
			}

			_, next, err := Apply(s, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if before != nil && (next.Round != before || !reflect.DeepEqual(*before, snapshot)) {
				t.Fatalf("rejected command must not mutate the round")
			}
		})
	}
}

func TestSubmitAnswer_SlotIsChosenByIdentity(t *testing.T) {
	s := newState(KindWhoIsMore)

	evt, next := apply(t, s, Command{Type: CmdSubmitAnswer, ActorID: bob, Value: "B"})
	if evt.Type != EvtPlayerAnswered || evt.Seat != SeatPlayer2 {
		t.Fatalf("got %#v, want playerAnswered from player2", evt)
	}
	if next.Round.Player2Answer != "B" || next.Round.Player1Answer != "" {
		t.Fatalf("answer landed in wrong slot: %#v", next.Round)
	}
	if s.Round.Player2Answer != "" {
		t.Fatalf("Apply mutated the input round")
	}
}

func TestSubmitAnswer_AgreementResolvesRound(t *testing.T) {
	cases := []struct {
		name   string
		p1, p2 string
		want   int
		agreed bool
	}{
		{name: "agree", p1: "X", p2: "X", want: AgreementReward, agreed: true},
		{name: "disagree", p1: "X", p2: "Y", want: 0, agreed: false},
		{name: "case sensitive", p1: "x", p2: "X", want: 0, agreed: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newState(KindWhoIsMore)
			_, s = apply(t, s, Command{Type: CmdSubmitAnswer, ActorID: alice, Value: tc.p1})
			if s.Round.Resolved() {
				t.Fatalf("round resolved after one answer")
			}
			evt, s := apply(t, s, Command{Type: CmdSubmitAnswer, ActorID: bob, Value: tc.p2})
			if evt.Type != EvtRoundCompleted {
				t.Fatalf("want roundCompleted, got %s", evt.Type)
			}
			if s.Round.Player1Increment != tc.want || s.Round.Player2Increment != tc.want {
				t.Fatalf("increments = %d/%d, want %d each", s.Round.Player1Increment, s.Round.Player2Increment, tc.want)
			}
			var out AgreementOutcome
			if err := json.Unmarshal(s.Round.Outcome, &out); err != nil {
				t.Fatalf("outcome: %v", err)
			}
			if out.Agreement != tc.agreed || out.Player1Guess != tc.p1 || out.Player2Guess != tc.p2 {
				t.Fatalf("outcome = %#v", out)
			}
		})
	}
}

func TestSubmitPrediction_RequiresAllFourInputs(t *testing.T) {
	s := newState(KindMultipleChoice)

	evt, s := apply(t, s, Command{Type: CmdSubmitPrediction, ActorID: alice, Value: "B"})
	if evt.Type != EvtPlayerMadePrediction {
		t.Fatalf("want playerMadePrediction, got %s", evt.Type)
	}
	evt, s = apply(t, s, Command{Type: CmdSubmitAnswer, ActorID: alice, Value: "A"})
	if evt.Type != EvtPlayerAnswered {
		t.Fatalf("want playerAnswered, got %s", evt.Type)
	}
	evt, s = apply(t, s, Command{Type: CmdSubmitAnswer, ActorID: bob, Value: "B"})
	if evt.Type != EvtPlayerAnswered || s.Round.Resolved() {
		t.Fatalf("both answers without both predictions must not resolve, got %s", evt.Type)
	}
	evt, s = apply(t, s, Command{Type: CmdSubmitPrediction, ActorID: bob, Value: "C"})
	if evt.Type != EvtRoundCompleted {
		t.Fatalf("want roundCompleted, got %s", evt.Type)
	}
	if s.Round.Player1Increment != PredictionReward || s.Round.Player2Increment != 0 {
		t.Fatalf("increments = %d/%d", s.Round.Player1Increment, s.Round.Player2Increment)
	}

	_, _, err := Apply(s, Command{Type: CmdSubmitPrediction, ActorID: alice, Value: "D"})
	if !errors.Is(err, ErrRoundResolved) {
		t.Fatalf("want ErrRoundResolved, got %v", err)
	}
}

func TestSubmitPrediction_Rejections(t *testing.T) {
	s := newState(KindTrivia)
	_, _, err := Apply(s, Command{Type: CmdSubmitPrediction, ActorID: alice, Value: "B"})
	if !errors.Is(err, ErrPredictionNotAllowed) {
		t.Fatalf("want ErrPredictionNotAllowed, got %v", err)
	}

	s = newState(KindMultipleChoice)
	_, s = apply(t, s, Command{Type: CmdSubmitPrediction, ActorID: bob, Value: "B"})
	_, _, err = Apply(s, Command{Type: CmdSubmitPrediction, ActorID: bob, Value: "C"})
	if !errors.Is(err, ErrAlreadyPredicted) {
		t.Fatalf("want ErrAlreadyPredicted, got %v", err)
	}
	if s.Round.Player2Prediction != "B" {
		t.Fatalf("prediction overwritten: %q", s.Round.Player2Prediction)
	}
}

func TestAdvanceRound(t *testing.T) {
	s := newState(KindWhoIsMore)
	next := NewRound("round-2", "", 0, Question{ID: "q-2", Kind: KindTrivia})

	_, _, err := Apply(s, Command{Type: CmdAdvanceRound, ActorID: alice, NextRound: &next})
	if !errors.Is(err, ErrRoundUnresolved) {
		t.Fatalf("want ErrRoundUnresolved, got %v", err)
	}

	_, s = apply(t, s, Command{Type: CmdSubmitAnswer, ActorID: alice, Value: "X"})
	_, s = apply(t, s, Command{Type: CmdSubmitAnswer, ActorID: bob, Value: "X"})

	_, _, err = Apply(s, Command{Type: CmdAdvanceRound, ActorID: alice})
	if !errors.Is(err, ErrNoQuestion) {
		t.Fatalf("want ErrNoQuestion, got %v", err)
	}

	evt, advanced := apply(t, s, Command{Type: CmdAdvanceRound, ActorID: bob, NextRound: &next})
	if evt.Type != EvtNewRoundStarted {
		t.Fatalf("want newRoundStarted, got %s", evt.Type)
	}
	if advanced.Game.CurrentRound != 2 || advanced.Round.Number != 2 || advanced.Round.GameID != s.Game.ID {
		t.Fatalf("advanced state = %#v / %#v", advanced.Game, advanced.Round)
	}
	if s.Game.CurrentRound != 1 {
		t.Fatalf("Apply mutated the input game")
	}
}

func TestEndGame(t *testing.T) {
	s := newState(KindWhoIsMore)

	_, _, err := Apply(s, Command{Type: CmdEndGame, ActorID: "user-mallory"})
	if !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("want ErrNotParticipant, got %v", err)
	}

	evt, ended := apply(t, s, Command{Type: CmdEndGame, ActorID: bob})
	if evt.Type != EvtGameEnded || ended.Game.Status != StatusCompleted {
		t.Fatalf("got %#v / %s", evt, ended.Game.Status)
	}

	_, _, err = Apply(ended, Command{Type: CmdEndGame, ActorID: alice})
	if !errors.Is(err, ErrGameAlreadyCompleted) {
		t.Fatalf("want ErrGameAlreadyCompleted, got %v", err)
	}
	_, _, err = Apply(ended, Command{Type: CmdSubmitAnswer, ActorID: alice, Value: "X"})
	if !errors.Is(err, ErrGameNotInProgress) {
		t.Fatalf("want ErrGameNotInProgress, got %v", err)
	}
}

func TestUnsupportedCommand(t *testing.T) {
	_, _, err := Apply(newState(KindTrivia), Command{Type: "Shuffle", ActorID: alice})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}
