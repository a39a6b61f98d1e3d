package game

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
	"github.com/DoyleJ11/duo-trivia-backend/internal/store"
	"github.com/DoyleJ11/duo-trivia-backend/pkg/types"
)

// Reader is the read side of the store used to assemble snapshots.
type Reader interface {
	Game(ctx context.Context, id string) (engine.Game, error)
	Round(ctx context.Context, gameID string, number int) (engine.Round, error)
	Scores(ctx context.Context, gameID string) (engine.Scores, error)
	Category(ctx context.Context, id string) (engine.Category, error)
	Question(ctx context.Context, id string) (engine.Question, error)
	Usernames(ctx context.Context, ids ...string) (map[string]string, error)
}

// Assembler is the single read path: every response and every published
// event is built from a fresh Assemble.
type Assembler struct {
	store Reader
}

func NewAssembler(r Reader) *Assembler {
	return &Assembler{store: r}
}

// State loads what the engine needs to validate a command: the game, the
// round at its pointer (nil if none) and that round's question.
func (a *Assembler) State(ctx context.Context, gameID string) (engine.State, error) {
	g, err := a.store.Game(ctx, gameID)
	if err != nil {
		if store.IsNotFound(err) {
			return engine.State{}, fmt.Errorf("game %s %w", gameID, store.ErrNotFound)
		}
		return engine.State{}, err
	}

	st := engine.State{Game: g}
	r, err := a.store.Round(ctx, gameID, g.CurrentRound)
	switch {
	case store.IsNotFound(err):
		return st, nil
	case err != nil:
		return engine.State{}, err
	}
	st.Round = &r

	q, err := a.store.Question(ctx, r.QuestionID)
	if err != nil {
		// A round pointing at a missing question is broken data, not a
		// missing game.
		return engine.State{}, fmt.Errorf("question %s of round %d: %v", r.QuestionID, r.Number, err)
	}
	st.Question = q
	return st, nil
}

// Assemble builds the room view of a game: submitted values stay hidden until
// the round resolves.
func (a *Assembler) Assemble(ctx context.Context, gameID string) (types.Snapshot, error) {
	return a.AssembleFor(ctx, gameID, "")
}

// AssembleFor builds the game as viewerID sees it. A participant also sees
// their own slots in the open round.
func (a *Assembler) AssembleFor(ctx context.Context, gameID, viewerID string) (types.Snapshot, error) {
	v, err := a.load(ctx, gameID)
	if err != nil {
		return types.Snapshot{}, err
	}
	return v.For(viewerID), nil
}

// Authorize assembles the game for userID and checks that they play in it.
func (a *Assembler) Authorize(ctx context.Context, gameID, userID string) (types.Snapshot, error) {
	if userID == "" {
		return types.Snapshot{}, fail("get game", KindUnauthenticated, ErrUnauthenticated)
	}
	v, err := a.load(ctx, gameID)
	if err != nil {
		return types.Snapshot{}, err
	}
	if !engine.IsParticipant(v.st.Game, userID) {
		return types.Snapshot{}, fail("get game", KindAuthorization, engine.ErrNotParticipant)
	}
	return v.For(userID), nil
}

// assembled is one consistent read of a game, renderable for any viewer.
type assembled struct {
	st     engine.State
	cat    engine.Category
	scores engine.Scores
	names  map[string]string
}

func (v assembled) For(viewerID string) types.Snapshot {
	return Snapshot(v.st, v.cat, v.scores, v.names, viewerID)
}

func (a *Assembler) load(ctx context.Context, gameID string) (assembled, error) {
	st, err := a.State(ctx, gameID)
	if err != nil {
		return assembled{}, wrap("assemble", err)
	}
	scores, err := a.store.Scores(ctx, st.Game.ID)
	if err != nil {
		return assembled{}, wrap("assemble", err)
	}
	names, err := a.store.Usernames(ctx, st.Game.Player1ID, st.Game.Player2ID)
	if err != nil {
		return assembled{}, wrap("assemble", err)
	}
	cat, err := a.store.Category(ctx, st.Game.CategoryID)
	switch {
	case store.IsNotFound(err):
		cat = engine.Category{ID: st.Game.CategoryID}
	case err != nil:
		return assembled{}, wrap("assemble", err)
	}
	return assembled{st: st, cat: cat, scores: scores, names: names}, nil
}

// Snapshot renders assembled state for viewerID. The trivia correct answer is
// left out; it is only visible inside a resolved outcome. While the round is
// open only the viewer's own answer and prediction are shown; the other seat
// is reported as submitted or not.
func Snapshot(st engine.State, cat engine.Category, scores engine.Scores, names map[string]string, viewerID string) types.Snapshot {
	snap := types.Snapshot{
		GameID: st.Game.ID,
		Player1: types.Participant{
			ID:       st.Game.Player1ID,
			Username: names[st.Game.Player1ID],
			Score:    scores.Player1,
		},
		Player2: types.Participant{
			ID:       st.Game.Player2ID,
			Username: names[st.Game.Player2ID],
			Score:    scores.Player2,
		},
		SelectedCategory: types.Category{ID: cat.ID, Name: cat.Name},
		Status:           string(st.Game.Status),
	}
	if st.Round == nil {
		return snap
	}

	r := st.Round
	viewer, _ := engine.SeatOf(st.Game, viewerID)
	visible := func(seat engine.Seat, v string) string {
		if r.Resolved() || seat == viewer {
			return v
		}
		return ""
	}
	round := &types.Round{
		RoundID:           r.ID,
		Number:            r.Number,
		Phase:             string(engine.DerivePhase(*r)),
		Player1Answered:   r.Player1Answer != "",
		Player2Answered:   r.Player2Answer != "",
		Player1Predicted:  r.Player1Prediction != "",
		Player2Predicted:  r.Player2Prediction != "",
		Player1Answer:     visible(engine.SeatPlayer1, r.Player1Answer),
		Player2Answer:     visible(engine.SeatPlayer2, r.Player2Answer),
		Player1Prediction: visible(engine.SeatPlayer1, r.Player1Prediction),
		Player2Prediction: visible(engine.SeatPlayer2, r.Player2Prediction),
		Player1Increment:  r.Player1Increment,
		Player2Increment:  r.Player2Increment,
		Resolved:          r.Resolved(),
		Outcome:           r.Outcome,
	}
	if st.Question.ID != "" {
		round.Question = &types.Question{
			ID:      st.Question.ID,
			Text:    st.Question.Text,
			Type:    string(st.Question.Kind),
			Options: st.Question.Options,
		}
	}
	snap.CurrentRound = round
	return snap
}
