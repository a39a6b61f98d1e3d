package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
	"github.com/DoyleJ11/duo-trivia-backend/internal/store"
	"github.com/DoyleJ11/duo-trivia-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Store is everything the service needs from persistence. store.SQLStore and
// store.Memory both satisfy it.
type Store interface {
	Reader
	RandomQuestion(ctx context.Context, categoryID string) (engine.Question, error)
	CreateGame(ctx context.Context, g engine.Game, first engine.Round) error
	UpdateRound(ctx context.Context, gameID string, fn store.RoundUpdate) (engine.Round, error)
	AdvanceRound(ctx context.Context, gameID string, from int, next engine.Round) error
	CompleteGame(ctx context.Context, gameID string) error
}

// Publisher delivers events to connected clients. Delivery is best-effort and
// must not block.
type Publisher interface {
	ToUser(userID, event string, payload any)
	ToGame(gameID, event string, payload any)
}

type CreateGameInput struct {
	Player2ID  string
	CategoryID string
}

type SubmitResult struct {
	Game     types.Snapshot
	Resolved bool
}

// AdvanceResult carries either the game with its new round, or Exhausted set
// with an informational Message when the category has no question to offer.
type AdvanceResult struct {
	Game      types.Snapshot
	Exhausted bool
	Message   string
}

const exhaustedMessage = "No more questions in this category. Game might be over or more questions need to be added."

type Service struct {
	store     Store
	assembler *Assembler
	pub       Publisher
	log       *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(st Store, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     st,
		assembler: NewAssembler(st),
		pub:       pub,
		log:       log.Named("game"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *Service) Assembler() *Assembler { return s.assembler }

func (s *Service) CreateGame(ctx context.Context, actorID string, in CreateGameInput) (types.Snapshot, error) {
	const op = "create game"
	if actorID == "" {
		return types.Snapshot{}, fail(op, KindUnauthenticated, ErrUnauthenticated)
	}
	player2 := strings.TrimSpace(in.Player2ID)
	category := strings.TrimSpace(in.CategoryID)
	switch {
	case player2 == "" || category == "":
		return types.Snapshot{}, fail(op, KindValidation, errors.New("user2Id and selectedCategoryId are required"))
	case player2 == actorID:
		return types.Snapshot{}, fail(op, KindValidation, errors.New("cannot start a game against yourself"))
	}

	if _, err := s.store.Category(ctx, category); err != nil {
		if store.IsNotFound(err) {
			return types.Snapshot{}, fail(op, KindNotFound, errors.New("category not found"))
		}
		return types.Snapshot{}, wrap(op, err)
	}
	q, err := s.store.RandomQuestion(ctx, category)
	if err != nil {
		if store.IsNotFound(err) {
			return types.Snapshot{}, fail(op, KindNotFound, errors.New("no questions found for this category"))
		}
		return types.Snapshot{}, wrap(op, err)
	}

	g := engine.NewGame(s.newID(), actorID, player2, category, s.now().UTC())
	first := engine.NewRound(s.newID(), g.ID, 1, q)
	if err := s.store.CreateGame(ctx, g, first); err != nil {
		return types.Snapshot{}, wrap(op, err)
	}

	v, ok := s.settled(ctx, op, g.ID)
	s.log.Info("game created",
		zap.String("game_id", g.ID),
		zap.String("player1", actorID),
		zap.String("player2", player2),
		zap.String("category_id", category),
	)
	if !ok {
		return types.Snapshot{GameID: g.ID, Status: string(g.Status)}, nil
	}
	s.pub.ToUser(actorID, types.EventNewGameCreated, v.For(actorID))
	s.pub.ToUser(player2, types.EventNewGameInvitation, v.For(player2))
	s.pub.ToGame(g.ID, types.EventGameUpdated, v.For(""))
	return v.For(actorID), nil
}

// settled reads the game back after a committed write. The write already
// happened, so a failed read is logged and not returned: the caller still
// reports success and clients resync on their next read.
func (s *Service) settled(ctx context.Context, op, gameID string) (assembled, bool) {
	v, err := s.assembler.load(ctx, gameID)
	if err != nil {
		s.log.Error("read back after commit",
			zap.String("op", op),
			zap.String("game_id", gameID),
			zap.Error(err),
		)
		return assembled{}, false
	}
	return v, true
}

func (s *Service) GetGame(ctx context.Context, gameID, actorID string) (types.Snapshot, error) {
	return s.assembler.Authorize(ctx, gameID, actorID)
}

func (s *Service) SubmitAnswer(ctx context.Context, gameID, actorID, answer string) (SubmitResult, error) {
	return s.submit(ctx, "submit answer", gameID, engine.Command{
		Type:    engine.CmdSubmitAnswer,
		ActorID: actorID,
		Value:   norm.NFC.String(answer),
	})
}

func (s *Service) SubmitPrediction(ctx context.Context, gameID, actorID, prediction string) (SubmitResult, error) {
	return s.submit(ctx, "submit prediction", gameID, engine.Command{
		Type:    engine.CmdSubmitPrediction,
		ActorID: actorID,
		Value:   norm.NFC.String(prediction),
	})
}

// submit writes one slot. Validation, the slot write, the completion check
// and evaluation all run inside one UpdateRound unit, so only the submission
// that fills the last required slot resolves the round.
func (s *Service) submit(ctx context.Context, op, gameID string, cmd engine.Command) (SubmitResult, error) {
	if cmd.ActorID == "" {
		return SubmitResult{}, fail(op, KindUnauthenticated, ErrUnauthenticated)
	}
	pre, err := s.assembler.State(ctx, gameID)
	if err != nil {
		return SubmitResult{}, wrap(op, err)
	}

	var evt engine.Event
	round, err := s.store.UpdateRound(ctx, gameID, func(g engine.Game, r *engine.Round) error {
		if r != nil && (pre.Round == nil || r.ID != pre.Round.ID) {
			// The pointer moved between the read and the lock.
			return store.ErrConflict
		}
		e, next, err := engine.Apply(engine.State{Game: g, Round: r, Question: pre.Question}, cmd)
		if err != nil {
			return err
		}
		*r = *next.Round
		evt = e
		return nil
	})
	if err != nil {
		return SubmitResult{}, wrap(op, err)
	}

	v, ok := s.settled(ctx, op, gameID)
	res := SubmitResult{Game: types.Snapshot{GameID: gameID}, Resolved: round.Resolved()}
	if ok {
		res.Game = v.For(cmd.ActorID)
	}

	log := s.log.With(
		zap.String("game_id", gameID),
		zap.String("round_id", round.ID),
		zap.String("actor", cmd.ActorID),
		zap.String("seat", string(evt.Seat)),
	)
	switch evt.Type {
	case engine.EvtRoundCompleted:
		log.Info("round completed",
			zap.Int("player1_increment", round.Player1Increment),
			zap.Int("player2_increment", round.Player2Increment),
		)
		if ok {
			s.pub.ToGame(gameID, types.EventRoundCompleted, v.For(""))
		}
	default:
		event := types.EventPlayerAnswered
		if evt.Type == engine.EvtPlayerMadePrediction {
			event = types.EventPlayerMadePrediction
		}
		log.Debug("submission recorded", zap.String("event", event))
		s.pub.ToGame(gameID, event, types.PlayerAction{
			GameID:         gameID,
			UserID:         cmd.ActorID,
			CurrentRoundID: round.ID,
		})
	}
	return res, nil
}

// AdvanceRound opens round current+1 with a random question from the game's
// category. Running out of questions is reported in the result and leaves
// the game untouched.
func (s *Service) AdvanceRound(ctx context.Context, gameID, actorID string) (AdvanceResult, error) {
	const op = "advance round"
	if actorID == "" {
		return AdvanceResult{}, fail(op, KindUnauthenticated, ErrUnauthenticated)
	}
	pre, err := s.assembler.State(ctx, gameID)
	if err != nil {
		return AdvanceResult{}, wrap(op, err)
	}

	var next *engine.Round
	q, err := s.store.RandomQuestion(ctx, pre.Game.CategoryID)
	switch {
	case err == nil:
		r := engine.NewRound(s.newID(), gameID, 0, q)
		next = &r
	case !store.IsNotFound(err):
		return AdvanceResult{}, wrap(op, err)
	}

	_, st, err := engine.Apply(pre, engine.Command{Type: engine.CmdAdvanceRound, ActorID: actorID, NextRound: next})
	if errors.Is(err, engine.ErrNoQuestion) {
		s.log.Info("category exhausted", zap.String("game_id", gameID), zap.String("category_id", pre.Game.CategoryID))
		return AdvanceResult{Exhausted: true, Message: exhaustedMessage}, nil
	}
	if err != nil {
		return AdvanceResult{}, wrap(op, err)
	}

	// Guarded on the pointer we validated against; a concurrent advance by
	// the other player turns this into a conflict.
	if err := s.store.AdvanceRound(ctx, gameID, pre.Game.CurrentRound, *st.Round); err != nil {
		return AdvanceResult{}, wrap(op, err)
	}

	v, ok := s.settled(ctx, op, gameID)
	s.log.Info("new round started",
		zap.String("game_id", gameID),
		zap.Int("round", st.Round.Number),
		zap.String("question_id", st.Round.QuestionID),
	)
	res := AdvanceResult{Game: types.Snapshot{GameID: gameID}, Message: "Next round started"}
	if ok {
		s.pub.ToGame(gameID, types.EventNewRoundStarted, v.For(""))
		res.Game = v.For(actorID)
	}
	return res, nil
}

func (s *Service) EndGame(ctx context.Context, gameID, actorID string) (types.Snapshot, error) {
	const op = "end game"
	if actorID == "" {
		return types.Snapshot{}, fail(op, KindUnauthenticated, ErrUnauthenticated)
	}
	pre, err := s.assembler.State(ctx, gameID)
	if err != nil {
		return types.Snapshot{}, wrap(op, err)
	}
	if _, _, err := engine.Apply(pre, engine.Command{Type: engine.CmdEndGame, ActorID: actorID}); err != nil {
		return types.Snapshot{}, wrap(op, err)
	}
	if err := s.store.CompleteGame(ctx, gameID); err != nil {
		if store.IsConflict(err) {
			err = engine.ErrGameAlreadyCompleted
		}
		return types.Snapshot{}, wrap(op, err)
	}

	v, ok := s.settled(ctx, op, gameID)
	s.log.Info("game ended", zap.String("game_id", gameID), zap.String("actor", actorID))
	if !ok {
		return types.Snapshot{GameID: gameID, Status: string(engine.StatusCompleted)}, nil
	}
	s.pub.ToGame(gameID, types.EventGameEnded, v.For(""))
	return v.For(actorID), nil
}
