package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/auth"
	"github.com/DoyleJ11/duo-trivia-backend/internal/game"
	"github.com/DoyleJ11/duo-trivia-backend/internal/hub"
	"github.com/DoyleJ11/duo-trivia-backend/internal/types"
	gametypes "github.com/DoyleJ11/duo-trivia-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
)

var (
	errDropped     = errors.New("dropped by hub")
	errHubStopping = errors.New("hub stopping")
)

// RoomGuard decides whether a user may subscribe to a game room and returns
// the snapshot sent back on join.
type RoomGuard interface {
	Authorize(ctx context.Context, gameID, userID string) (gametypes.Snapshot, error)
}

type Options struct {
	OriginPatterns []string
	OutboxSize     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

func Handler(h *hub.Hub, verifier auth.Verifier, guard RoomGuard, opts Options, log *zap.Logger) http.HandlerFunc {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 16
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}

		s := &session{
			id:       uuid.NewString(),
			conn:     conn,
			hub:      h,
			verifier: verifier,
			guard:    guard,
			opts:     opts,
			replies:  make(chan types.ServerMessage, 4),
		}
		s.log = log.With(zap.String("client_id", s.id))
		s.run(r.Context())
	}
}

type session struct {
	id       string
	conn     *websocket.Conn
	hub      *hub.Hub
	verifier auth.Verifier
	guard    RoomGuard
	opts     Options
	log      *zap.Logger

	// replies carries direct answers to this client; the writer interleaves
	// them with hub events so only one goroutine writes.
	replies chan types.ServerMessage
	userID  string
}

func (s *session) run(parent context.Context) {
	out := make(chan types.ServerMessage, s.opts.OutboxSize)
	if !s.hub.Send(hub.Register{ClientID: s.id, Outbox: out}) {
		_ = s.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.hub.Send(hub.Unregister{ClientID: s.id})
	s.log.Debug("connected")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(gctx, out) })
	g.Go(func() error { return s.pingLoop(gctx) })
	g.Go(func() error {
		defer cancel()
		return s.readLoop(gctx)
	})
	err := g.Wait()

	switch {
	case errors.Is(err, errDropped), errors.Is(err, errHubStopping):
		// The writer already sent the close frame.
	case err != nil:
		s.log.Debug("connection closed", zap.Error(err))
		_ = s.conn.Close(websocket.StatusInternalError, "connection error")
	default:
		_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (s *session) writeLoop(ctx context.Context, out <-chan types.ServerMessage) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-out:
			if !ok {
				return s.hangUp()
			}
			if err := s.write(ctx, msg); err != nil {
				return err
			}
		case msg := <-s.replies:
			if err := s.write(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// hangUp closes the connection once the hub has closed the outbox. The close
// frame goes out before the read side is cancelled so the peer sees the code.
func (s *session) hangUp() error {
	select {
	case <-s.hub.Stopping():
		s.log.Debug("closing for shutdown")
		_ = s.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return errHubStopping
	default:
		s.log.Info("closing slow client")
		_ = s.conn.Close(websocket.StatusPolicyViolation, "client too slow")
		return errDropped
	}
}

func (s *session) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, payload)
}

func (s *session) pingLoop(ctx context.Context) error {
	t := time.NewTicker(s.opts.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := s.conn.Ping(pctx)
			cancel()
			if err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.reply(ctx, types.ServerMessage{Type: types.ServerError, Error: "bad json"})
			continue
		}
		s.handle(ctx, cm)
	}
}

func (s *session) handle(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case types.ClientIdentify:
		userID, err := s.verifier.VerifyToken(ctx, cm.Token)
		if err != nil {
			s.reply(ctx, types.ServerMessage{Type: types.ServerError, Error: "invalid token"})
			return
		}
		s.userID = userID
		s.log = s.log.With(zap.String("user_id", userID))
		s.hub.Send(hub.Identify{ClientID: s.id, UserID: userID})
		s.reply(ctx, types.ServerMessage{Type: types.ServerIdentified, UserID: userID})

	case types.ClientJoinGame:
		if s.userID == "" {
			s.reply(ctx, types.ServerMessage{Type: types.ServerError, GameID: cm.GameID, Error: "identify first"})
			return
		}
		snap, err := s.guard.Authorize(ctx, cm.GameID, s.userID)
		if err != nil {
			s.reply(ctx, types.ServerMessage{Type: types.ServerError, GameID: cm.GameID, Error: game.Message(err)})
			return
		}
		data, err := json.Marshal(snap)
		if err != nil {
			s.reply(ctx, types.ServerMessage{Type: types.ServerError, GameID: cm.GameID, Error: "internal error"})
			return
		}
		s.hub.Send(hub.Join{ClientID: s.id, GameID: cm.GameID})
		s.reply(ctx, types.ServerMessage{Type: types.ServerJoined, GameID: cm.GameID, Data: data})

	case types.ClientLeaveGame:
		s.hub.Send(hub.Leave{ClientID: s.id, GameID: cm.GameID})
		s.reply(ctx, types.ServerMessage{Type: types.ServerLeft, GameID: cm.GameID})

	default:
		s.reply(ctx, types.ServerMessage{Type: types.ServerError, Error: "unknown type"})
	}
}

func (s *session) reply(ctx context.Context, msg types.ServerMessage) {
	select {
	case s.replies <- msg:
	case <-ctx.Done():
	}
}
