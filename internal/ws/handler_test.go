package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
	"github.com/DoyleJ11/duo-trivia-backend/internal/game"
	"github.com/DoyleJ11/duo-trivia-backend/internal/hub"
	"github.com/DoyleJ11/duo-trivia-backend/internal/types"
	gametypes "github.com/DoyleJ11/duo-trivia-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type tokens map[string]string

func (t tokens) VerifyToken(_ context.Context, token string) (string, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

type guard struct{}

func (guard) Authorize(_ context.Context, gameID, userID string) (gametypes.Snapshot, error) {
	if userID != "u1" {
		return gametypes.Snapshot{}, &game.Error{Kind: game.KindAuthorization, Op: "get game", Err: engine.ErrNotParticipant}
	}
	return gametypes.Snapshot{GameID: gameID, Status: "inProgress"}, nil
}

func dial(t *testing.T, h *hub.Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(Handler(h, tokens{"tok-1": "u1", "tok-2": "u2"}, guard{}, Options{PingInterval: time.Hour}, zaptest.NewLogger(t)))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func read(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var msg types.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func TestHandler_IdentifyJoinAndReceive(t *testing.T) {
	h := hub.NewHub(context.Background(), 16, nil)
	t.Cleanup(h.Shutdown)
	conn := dial(t, h)

	send(t, conn, types.ClientMessage{Type: types.ClientJoinGame, GameID: "g1"})
	assert.Equal(t, types.ServerError, read(t, conn).Type, "joining before identify fails")

	send(t, conn, types.ClientMessage{Type: types.ClientIdentify, Token: "tok-1"})
	msg := read(t, conn)
	assert.Equal(t, types.ServerIdentified, msg.Type)
	assert.Equal(t, "u1", msg.UserID)

	send(t, conn, types.ClientMessage{Type: types.ClientJoinGame, GameID: "g1"})
	msg = read(t, conn)
	require.Equal(t, types.ServerJoined, msg.Type)
	assert.JSONEq(t, `{"gameId":"g1","player1":{"id":"","username":"","score":0},"player2":{"id":"","username":"","score":0},"selectedCategory":{"id":"","name":""},"status":"inProgress","currentRound":null}`, string(msg.Data))

	h.ToGame("g1", gametypes.EventRoundCompleted, map[string]int{"round": 1})
	msg = read(t, conn)
	assert.Equal(t, types.ServerEvent, msg.Type)
	assert.Equal(t, gametypes.EventRoundCompleted, msg.Event)
	assert.Equal(t, "g1", msg.GameID)

	h.ToUser("u1", gametypes.EventNewGameInvitation, map[string]string{"gameId": "g2"})
	msg = read(t, conn)
	assert.Equal(t, gametypes.EventNewGameInvitation, msg.Event)

	send(t, conn, types.ClientMessage{Type: types.ClientLeaveGame, GameID: "g1"})
	assert.Equal(t, types.ServerLeft, read(t, conn).Type)
}

func TestHandler_Rejections(t *testing.T) {
	h := hub.NewHub(context.Background(), 16, nil)
	t.Cleanup(h.Shutdown)
	conn := dial(t, h)

	send(t, conn, types.ClientMessage{Type: types.ClientIdentify, Token: "forged"})
	msg := read(t, conn)
	assert.Equal(t, types.ServerError, msg.Type)
	assert.Equal(t, "invalid token", msg.Error)

	send(t, conn, types.ClientMessage{Type: types.ClientIdentify, Token: "tok-2"})
	require.Equal(t, types.ServerIdentified, read(t, conn).Type)

	send(t, conn, types.ClientMessage{Type: types.ClientJoinGame, GameID: "g1"})
	msg = read(t, conn)
	assert.Equal(t, types.ServerError, msg.Type)
	assert.Equal(t, engine.ErrNotParticipant.Error(), msg.Error)

	send(t, conn, types.ClientMessage{Type: "shuffle"})
	assert.Equal(t, "unknown type", read(t, conn).Error)
}

func TestHandler_UnregistersOnClose(t *testing.T) {
	h := hub.NewHub(context.Background(), 16, nil)
	t.Cleanup(h.Shutdown)
	conn := dial(t, h)

	send(t, conn, types.ClientMessage{Type: types.ClientIdentify, Token: "tok-1"})
	read(t, conn)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))

	require.Eventually(t, func() bool {
		reply := make(chan hub.View, 1)
		h.Inbox() <- hub.GetState{Reply: reply}
		return (<-reply).NumClients == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_ShutdownClosesGoingAway(t *testing.T) {
	h := hub.NewHub(context.Background(), 16, nil)
	conn := dial(t, h)

	send(t, conn, types.ClientMessage{Type: types.ClientIdentify, Token: "tok-1"})
	require.Equal(t, types.ServerIdentified, read(t, conn).Type)

	h.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
