package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/types"
	gametypes "github.com/DoyleJ11/duo-trivia-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(context.Background(), 16, zaptest.NewLogger(t))
	t.Cleanup(h.Shutdown)
	return h
}

func connect(h *Hub, clientID string, buffer int) chan types.ServerMessage {
	out := make(chan types.ServerMessage, buffer)
	h.Inbox() <- Register{ClientID: clientID, Outbox: out}
	return out
}

// state doubles as a barrier: everything sent before it has been handled.
func state(t *testing.T, h *Hub) View {
	t.Helper()
	reply := make(chan View, 1)
	h.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for hub state")
		return View{}
	}
}

func recv(t *testing.T, ch <-chan types.ServerMessage) types.ServerMessage {
	t.Helper()
	select {
	case m, ok := <-ch:
		require.True(t, ok, "outbox closed unexpectedly")
		return m
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{}
	}
}

func assertEmpty(t *testing.T, ch <-chan types.ServerMessage) {
	t.Helper()
	select {
	case m, ok := <-ch:
		if ok {
			t.Fatalf("unexpected message %+v", m)
		}
	default:
	}
}

func TestHub_RoutesRoomAndUserEvents(t *testing.T) {
	h := newHub(t)
	alice := connect(h, "c1", 4)
	bob := connect(h, "c2", 4)
	lurker := connect(h, "c3", 4)

	h.Inbox() <- Identify{ClientID: "c1", UserID: "u1"}
	h.Inbox() <- Identify{ClientID: "c2", UserID: "u2"}
	h.Inbox() <- Join{ClientID: "c1", GameID: "g1"}
	h.Inbox() <- Join{ClientID: "c2", GameID: "g1"}

	h.ToGame("g1", gametypes.EventGameUpdated, map[string]string{"gameId": "g1"})
	h.ToUser("u2", gametypes.EventNewGameInvitation, map[string]string{"gameId": "g2"})
	v := state(t, h)
	assert.Equal(t, 3, v.NumClients)
	assert.Equal(t, map[string]int{"g1": 2}, v.Rooms)
	assert.Equal(t, map[string]int{"u1": 1, "u2": 1}, v.Users)

	for _, ch := range []chan types.ServerMessage{alice, bob} {
		m := recv(t, ch)
		assert.Equal(t, types.ServerEvent, m.Type)
		assert.Equal(t, gametypes.EventGameUpdated, m.Event)
		assert.Equal(t, "g1", m.GameID)
		assert.JSONEq(t, `{"gameId":"g1"}`, string(m.Data))
	}
	m := recv(t, bob)
	assert.Equal(t, gametypes.EventNewGameInvitation, m.Event)

	assertEmpty(t, alice)
	assertEmpty(t, lurker)
}

func TestHub_LeaveAndUnregister(t *testing.T) {
	h := newHub(t)
	out := connect(h, "c1", 4)
	h.Inbox() <- Identify{ClientID: "c1", UserID: "u1"}
	h.Inbox() <- Join{ClientID: "c1", GameID: "g1"}
	h.Inbox() <- Leave{ClientID: "c1", GameID: "g1"}
	h.ToGame("g1", gametypes.EventGameEnded, struct{}{})

	v := state(t, h)
	assert.Empty(t, v.Rooms)
	assertEmpty(t, out)

	h.Inbox() <- Unregister{ClientID: "c1"}
	v = state(t, h)
	assert.Zero(t, v.NumClients)
	assert.Empty(t, v.Users)

	_, ok := <-out
	assert.False(t, ok, "unregister closes the outbox")
}

func TestHub_DropSlowClient(t *testing.T) {
	h := newHub(t)
	slow := connect(h, "slow", 1)
	fast := connect(h, "fast", 4)
	for _, id := range []string{"slow", "fast"} {
		h.Inbox() <- Join{ClientID: id, GameID: "g1"}
	}

	h.ToGame("g1", gametypes.EventPlayerAnswered, gametypes.PlayerAction{GameID: "g1"})
	h.ToGame("g1", gametypes.EventRoundCompleted, struct{}{})
	v := state(t, h)

	assert.Equal(t, 1, v.NumClients)
	assert.Equal(t, map[string]int{"g1": 1}, v.Rooms)

	// The slow client keeps what fit, then sees its outbox closed.
	first := recv(t, slow)
	assert.Equal(t, gametypes.EventPlayerAnswered, first.Event)
	_, ok := <-slow
	assert.False(t, ok)
	select {
	case <-h.Stopping():
		t.Fatalf("dropping a client must not look like shutdown")
	default:
	}

	assert.Equal(t, gametypes.EventPlayerAnswered, recv(t, fast).Event)
	assert.Equal(t, gametypes.EventRoundCompleted, recv(t, fast).Event)
}

func TestHub_ShutdownClosesOutboxes(t *testing.T) {
	h := NewHub(context.Background(), 0, nil)
	out := connect(h, "c1", 1)
	state(t, h)

	h.Shutdown()
	_, ok := <-out
	assert.False(t, ok)
	select {
	case <-h.Stopping():
	default:
		t.Fatalf("outbox closed before the hub reported stopping")
	}

	select {
	case <-h.Done():
	default:
		t.Fatalf("hub loop still running after shutdown")
	}
}

func TestHub_EnvelopeMarshalsOnce(t *testing.T) {
	h := newHub(t)
	out := connect(h, "c1", 1)
	h.Inbox() <- Identify{ClientID: "c1", UserID: "u1"}
	h.ToUser("u1", gametypes.EventNewGameCreated, gametypes.PlayerAction{GameID: "g1", UserID: "u1"})
	state(t, h)

	m := recv(t, out)
	var got gametypes.PlayerAction
	require.NoError(t, json.Unmarshal(m.Data, &got))
	assert.Equal(t, "g1", got.GameID)
	assert.Empty(t, m.GameID, "user events are not tied to a room")
}
