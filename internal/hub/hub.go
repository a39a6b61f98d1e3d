package hub

import (
	"context"
	"encoding/json"

	"github.com/DoyleJ11/duo-trivia-backend/internal/types"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// Register adds a connection. Outbox is owned by the hub from here on: the
// hub closes it when the client is dropped, unregistered or the hub stops.
type Register struct {
	ClientID string
	Outbox   chan types.ServerMessage
}

// Identify binds a connection to a user so ToUser reaches it.
type Identify struct {
	ClientID string
	UserID   string
}

type Join struct {
	ClientID string
	GameID   string
}

type Leave struct {
	ClientID string
	GameID   string
}

type Unregister struct {
	ClientID string
}

// Publish delivers Msg to every client identified as UserID, or every client
// in the GameID room. Exactly one of the two is set.
type Publish struct {
	UserID string
	GameID string
	Msg    types.ServerMessage
}

type GetState struct {
	Reply chan View
}

type ShutdownHub struct{}

func (Register) isHubMsg()    {}
func (Identify) isHubMsg()    {}
func (Join) isHubMsg()        {}
func (Leave) isHubMsg()       {}
func (Unregister) isHubMsg()  {}
func (Publish) isHubMsg()     {}
func (GetState) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

// View is a copy of the registry for tests and diagnostics.
type View struct {
	NumClients int
	Users      map[string]int // user id -> connections
	Rooms      map[string]int // game id -> connections
}

type client struct {
	outbox chan types.ServerMessage
	userID string
	rooms  map[string]struct{}
}

// Hub owns the live connection registry. All maps are touched only by the
// loop goroutine.
type Hub struct {
	inbox   chan HubMsg
	clients map[string]*client
	users   map[string]map[string]struct{}
	rooms   map[string]map[string]struct{}
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, inboxSize int, log *zap.Logger) *Hub {
	if inboxSize <= 0 {
		inboxSize = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, inboxSize),
		clients: make(map[string]*client),
		users:   make(map[string]map[string]struct{}),
		rooms:   make(map[string]map[string]struct{}),
		log:     log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Send hands m to the hub unless it has stopped. It reports whether m was
// accepted.
func (h *Hub) Send(m HubMsg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Done is closed once the hub loop has exited and every outbox is closed.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Stopping is closed before the hub starts closing outboxes on shutdown, so a
// writer that finds its outbox closed can tell shutdown from being dropped.
func (h *Hub) Stopping() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) Shutdown() {
	if !h.Send(ShutdownHub{}) {
		return
	}
	<-h.done
}

func (h *Hub) ToUser(userID, event string, payload any) {
	if msg, ok := h.envelope(event, payload); ok {
		h.Send(Publish{UserID: userID, Msg: msg})
	}
}

func (h *Hub) ToGame(gameID, event string, payload any) {
	if msg, ok := h.envelope(event, payload); ok {
		msg.GameID = gameID
		h.Send(Publish{GameID: gameID, Msg: msg})
	}
}

// envelope marshals the payload once; the hub then copies the same bytes to
// every recipient.
func (h *Hub) envelope(event string, payload any) (types.ServerMessage, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal event payload", zap.String("event", event), zap.Error(err))
		return types.ServerMessage{}, false
	}
	return types.ServerMessage{Type: types.ServerEvent, Event: event, Data: data}, true
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				if old := h.clients[msg.ClientID]; old != nil {
					h.drop(msg.ClientID)
				}
				h.clients[msg.ClientID] = &client{outbox: msg.Outbox, rooms: make(map[string]struct{})}

			case Identify:
				c := h.clients[msg.ClientID]
				if c == nil {
					break
				}
				if c.userID != "" {
					removeFrom(h.users, c.userID, msg.ClientID)
				}
				c.userID = msg.UserID
				addTo(h.users, msg.UserID, msg.ClientID)

			case Join:
				c := h.clients[msg.ClientID]
				if c == nil {
					break
				}
				c.rooms[msg.GameID] = struct{}{}
				addTo(h.rooms, msg.GameID, msg.ClientID)

			case Leave:
				if c := h.clients[msg.ClientID]; c != nil {
					delete(c.rooms, msg.GameID)
					removeFrom(h.rooms, msg.GameID, msg.ClientID)
				}

			case Unregister:
				h.drop(msg.ClientID)

			case Publish:
				targets := h.rooms[msg.GameID]
				if msg.UserID != "" {
					targets = h.users[msg.UserID]
				}
				h.broadcast(targets, msg.Msg)

			case GetState:
				v := View{
					NumClients: len(h.clients),
					Users:      make(map[string]int, len(h.users)),
					Rooms:      make(map[string]int, len(h.rooms)),
				}
				for id, set := range h.users {
					v.Users[id] = len(set)
				}
				for id, set := range h.rooms {
					v.Rooms[id] = len(set)
				}
				msg.Reply <- v

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) broadcast(targets map[string]struct{}, msg types.ServerMessage) {
	// Collect first; drop mutates the target set.
	var slow []string
	for id := range targets {
		select {
		case h.clients[id].outbox <- msg:
			// ok
		default:
			slow = append(slow, id)
		}
	}
	for _, id := range slow {
		h.log.Warn("dropping slow client", zap.String("client_id", id), zap.String("event", msg.Event))
		h.drop(id)
	}
}

// drop removes a client from every index and closes its outbox, which tells
// the connection's writer to hang up.
func (h *Hub) drop(clientID string) {
	c := h.clients[clientID]
	if c == nil {
		return
	}
	if c.userID != "" {
		removeFrom(h.users, c.userID, clientID)
	}
	for room := range c.rooms {
		removeFrom(h.rooms, room, clientID)
	}
	delete(h.clients, clientID)
	close(c.outbox)
}

func (h *Hub) shutdown() {
	h.cancel()
	for id := range h.clients {
		h.drop(id)
	}
}

func addTo(index map[string]map[string]struct{}, key, clientID string) {
	set := index[key]
	if set == nil {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[clientID] = struct{}{}
}

func removeFrom(index map[string]map[string]struct{}, key, clientID string) {
	set := index[key]
	delete(set, clientID)
	if len(set) == 0 {
		delete(index, key)
	}
}
