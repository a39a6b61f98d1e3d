package types

import "encoding/json"

// Client -> Server
//
//	identify:  { token }   announces who this connection belongs to
//	joinGame:  { gameId }  subscribe to a game room (participants only)
//	leaveGame: { gameId }
type ClientMessage struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	GameID string `json:"gameId,omitempty"`
}

const (
	ClientIdentify  = "identify"
	ClientJoinGame  = "joinGame"
	ClientLeaveGame = "leaveGame"
)

type ServerMessage struct {
	Type   string          `json:"type"` // "event" | "identified" | "joined" | "left" | "error"
	Event  string          `json:"event,omitempty"`
	GameID string          `json:"gameId,omitempty"`
	UserID string          `json:"userId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

const (
	ServerEvent      = "event"
	ServerIdentified = "identified"
	ServerJoined     = "joined"
	ServerLeft       = "left"
	ServerError      = "error"
)
