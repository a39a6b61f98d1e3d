package types

// Events published by the game service. Unless noted the payload is a Snapshot.
const (
	EventNewGameCreated       = "newGameCreated"
	EventNewGameInvitation    = "newGameInvitation"
	EventGameUpdated          = "gameUpdated"
	EventPlayerAnswered       = "playerAnswered"       // PlayerAction
	EventPlayerMadePrediction = "playerMadePrediction" // PlayerAction
	EventRoundCompleted       = "roundCompleted"
	EventNewRoundStarted      = "newRoundStarted"
	EventGameEnded            = "gameEnded"
)

// PlayerAction tells the room that one side acted without revealing the value.
type PlayerAction struct {
	GameID         string `json:"gameId"`
	UserID         string `json:"userId"`
	CurrentRoundID string `json:"currentRoundId"`
}
