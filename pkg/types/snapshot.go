package types

import "encoding/json"

// Snapshot is the assembled view of a game sent to clients. Scores are always
// derived from round history when the snapshot is built.
//
//	gameId: string
//	player1, player2: { id, username, score }
//	selectedCategory: { id, name }
//	status: "inProgress" | "completed"
//	currentRound: Round | null
type Snapshot struct {
	GameID           string      `json:"gameId"`
	Player1          Participant `json:"player1"`
	Player2          Participant `json:"player2"`
	SelectedCategory Category    `json:"selectedCategory"`
	Status           string      `json:"status"`
	CurrentRound     *Round      `json:"currentRound"`
}

type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Round never carries the trivia correct answer; it only shows up inside the
// outcome once the round is resolved. Before that, answer and prediction
// values are filled in only for the viewer's own seat.
type Round struct {
	RoundID           string          `json:"roundId"`
	Number            int             `json:"number"`
	Phase             string          `json:"phase"`
	Question          *Question       `json:"question"`
	Player1Answered   bool            `json:"player1Answered"`
	Player2Answered   bool            `json:"player2Answered"`
	Player1Predicted  bool            `json:"player1Predicted"`
	Player2Predicted  bool            `json:"player2Predicted"`
	Player1Answer     string          `json:"player1Answer,omitempty"`
	Player2Answer     string          `json:"player2Answer,omitempty"`
	Player1Prediction string          `json:"player1Prediction,omitempty"`
	Player2Prediction string          `json:"player2Prediction,omitempty"`
	Player1Increment  int             `json:"player1ScoreIncrement"`
	Player2Increment  int             `json:"player2ScoreIncrement"`
	Resolved          bool            `json:"resolved"`
	Outcome           json.RawMessage `json:"roundResult,omitempty"`
}

type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}
