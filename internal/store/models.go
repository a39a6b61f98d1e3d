package store

import (
	"encoding/json"
	"time"

	"github.com/DoyleJ11/duo-trivia-backend/internal/engine"
	"gorm.io/datatypes"
)

// Column names match the existing games schema so existing databases can be
// pointed at this service.

type User struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Username  string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Category struct {
	ID   string `gorm:"column:category_id;primaryKey;size:64"`
	Name string `gorm:"column:category_name;size:128;not null"`
}

func (Category) TableName() string { return "categories" }

type Question struct {
	ID            string         `gorm:"column:question_id;primaryKey;size:64"`
	CategoryID    string         `gorm:"column:category_id;size:64;index;not null"`
	Text          string         `gorm:"column:question_text;not null"`
	Type          string         `gorm:"column:question_type;size:32;not null"`
	Options       datatypes.JSON `gorm:"column:options"`
	CorrectAnswer *string        `gorm:"column:correct_answer"`
}

func (Question) TableName() string { return "category_questions" }

type Game struct {
	ID                 string    `gorm:"column:game_id;primaryKey;size:36"`
	User1ID            string    `gorm:"column:user1_id;size:64;index;not null"`
	User2ID            string    `gorm:"column:user2_id;size:64;index;not null"`
	SelectedCategoryID string    `gorm:"column:selected_category_id;size:64;not null"`
	Status             string    `gorm:"column:status;size:32;not null"`
	CurrentRound       int       `gorm:"column:current_round;not null;default:1"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (Game) TableName() string { return "games" }

type Round struct {
	ID                  string         `gorm:"column:round_id;primaryKey;size:36"`
	GameID              string         `gorm:"column:game_id;size:36;not null;uniqueIndex:idx_game_rounds_game_number"`
	RoundNumber         int            `gorm:"column:round_number;not null;uniqueIndex:idx_game_rounds_game_number"`
	QuestionID          string         `gorm:"column:question_id;size:64;not null"`
	QuestionType        string         `gorm:"column:question_type;size:32;not null"`
	User1Answer         *string        `gorm:"column:user1_answer"`
	User2Answer         *string        `gorm:"column:user2_answer"`
	User1Prediction     *string        `gorm:"column:user1_prediction"`
	User2Prediction     *string        `gorm:"column:user2_prediction"`
	User1ScoreIncrement int            `gorm:"column:user1_score_increment;not null;default:0"`
	User2ScoreIncrement int            `gorm:"column:user2_score_increment;not null;default:0"`
	RoundResult         datatypes.JSON `gorm:"column:round_result"`
	CreatedAt           time.Time      `gorm:"not null"`
	UpdatedAt           time.Time      `gorm:"not null"`
}

func (Round) TableName() string { return "game_rounds" }

func (g Game) toEngine() engine.Game {
	return engine.Game{
		ID:           g.ID,
		Player1ID:    g.User1ID,
		Player2ID:    g.User2ID,
		CategoryID:   g.SelectedCategoryID,
		Status:       engine.Status(g.Status),
		CurrentRound: g.CurrentRound,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func gameRow(g engine.Game) Game {
	return Game{
		ID:                 g.ID,
		User1ID:            g.Player1ID,
		User2ID:            g.Player2ID,
		SelectedCategoryID: g.CategoryID,
		Status:             string(g.Status),
		CurrentRound:       g.CurrentRound,
		CreatedAt:          g.CreatedAt,
		UpdatedAt:          g.UpdatedAt,
	}
}

func (r Round) toEngine() engine.Round {
	var outcome []byte
	if len(r.RoundResult) > 0 && string(r.RoundResult) != "null" {
		outcome = []byte(r.RoundResult)
	}
	return engine.Round{
		ID:                r.ID,
		GameID:            r.GameID,
		Number:            r.RoundNumber,
		QuestionID:        r.QuestionID,
		Kind:              engine.Kind(r.QuestionType),
		Player1Answer:     deref(r.User1Answer),
		Player2Answer:     deref(r.User2Answer),
		Player1Prediction: deref(r.User1Prediction),
		Player2Prediction: deref(r.User2Prediction),
		Player1Increment:  r.User1ScoreIncrement,
		Player2Increment:  r.User2ScoreIncrement,
		Outcome:           outcome,
	}
}

func roundRow(r engine.Round) Round {
	return Round{
		ID:                  r.ID,
		GameID:              r.GameID,
		RoundNumber:         r.Number,
		QuestionID:          r.QuestionID,
		QuestionType:        string(r.Kind),
		User1Answer:         nullable(r.Player1Answer),
		User2Answer:         nullable(r.Player2Answer),
		User1Prediction:     nullable(r.Player1Prediction),
		User2Prediction:     nullable(r.Player2Prediction),
		User1ScoreIncrement: r.Player1Increment,
		User2ScoreIncrement: r.Player2Increment,
		RoundResult:         datatypes.JSON(r.Outcome),
	}
}

// roundColumns lists the mutable columns of a round for a targeted update.
func roundColumns(r engine.Round) map[string]any {
	return map[string]any{
		"user1_answer":          nullable(r.Player1Answer),
		"user2_answer":          nullable(r.Player2Answer),
		"user1_prediction":      nullable(r.Player1Prediction),
		"user2_prediction":      nullable(r.Player2Prediction),
		"user1_score_increment": r.Player1Increment,
		"user2_score_increment": r.Player2Increment,
		"round_result":          datatypes.JSON(r.Outcome),
	}
}

func (q Question) toEngine() (engine.Question, error) {
	var options []string
	if len(q.Options) > 0 {
		if err := json.Unmarshal(q.Options, &options); err != nil {
			return engine.Question{}, err
		}
	}
	return engine.Question{
		ID:            q.ID,
		CategoryID:    q.CategoryID,
		Text:          q.Text,
		Kind:          engine.Kind(q.Type),
		Options:       options,
		CorrectAnswer: deref(q.CorrectAnswer),
	}, nil
}

func questionRow(q engine.Question) (Question, error) {
	options := q.Options
	if options == nil {
		options = []string{}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return Question{}, err
	}
	return Question{
		ID:            q.ID,
		CategoryID:    q.CategoryID,
		Text:          q.Text,
		Type:          string(q.Kind),
		Options:       datatypes.JSON(data),
		CorrectAnswer: nullable(q.CorrectAnswer),
	}, nil
}
