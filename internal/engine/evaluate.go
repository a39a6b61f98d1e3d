package engine

import "encoding/json"

const (
	AgreementReward  = 10
	TriviaReward     = 10
	PredictionReward = 15
	MatchBonus       = 5
)

// Resolution is what evaluating a complete round produces: the score
// increments for each seat and the encoded outcome record.
type Resolution struct {
	Player1 int
	Player2 int
	Outcome []byte
}

type AgreementOutcome struct {
	Player1Guess string `json:"player1Guess"`
	Player2Guess string `json:"player2Guess"`
	Agreement    bool   `json:"agreement"`
}

type TriviaOutcome struct {
	CorrectAnswer  string `json:"correctAnswer"`
	Player1Correct bool   `json:"player1Correct"`
	Player2Correct bool   `json:"player2Correct"`
}

type PredictionOutcome struct {
	Player1PredictedPlayer2  string `json:"player1PredictedPlayer2"`
	Player2ActualAnswer      string `json:"player2ActualAnswer"`
	Player1PredictionCorrect bool   `json:"player1PredictionCorrect"`
	Player2PredictedPlayer1  string `json:"player2PredictedPlayer1"`
	Player1ActualAnswer      string `json:"player1ActualAnswer"`
	Player2PredictionCorrect bool   `json:"player2PredictionCorrect"`
	ActualAnswersMatch       bool   `json:"actualAnswersMatch"`
}

func EvaluateAgreement(player1Answer, player2Answer string) (Resolution, error) {
	out := AgreementOutcome{
		Player1Guess: player1Answer,
		Player2Guess: player2Answer,
		Agreement:    player1Answer == player2Answer,
	}
	res := Resolution{}
	if out.Agreement {
		res.Player1 = AgreementReward
		res.Player2 = AgreementReward
	}
	return encode(res, out)
}

func EvaluateTrivia(correctAnswer, player1Answer, player2Answer string) (Resolution, error) {
	out := TriviaOutcome{
		CorrectAnswer:  correctAnswer,
		Player1Correct: player1Answer == correctAnswer,
		Player2Correct: player2Answer == correctAnswer,
	}
	res := Resolution{}
	if out.Player1Correct {
		res.Player1 = TriviaReward
	}
	if out.Player2Correct {
		res.Player2 = TriviaReward
	}
	return encode(res, out)
}

func EvaluatePrediction(player1Prediction, player2Prediction, player1Answer, player2Answer string) (Resolution, error) {
	out := PredictionOutcome{
		Player1PredictedPlayer2:  player1Prediction,
		Player2ActualAnswer:      player2Answer,
		Player1PredictionCorrect: player1Prediction == player2Answer,
		Player2PredictedPlayer1:  player2Prediction,
		Player1ActualAnswer:      player1Answer,
		Player2PredictionCorrect: player2Prediction == player1Answer,
		ActualAnswersMatch:       player1Answer == player2Answer,
	}
	res := Resolution{}
	if out.Player1PredictionCorrect {
		res.Player1 += PredictionReward
	}
	if out.Player2PredictionCorrect {
		res.Player2 += PredictionReward
	}
	if out.ActualAnswersMatch {
		res.Player1 += MatchBonus
		res.Player2 += MatchBonus
	}
	return encode(res, out)
}

func encode(res Resolution, outcome any) (Resolution, error) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return Resolution{}, err
	}
	res.Outcome = data
	return res, nil
}
