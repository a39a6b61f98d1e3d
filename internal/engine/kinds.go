package engine

import (
	"errors"
	"fmt"
)

var ErrUnknownKind = errors.New("unknown question kind")

type Kind string

const (
	KindWhoIsMore      Kind = "whoIsMore"
	KindTrivia         Kind = "trivia"
	KindMultipleChoice Kind = "multiple_choice"
)

// Rules is the closed set of per-kind behaviour. Only this package can
// implement it.
type Rules interface {
	Kind() Kind
	AcceptsPredictions() bool
	// Complete reports whether every input the kind needs has been supplied
	// by both players.
	Complete(r Round) bool
	Evaluate(r Round, q Question) (Resolution, error)
	sealed()
}

var kindRules = map[Kind]Rules{
	KindWhoIsMore:      agreementRules{},
	KindTrivia:         triviaRules{},
	KindMultipleChoice: predictionRules{},
}

func RulesFor(k Kind) (Rules, error) {
	rules, ok := kindRules[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
	return rules, nil
}

func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if _, err := RulesFor(k); err != nil {
		return "", err
	}
	return k, nil
}

type agreementRules struct{}

func (agreementRules) Kind() Kind               { return KindWhoIsMore }
func (agreementRules) AcceptsPredictions() bool { return false }
func (agreementRules) Complete(r Round) bool    { return bothAnswered(r) }
func (agreementRules) Evaluate(r Round, _ Question) (Resolution, error) {
	return EvaluateAgreement(r.Player1Answer, r.Player2Answer)
}
func (agreementRules) sealed() {}

type triviaRules struct{}

func (triviaRules) Kind() Kind               { return KindTrivia }
func (triviaRules) AcceptsPredictions() bool { return false }
func (triviaRules) Complete(r Round) bool    { return bothAnswered(r) }
func (triviaRules) Evaluate(r Round, q Question) (Resolution, error) {
	return EvaluateTrivia(q.CorrectAnswer, r.Player1Answer, r.Player2Answer)
}
func (triviaRules) sealed() {}

type predictionRules struct{}

func (predictionRules) Kind() Kind               { return KindMultipleChoice }
func (predictionRules) AcceptsPredictions() bool { return true }
func (predictionRules) Complete(r Round) bool {
	return bothAnswered(r) && r.Player1Prediction != "" && r.Player2Prediction != ""
}
func (predictionRules) Evaluate(r Round, _ Question) (Resolution, error) {
	return EvaluatePrediction(r.Player1Prediction, r.Player2Prediction, r.Player1Answer, r.Player2Answer)
}
func (predictionRules) sealed() {}

func bothAnswered(r Round) bool {
	return r.Player1Answer != "" && r.Player2Answer != ""
}
