// Package scoring computes the per-session discipline score.
package scoring

import (
	"math"

	"github.com/DieselDot/Trademind/internal/models"
)

// Weights defines the weight of each component in the discipline score.
type Weights struct {
	RulesFollowed       float64
	PreSessionComplete  float64
	PostSessionComplete float64
	EmotionalControl    float64
}

// DefaultWeights returns the default component weights. They sum to 1.0.
func DefaultWeights() Weights {
	return Weights{
		RulesFollowed:       0.4,
		PreSessionComplete:  0.2,
		PostSessionComplete: 0.2,
		EmotionalControl:    0.2,
	}
}

// neutralEmotionalScore is used when no emotional-control rating was given.
const neutralEmotionalScore = 50.0

// ScoreBreakdown holds the four sub-scores (each 0-100) and the final score.
type ScoreBreakdown struct {
	Rules       float64 `json:"rules"`
	PreSession  float64 `json:"pre_session"`
	PostSession float64 `json:"post_session"`
	Emotional   float64 `json:"emotional"`
	Total       int     `json:"total"`
}

// Scorer computes discipline scores with a fixed set of weights.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer using the default weights.
func NewScorer() *Scorer {
	return &Scorer{weights: DefaultWeights()}
}

// NewScorerWithWeights creates a scorer with custom weights.
func NewScorerWithWeights(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Calculate returns the discipline score for a session using the default weights.
// pre and post may be nil. Inputs are not validated and the function never fails.
func Calculate(pre *models.PreSession, post *models.PostSession, trades []models.Trade) int {
	return NewScorer().Breakdown(pre, post, trades).Total
}

// Breakdown returns the sub-scores and final score using the default weights.
func Breakdown(pre *models.PreSession, post *models.PostSession, trades []models.Trade) ScoreBreakdown {
	return NewScorer().Breakdown(pre, post, trades)
}

// Score returns the final discipline score.
func (s *Scorer) Score(pre *models.PreSession, post *models.PostSession, trades []models.Trade) int {
	return s.Breakdown(pre, post, trades).Total
}

// Breakdown computes every component of the score.
func (s *Scorer) Breakdown(pre *models.PreSession, post *models.PostSession, trades []models.Trade) ScoreBreakdown {
	b := ScoreBreakdown{
		Rules:       rulesScore(trades),
		PreSession:  preSessionScore(pre),
		PostSession: postSessionScore(post),
		Emotional:   emotionalScore(post),
	}

	weighted := b.Rules*s.weights.RulesFollowed +
		b.PreSession*s.weights.PreSessionComplete +
		b.PostSession*s.weights.PostSessionComplete +
		b.Emotional*s.weights.EmotionalControl

	b.Total = RoundHalfUp(weighted)
	return b
}

// rulesScore is the share of trades that followed the rules. No trades means
// full compliance.
func rulesScore(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 100
	}
	followed := 0
	for _, t := range trades {
		if t.RulesFollowed {
			followed++
		}
	}
	return float64(followed) / float64(len(trades)) * 100
}

func preSessionScore(pre *models.PreSession) float64 {
	if pre != nil && pre.RulesConfirmed {
		return 100
	}
	return 0
}

// postSessionScore credits completing the reflection, not its content:
// any non-zero plan-followed rating scores 100.
func postSessionScore(post *models.PostSession) float64 {
	if post != nil && post.PlanFollowedRating != 0 {
		return 100
	}
	return 0
}

func emotionalScore(post *models.PostSession) float64 {
	if post == nil || post.EmotionalControlRating == 0 {
		return neutralEmotionalScore
	}
	return float64(post.EmotionalControlRating) / 5 * 100
}

// RoundHalfUp rounds x to the nearest integer, with halves going toward +Inf.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
