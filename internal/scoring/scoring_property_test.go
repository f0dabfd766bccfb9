package scoring

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/DieselDot/Trademind/internal/models"
)

// Property: for any ratings within 1-5 (or absent) and any trade list, the
// discipline score is an integer in [0, 100].
func TestScoreRangeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("score is within [0, 100]", prop.ForAll(
		func(confirmed bool, plan, emotional int, followed []bool) bool {
			pre := &models.PreSession{RulesConfirmed: confirmed}
			post := &models.PostSession{PlanFollowedRating: plan, EmotionalControlRating: emotional}
			score := Calculate(pre, post, tradesWithRules(followed...))
			return score >= 0 && score <= 100
		},
		gen.Bool(),
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// Property: the rules component equals round(K/N*100) for N > 0 and 100 for N = 0.
func TestRulesComponentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("rules component matches followed share", prop.ForAll(
		func(followed []bool) bool {
			b := Breakdown(nil, nil, tradesWithRules(followed...))
			if len(followed) == 0 {
				return b.Rules == 100
			}
			k := 0
			for _, f := range followed {
				if f {
					k++
				}
			}
			return RoundHalfUp(b.Rules) == RoundHalfUp(float64(k)/float64(len(followed))*100)
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("scoring is deterministic", prop.ForAll(
		func(confirmed bool, plan, emotional int, followed []bool) bool {
			pre := &models.PreSession{RulesConfirmed: confirmed}
			post := &models.PostSession{PlanFollowedRating: plan, EmotionalControlRating: emotional}
			trades := tradesWithRules(followed...)
			return Breakdown(pre, post, trades) == Breakdown(pre, post, trades)
		},
		gen.Bool(),
		gen.IntRange(1, 5),
		gen.IntRange(1, 5),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
