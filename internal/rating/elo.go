// Package rating keeps per-account Elo ratings and the logistic update
// applied at match settlement.
package rating

import "math"

// Score values accepted by Apply.
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// Apply runs the standard logistic Elo update for two players with the given
// scores and K-factor. Results are rounded to integers and clamped at zero
// so an upset can never wrap below the scale.
func Apply(r1, r2 int, s1, s2, k float64) (int, int) {
	e1 := expected(r1, r2)
	e2 := expected(r2, r1)
	return adjust(r1, s1, e1, k), adjust(r2, s2, e2, k)
}

func expected(self, other int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(other-self)/400.0))
}

func adjust(r int, score, exp, k float64) int {
	next := int(math.Round(float64(r) + k*(score-exp)))
	if next < 0 {
		return 0
	}
	return next
}
