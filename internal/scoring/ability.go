package scoring

import "math"

const (
	maxIterations = 50
	minInfo       = 0.01
	tolerance     = 1e-4

	// MinAbility and MaxAbility bound every estimate.
	MinAbility = -4.0
	MaxAbility = 4.0

	displayLow  = -3.0
	displayHigh = 3.0
	// MaxDisplayScore is the top of the human-facing scale.
	MaxDisplayScore = 13.86

	defaultEasiest = -2.0
	defaultHardest = 2.0
)

// Probability is the Rasch probability of a correct answer.
func Probability(theta, difficulty float64) float64 {
	return 1 / (1 + math.Exp(-(theta - difficulty)))
}

// EstimateAbility returns the maximum-likelihood ability for the correctness
// vector, found by Newton-Raphson and clamped to [MinAbility, MaxAbility].
// correct and difficulty must be non-empty and of equal length.
func EstimateAbility(correct []bool, difficulty []float64) float64 {
	if len(correct) == 0 || len(correct) != len(difficulty) {
		panic("scoring: correctness and difficulty vectors must be non-empty and equal length")
	}

	theta := 0.0
	for i := 0; i < maxIterations; i++ {
		var score, info float64
		for j, ok := range correct {
			p := Probability(theta, difficulty[j])
			observed := 0.0
			if ok {
				observed = 1
			}
			score += observed - p
			info += p * (1 - p)
		}
		if math.Abs(info) < minInfo {
			info = math.Copysign(minInfo, info)
		}

		delta := score / info
		theta += delta
		if math.Abs(delta) < tolerance {
			break
		}
	}
	return clamp(theta, MinAbility, MaxAbility)
}

// DisplayScore maps ability from [-3, 3] onto [0, MaxDisplayScore].
func DisplayScore(theta float64) float64 {
	scaled := (theta - displayLow) / (displayHigh - displayLow) * MaxDisplayScore
	return clamp(scaled, 0, MaxDisplayScore)
}

// Percentage is correct*100/itemCount, floored.
func Percentage(correct, itemCount int) int {
	if itemCount <= 0 {
		return 0
	}
	return correct * 100 / itemCount
}

// DefaultDifficulties spreads n difficulties evenly from -2 to 2.
func DefaultDifficulties(n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		return out
	}
	step := (defaultHardest - defaultEasiest) / float64(n-1)
	for i := range out {
		out[i] = defaultEasiest + step*float64(i)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
