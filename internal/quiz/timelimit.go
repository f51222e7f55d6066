package quiz

// PassThresholdPercent is the fixed passing threshold for a quiz.
const PassThresholdPercent = 80

// TimeLimitMinutes returns the time budget for a question count. This is
// a step function, not a formula; edge counts take the lower tier
// inclusively. A return of 0 means unbounded: no countdown is started and
// submission is never forced.
func TimeLimitMinutes(questionCount int) int {
	switch {
	case questionCount <= 20:
		return 15
	case questionCount <= 40:
		return 30
	case questionCount <= 60:
		return 60
	default:
		return 0
	}
}
