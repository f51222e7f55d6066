package quiz

import (
	"math"

	"github.com/trungkien100823/koicourse/internal/gateway"
	"github.com/trungkien100823/koicourse/internal/store"
)

// LocalScore counts correct selections by comparing the answer map against
// the correctness flags embedded in the loaded question data. Unanswered
// questions count as wrong. This is the fallback path that lets a learner
// finish a quiz under total backend unavailability.
func LocalScore(questions []gateway.Question, selected map[int]string) int {
	correct := 0
	for i, q := range questions {
		answerID, ok := selected[i]
		if !ok {
			continue
		}
		for _, a := range q.Answers {
			if a.AnswerID == answerID && a.IsCorrect {
				correct++
				break
			}
		}
	}
	return correct
}

// ScorePercentage derives the integer percentage for a score.
func ScorePercentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Passed reports whether a score record meets the passing threshold. It
// is a pure function of the record, not stored state.
func Passed(rec store.ScoreRecord) bool {
	return rec.Percentage >= PassThresholdPercent
}
