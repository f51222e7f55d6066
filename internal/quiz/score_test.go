package quiz

import (
	"testing"

	"github.com/trungkien100823/koicourse/internal/gateway"
	"github.com/trungkien100823/koicourse/internal/store"
)

func twoAnswerQuestion(id, correctID, wrongID string) gateway.Question {
	return gateway.Question{
		QuestionID: id,
		Text:       "question " + id,
		Answers: []gateway.Answer{
			{AnswerID: correctID, Text: "right", IsCorrect: true},
			{AnswerID: wrongID, Text: "wrong", IsCorrect: false},
		},
	}
}

func TestLocalScore(t *testing.T) {
	questions := []gateway.Question{
		twoAnswerQuestion("q1", "a1", "b1"),
		twoAnswerQuestion("q2", "a2", "b2"),
		twoAnswerQuestion("q3", "a3", "b3"),
	}

	tests := []struct {
		name     string
		selected map[int]string
		want     int
	}{
		{"all correct", map[int]string{0: "a1", 1: "a2", 2: "a3"}, 3},
		{"all wrong", map[int]string{0: "b1", 1: "b2", 2: "b3"}, 0},
		{"mixed", map[int]string{0: "a1", 1: "b2", 2: "a3"}, 2},
		{"unanswered counts wrong", map[int]string{0: "a1"}, 1},
		{"unknown answer id counts wrong", map[int]string{0: "zzz", 1: "a2"}, 1},
		{"empty", map[int]string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocalScore(questions, tt.selected); got != tt.want {
				t.Errorf("LocalScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScorePercentage(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{4, 5, 80},
		{2, 3, 67},
		{1, 3, 33},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := ScorePercentage(tt.correct, tt.total); got != tt.want {
			t.Errorf("ScorePercentage(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestPassed(t *testing.T) {
	if Passed(store.ScoreRecord{Percentage: 79}) {
		t.Error("79 should not pass")
	}
	if !Passed(store.ScoreRecord{Percentage: 80}) {
		t.Error("80 should pass")
	}
	if !Passed(store.ScoreRecord{Percentage: 100}) {
		t.Error("100 should pass")
	}
}
