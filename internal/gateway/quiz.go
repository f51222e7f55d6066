package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/trungkien100823/koicourse/internal/store"
)

// Answer is one selectable answer for a question. IsCorrect rides along
// in the loaded question data so the engine can score a submission locally
// when the backend is unreachable.
type Answer struct {
	AnswerID  string `json:"answerId"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is one quiz question with its ordered answers.
type Question struct {
	QuestionID string   `json:"questionId"`
	Text       string   `json:"text"`
	Answers    []Answer `json:"answers"`
}

// AnswerChoice is one selected answer in a submission.
type AnswerChoice struct {
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

// Submission is the payload pushed on quiz submit.
type Submission struct {
	OwnerID          string         `json:"accountId"`
	CourseID         string         `json:"courseId"`
	Answers          []AnswerChoice `json:"answers"`
	TimeSpentSeconds int            `json:"timeSpentSeconds"`
}

type scoreWire struct {
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
	Percentage     int `json:"percentage"`
}

// FetchQuizQuestions loads the question set for a quiz. An empty list is
// ErrEmptyResult; the quiz engine tolerates it silently when a previous
// successful fetch already populated the session, so a flaky retry never
// clobbers an in-progress quiz.
func (c *Client) FetchQuizQuestions(ctx context.Context, quizID string) ([]Question, error) {
	const op = "fetch quiz questions"
	path := fmt.Sprintf("/api/quizzes/%s/questions", url.PathEscape(quizID))

	env, err := c.call(ctx, http.MethodGet, path, op, false, nil)
	if err != nil {
		return nil, err
	}
	if !env.IsSuccess && !env.hasData() {
		return nil, &ErrTransient{Op: op, Err: fmt.Errorf("backend rejected request: %s", env.Message)}
	}
	if !env.hasData() {
		return nil, ErrEmptyResult
	}

	var questions []Question
	if err := decodeData(env, op, &questions); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrEmptyResult
	}
	return questions, nil
}

// SubmitQuizAnswers pushes a submission and returns the server-computed
// score. Failures are classified for the engine, which falls back to local
// scoring rather than surfacing a hard failure to the learner.
func (c *Client) SubmitQuizAnswers(ctx context.Context, quizID string, sub Submission) (store.ScoreRecord, error) {
	const op = "submit quiz answers"
	path := fmt.Sprintf("/api/quizzes/%s/submissions", url.PathEscape(quizID))

	env, err := c.call(ctx, http.MethodPost, path, op, true, sub)
	if err != nil {
		return store.ScoreRecord{}, err
	}
	if !env.hasData() {
		return store.ScoreRecord{}, &ErrTransient{Op: op, Err: fmt.Errorf("no score in response: %s", env.Message)}
	}

	var w scoreWire
	if err := decodeData(env, op, &w); err != nil {
		return store.ScoreRecord{}, err
	}
	return store.ScoreRecord{
		OwnerID:        sub.OwnerID,
		QuizID:         quizID,
		CourseID:       sub.CourseID,
		CorrectAnswers: w.CorrectAnswers,
		TotalQuestions: w.TotalQuestions,
		Percentage:     w.Percentage,
		CompletedAt:    time.Now().UTC(),
	}, nil
}
