package gateway

import (
	"context"

	"github.com/trungkien100823/koicourse/internal/store"
)

// API is the set of backend operations the progress core consumes.
// *Client implements it; WithRetry decorates it.
type API interface {
	FetchChapterStatus(ctx context.Context, enrollID string) ([]ChapterStatus, error)
	MarkChapterComplete(ctx context.Context, chapterID string) (CompletionResult, error)
	FetchQuizQuestions(ctx context.Context, quizID string) ([]Question, error)
	SubmitQuizAnswers(ctx context.Context, quizID string, sub Submission) (store.ScoreRecord, error)
}

var _ API = (*Client)(nil)
