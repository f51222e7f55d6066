package gateway

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/trungkien100823/koicourse/internal/store"
)

// RetryConfig controls the backoff behavior of the retry decorator.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	Multiplier  float64
	MaxWait     time.Duration
}

// DefaultRetryConfig returns sensible defaults for transient-failure retry.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		Multiplier:  2.0,
		MaxWait:     5 * time.Second,
	}
}

// retryAPI is a decorator that retries transient errors with exponential
// backoff and jitter. Auth failures, fatal not-found and empty results are
// returned immediately.
type retryAPI struct {
	inner  API
	config RetryConfig
}

// WithRetry wraps an API with retry logic.
func WithRetry(api API, cfg RetryConfig) API {
	return &retryAPI{inner: api, config: cfg}
}

func (r *retryAPI) FetchChapterStatus(ctx context.Context, enrollID string) ([]ChapterStatus, error) {
	return retry(ctx, r.config, func() ([]ChapterStatus, error) {
		return r.inner.FetchChapterStatus(ctx, enrollID)
	})
}

func (r *retryAPI) MarkChapterComplete(ctx context.Context, chapterID string) (CompletionResult, error) {
	return retry(ctx, r.config, func() (CompletionResult, error) {
		return r.inner.MarkChapterComplete(ctx, chapterID)
	})
}

func (r *retryAPI) FetchQuizQuestions(ctx context.Context, quizID string) ([]Question, error) {
	return retry(ctx, r.config, func() ([]Question, error) {
		return r.inner.FetchQuizQuestions(ctx, quizID)
	})
}

func (r *retryAPI) SubmitQuizAnswers(ctx context.Context, quizID string, sub Submission) (store.ScoreRecord, error) {
	return retry(ctx, r.config, func() (store.ScoreRecord, error) {
		return r.inner.SubmitQuizAnswers(ctx, quizID, sub)
	})
}

func retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := range cfg.MaxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return zero, err
		}

		// Last attempt — don't sleep, just return the error.
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}

	return zero, lastErr
}

// backoff computes the wait duration for the given attempt with ±20% jitter.
func backoff(cfg RetryConfig, attempt int) time.Duration {
	wait := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt))
	if wait > float64(cfg.MaxWait) {
		wait = float64(cfg.MaxWait)
	}

	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
