package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/trungkien100823/koicourse/internal/store"
)

// ChapterStatus is one normalized chapter row from the enrollment status
// endpoint. OwnerID attributes the record to a learner; the reconciler
// drops records whose owner does not match the current session.
type ChapterStatus struct {
	ChapterID   string
	OwnerID     string
	Status      store.Status
	OrderNumber int
}

// CompletionResult is the outcome of a mark-complete call. A fresh success
// and an "already completed" response are equivalent: the chapter is Done.
type CompletionResult struct {
	ServerPercentage int
	AlreadyCompleted bool
}

type chapterStatusWire struct {
	ChapterID   string `json:"chapterId"`
	AccountID   string `json:"accountId"`
	Status      string `json:"status"`
	OrderNumber int    `json:"orderNumber"`
}

type completionWire struct {
	CoursePercentage int  `json:"coursePercentage"`
	AlreadyCompleted bool `json:"alreadyCompleted"`
}

// FetchChapterStatus returns the chapter statuses for an enrollment,
// normalized and sorted ascending by order number. An empty payload means
// the course has no chapters yet, not an error.
func (c *Client) FetchChapterStatus(ctx context.Context, enrollID string) ([]ChapterStatus, error) {
	const op = "fetch chapter status"
	path := fmt.Sprintf("/api/enrollments/%s/chapters", url.PathEscape(enrollID))

	env, err := c.call(ctx, http.MethodGet, path, op, false, nil)
	if err != nil {
		return nil, err
	}
	if !env.IsSuccess && !env.hasData() {
		return nil, &ErrTransient{Op: op, Err: fmt.Errorf("backend rejected request: %s", env.Message)}
	}
	if !env.hasData() {
		return nil, nil
	}

	var wire []chapterStatusWire
	if err := decodeData(env, op, &wire); err != nil {
		return nil, err
	}

	statuses := make([]ChapterStatus, 0, len(wire))
	for _, w := range wire {
		status, known := NormalizeStatus(w.Status)
		if !known {
			c.logger.Warn("unrecognized chapter status, defaulting to in_progress",
				zap.String("chapterId", w.ChapterID),
				zap.String("status", w.Status))
		}
		statuses = append(statuses, ChapterStatus{
			ChapterID:   w.ChapterID,
			OwnerID:     w.AccountID,
			Status:      status,
			OrderNumber: w.OrderNumber,
		})
	}

	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].OrderNumber < statuses[j].OrderNumber
	})
	return statuses, nil
}

// MarkChapterComplete pushes a chapter completion event. The call is safe
// to invoke more than once for the same chapter: the server answering
// "already completed" is reported as success.
func (c *Client) MarkChapterComplete(ctx context.Context, chapterID string) (CompletionResult, error) {
	const op = "mark chapter complete"
	path := fmt.Sprintf("/api/chapters/%s/complete", url.PathEscape(chapterID))

	env, err := c.call(ctx, http.MethodPut, path, op, true, nil)
	if err != nil {
		return CompletionResult{}, err
	}

	if !env.IsSuccess && !env.hasData() {
		if strings.Contains(strings.ToLower(env.Message), "already") {
			return CompletionResult{AlreadyCompleted: true}, nil
		}
		return CompletionResult{}, &ErrTransient{Op: op, Err: fmt.Errorf("backend rejected request: %s", env.Message)}
	}

	var res CompletionResult
	if env.hasData() {
		var w completionWire
		if err := decodeData(env, op, &w); err != nil {
			return CompletionResult{}, err
		}
		res.ServerPercentage = w.CoursePercentage
		res.AlreadyCompleted = w.AlreadyCompleted
	}
	return res, nil
}
