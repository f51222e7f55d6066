package progress

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/trungkien100823/koicourse/internal/gateway"
	"github.com/trungkien100823/koicourse/internal/store"
)

// ChapterView is one chapter in the merged authoritative view.
type ChapterView struct {
	ChapterID   string
	Status      store.Status
	OrderNumber int
}

// CourseView is the authoritative per-course completion view produced by
// a reconciliation. It is handed to the UI layer for chapter-list
// rendering and final-exam gating.
type CourseView struct {
	CourseID      string
	Chapters      []ChapterView
	Percentage    int
	Completed     bool
	JustCompleted bool // true only on the reconciliation that first reached 100%
	Stale         bool // remote fetch failed; view reflects local state only
}

// Reconciler merges the local store and a remote snapshot into one view.
// It holds no persistent state of its own.
type Reconciler struct {
	store  *store.Store
	api    gateway.API
	logger *zap.Logger
}

// NewReconciler creates a reconciler. A nil logger is replaced with a
// no-op logger.
func NewReconciler(st *store.Store, api gateway.API, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: st, api: api, logger: logger}
}

// Reconcile fetches the remote chapter statuses for an enrollment, merges
// them into the local store with upgrade-only semantics, and returns the
// recomputed course view.
//
// Merge rules: local Done always wins over remote InProgress; remote Done
// always wins over local InProgress; equal statuses are a no-op. Records
// belonging to a different owner are dropped. Completion is therefore
// never lost to a slow or failed server sync.
//
// Transient and benign-not-found remote failures degrade to the local-only
// view with Stale set; auth failures and fatal not-found propagate.
func (r *Reconciler) Reconcile(ctx context.Context, ownerID, enrollID, courseID string) (*CourseView, error) {
	remote, err := r.api.FetchChapterStatus(ctx, enrollID)
	if err != nil {
		if gateway.IsFatal(err) {
			return nil, err
		}
		r.logger.Warn("remote chapter fetch failed, serving local view",
			zap.String("courseId", courseID),
			zap.Error(err))
		return r.localView(ctx, ownerID, courseID, nil, true)
	}

	for _, rec := range remote {
		if rec.OwnerID != "" && rec.OwnerID != ownerID {
			r.logger.Warn("dropping chapter status for foreign owner",
				zap.String("chapterId", rec.ChapterID),
				zap.String("recordOwner", rec.OwnerID))
			continue
		}
		err := r.store.SetChapterStatus(ctx, ownerID, rec.ChapterID, courseID, rec.Status)
		if errors.Is(err, store.ErrDowngrade) {
			// Local Done wins: the remote may be stale relative to a
			// completion event still propagating.
			r.logger.Debug("kept local done over remote in_progress",
				zap.String("chapterId", rec.ChapterID))
			continue
		}
		if err != nil {
			return nil, err
		}
	}

	return r.localView(ctx, ownerID, courseID, remote, false)
}

// localView recomputes the aggregate from post-merge local state and
// assembles the chapter list in remote order, appending chapters known
// only locally.
func (r *Reconciler) localView(ctx context.Context, ownerID, courseID string, remote []gateway.ChapterStatus, stale bool) (*CourseView, error) {
	records, err := r.store.ChapterRecords(ctx, ownerID, courseID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]store.ChapterRecord, len(records))
	for _, rec := range records {
		byID[rec.ChapterID] = rec
	}

	view := &CourseView{CourseID: courseID, Stale: stale}
	seen := make(map[string]bool, len(remote))
	for _, rs := range remote {
		rec, ok := byID[rs.ChapterID]
		if !ok {
			continue // foreign-owner record that was dropped during merge
		}
		seen[rs.ChapterID] = true
		view.Chapters = append(view.Chapters, ChapterView{
			ChapterID:   rs.ChapterID,
			Status:      rec.Status,
			OrderNumber: rs.OrderNumber,
		})
	}
	for _, rec := range records {
		if !seen[rec.ChapterID] {
			view.Chapters = append(view.Chapters, ChapterView{
				ChapterID: rec.ChapterID,
				Status:    rec.Status,
			})
		}
	}

	agg, err := r.store.CourseAggregate(ctx, ownerID, courseID)
	if err != nil {
		return nil, err
	}
	view.Percentage = agg.Percentage
	view.Completed = agg.Completed

	if agg.Completed {
		first, err := r.store.MarkCourseCompleted(ctx, ownerID, courseID, time.Now())
		if err != nil {
			return nil, err
		}
		view.JustCompleted = first
	}
	return view, nil
}
