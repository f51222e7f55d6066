package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrDowngrade is returned when a write would revert a Done chapter to
// InProgress. The caller already holds the stronger state, so this is a
// conflict to log and ignore, not a failure to surface.
var ErrDowngrade = errors.New("downgrade rejected: chapter already done")

// ChapterStatus returns the persisted status for (owner, chapter).
// The second return is false when no record exists.
func (s *Store) ChapterStatus(ctx context.Context, ownerID, chapterID string) (Status, bool, error) {
	var status Status
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM chapter_progress WHERE owner_id = ? AND chapter_id = ?`,
		ownerID, chapterID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query chapter status: %w", err)
	}
	return status, true, nil
}

// SetChapterStatus upserts the status for (owner, chapter). Setting Done
// over Done is a no-op. Setting InProgress over Done returns ErrDowngrade:
// Done is monotonic and only ResetCourse clears it. The upsert itself is
// guarded so a concurrent writer can never downgrade either.
func (s *Store) SetChapterStatus(ctx context.Context, ownerID, chapterID, courseID string, status Status) error {
	if status != StatusInProgress && status != StatusDone {
		return fmt.Errorf("invalid status %q", status)
	}

	current, exists, err := s.ChapterStatus(ctx, ownerID, chapterID)
	if err != nil {
		return err
	}
	if exists && current == StatusDone {
		if status == StatusDone {
			return nil
		}
		return ErrDowngrade
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chapter_progress (owner_id, chapter_id, course_id, status, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, chapter_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at
		 WHERE chapter_progress.status != ?`,
		ownerID, chapterID, courseID, status, time.Now().UTC(), StatusDone,
	)
	if err != nil {
		return fmt.Errorf("upsert chapter status: %w", err)
	}
	return nil
}

// ChapterRecords returns every chapter record for (owner, course).
func (s *Store) ChapterRecords(ctx context.Context, ownerID, courseID string) ([]ChapterRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner_id, chapter_id, course_id, status, updated_at
		 FROM chapter_progress
		 WHERE owner_id = ? AND course_id = ?
		 ORDER BY chapter_id`,
		ownerID, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chapter records: %w", err)
	}
	defer rows.Close()

	var recs []ChapterRecord
	for rows.Next() {
		var r ChapterRecord
		if err := rows.Scan(&r.OwnerID, &r.ChapterID, &r.CourseID, &r.Status, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter record: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// CourseAggregate recomputes the course percentage and completion flag
// from the chapter records at call time. A course with no known chapters
// is 0% and not completed.
func (s *Store) CourseAggregate(ctx context.Context, ownerID, courseID string) (Aggregate, error) {
	var total, done int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(status = ?), 0)
		 FROM chapter_progress
		 WHERE owner_id = ? AND course_id = ?`,
		StatusDone, ownerID, courseID,
	).Scan(&total, &done)
	if err != nil {
		return Aggregate{}, fmt.Errorf("query course aggregate: %w", err)
	}

	if total == 0 {
		return Aggregate{}, nil
	}
	pct := int(math.Round(100 * float64(done) / float64(total)))
	return Aggregate{Percentage: pct, Completed: pct == 100}, nil
}

// MarkCourseCompleted records the course completion timestamp. The insert
// is first-write-wins: it reports true only for the call that performed
// the first transition, and later calls never move the timestamp.
func (s *Store) MarkCourseCompleted(ctx context.Context, ownerID, courseID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO course_completion (owner_id, course_id, completed_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (owner_id, course_id) DO NOTHING`,
		ownerID, courseID, at.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("mark course completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CourseCompletedAt returns the completion timestamp for (owner, course),
// or false if the course has not been completed.
func (s *Store) CourseCompletedAt(ctx context.Context, ownerID, courseID string) (time.Time, bool, error) {
	var at time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT completed_at FROM course_completion WHERE owner_id = ? AND course_id = ?`,
		ownerID, courseID,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query course completion: %w", err)
	}
	return at, true, nil
}

// ResetCourse clears every chapter record, the course completion row and
// the quiz scores for (owner, course) in one transaction. This is the only
// path that clears a Done chapter, reserved for an explicit user-triggered
// reset. It is local-only and irreversible.
func (s *Store) ResetCourse(ctx context.Context, ownerID, courseID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM chapter_progress WHERE owner_id = ? AND course_id = ?`,
		`DELETE FROM course_completion WHERE owner_id = ? AND course_id = ?`,
		`DELETE FROM quiz_score WHERE owner_id = ? AND course_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, ownerID, courseID); err != nil {
			return fmt.Errorf("reset course: %w", err)
		}
	}
	return tx.Commit()
}
