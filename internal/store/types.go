package store

import "time"

// Status is the canonical two-state chapter completion status.
// All textual variants from the backend normalize to this set at the
// gateway boundary.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ChapterRecord is a persisted per-chapter completion record, keyed by
// (owner, chapter). Done is monotonic: once set it never reverts to
// InProgress except through an explicit course reset.
type ChapterRecord struct {
	OwnerID   string
	ChapterID string
	CourseID  string
	Status    Status
	UpdatedAt time.Time
}

// Aggregate is the derived course-level progress view. It is always
// recomputed from the chapter records, never stored independently.
type Aggregate struct {
	Percentage int // round(100 * done / total), 0 when the course has no chapters
	Completed  bool
}

// ScoreRecord is the persisted result of a quiz submission, keyed by
// (owner, quiz). A retake overwrites the previous record.
type ScoreRecord struct {
	OwnerID        string
	QuizID         string
	CourseID       string
	CorrectAnswers int
	TotalQuestions int
	Percentage     int
	CompletedAt    time.Time
}
