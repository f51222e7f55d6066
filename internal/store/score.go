package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveScore upserts the score record for (owner, quiz). A retake
// overwrites the previous record in a single statement.
func (s *Store) SaveScore(ctx context.Context, rec ScoreRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_score
			(owner_id, quiz_id, course_id, correct_answers, total_questions, percentage, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, quiz_id) DO UPDATE SET
			course_id = excluded.course_id,
			correct_answers = excluded.correct_answers,
			total_questions = excluded.total_questions,
			percentage = excluded.percentage,
			completed_at = excluded.completed_at`,
		rec.OwnerID, rec.QuizID, rec.CourseID,
		rec.CorrectAnswers, rec.TotalQuestions, rec.Percentage, rec.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

// Score returns the persisted score record for (owner, quiz), or false
// if the quiz has never been submitted.
func (s *Store) Score(ctx context.Context, ownerID, quizID string) (ScoreRecord, bool, error) {
	var rec ScoreRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id, quiz_id, course_id, correct_answers, total_questions, percentage, completed_at
		 FROM quiz_score WHERE owner_id = ? AND quiz_id = ?`,
		ownerID, quizID,
	).Scan(&rec.OwnerID, &rec.QuizID, &rec.CourseID,
		&rec.CorrectAnswers, &rec.TotalQuestions, &rec.Percentage, &rec.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ScoreRecord{}, false, nil
	}
	if err != nil {
		return ScoreRecord{}, false, fmt.Errorf("query score: %w", err)
	}
	return rec, true, nil
}

// Scores returns every persisted score record for an owner, most recent
// first.
func (s *Store) Scores(ctx context.Context, ownerID string) ([]ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner_id, quiz_id, course_id, correct_answers, total_questions, percentage, completed_at
		 FROM quiz_score WHERE owner_id = ?
		 ORDER BY completed_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var recs []ScoreRecord
	for rows.Next() {
		var rec ScoreRecord
		if err := rows.Scan(&rec.OwnerID, &rec.QuizID, &rec.CourseID,
			&rec.CorrectAnswers, &rec.TotalQuestions, &rec.Percentage, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
