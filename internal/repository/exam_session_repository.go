package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const sessionColumns = `id, student_id, exam_id, category_id, status, questions, cursor_pos,
	answers, started_at, deadline_at, finished_at, version, updated_at`

// ExamSessionRepository is the durable store for exam sessions.
// Every mutation is a compare-and-set on (status = ACTIVE, version).
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// CreateSession inserts s as the ACTIVE session of its key.
// When an ACTIVE session already exists it is returned with created=false.
// ErrCategoryCompleted is returned when the key already has a result.
func (r *ExamSessionRepository) CreateSession(ctx context.Context, s *model.ExamSession) (*model.ExamSession, bool, error) {
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return nil, false, fmt.Errorf("encode questions: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockSessionKey(ctx, tx, s.Key); err != nil {
		return nil, false, err
	}

	var version int
	err = tx.QueryRow(ctx,
		`INSERT INTO exam_sessions (id, student_id, exam_id, category_id, status, questions,
		                            cursor_pos, answers, started_at, deadline_at, version, updated_at)
		 SELECT $1::uuid, $2::int, $3::uuid, $4::int, 'ACTIVE', $5::jsonb,
		        0, '{}'::jsonb, $6::timestamptz, $7::timestamptz, 1, $6::timestamptz
		 WHERE NOT EXISTS (
		     SELECT 1 FROM exam_results
		     WHERE student_id = $2 AND exam_id = $3 AND category_id = $4
		 )
		 ON CONFLICT (student_id, exam_id, category_id) WHERE status = 'ACTIVE' DO NOTHING
		 RETURNING version`,
		s.ID, s.Key.StudentID, s.Key.ExamID, s.Key.CategoryID, questions, s.StartedAt, s.DeadlineAt,
	).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit create: %w", err)
	}
	if err == nil {
		created := s.Clone()
		created.Status = model.SessionStatusActive
		created.Cursor = 0
		created.Answers = map[string]model.Answer{}
		created.Version = version
		created.UpdatedAt = s.StartedAt
		return created, true, nil
	}

	// Nothing inserted: either a concurrent entry won or the category is done.
	existing, err := r.GetActiveSession(ctx, s.Key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, false, err
	}
	return nil, false, ErrCategoryCompleted
}

// GetActiveSession retrieves the ACTIVE session for a key.
func (r *ExamSessionRepository) GetActiveSession(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE student_id = $1 AND exam_id = $2 AND category_id = $3 AND status = 'ACTIVE'`,
		key.StudentID, key.ExamID, key.CategoryID,
	)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// UpdateSession persists the queue position and answers of s.
// It fails with ErrSessionConflict when s is stale or no longer ACTIVE.
func (r *ExamSessionRepository) UpdateSession(ctx context.Context, s *model.ExamSession) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET cursor_pos = $1, answers = $2, version = version + 1, updated_at = $3
		 WHERE id = $4 AND status = 'ACTIVE' AND version = $5`,
		s.Cursor, answers, now, s.ID, s.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionConflict
	}

	s.Version++
	s.UpdatedAt = now
	return nil
}

// FinalizeSession closes s with the given terminal status and writes its
// result in one transaction. ErrSessionConflict means another writer got there
// first (or s is stale) and nothing was written. ErrCategoryCompleted means
// the key already had a result: s is still closed so it cannot linger as
// ACTIVE, but result is not stored.
func (r *ExamSessionRepository) FinalizeSession(ctx context.Context, s *model.ExamSession, status model.SessionStatus, result *model.ExamResult) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockSessionKey(ctx, tx, s.Key); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, answers = $2, cursor_pos = $3, finished_at = $4,
		     version = version + 1, updated_at = $4
		 WHERE id = $5 AND status = 'ACTIVE' AND version = $6`,
		status, answers, s.Cursor, result.CreatedAt, s.ID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionConflict
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO exam_results (id, session_id, exam_id, student_id, category_id,
		                           answered_count, skipped_count, total_count, total_points,
		                           duration_taken_seconds, submission_kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (student_id, exam_id, category_id) DO NOTHING
		 RETURNING id`,
		result.ID, result.SessionID, result.ExamID, result.StudentID, result.CategoryID,
		result.AnsweredCount, result.SkippedCount, result.TotalCount, result.TotalPoints,
		result.DurationTakenSeconds, result.SubmissionKind, result.CreatedAt,
	).Scan(&result.ID)
	orphaned := errors.Is(err, pgx.ErrNoRows)
	if err != nil && !orphaned {
		return fmt.Errorf("insert result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit finalize: %w", err)
	}

	s.Status = status
	s.Version++
	finished := result.CreatedAt
	s.FinishedAt = &finished
	s.UpdatedAt = finished
	if orphaned {
		return ErrCategoryCompleted
	}
	return nil
}

// lockSessionKey serializes session creation and finalization for one key
// until tx ends, so a new ACTIVE row can never appear beside a result.
func lockSessionKey(ctx context.Context, tx pgx.Tx, key model.SessionKey) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
		return fmt.Errorf("lock session key: %w", err)
	}
	return nil
}

// ListExpiredSessions returns ACTIVE sessions whose deadline is before now,
// oldest deadline first.
func (r *ExamSessionRepository) ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE status = 'ACTIVE' AND deadline_at < $1
		 ORDER BY deadline_at
		 LIMIT $2`, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// CountActiveByExam returns the number of ACTIVE sessions per category of an exam.
func (r *ExamSessionRepository) CountActiveByExam(ctx context.Context, examID uuid.UUID) (map[int]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category_id, COUNT(*)
		 FROM exam_sessions
		 WHERE exam_id = $1 AND status = 'ACTIVE'
		 GROUP BY category_id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var categoryID, n int
		if err := rows.Scan(&categoryID, &n); err != nil {
			return nil, err
		}
		counts[categoryID] = n
	}
	return counts, rows.Err()
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	var (
		s                  model.ExamSession
		questions, answers []byte
	)
	err := row.Scan(&s.ID, &s.Key.StudentID, &s.Key.ExamID, &s.Key.CategoryID, &s.Status,
		&questions, &s.Cursor, &answers, &s.StartedAt, &s.DeadlineAt, &s.FinishedAt,
		&s.Version, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &s.Questions); err != nil {
		return nil, fmt.Errorf("decode questions of session %s: %w", s.ID, err)
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of session %s: %w", s.ID, err)
	}
	if s.Answers == nil {
		s.Answers = map[string]model.Answer{}
	}
	return &s, nil
}
