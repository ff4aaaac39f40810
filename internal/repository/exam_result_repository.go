package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const resultColumns = `r.id, r.session_id, r.exam_id, r.student_id, r.category_id,
	r.answered_count, r.skipped_count, r.total_count, r.total_points,
	r.duration_taken_seconds, r.submission_kind, r.created_at`

// ExamResultRepository reads finalized results. Results are only ever
// written by ExamSessionRepository.FinalizeSession.
type ExamResultRepository struct {
	pool *pgxpool.Pool
}

// NewExamResultRepository creates a new ExamResultRepository.
func NewExamResultRepository(pool *pgxpool.Pool) *ExamResultRepository {
	return &ExamResultRepository{pool: pool}
}

// GetResult retrieves the result recorded for a session key.
func (r *ExamResultRepository) GetResult(ctx context.Context, key model.SessionKey) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+`
		 FROM exam_results r
		 WHERE r.student_id = $1 AND r.exam_id = $2 AND r.category_id = $3`,
		key.StudentID, key.ExamID, key.CategoryID,
	).Scan(resultDest(res)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return res, nil
}

// HasFinalizedResult reports whether a result exists for the key.
func (r *ExamResultRepository) HasFinalizedResult(ctx context.Context, key model.SessionKey) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM exam_results
		     WHERE student_id = $1 AND exam_id = $2 AND category_id = $3
		 )`,
		key.StudentID, key.ExamID, key.CategoryID,
	).Scan(&exists)
	return exists, err
}

// ListCompletedCategories returns the category ids a student has results for.
func (r *ExamResultRepository) ListCompletedCategories(ctx context.Context, examID uuid.UUID, studentID int) (map[int]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category_id FROM exam_results WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var categoryID int
		if err := rows.Scan(&categoryID); err != nil {
			return nil, err
		}
		done[categoryID] = true
	}
	return done, rows.Err()
}

// ListByExam retrieves results of an exam with pagination and an optional category filter.
func (r *ExamResultRepository) ListByExam(ctx context.Context, examID uuid.UUID, categoryID *int, limit, offset int) ([]model.ResultListItem, int, error) {
	baseQuery := `
		FROM exam_results r
		JOIN students s ON r.student_id = s.id
		JOIN exam_categories c ON r.category_id = c.id
		WHERE r.exam_id = $1
	`
	args := []any{examID}

	if categoryID != nil {
		args = append(args, *categoryID)
		baseQuery += fmt.Sprintf(" AND r.category_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + resultColumns + `, s.name, c.name ` + baseQuery +
		fmt.Sprintf(" ORDER BY r.created_at, r.id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []model.ResultListItem
	for rows.Next() {
		var item model.ResultListItem
		dest := append(resultDest(&item.ExamResult), &item.StudentName, &item.CategoryName)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func resultDest(res *model.ExamResult) []any {
	return []any{
		&res.ID, &res.SessionID, &res.ExamID, &res.StudentID, &res.CategoryID,
		&res.AnsweredCount, &res.SkippedCount, &res.TotalCount, &res.TotalPoints,
		&res.DurationTakenSeconds, &res.SubmissionKind, &res.CreatedAt,
	}
}

// CountByExam returns the number of results per category of an exam.
func (r *ExamResultRepository) CountByExam(ctx context.Context, examID uuid.UUID) (map[int]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category_id, COUNT(*) FROM exam_results WHERE exam_id = $1 GROUP BY category_id`,
		examID,
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
