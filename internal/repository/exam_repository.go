package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ExamRepository reads exam schedules and category budgets.
// Both are owned by the scheduling subsystem; this engine never writes them.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetSchedule retrieves the schedule of an exam.
func (r *ExamRepository) GetSchedule(ctx context.Context, examID uuid.UUID) (*model.ExamSchedule, error) {
	var (
		s          model.ExamSchedule
		date       pgtype.Date
		start, end pgtype.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, title, exam_date, start_time, end_time, duration_minutes
		 FROM exams WHERE id = $1`, examID,
	).Scan(&s.ExamID, &s.CourseID, &s.Title, &date, &start, &end, &s.DurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.Date = date.Time
	s.StartTime = time.Duration(start.Microseconds) * time.Microsecond
	s.EndTime = time.Duration(end.Microseconds) * time.Microsecond
	return &s, nil
}

// GetCategoryBudget retrieves the point budget of one category of an exam.
func (r *ExamRepository) GetCategoryBudget(ctx context.Context, examID uuid.UUID, categoryID int) (*model.CategoryBudget, error) {
	b := &model.CategoryBudget{}
	err := r.pool.QueryRow(ctx,
		`SELECT exam_id, id, name, total_points, passing_points
		 FROM exam_categories
		 WHERE exam_id = $1 AND id = $2`, examID, categoryID,
	).Scan(&b.ExamID, &b.CategoryID, &b.Name, &b.TotalPoints, &b.PassingPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListCategoryBudgets retrieves every category of an exam in display order.
func (r *ExamRepository) ListCategoryBudgets(ctx context.Context, examID uuid.UUID) ([]model.CategoryBudget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, id, name, total_points, passing_points
		 FROM exam_categories
		 WHERE exam_id = $1
		 ORDER BY display_order, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []model.CategoryBudget
	for rows.Next() {
		var b model.CategoryBudget
		if err := rows.Scan(&b.ExamID, &b.CategoryID, &b.Name, &b.TotalPoints, &b.PassingPoints); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}
