package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// QuestionRepository reads the question bank.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetEligibleQuestions retrieves every question of a category worth at least one point.
func (r *QuestionRepository) GetEligibleQuestions(ctx context.Context, categoryID int) ([]model.QuestionPoolEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, question_text, points, options
		 FROM questions
		 WHERE category_id = $1 AND points > 0
		 ORDER BY created_at, id`, categoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pool []model.QuestionPoolEntry
	for rows.Next() {
		var (
			q       model.QuestionPoolEntry
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.QuestionText, &q.Points, &options); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %s: %w", q.ID, err)
		}
		pool = append(pool, q)
	}
	return pool, rows.Err()
}
