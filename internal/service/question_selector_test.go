package service

import (
	"math/rand/v2"
	"testing"

	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(qs []model.QuestionPoolEntry) []int {
	out := make([]int, len(qs))
	for i, q := range qs {
		out[i] = q.Points
	}
	return out
}

func TestSelectQuestions(t *testing.T) {
	tests := []struct {
		name    string
		pool    []int
		budget  int
		want    []int
		wantErr error
	}{
		{"exact fill", []int{5, 5, 3}, 10, []int{5, 5}, nil},
		{"skips what overshoots", []int{30, 25, 20, 10}, 50, []int{30, 20}, nil},
		{"best effort below budget", []int{20, 12, 10}, 15, []int{12}, nil},
		{"greedy by descending points", []int{5, 3, 2, 4}, 10, []int{5, 4}, nil},
		{"small questions fill the gap", []int{1, 6, 2, 1}, 9, []int{6, 2, 1}, nil},
		{"zero and negative points ignored", []int{0, -2, 3}, 5, []int{3}, nil},
		{"zero budget", []int{5, 3}, 0, []int{}, nil},
		{"negative budget", []int{5, 3}, -4, []int{}, nil},
		{"nothing fits", []int{8, 9}, 5, nil, ErrInsufficientQuestions},
		{"empty pool", nil, 5, nil, ErrInsufficientQuestions},
		{"only zero point questions", []int{0, 0}, 5, nil, ErrInsufficientQuestions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectQuestions(pool(1, tt.pool...), tt.budget)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, points(got))
		})
	}
}

func TestSelectQuestionsTiesKeepPoolOrder(t *testing.T) {
	p := pool(1, 3, 3, 3)

	got, err := SelectQuestions(p, 6)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, p[0].ID, got[0].ID)
	assert.Equal(t, p[1].ID, got[1].ID)
}

func TestSelectQuestionsIsDeterministic(t *testing.T) {
	p := pool(1, 4, 2, 4, 1, 3, 2)

	first, err := SelectQuestions(p, 9)
	require.NoError(t, err)
	for range 5 {
		again, err := SelectQuestions(p, 9)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSelectQuestionsNeverExceedsBudget(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for i := range 200 {
		n := rng.IntN(12)
		pts := make([]int, n)
		for j := range pts {
			pts[j] = rng.IntN(8) - 1
		}
		budget := rng.IntN(25) + 1

		got, err := SelectQuestions(pool(1, pts...), budget)
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientQuestions, "case %d", i)
			for _, p := range pts {
				assert.False(t, p > 0 && p <= budget, "case %d: %d fits %d", i, p, budget)
			}
			continue
		}

		sum := 0
		seen := map[string]bool{}
		for _, q := range got {
			assert.Positive(t, q.Points)
			assert.False(t, seen[q.ID.String()], "case %d: duplicate question", i)
			seen[q.ID.String()] = true
			sum += q.Points
		}
		assert.LessOrEqual(t, sum, budget, "case %d", i)
		assert.NotEmpty(t, got)
	}
}

func TestSelectQuestionsDoesNotMutatePool(t *testing.T) {
	p := pool(1, 1, 5, 3)
	before := points(p)

	_, err := SelectQuestions(p, 8)
	require.NoError(t, err)
	assert.Equal(t, before, points(p))
}
