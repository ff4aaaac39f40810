package service

import (
	"cmp"
	"slices"

	"github.com/stemsi/exstem-assessment/internal/model"
)

// SelectQuestions picks a subset of pool whose point sum approaches budget
// without exceeding it.
//
// It is a greedy pass over the pool by descending points, followed by a second
// pass that tops up with the first unselected question still fitting the gap.
// Ties keep pool order, so the same pool always yields the same subset. It is
// not a subset-sum optimum.
//
// Entries with zero or negative points are ignored. An empty result with a
// positive budget is ErrInsufficientQuestions; a non-positive budget yields an
// empty selection, which callers starting a session must reject themselves.
func SelectQuestions(pool []model.QuestionPoolEntry, budget int) ([]model.QuestionPoolEntry, error) {
	if budget <= 0 {
		return []model.QuestionPoolEntry{}, nil
	}

	eligible := make([]model.QuestionPoolEntry, 0, len(pool))
	for _, q := range pool {
		if q.Points > 0 {
			eligible = append(eligible, q)
		}
	}
	slices.SortStableFunc(eligible, func(a, b model.QuestionPoolEntry) int {
		return cmp.Compare(b.Points, a.Points)
	})

	picked := make([]bool, len(eligible))
	selected := make([]model.QuestionPoolEntry, 0, len(eligible))
	total := 0
	for i, q := range eligible {
		if total == budget {
			break
		}
		if total+q.Points <= budget {
			picked[i] = true
			selected = append(selected, q)
			total += q.Points
		}
	}

	if total < budget {
		for i, q := range eligible {
			if !picked[i] && q.Points <= budget-total {
				selected = append(selected, q)
				total += q.Points
				break
			}
		}
	}

	if len(selected) == 0 {
		return nil, ErrInsufficientQuestions
	}
	return selected, nil
}
