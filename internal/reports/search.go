package reports

import (
	"slices"
	"strings"

	"github.com/ayush/daybook/internal/models"
)

// SearchTasks keeps tasks whose title or description contains q, ignoring
// case. An empty query matches everything.
func SearchTasks(tasks []models.Task, q string) []models.Task {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if q == "" || containsFold(t.Title, q) || (t.Description != nil && containsFold(*t.Description, q)) {
			out = append(out, t)
		}
	}
	return out
}

// SplitByStatus partitions tasks into completed and pending, keeping order.
func SplitByStatus(tasks []models.Task) (completed, pending []models.Task) {
	completed = make([]models.Task, 0, len(tasks))
	pending = make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}
	return completed, pending
}

// SearchExpenses keeps expenses of category (empty matches any) whose
// description contains q, ignoring case.
func SearchExpenses(expenses []models.Expense, category models.Category, q string) []models.Expense {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if category != "" && e.Category != category {
			continue
		}
		if q != "" && !containsFold(e.Description, q) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SortExpensesNewestFirst returns a copy ordered by date, latest first. Equal
// dates keep their relative order.
func SortExpensesNewestFirst(expenses []models.Expense) []models.Expense {
	out := slices.Clone(expenses)
	slices.SortStableFunc(out, func(a, b models.Expense) int {
		return b.Date.Compare(a.Date)
	})
	return out
}

// Paginate returns items[offset:offset+limit], clamped to the slice. A
// non-positive limit means no limit.
func Paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
