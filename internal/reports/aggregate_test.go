package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ayush/daybook/internal/models"
)

func expense(amount float64, c models.Category, at time.Time) models.Expense {
	return models.Expense{Description: "x", Amount: amount, Category: c, Date: at}
}

func TestLunchScenario(t *testing.T) {
	lunch := models.Expense{
		ID:          1,
		Description: "Lunch",
		Amount:      12.50,
		Category:    models.CategoryFood,
		Date:        time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	}

	totals := GroupByCategory([]models.Expense{lunch})
	assert.Equal(t, map[models.Category]float64{models.CategoryFood: 12.5}, totals)
	assert.Equal(t, map[models.Category]int{models.CategoryFood: 100}, CategoryPercentages(totals))
}

func TestGroupByCategoryOnlyPresentCategories(t *testing.T) {
	now := wednesday
	totals := GroupByCategory([]models.Expense{
		expense(10, models.CategoryFood, now),
		expense(5.5, models.CategoryFood, now),
		expense(40, models.CategoryBills, now),
	})
	assert.Equal(t, map[models.Category]float64{
		models.CategoryFood:  15.5,
		models.CategoryBills: 40,
	}, totals)
	assert.NotContains(t, totals, models.CategoryTravel)

	assert.Empty(t, GroupByCategory(nil))
}

func TestCategoryPercentages(t *testing.T) {
	tests := []struct {
		name   string
		totals map[models.Category]float64
		want   map[models.Category]int
	}{
		{
			name:   "empty input",
			totals: map[models.Category]float64{},
			want:   map[models.Category]int{},
		},
		{
			name:   "all zero",
			totals: map[models.Category]float64{models.CategoryFood: 0, models.CategoryOther: 0},
			want:   map[models.Category]int{},
		},
		{
			name:   "halves round up",
			totals: map[models.Category]float64{models.CategoryFood: 1, models.CategoryBills: 7},
			want:   map[models.Category]int{models.CategoryFood: 13, models.CategoryBills: 88},
		},
		{
			name: "thirds are not normalized",
			totals: map[models.Category]float64{
				models.CategoryFood:   1,
				models.CategoryTravel: 1,
				models.CategoryBills:  1,
			},
			want: map[models.Category]int{
				models.CategoryFood:   33,
				models.CategoryTravel: 33,
				models.CategoryBills:  33,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategoryPercentages(tt.totals)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTotalByFilter(t *testing.T) {
	expenses := []models.Expense{
		expense(10, models.CategoryFood, time.Date(2024, 3, 6, 9, 0, 0, 0, rome)),
		expense(20, models.CategoryFood, time.Date(2024, 3, 4, 9, 0, 0, 0, rome)),
		expense(30, models.CategoryFood, time.Date(2024, 3, 1, 9, 0, 0, 0, rome)),
		expense(40, models.CategoryFood, time.Date(2024, 2, 1, 9, 0, 0, 0, rome)),
	}
	assert.InDelta(t, 10, TotalByFilter(expenses, FilterDay, wednesday), 1e-9)
	assert.InDelta(t, 30, TotalByFilter(expenses, FilterWeek, wednesday), 1e-9)
	assert.InDelta(t, 60, TotalByFilter(expenses, FilterMonth, wednesday), 1e-9)
	assert.InDelta(t, 100, TotalByFilter(expenses, FilterAll, wednesday), 1e-9)
	assert.Zero(t, TotalByFilter(nil, FilterAll, wednesday))
}

func TestDailyTotals(t *testing.T) {
	expenses := []models.Expense{
		expense(0.1, models.CategoryFood, time.Date(2024, 3, 4, 8, 0, 0, 0, rome)),
		expense(0.2, models.CategoryFood, time.Date(2024, 3, 4, 20, 0, 0, 0, rome)),
		expense(12.346, models.CategoryTravel, time.Date(2024, 3, 6, 12, 0, 0, 0, rome)),
		expense(50, models.CategoryBills, time.Date(2024, 3, 10, 23, 0, 0, 0, rome)),
		// previous Sunday and next Monday fall outside the week
		expense(99, models.CategoryOther, time.Date(2024, 3, 3, 12, 0, 0, 0, rome)),
		expense(99, models.CategoryOther, time.Date(2024, 3, 11, 0, 0, 0, 0, rome)),
	}

	got := DailyTotals(expenses, wednesday)
	assert.Equal(t, [7]float64{0.3, 0, 12.35, 0, 0, 0, 50}, got)
	assert.Equal(t, [7]float64{}, DailyTotals(nil, wednesday))
}

func TestDailyTotalsUsesNowLocation(t *testing.T) {
	// Tuesday 23:30 UTC is Wednesday in Rome.
	expenses := []models.Expense{expense(5, models.CategoryFood, time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC))}
	got := DailyTotals(expenses, wednesday)
	assert.Equal(t, 5.0, got[2])
	assert.Zero(t, got[1])
}

func TestWeekDays(t *testing.T) {
	assert.Equal(t, [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, WeekDays(wednesday))
}

func TestTodaysTasksAndCompletedCount(t *testing.T) {
	done := taskAt(1, time.Date(2024, 3, 6, 9, 0, 0, 0, rome))
	done.Completed = true
	tasks := []models.Task{
		done,
		taskAt(2, time.Date(2024, 3, 6, 18, 0, 0, 0, rome)),
		taskAt(3, time.Date(2024, 3, 7, 9, 0, 0, 0, rome)),
	}

	today := TodaysTasks(tasks, wednesday)
	assert.Len(t, today, 2)
	assert.Equal(t, 1, CompletedCount(today))
	assert.Equal(t, 0, CompletedCount(nil))
}
