package reports

import (
	"math"
	"time"

	"github.com/ayush/daybook/internal/models"
)

// GroupByCategory sums amounts per category. Absent categories have no key.
func GroupByCategory(expenses []models.Expense) map[models.Category]float64 {
	totals := make(map[models.Category]float64)
	for _, e := range expenses {
		totals[e.Category] += e.Amount
	}
	return totals
}

// CategoryPercentages converts totals into whole percentages of their sum,
// rounding halves up. The result is not forced to add up to 100. A zero sum
// yields an empty map.
func CategoryPercentages(totals map[models.Category]float64) map[models.Category]int {
	out := make(map[models.Category]int, len(totals))
	var grand float64
	for _, v := range totals {
		grand += v
	}
	if grand == 0 {
		return out
	}
	for c, v := range totals {
		out[c] = int(math.Floor(100*v/grand + 0.5))
	}
	return out
}

// TotalByFilter sums the amounts of the expenses inside f's window.
func TotalByFilter(expenses []models.Expense, f Filter, now time.Time) float64 {
	var total float64
	for _, e := range FilterByDate(expenses, f, now) {
		total += e.Amount
	}
	return total
}

// DailyTotals sums the current week's expenses per day, Monday first, each
// rounded to cents.
func DailyTotals(expenses []models.Expense, now time.Time) [7]float64 {
	var days [7]float64
	for _, e := range FilterByDate(expenses, FilterWeek, now) {
		days[weekdayIndex(e.Date.In(now.Location()))] += e.Amount
	}
	for i := range days {
		days[i] = roundCents(days[i])
	}
	return days
}

// WeekDays labels the current week's days, Monday first ("Mon" … "Sun").
func WeekDays(now time.Time) [7]string {
	var labels [7]string
	start := startOfWeek(now)
	for i := range labels {
		labels[i] = start.AddDate(0, 0, i).Format("Mon")
	}
	return labels
}

// TodaysTasks returns the tasks dated on now's calendar day.
func TodaysTasks(tasks []models.Task, now time.Time) []models.Task {
	return FilterByDate(tasks, FilterDay, now)
}

// CompletedCount counts completed tasks.
func CompletedCount(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
