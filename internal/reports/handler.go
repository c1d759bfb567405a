package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayush/daybook/internal/models"
	"github.com/ayush/daybook/internal/respond"
	"github.com/ayush/daybook/internal/store"
)

// Options configures a Handler.
type Options struct {
	Location *time.Location
	Now      func() time.Time
}

// Handler serves the dashboard, expense reports and CSV exports.
type Handler struct {
	tasks    store.TaskRepository
	expenses store.ExpenseRepository
	objects  ObjectStore
	loc      *time.Location
	clock    func() time.Time
}

func NewHandler(tasks store.TaskRepository, expenses store.ExpenseRepository, objects ObjectStore, opts Options) *Handler {
	h := &Handler{tasks: tasks, expenses: expenses, objects: objects, loc: opts.Location, clock: opts.Now}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

func (h *Handler) now() time.Time {
	return h.clock().In(h.loc)
}

// Dashboard is the payload of GET /api/dashboard.
type Dashboard struct {
	TasksToday          []models.Task               `json:"tasks_today"`
	TasksTodayCompleted int                         `json:"tasks_today_completed"`
	ExpensesToday       float64                     `json:"expenses_today"`
	ExpensesWeek        float64                     `json:"expenses_week"`
	ExpensesMonth       float64                     `json:"expenses_month"`
	WeekDays            [7]string                   `json:"week_days"`
	DailyTotals         [7]float64                  `json:"daily_totals"`
	Filter              Filter                      `json:"filter"`
	CategoryTotals      map[models.Category]float64 `json:"category_totals"`
	CategoryPercentages map[models.Category]int     `json:"category_percentages"`
}

// BuildDashboard computes the dashboard from already loaded records.
func BuildDashboard(tasks []models.Task, expenses []models.Expense, f Filter, now time.Time) Dashboard {
	today := TodaysTasks(tasks, now)
	totals := GroupByCategory(FilterByDate(expenses, f, now))
	return Dashboard{
		TasksToday:          today,
		TasksTodayCompleted: CompletedCount(today),
		ExpensesToday:       roundCents(TotalByFilter(expenses, FilterDay, now)),
		ExpensesWeek:        roundCents(TotalByFilter(expenses, FilterWeek, now)),
		ExpensesMonth:       roundCents(TotalByFilter(expenses, FilterMonth, now)),
		WeekDays:            WeekDays(now),
		DailyTotals:         DailyTotals(expenses, now),
		Filter:              f,
		CategoryTotals:      totals,
		CategoryPercentages: CategoryPercentages(totals),
	}
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query().Get("filter"), FilterWeek)
	if err != nil {
		respond.Error(w, r, err, "Failed to build dashboard")
		return
	}

	tasks, expenses, err := h.load(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Failed to build dashboard")
		return
	}
	respond.JSON(w, http.StatusOK, BuildDashboard(tasks, expenses, f, h.now()))
}

// load fetches tasks and expenses concurrently.
func (h *Handler) load(ctx context.Context) ([]models.Task, []models.Expense, error) {
	var (
		tasks    []models.Task
		expenses []models.Expense
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tasks, err = h.tasks.List(ctx); err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if expenses, err = h.expenses.List(ctx); err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tasks, expenses, nil
}

// ExpenseReport is the payload of GET /api/reports/expenses.
type ExpenseReport struct {
	Filter              Filter                      `json:"filter"`
	Start               *time.Time                  `json:"start"`
	End                 *time.Time                  `json:"end"`
	Total               float64                     `json:"total"`
	Count               int                         `json:"count"`
	CategoryTotals      map[models.Category]float64 `json:"category_totals"`
	CategoryPercentages map[models.Category]int     `json:"category_percentages"`
}

// BuildExpenseReport summarises the expenses inside f's window.
func BuildExpenseReport(expenses []models.Expense, f Filter, now time.Time) ExpenseReport {
	win := WindowFor(f, now)
	filtered := FilterByDate(expenses, f, now)
	totals := GroupByCategory(filtered)

	rep := ExpenseReport{
		Filter:              f,
		Total:               roundCents(TotalByFilter(expenses, f, now)),
		Count:               len(filtered),
		CategoryTotals:      totals,
		CategoryPercentages: CategoryPercentages(totals),
	}
	if win.Bounded {
		rep.Start, rep.End = &win.Start, &win.End
	}
	return rep
}

// ExpenseReport handles GET /api/reports/expenses.
func (h *Handler) ExpenseReport(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query().Get("filter"), FilterWeek)
	if err != nil {
		respond.Error(w, r, err, "Failed to build report")
		return
	}

	expenses, err := h.expenses.List(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Failed to build report")
		return
	}
	respond.JSON(w, http.StatusOK, BuildExpenseReport(expenses, f, h.now()))
}
