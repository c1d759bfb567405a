package expenses

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayush/daybook/internal/log"
	"github.com/ayush/daybook/internal/models"
	"github.com/ayush/daybook/internal/reports"
	"github.com/ayush/daybook/internal/respond"
	"github.com/ayush/daybook/internal/store"
)

// TotalCountHeader carries the number of matches before pagination.
const TotalCountHeader = "X-Total-Count"

// Handler serves /api/expenses.
type Handler struct {
	repo  store.ExpenseRepository
	loc   *time.Location
	clock func() time.Time
}

func NewHandler(repo store.ExpenseRepository, opts reports.Options) *Handler {
	h := &Handler{repo: repo, loc: opts.Location, clock: opts.Now}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

type listQuery struct {
	filter   reports.Filter
	category models.Category
	q        string
	newest   bool
	limit    int
	offset   int
}

func parseListQuery(r *http.Request) (listQuery, error) {
	query := r.URL.Query()
	var lq listQuery
	var err error

	if lq.filter, err = reports.ParseFilter(query.Get("filter"), reports.FilterAll); err != nil {
		return lq, err
	}
	if c := query.Get("category"); c != "" && !strings.EqualFold(c, "all") {
		lq.category = models.Category(c)
		if !lq.category.Valid() {
			return lq, models.Invalid("category", "Invalid category %q", c)
		}
	}
	switch sort := query.Get("sort"); sort {
	case "":
	case "newest":
		lq.newest = true
	default:
		return lq, models.Invalid("sort", "Invalid sort %q", sort)
	}
	if lq.limit, err = respond.QueryInt(r, "limit", 0); err != nil {
		return lq, err
	}
	if lq.offset, err = respond.QueryInt(r, "offset", 0); err != nil {
		return lq, err
	}
	lq.q = query.Get("q")
	return lq, nil
}

// List handles GET /api/expenses?filter=&category=&q=&sort=&limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r)
	if err != nil {
		respond.Error(w, r, err, "Failed to fetch expenses")
		return
	}

	all, err := h.repo.List(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Failed to fetch expenses")
		return
	}

	matched := reports.SearchExpenses(reports.FilterByDate(all, lq.filter, h.clock().In(h.loc)), lq.category, lq.q)
	if lq.newest {
		matched = reports.SortExpensesNewestFirst(matched)
	}
	w.Header().Set(TotalCountHeader, strconv.Itoa(len(matched)))
	respond.JSON(w, http.StatusOK, reports.Paginate(matched, lq.limit, lq.offset))
}

// Get handles GET /api/expenses/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(r)
	if !ok {
		respond.Message(w, http.StatusBadRequest, "Invalid expense ID")
		return
	}

	expense, found, err := h.repo.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err, "Failed to fetch expense")
		return
	}
	if !found {
		respond.Message(w, http.StatusNotFound, "Expense not found")
		return
	}
	respond.JSON(w, http.StatusOK, expense)
}

// Create handles POST /api/expenses.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ExpenseInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err, "Failed to create expense")
		return
	}
	expense, err := in.Expense()
	if err != nil {
		respond.Error(w, r, err, "Failed to create expense")
		return
	}

	created, err := h.repo.Create(r.Context(), expense)
	if err != nil {
		respond.Error(w, r, err, "Failed to create expense")
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentExpense).DebugContext(r.Context(), "expense created",
		log.FieldOperation, log.OpCreate, log.FieldID, created.ID, "category", created.Category)
	respond.JSON(w, http.StatusCreated, created)
}

// Update handles PATCH /api/expenses/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(r)
	if !ok {
		respond.Message(w, http.StatusBadRequest, "Invalid expense ID")
		return
	}

	var patch models.ExpensePatch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, r, err, "Failed to update expense")
		return
	}
	update, err := patch.Update()
	if err != nil {
		respond.Error(w, r, err, "Failed to update expense")
		return
	}

	expense, found, err := h.repo.Update(r.Context(), id, update)
	if err != nil {
		respond.Error(w, r, err, "Failed to update expense")
		return
	}
	if !found {
		respond.Message(w, http.StatusNotFound, "Expense not found")
		return
	}
	respond.JSON(w, http.StatusOK, expense)
}

// Delete handles DELETE /api/expenses/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(r)
	if !ok {
		respond.Message(w, http.StatusBadRequest, "Invalid expense ID")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err, "Failed to delete expense")
		return
	}
	if !deleted {
		respond.Message(w, http.StatusNotFound, "Expense not found")
		return
	}
	respond.NoContent(w)
}
