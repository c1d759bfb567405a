package tasks

import (
	"net/http"
	"time"

	"github.com/ayush/daybook/internal/log"
	"github.com/ayush/daybook/internal/models"
	"github.com/ayush/daybook/internal/reports"
	"github.com/ayush/daybook/internal/respond"
	"github.com/ayush/daybook/internal/store"
)

// Handler serves /api/tasks.
type Handler struct {
	repo  store.TaskRepository
	loc   *time.Location
	clock func() time.Time
}

func NewHandler(repo store.TaskRepository, opts reports.Options) *Handler {
	h := &Handler{repo: repo, loc: opts.Location, clock: opts.Now}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

// List handles GET /api/tasks?filter=&q=&status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	f, err := reports.ParseFilter(query.Get("filter"), reports.FilterAll)
	if err != nil {
		respond.Error(w, r, err, "Failed to fetch tasks")
		return
	}
	status := query.Get("status")
	if status != "" && status != "completed" && status != "pending" {
		respond.Error(w, r, models.Invalid("status", "Must be completed or pending"), "Failed to fetch tasks")
		return
	}

	all, err := h.repo.List(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Failed to fetch tasks")
		return
	}

	result := reports.SearchTasks(reports.FilterByDate(all, f, h.clock().In(h.loc)), query.Get("q"))
	switch status {
	case "completed":
		result, _ = reports.SplitByStatus(result)
	case "pending":
		_, result = reports.SplitByStatus(result)
	}
	respond.JSON(w, http.StatusOK, result)
}

// Get handles GET /api/tasks/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(r)
	if !ok {
		respond.Message(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, found, err := h.repo.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err, "Failed to fetch task")
		return
	}
	if !found {
		respond.Message(w, http.StatusNotFound, "Task not found")
		return
	}
	respond.JSON(w, http.StatusOK, task)
}

// Create handles POST /api/tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.TaskInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err, "Failed to create task")
		return
	}
	task, err := in.Task()
	if err != nil {
		respond.Error(w, r, err, "Failed to create task")
		return
	}

	created, err := h.repo.Create(r.Context(), task)
	if err != nil {
		respond.Error(w, r, err, "Failed to create task")
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentTasks).DebugContext(r.Context(), "task created",
		log.FieldOperation, log.OpCreate, log.FieldID, created.ID)
	respond.JSON(w, http.StatusCreated, created)
}

// Update handles PATCH /api/tasks/{id}. Only the fields present in the body
// change.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(r)
	if !ok {
		respond.Message(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var patch models.TaskPatch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, r, err, "Failed to update task")
		return
	}
	update, err := patch.Update()
	if err != nil {
		respond.Error(w, r, err, "Failed to update task")
		return
	}

	task, found, err := h.repo.Update(r.Context(), id, update)
	if err != nil {
		respond.Error(w, r, err, "Failed to update task")
		return
	}
	if !found {
		respond.Message(w, http.StatusNotFound, "Task not found")
		return
	}
	respond.JSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.PathID(r)
	if !ok {
		respond.Message(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err, "Failed to delete task")
		return
	}
	if !deleted {
		respond.Message(w, http.StatusNotFound, "Task not found")
		return
	}
	respond.NoContent(w)
}
