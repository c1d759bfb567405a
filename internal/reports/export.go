package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ayush/daybook/internal/log"
	"github.com/ayush/daybook/internal/middleware"
	"github.com/ayush/daybook/internal/models"
	"github.com/ayush/daybook/internal/respond"
	"github.com/ayush/daybook/internal/store"
)

const csvContentType = "text/csv"

// ObjectStore archives export files. store.MinioStore and
// store.MemoryObjectStore implement it.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

var exportNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Export describes an archived CSV.
type Export struct {
	Name  string  `json:"name"`
	Rows  int     `json:"rows"`
	Total float64 `json:"total"`
	Size  int     `json:"size"`
}

// RenderCSV writes expenses as CSV with a header row. Dates are printed as
// calendar days in loc.
func RenderCSV(expenses []models.Expense, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"id", "date", "description", "category", "amount"}); err != nil {
		return nil, err
	}
	for _, e := range expenses {
		if err := cw.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.Date.In(loc).Format("2006-01-02"),
			e.Description,
			string(e.Category),
			strconv.FormatFloat(e.Amount, 'f', 2, 64),
		}); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportKey(userID int64, name string) string {
	return fmt.Sprintf("exports/%d/%s.csv", userID, name)
}

// exportName validates the {name} path parameter. A trailing .csv is allowed.
func exportName(r *http.Request) (string, error) {
	name := strings.TrimSuffix(chi.URLParam(r, "name"), ".csv")
	if !exportNamePattern.MatchString(name) {
		return "", models.Invalid("name", "Invalid export name")
	}
	return name, nil
}

// CreateExport handles POST /api/reports/exports.
func (h *Handler) CreateExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, r, models.ErrUnauthorized, "")
		return
	}
	f, err := ParseFilter(r.URL.Query().Get("filter"), FilterMonth)
	if err != nil {
		respond.Error(w, r, err, "Failed to create export")
		return
	}

	expenses, err := h.expenses.List(r.Context())
	if err != nil {
		respond.Error(w, r, err, "Failed to create export")
		return
	}
	now := h.now()
	rows := SortExpensesNewestFirst(FilterByDate(expenses, f, now))

	data, err := RenderCSV(rows, h.loc)
	if err != nil {
		respond.Error(w, r, fmt.Errorf("render csv: %w", err), "Failed to create export")
		return
	}

	name := fmt.Sprintf("expenses-%s-%s-%s", f, now.Format("20060102-150405"), uuid.NewString()[:8])
	if err := h.objects.Upload(r.Context(), exportKey(userID, name), data, csvContentType); err != nil {
		respond.Error(w, r, err, "Failed to create export")
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentReports).InfoContext(r.Context(), "export archived",
		log.FieldOperation, log.OpExport, "name", name, "rows", len(rows))

	respond.JSON(w, http.StatusCreated, Export{
		Name:  name,
		Rows:  len(rows),
		Total: roundCents(TotalByFilter(expenses, f, now)),
		Size:  len(data),
	})
}

// DownloadExport handles GET /api/reports/exports/{name}.
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, r, models.ErrUnauthorized, "")
		return
	}
	name, err := exportName(r)
	if err != nil {
		respond.Error(w, r, err, "Failed to download export")
		return
	}

	data, contentType, err := h.objects.Download(r.Context(), exportKey(userID, name))
	if errors.Is(err, store.ErrObjectNotFound) {
		respond.Message(w, http.StatusNotFound, "Export not found")
		return
	}
	if err != nil {
		respond.Error(w, r, err, "Failed to download export")
		return
	}

	if contentType == "" {
		contentType = csvContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DeleteExport handles DELETE /api/reports/exports/{name}.
func (h *Handler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		respond.Error(w, r, models.ErrUnauthorized, "")
		return
	}
	name, err := exportName(r)
	if err != nil {
		respond.Error(w, r, err, "Failed to delete export")
		return
	}

	if err := h.objects.Remove(r.Context(), exportKey(userID, name)); err != nil {
		respond.Error(w, r, err, "Failed to delete export")
		return
	}
	respond.NoContent(w)
}
