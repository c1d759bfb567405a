// Package respond holds the JSON response and request helpers shared by the
// HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/daybook/internal/log"
	"github.com/ayush/daybook/internal/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Body is the shape of every error and message response.
type Body struct {
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Body{Message: msg})
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Decode reads a single JSON object into dst. Unknown fields, trailing data
// and malformed bodies come back as a *models.ValidationError.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var validation *models.ValidationError
		switch {
		case errors.As(err, &validation):
			return err
		case errors.Is(err, io.EOF):
			return models.Invalid("", "Request body is required")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return models.Invalid("", "Malformed JSON body")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return models.Invalid(typeErr.Field, "Invalid type")
			}
			return models.Invalid("", "Invalid JSON body")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return models.Invalid(field, "Unknown field")
		default:
			return models.Invalid("", "Invalid JSON body")
		}
	}
	if dec.More() {
		return models.Invalid("", "Body must contain a single JSON object")
	}
	return nil
}

// Error maps err onto the error taxonomy. Anything unrecognised is logged and
// answered with a 500 carrying only fallback.
func Error(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var validation *models.ValidationError
	switch {
	case errors.As(err, &validation):
		Message(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, models.ErrNotFound):
		Message(w, http.StatusNotFound, "Not found")
	case errors.Is(err, models.ErrUnauthorized):
		Message(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, models.ErrInvalidCredentials):
		Message(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, models.ErrDuplicateUsername):
		Message(w, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, models.ErrAlreadyAuthenticated):
		Message(w, http.StatusBadRequest, "Already authenticated")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), fallback,
			log.FieldError, err.Error(),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
		)
		Message(w, http.StatusInternalServerError, fallback)
	}
}

// PathID parses the {id} route parameter.
func PathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// QueryInt parses a non-negative integer query parameter, returning def when
// it is absent.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.Invalid(key, "Must be a non-negative integer")
	}
	return n, nil
}
