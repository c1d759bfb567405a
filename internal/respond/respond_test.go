package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/daybook/internal/models"
)

type payload struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func decodeBody(t *testing.T, body string) (payload, error) {
	t.Helper()
	var p payload
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return p, Decode(r, &p)
}

func TestDecode(t *testing.T) {
	p, err := decodeBody(t, `{"title":"Pay rent","count":2}`)
	require.NoError(t, err)
	assert.Equal(t, payload{Title: "Pay rent", Count: 2}, p)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, "Request body is required"},
		{"malformed", `{"title":`, "Malformed JSON body"},
		{"unknown field", `{"title":"x","owner":"bob"}`, "owner: Unknown field"},
		{"wrong type", `{"count":"two"}`, "count: Invalid type"},
		{"trailing object", `{"title":"a"}{"title":"b"}`, "Body must contain a single JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeBody(t, tt.body)
			require.Error(t, err)
			assert.True(t, models.IsValidation(err))
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", models.Invalid("title", "Title is required"), http.StatusBadRequest, "title: Title is required"},
		{"validation without field", models.Invalid("", "Malformed JSON body"), http.StatusBadRequest, "Malformed JSON body"},
		{"not found", fmt.Errorf("lookup: %w", models.ErrNotFound), http.StatusNotFound, "Not found"},
		{"unauthorized", models.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{"bad credentials", models.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
		{"duplicate", models.ErrDuplicateUsername, http.StatusBadRequest, "Username already exists"},
		{"already authenticated", models.ErrAlreadyAuthenticated, http.StatusBadRequest, "Already authenticated"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "Failed to fetch tasks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			Error(w, r, tt.err, "Failed to fetch tasks")

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body Body
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, w.Body.String(), "disk on fire")
		})
	}
}
