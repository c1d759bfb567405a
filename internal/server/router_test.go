package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/daybook/internal/auth"
	"github.com/ayush/daybook/internal/models"
	"github.com/ayush/daybook/internal/store"
)

var fixedNow = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T) *client {
	t.Helper()
	st := store.NewMemoryStore()
	svc := auth.NewService(st.Users, auth.NewMemorySessionStore(time.Hour), auth.NewPasswordHasher(bcrypt.MinCost))

	srv := httptest.NewServer(NewRouter(Deps{
		Store:       st,
		Auth:        svc,
		Objects:     store.NewMemoryObjectStore(),
		Cookie:      auth.CookieOptions{TTL: time.Hour},
		CORSOrigins: []string{"http://localhost:5173"},
		Location:    time.UTC,
		Now:         func() time.Time { return fixedNow },
	}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (int, []byte, http.Header) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			data, err := json.Marshal(body)
			require.NoError(c.t, err)
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data, resp.Header
}

func (c *client) login(username, password string) {
	c.t.Helper()
	status, _, _ := c.do(http.MethodPost, "/api/auth/register", map[string]string{"username": username, "password": password})
	require.Equal(c.t, http.StatusCreated, status)
	status, _, _ = c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": password})
	require.Equal(c.t, http.StatusOK, status)
}

func TestHealth(t *testing.T) {
	c := newTestServer(t)
	status, body, _ := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestAuthFlow(t *testing.T) {
	c := newTestServer(t)

	status, body, _ := c.do(http.MethodGet, "/api/auth/user", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, string(body))

	status, body, _ = c.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice", "password": "secret"})
	require.Equal(t, http.StatusCreated, status)
	assert.NotContains(t, string(body), "password")
	assert.Contains(t, string(body), `"username":"alice"`)

	// Registering does not log in.
	status, _, _ = c.do(http.MethodGet, "/api/auth/user", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body, _ = c.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"message":"Username already exists"}`, string(body))

	status, body, _ = c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"Invalid username or password"}`, string(body))

	status, _, headers := c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "secret"})
	require.Equal(t, http.StatusOK, status)
	cookie := headers.Get("Set-Cookie")
	assert.Contains(t, cookie, auth.SessionCookie+"=")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "SameSite=Lax")

	status, body, _ = c.do(http.MethodGet, "/api/auth/user", nil)
	require.Equal(t, http.StatusOK, status)
	var me models.User
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "alice", me.Username)
	assert.Empty(t, me.Password)
	assert.NotContains(t, string(body), "password")

	status, body, _ = c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "secret"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"message":"Already authenticated"}`, string(body))

	status, body, _ = c.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Logged out"}`, string(body))

	status, _, _ = c.do(http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Logging out twice is harmless.
	status, _, _ = c.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRegisterValidation(t *testing.T) {
	c := newTestServer(t)

	status, body, _ := c.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "Username is required")

	status, _, _ = c.do(http.MethodPost, "/api/auth/register", `{"username":"bob","password":"x","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	c := newTestServer(t)
	for _, path := range []string{"/api/tasks", "/api/tasks/1", "/api/expenses", "/api/dashboard", "/api/reports/expenses"} {
		status, body, _ := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, string(body), path)
	}
}

func TestTaskLifecycle(t *testing.T) {
	c := newTestServer(t)
	c.login("alice", "secret")

	status, body, _ := c.do(http.MethodPost, "/api/tasks", map[string]any{
		"title": "Pay rent", "date": "2024-03-04T10:00:00Z", "completed": false,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"id":1,"title":"Pay rent","description":null,"date":"2024-03-04T10:00:00Z","completed":false}`, string(body))

	status, body, _ = c.do(http.MethodPatch, "/api/tasks/1", map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, status)

	status, body, _ = c.do(http.MethodGet, "/api/tasks/1", nil)
	require.Equal(t, http.StatusOK, status)
	var task models.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.True(t, task.Completed)
	assert.Equal(t, "Pay rent", task.Title)

	status, body, _ = c.do(http.MethodPatch, "/api/tasks/1", map[string]any{"description": "by transfer"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"description":"by transfer"`)

	status, body, _ = c.do(http.MethodPatch, "/api/tasks/1", `{"description":null}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"description":null`)

	status, body, _ = c.do(http.MethodGet, "/api/tasks?status=completed&q=rent", nil)
	require.Equal(t, http.StatusOK, status)
	var list []models.Task
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	status, body, _ = c.do(http.MethodGet, "/api/tasks?status=pending", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, _, _ = c.do(http.MethodDelete, "/api/tasks/1", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body, _ = c.do(http.MethodDelete, "/api/tasks/1", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"message":"Task not found"}`, string(body))
}

func TestTaskErrors(t *testing.T) {
	c := newTestServer(t)
	c.login("alice", "secret")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		msg    string
	}{
		{"non-numeric id", http.MethodGet, "/api/tasks/abc", nil, http.StatusBadRequest, "Invalid task ID"},
		{"unknown id", http.MethodGet, "/api/tasks/42", nil, http.StatusNotFound, "Task not found"},
		{"patch unknown id", http.MethodPatch, "/api/tasks/42", map[string]any{"completed": true}, http.StatusNotFound, "Task not found"},
		{"delete bad id", http.MethodDelete, "/api/tasks/x", nil, http.StatusBadRequest, "Invalid task ID"},
		{"missing title", http.MethodPost, "/api/tasks", map[string]any{"date": "2024-03-04"}, http.StatusBadRequest, "title: Required"},
		{"bad date", http.MethodPost, "/api/tasks", map[string]any{"title": "x", "date": "tomorrow"}, http.StatusBadRequest, `date: Invalid date "tomorrow"`},
		{"null title patch", http.MethodPatch, "/api/tasks/1", `{"title":null}`, http.StatusBadRequest, "title: Required"},
		{"bad filter", http.MethodGet, "/api/tasks?filter=year", nil, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := c.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			if tt.msg != "" {
				assert.JSONEq(t, `{"message":`+mustJSON(t, tt.msg)+`}`, string(body))
			}
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestExpenseLifecycle(t *testing.T) {
	c := newTestServer(t)
	c.login("alice", "secret")

	for _, e := range []map[string]any{
		{"description": "Lunch", "amount": 12.50, "category": "Food", "date": "2024-03-04"},
		{"description": "Team lunch", "amount": 30, "category": "Entertainment", "date": "2024-03-06"},
		{"description": "Rent", "amount": 800, "category": "Bills", "date": "2024-02-28"},
	} {
		status, _, _ := c.do(http.MethodPost, "/api/expenses", e)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body, headers := c.do(http.MethodGet, "/api/expenses?q=lunch&sort=newest&limit=1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2", headers.Get("X-Total-Count"))
	var page []models.Expense
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page, 1)
	assert.Equal(t, "Team lunch", page[0].Description)

	status, body, _ = c.do(http.MethodGet, "/api/expenses?filter=month&category=Bills", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body, _ = c.do(http.MethodPatch, "/api/expenses/1", map[string]any{"amount": 15})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"amount":15`)
	assert.Contains(t, string(body), `"description":"Lunch"`)

	status, body, _ = c.do(http.MethodGet, "/api/reports/expenses?filter=week", nil)
	require.Equal(t, http.StatusOK, status)
	var report map[string]any
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 45.0, report["total"])
	assert.Equal(t, 2.0, report["count"])

	status, _, _ = c.do(http.MethodDelete, "/api/expenses/3", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body, _ = c.do(http.MethodGet, "/api/expenses/3", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"message":"Expense not found"}`, string(body))
}

func TestExpenseListHugeLimit(t *testing.T) {
	c := newTestServer(t)
	c.login("alice", "secret")
	for _, d := range []string{"Lunch", "Taxi", "Cinema"} {
		status, _, _ := c.do(http.MethodPost, "/api/expenses",
			map[string]any{"description": d, "amount": 5, "category": "Other", "date": "2024-03-04"})
		require.Equal(t, http.StatusCreated, status)
	}

	status, body, headers := c.do(http.MethodGet, "/api/expenses?limit=9223372036854775807&offset=1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "3", headers.Get("X-Total-Count"))
	var page []models.Expense
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page, 2)
	assert.Equal(t, "Taxi", page[0].Description)
}

func TestAuthenticatedRequestRefreshesSessionCookie(t *testing.T) {
	c := newTestServer(t)
	c.login("alice", "secret")

	_, _, headers := c.do(http.MethodGet, "/api/tasks", nil)
	cookie := sessionCookie(headers)
	require.NotNil(t, cookie, "authenticated response should re-issue the session cookie")
	assert.Equal(t, int(time.Hour/time.Second), cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	status, _, headers := c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	status, _, headers = c.do(http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Nil(t, sessionCookie(headers))
}

func sessionCookie(headers http.Header) *http.Cookie {
	resp := http.Response{Header: headers}
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}

func TestExpenseErrors(t *testing.T) {
	c := newTestServer(t)
	c.login("alice", "secret")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad id", http.MethodGet, "/api/expenses/1.5", nil, http.StatusBadRequest},
		{"negative amount", http.MethodPost, "/api/expenses", map[string]any{"description": "x", "amount": -1, "category": "Food", "date": "2024-03-04"}, http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/api/expenses", map[string]any{"description": "x", "amount": 1, "category": "Pets", "date": "2024-03-04"}, http.StatusBadRequest},
		{"missing amount", http.MethodPost, "/api/expenses", map[string]any{"description": "x", "category": "Food", "date": "2024-03-04"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/expenses", `{"description":`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/expenses?limit=-3", nil, http.StatusBadRequest},
		{"bad sort", http.MethodGet, "/api/expenses?sort=cheapest", nil, http.StatusBadRequest},
		{"bad category filter", http.MethodGet, "/api/expenses?category=Pets", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, _ := c.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestDashboardAndExport(t *testing.T) {
	c := newTestServer(t)
	c.login("alice", "secret")

	status, _, _ := c.do(http.MethodPost, "/api/expenses", map[string]any{
		"description": "Lunch", "amount": 12.5, "category": "Food", "date": "2024-03-06",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body, _ := c.do(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"expenses_today":12.5`)
	assert.Contains(t, string(body), `"category_percentages":{"Food":100}`)

	status, body, _ = c.do(http.MethodPost, "/api/reports/exports", nil)
	require.Equal(t, http.StatusCreated, status)
	var export struct {
		Name string `json:"name"`
		Rows int    `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(body, &export))
	assert.Equal(t, 1, export.Rows)

	status, body, _ = c.do(http.MethodGet, "/api/reports/exports/"+export.Name, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Lunch,Food,12.50")
}
