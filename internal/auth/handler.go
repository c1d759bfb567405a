package auth

import (
	"net/http"
	"time"

	"github.com/ayush/daybook/internal/log"
	"github.com/ayush/daybook/internal/models"
	"github.com/ayush/daybook/internal/respond"
)

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Secure bool
	TTL    time.Duration
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc    *Service
	cookie CookieOptions
}

func NewHandler(svc *Service, cookie CookieOptions) *Handler {
	if cookie.TTL <= 0 {
		cookie.TTL = DefaultSessionTTL
	}
	return &Handler{svc: svc, cookie: cookie}
}

// SessionID returns the session cookie's value, or "".
func SessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// Register creates a new user. The caller still has to log in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err, "Failed to register")
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.Error(w, r, err, "Failed to register")
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "user registered",
		log.FieldUserID, user.ID)
	respond.JSON(w, http.StatusCreated, user)
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err, "Failed to login")
		return
	}

	user, sid, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.Error(w, r, err, "Failed to login")
		return
	}

	h.setSessionCookie(w, sid)
	respond.JSON(w, http.StatusOK, user)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookie.TTL / time.Second),
	})
}

// RefreshCookie re-issues the session cookie with a full TTL so the browser
// keeps it as long as the sliding server-side session lives. Mount it after
// a middleware that has already validated the session.
func (h *Handler) RefreshCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sid := SessionID(r); sid != "" {
			h.setSessionCookie(w, sid)
		}
		next.ServeHTTP(w, r)
	})
}

// Logout destroys the current session, if any.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), SessionID(r)); err != nil {
		respond.Error(w, r, err, "Failed to logout")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	respond.Message(w, http.StatusOK, "Logged out")
}

// User returns the currently authenticated user.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context(), SessionID(r))
	if err != nil {
		respond.Error(w, r, err, "Failed to fetch user")
		return
	}
	respond.JSON(w, http.StatusOK, user)
}
