package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/daybook/internal/auth"
	"github.com/ayush/daybook/internal/expenses"
	"github.com/ayush/daybook/internal/log"
	"github.com/ayush/daybook/internal/middleware"
	"github.com/ayush/daybook/internal/reports"
	"github.com/ayush/daybook/internal/respond"
	"github.com/ayush/daybook/internal/store"
	"github.com/ayush/daybook/internal/tasks"
)

// Deps is everything the router wires together.
type Deps struct {
	Store       *store.Store
	Auth        *auth.Service
	Objects     reports.ObjectStore
	Logger      *log.Logger
	Cookie      auth.CookieOptions
	CORSOrigins []string
	Location    *time.Location
	Now         func() time.Time
}

// NewRouter builds the HTTP handler for the whole API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = log.Discard()
	}
	clock := reports.Options{Location: d.Location, Now: d.Now}

	authHandler := auth.NewHandler(d.Auth, d.Cookie)
	taskHandler := tasks.NewHandler(d.Store.Tasks, clock)
	expenseHandler := expenses.NewHandler(d.Store.Expenses, clock)
	reportHandler := reports.NewHandler(d.Store.Tasks, d.Store.Expenses, d.Objects, clock)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(log.Middleware(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{expenses.TotalCountHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	requireAuth := func(next http.Handler) http.Handler {
		return middleware.RequireAuth(d.Auth)(authHandler.RefreshCookie(next))
	}
	anonymousOnly := middleware.RequireAnonymous(d.Auth)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(anonymousOnly).Post("/register", authHandler.Register)
		r.With(anonymousOnly).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/user", authHandler.User)
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", taskHandler.List)
		r.Post("/", taskHandler.Create)
		r.Get("/{id}", taskHandler.Get)
		r.Patch("/{id}", taskHandler.Update)
		r.Delete("/{id}", taskHandler.Delete)
	})

	r.Route("/api/expenses", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", expenseHandler.List)
		r.Post("/", expenseHandler.Create)
		r.Get("/{id}", expenseHandler.Get)
		r.Patch("/{id}", expenseHandler.Update)
		r.Delete("/{id}", expenseHandler.Delete)
	})

	r.With(requireAuth).Get("/api/dashboard", reportHandler.Dashboard)

	r.Route("/api/reports", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/expenses", reportHandler.ExpenseReport)
		r.Post("/exports", reportHandler.CreateExport)
		r.Get("/exports/{name}", reportHandler.DownloadExport)
		r.Delete("/exports/{name}", reportHandler.DeleteExport)
	})

	return r
}
