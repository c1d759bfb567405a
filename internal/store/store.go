package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayush/daybook/internal/models"
)

// UserRepository persists users. Create does not check username uniqueness;
// that is the caller's job, although durable backends still reject duplicates
// with models.ErrDuplicateUsername.
type UserRepository interface {
	Create(ctx context.Context, u models.NewUser) (models.User, error)
	Get(ctx context.Context, id int64) (models.User, bool, error)
	GetByUsername(ctx context.Context, username string) (models.User, bool, error)
	List(ctx context.Context) ([]models.User, error)
}

// TaskRepository persists tasks. Absence is reported through the bool
// results, never as an error.
type TaskRepository interface {
	Create(ctx context.Context, t models.Task) (models.Task, error)
	Get(ctx context.Context, id int64) (models.Task, bool, error)
	List(ctx context.Context) ([]models.Task, error)
	Update(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ExpenseRepository persists expenses.
type ExpenseRepository interface {
	Create(ctx context.Context, e models.Expense) (models.Expense, error)
	Get(ctx context.Context, id int64) (models.Expense, bool, error)
	List(ctx context.Context) ([]models.Expense, error)
	Update(ctx context.Context, id int64, u models.ExpenseUpdate) (models.Expense, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Store bundles the three repositories of one backend.
type Store struct {
	Users    UserRepository
	Tasks    TaskRepository
	Expenses ExpenseRepository

	close func() error
}

// Close releases the backend's connections.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Options configures Open.
type Options struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
	MongoURI    string
	MongoDB     string
}

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN)
	case BackendMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDB)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
