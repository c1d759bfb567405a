package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/daybook/internal/models"
)

// PostgresStore handles user, task and expense CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects, migrates and returns the repositories backed by dsn.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	pg := NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return &Store{
		Users:    pgUsers{pg},
		Tasks:    pgTasks{pg},
		Expenses: pgExpenses{pg},
		close: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

// Migrate creates the tables if they don't exist. BIGSERIAL sequences never
// hand out an id twice, even after deletes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         BIGSERIAL    PRIMARY KEY,
			username   VARCHAR(50)  UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS tasks (
			id          BIGSERIAL   PRIMARY KEY,
			title       TEXT        NOT NULL,
			description TEXT,
			date        TIMESTAMPTZ NOT NULL,
			completed   BOOLEAN     NOT NULL DEFAULT FALSE
		);
		CREATE TABLE IF NOT EXISTS expenses (
			id          BIGSERIAL        PRIMARY KEY,
			description TEXT             NOT NULL,
			amount      DOUBLE PRECISION NOT NULL,
			category    TEXT             NOT NULL,
			date        TIMESTAMPTZ      NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_date ON tasks(date);
		CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date);
	`)
	return err
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, hashedPassword string) (models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password)
		 VALUES ($1, $2)
		 RETURNING id, username, password, created_at`,
		username, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, models.ErrDuplicateUsername
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (models.User, bool, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

type pgUsers struct{ s *PostgresStore }

func (r pgUsers) Create(ctx context.Context, u models.NewUser) (models.User, error) {
	return r.s.CreateUser(ctx, u.Username, u.Password)
}

func (r pgUsers) Get(ctx context.Context, id int64) (models.User, bool, error) {
	return r.s.getUser(ctx, "id = $1", id)
}

func (r pgUsers) GetByUsername(ctx context.Context, username string) (models.User, bool, error) {
	return r.s.getUser(ctx, "username = $1", username)
}

func (r pgUsers) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.s.pool.Query(ctx, `SELECT id, username, password, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.User, error) {
		var u models.User
		err := row.Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

const pgTaskColumns = `id, title, description, date, completed`

func scanPgTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Date, &t.Completed)
	return t, err
}

type pgTasks struct{ s *PostgresStore }

func (r pgTasks) Create(ctx context.Context, t models.Task) (models.Task, error) {
	err := r.s.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, date, completed)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		t.Title, t.Description, t.Date, t.Completed,
	).Scan(&t.ID)
	if err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (r pgTasks) Get(ctx context.Context, id int64) (models.Task, bool, error) {
	t, err := scanPgTask(r.s.pool.QueryRow(ctx, `SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, false, nil
	}
	if err != nil {
		return models.Task{}, false, fmt.Errorf("get task: %w", err)
	}
	return t, true, nil
}

func (r pgTasks) List(ctx context.Context) ([]models.Task, error) {
	rows, err := r.s.pool.Query(ctx, `SELECT `+pgTaskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Task, error) {
		return scanPgTask(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r pgTasks) Update(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, bool, error) {
	var (
		out   models.Task
		found bool
	)
	err := pgx.BeginFunc(ctx, r.s.pool, func(tx pgx.Tx) error {
		t, err := scanPgTask(tx.QueryRow(ctx,
			`SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		t = t.Apply(u)
		if _, err := tx.Exec(ctx,
			`UPDATE tasks SET title = $1, description = $2, date = $3, completed = $4 WHERE id = $5`,
			t.Title, t.Description, t.Date, t.Completed, t.ID,
		); err != nil {
			return err
		}
		out, found = t, true
		return nil
	})
	if err != nil {
		return models.Task{}, false, fmt.Errorf("update task: %w", err)
	}
	return out, found, nil
}

func (r pgTasks) Delete(ctx context.Context, id int64) (bool, error) {
	return r.s.delete(ctx, "tasks", id)
}

const pgExpenseColumns = `id, description, amount, category, date`

func scanPgExpense(row pgx.Row) (models.Expense, error) {
	var (
		e        models.Expense
		category string
	)
	if err := row.Scan(&e.ID, &e.Description, &e.Amount, &category, &e.Date); err != nil {
		return models.Expense{}, err
	}
	e.Category = models.Category(category)
	return e, nil
}

type pgExpenses struct{ s *PostgresStore }

func (r pgExpenses) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	err := r.s.pool.QueryRow(ctx,
		`INSERT INTO expenses (description, amount, category, date)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		e.Description, e.Amount, string(e.Category), e.Date,
	).Scan(&e.ID)
	if err != nil {
		return models.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

func (r pgExpenses) Get(ctx context.Context, id int64) (models.Expense, bool, error) {
	e, err := scanPgExpense(r.s.pool.QueryRow(ctx, `SELECT `+pgExpenseColumns+` FROM expenses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Expense{}, false, nil
	}
	if err != nil {
		return models.Expense{}, false, fmt.Errorf("get expense: %w", err)
	}
	return e, true, nil
}

func (r pgExpenses) List(ctx context.Context) ([]models.Expense, error) {
	rows, err := r.s.pool.Query(ctx, `SELECT `+pgExpenseColumns+` FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Expense, error) {
		return scanPgExpense(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (r pgExpenses) Update(ctx context.Context, id int64, u models.ExpenseUpdate) (models.Expense, bool, error) {
	var (
		out   models.Expense
		found bool
	)
	err := pgx.BeginFunc(ctx, r.s.pool, func(tx pgx.Tx) error {
		e, err := scanPgExpense(tx.QueryRow(ctx,
			`SELECT `+pgExpenseColumns+` FROM expenses WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		e = e.Apply(u)
		if _, err := tx.Exec(ctx,
			`UPDATE expenses SET description = $1, amount = $2, category = $3, date = $4 WHERE id = $5`,
			e.Description, e.Amount, string(e.Category), e.Date, e.ID,
		); err != nil {
			return err
		}
		out, found = e, true
		return nil
	})
	if err != nil {
		return models.Expense{}, false, fmt.Errorf("update expense: %w", err)
	}
	return out, found, nil
}

func (r pgExpenses) Delete(ctx context.Context, id int64) (bool, error) {
	return r.s.delete(ctx, "expenses", id)
}

func (s *PostgresStore) delete(ctx context.Context, table string, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	return tag.RowsAffected() > 0, nil
}
