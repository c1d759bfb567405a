package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ayush/daybook/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// OpenSQLite opens (creating if needed) the database file at path and brings
// its schema up to date.
func OpenSQLite(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		Users:    &sqliteUsers{db: db},
		Tasks:    &sqliteTasks{db: db},
		Expenses: &sqliteExpenses{db: db},
		close:    db.Close,
	}, nil
}

func migrateSQLite(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

type sqliteUsers struct{ db *sql.DB }

func (s *sqliteUsers) Create(ctx context.Context, u models.NewUser) (models.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		u.Username, u.Password, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.User{}, models.ErrDuplicateUsername
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return models.User{ID: id, Username: u.Username, Password: u.Password, CreatedAt: now}, nil
}

func (s *sqliteUsers) Get(ctx context.Context, id int64) (models.User, bool, error) {
	return s.one(ctx, `SELECT id, username, password, created_at FROM users WHERE id = ?`, id)
}

func (s *sqliteUsers) GetByUsername(ctx context.Context, username string) (models.User, bool, error) {
	return s.one(ctx, `SELECT id, username, password, created_at FROM users WHERE username = ?`, username)
}

func (s *sqliteUsers) one(ctx context.Context, query string, arg any) (models.User, bool, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

func (s *sqliteUsers) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, password, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const sqliteTaskColumns = `id, title, description, date, completed`

type sqliteTasks struct{ db *sql.DB }

func scanSQLiteTask(r rowScanner) (models.Task, error) {
	var (
		t    models.Task
		desc sql.NullString
	)
	if err := r.Scan(&t.ID, &t.Title, &desc, &t.Date, &t.Completed); err != nil {
		return models.Task{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	return t, nil
}

func (s *sqliteTasks) Create(ctx context.Context, t models.Task) (models.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, date, completed) VALUES (?, ?, ?, ?)`,
		t.Title, t.Description, t.Date.UTC(), t.Completed,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (s *sqliteTasks) Get(ctx context.Context, id int64) (models.Task, bool, error) {
	t, err := scanSQLiteTask(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, false, nil
	}
	if err != nil {
		return models.Task{}, false, fmt.Errorf("get task: %w", err)
	}
	return t, true, nil
}

func (s *sqliteTasks) List(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteTaskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *sqliteTasks) Update(ctx context.Context, id int64, u models.TaskUpdate) (models.Task, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	t, err := scanSQLiteTask(tx.QueryRowContext(ctx,
		`SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, false, nil
	}
	if err != nil {
		return models.Task{}, false, fmt.Errorf("get task: %w", err)
	}

	t = t.Apply(u)
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, date = ?, completed = ? WHERE id = ?`,
		t.Title, t.Description, t.Date.UTC(), t.Completed, t.ID,
	); err != nil {
		return models.Task{}, false, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, false, fmt.Errorf("commit: %w", err)
	}
	return t, true, nil
}

func (s *sqliteTasks) Delete(ctx context.Context, id int64) (bool, error) {
	return sqliteDelete(ctx, s.db, "tasks", id)
}

const sqliteExpenseColumns = `id, description, amount, category, date`

type sqliteExpenses struct{ db *sql.DB }

func scanSQLiteExpense(r rowScanner) (models.Expense, error) {
	var e models.Expense
	err := r.Scan(&e.ID, &e.Description, &e.Amount, &e.Category, &e.Date)
	return e, err
}

func (s *sqliteExpenses) Create(ctx context.Context, e models.Expense) (models.Expense, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (description, amount, category, date) VALUES (?, ?, ?, ?)`,
		e.Description, e.Amount, string(e.Category), e.Date.UTC(),
	)
	if err != nil {
		return models.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return models.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

func (s *sqliteExpenses) Get(ctx context.Context, id int64) (models.Expense, bool, error) {
	e, err := scanSQLiteExpense(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteExpenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Expense{}, false, nil
	}
	if err != nil {
		return models.Expense{}, false, fmt.Errorf("get expense: %w", err)
	}
	return e, true, nil
}

func (s *sqliteExpenses) List(ctx context.Context) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteExpenseColumns+` FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanSQLiteExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *sqliteExpenses) Update(ctx context.Context, id int64, u models.ExpenseUpdate) (models.Expense, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Expense{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	e, err := scanSQLiteExpense(tx.QueryRowContext(ctx,
		`SELECT `+sqliteExpenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Expense{}, false, nil
	}
	if err != nil {
		return models.Expense{}, false, fmt.Errorf("get expense: %w", err)
	}

	e = e.Apply(u)
	if _, err := tx.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, category = ?, date = ? WHERE id = ?`,
		e.Description, e.Amount, string(e.Category), e.Date.UTC(), e.ID,
	); err != nil {
		return models.Expense{}, false, fmt.Errorf("update expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Expense{}, false, fmt.Errorf("commit: %w", err)
	}
	return e, true, nil
}

func (s *sqliteExpenses) Delete(ctx context.Context, id int64) (bool, error) {
	return sqliteDelete(ctx, s.db, "expenses", id)
}

func sqliteDelete(ctx context.Context, db *sql.DB, table string, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	return n > 0, nil
}
