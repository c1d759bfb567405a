package store

import (
	"context"
	"sync"
	"time"

	"github.com/ayush/daybook/internal/models"
)

// table is an id-keyed map with its own counter. Ids start at 1 and are never
// reused; order keeps insertion order for List.
type table[T any] struct {
	mu    sync.RWMutex
	next  int64
	rows  map[int64]T
	order []int64
}

func newTable[T any]() *table[T] {
	return &table[T]{next: 1, rows: make(map[int64]T)}
}

// insert hands the next id to build and stores the row under the same lock.
func (t *table[T]) insert(build func(id int64) T) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	row := build(id)
	t.rows[id] = row
	t.order = append(t.order, id)
	return row
}

func (t *table[T]) get(id int64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) all() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

func (t *table[T]) find(match func(T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.order {
		if row := t.rows[id]; match(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// update runs merge under the write lock so the read-then-write is atomic.
func (t *table[T]) update(id int64, merge func(T) T) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	row = merge(row)
	t.rows[id] = row
	return row, true
}

func (t *table[T]) remove(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// NewMemoryStore returns a process-local store. Data is lost on restart.
func NewMemoryStore() *Store {
	return &Store{
		Users:    &memoryUsers{t: newTable[models.User]()},
		Tasks:    &memoryTasks{t: newTable[models.Task]()},
		Expenses: &memoryExpenses{t: newTable[models.Expense]()},
	}
}

type memoryUsers struct{ t *table[models.User] }

func (m *memoryUsers) Create(_ context.Context, u models.NewUser) (models.User, error) {
	now := time.Now()
	return m.t.insert(func(id int64) models.User {
		return models.User{ID: id, Username: u.Username, Password: u.Password, CreatedAt: now}
	}), nil
}

func (m *memoryUsers) Get(_ context.Context, id int64) (models.User, bool, error) {
	u, ok := m.t.get(id)
	return u, ok, nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (models.User, bool, error) {
	u, ok := m.t.find(func(u models.User) bool { return u.Username == username })
	return u, ok, nil
}

func (m *memoryUsers) List(_ context.Context) ([]models.User, error) {
	return m.t.all(), nil
}

type memoryTasks struct{ t *table[models.Task] }

func (m *memoryTasks) Create(_ context.Context, in models.Task) (models.Task, error) {
	return m.t.insert(func(id int64) models.Task {
		in.ID = id
		if in.Description != nil {
			d := *in.Description
			in.Description = &d
		}
		return in
	}), nil
}

func (m *memoryTasks) Get(_ context.Context, id int64) (models.Task, bool, error) {
	t, ok := m.t.get(id)
	return t, ok, nil
}

func (m *memoryTasks) List(_ context.Context) ([]models.Task, error) {
	return m.t.all(), nil
}

func (m *memoryTasks) Update(_ context.Context, id int64, u models.TaskUpdate) (models.Task, bool, error) {
	t, ok := m.t.update(id, func(t models.Task) models.Task { return t.Apply(u) })
	return t, ok, nil
}

func (m *memoryTasks) Delete(_ context.Context, id int64) (bool, error) {
	return m.t.remove(id), nil
}

type memoryExpenses struct{ t *table[models.Expense] }

func (m *memoryExpenses) Create(_ context.Context, in models.Expense) (models.Expense, error) {
	return m.t.insert(func(id int64) models.Expense {
		in.ID = id
		return in
	}), nil
}

func (m *memoryExpenses) Get(_ context.Context, id int64) (models.Expense, bool, error) {
	e, ok := m.t.get(id)
	return e, ok, nil
}

func (m *memoryExpenses) List(_ context.Context) ([]models.Expense, error) {
	return m.t.all(), nil
}

func (m *memoryExpenses) Update(_ context.Context, id int64, u models.ExpenseUpdate) (models.Expense, bool, error) {
	e, ok := m.t.update(id, func(e models.Expense) models.Expense { return e.Apply(u) })
	return e, ok, nil
}

func (m *memoryExpenses) Delete(_ context.Context, id int64) (bool, error) {
	return m.t.remove(id), nil
}
