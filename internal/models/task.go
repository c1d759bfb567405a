package models

import (
	"strings"
	"time"
)

// Task is a dated to-do item.
type Task struct {
	ID          int64     `json:"id"          bson:"_id"`
	Title       string    `json:"title"       bson:"title"`
	Description *string   `json:"description" bson:"description,omitempty"`
	Date        time.Time `json:"date"        bson:"date"`
	Completed   bool      `json:"completed"   bson:"completed"`
}

// DateOf returns the task's date.
func (t Task) DateOf() time.Time { return t.Date }

// TaskInput is the JSON body for POST /api/tasks.
type TaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Date        string  `json:"date"`
	Completed   *bool   `json:"completed"`
}

// Task validates the input and returns the task it describes. The id is left
// for the store to assign.
func (in TaskInput) Task() (Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Task{}, Invalid("title", "Required")
	}
	date, err := ParseDate("date", in.Date)
	if err != nil {
		return Task{}, err
	}
	t := Task{
		Title:       in.Title,
		Description: in.Description,
		Date:        date,
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	return t, nil
}

// TaskPatch is the JSON body for PATCH /api/tasks/{id}. Any subset of fields
// may be sent; description may be set to null to clear it.
type TaskPatch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"description"`
	Date        Optional[string] `json:"date"`
	Completed   Optional[bool]   `json:"completed"`
}

// TaskUpdate is a validated TaskPatch.
type TaskUpdate struct {
	Title       Optional[string]
	Description Optional[string]
	Date        Optional[time.Time]
	Completed   Optional[bool]
}

// Update validates the patch.
func (p TaskPatch) Update() (TaskUpdate, error) {
	u := TaskUpdate{Description: p.Description}
	if p.Title.Set {
		if p.Title.Null || strings.TrimSpace(p.Title.Value) == "" {
			return TaskUpdate{}, Invalid("title", "Required")
		}
		u.Title = p.Title
	}
	if p.Date.Set {
		if p.Date.Null {
			return TaskUpdate{}, Invalid("date", "Required")
		}
		d, err := ParseDate("date", p.Date.Value)
		if err != nil {
			return TaskUpdate{}, err
		}
		u.Date = Some(d)
	}
	if p.Completed.Set {
		if p.Completed.Null {
			return TaskUpdate{}, Invalid("completed", "Expected boolean, received null")
		}
		u.Completed = p.Completed
	}
	return u, nil
}

// Apply merges u over t field by field. The id is never changed.
func (t Task) Apply(u TaskUpdate) Task {
	if u.Title.Present() {
		t.Title = u.Title.Value
	}
	if u.Description.Set {
		if u.Description.Null {
			t.Description = nil
		} else {
			d := u.Description.Value
			t.Description = &d
		}
	}
	if u.Date.Present() {
		t.Date = u.Date.Value
	}
	if u.Completed.Present() {
		t.Completed = u.Completed.Value
	}
	return t
}
