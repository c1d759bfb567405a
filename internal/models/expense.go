package models

import (
	"math"
	"strings"
	"time"
)

// Category classifies an expense.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTravel        Category = "Travel"
	CategoryBills         Category = "Bills"
	CategoryEntertainment Category = "Entertainment"
	CategoryOther         Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTravel,
	CategoryBills,
	CategoryEntertainment,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Expense is a single spending record.
type Expense struct {
	ID          int64     `json:"id"          bson:"_id"`
	Description string    `json:"description" bson:"description"`
	Amount      float64   `json:"amount"      bson:"amount"`
	Category    Category  `json:"category"    bson:"category"`
	Date        time.Time `json:"date"        bson:"date"`
}

// DateOf returns the expense date.
func (e Expense) DateOf() time.Time { return e.Date }

// ExpenseInput is the JSON body for POST /api/expenses.
type ExpenseInput struct {
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Category    Category `json:"category"`
	Date        string   `json:"date"`
}

// Expense validates the input and returns the expense it describes.
func (in ExpenseInput) Expense() (Expense, error) {
	if strings.TrimSpace(in.Description) == "" {
		return Expense{}, Invalid("description", "Required")
	}
	if in.Amount == nil {
		return Expense{}, Invalid("amount", "Required")
	}
	if err := validateAmount(*in.Amount); err != nil {
		return Expense{}, err
	}
	if err := validateCategory(in.Category); err != nil {
		return Expense{}, err
	}
	date, err := ParseDate("date", in.Date)
	if err != nil {
		return Expense{}, err
	}
	return Expense{
		Description: in.Description,
		Amount:      *in.Amount,
		Category:    in.Category,
		Date:        date,
	}, nil
}

// ExpensePatch is the JSON body for PATCH /api/expenses/{id}.
type ExpensePatch struct {
	Description Optional[string]   `json:"description"`
	Amount      Optional[float64]  `json:"amount"`
	Category    Optional[Category] `json:"category"`
	Date        Optional[string]   `json:"date"`
}

// ExpenseUpdate is a validated ExpensePatch.
type ExpenseUpdate struct {
	Description Optional[string]
	Amount      Optional[float64]
	Category    Optional[Category]
	Date        Optional[time.Time]
}

// Update validates the patch. Every expense field is required, so null is
// rejected everywhere.
func (p ExpensePatch) Update() (ExpenseUpdate, error) {
	var u ExpenseUpdate
	if p.Description.Set {
		if p.Description.Null || strings.TrimSpace(p.Description.Value) == "" {
			return ExpenseUpdate{}, Invalid("description", "Required")
		}
		u.Description = p.Description
	}
	if p.Amount.Set {
		if p.Amount.Null {
			return ExpenseUpdate{}, Invalid("amount", "Required")
		}
		if err := validateAmount(p.Amount.Value); err != nil {
			return ExpenseUpdate{}, err
		}
		u.Amount = p.Amount
	}
	if p.Category.Set {
		if p.Category.Null {
			return ExpenseUpdate{}, Invalid("category", "Required")
		}
		if err := validateCategory(p.Category.Value); err != nil {
			return ExpenseUpdate{}, err
		}
		u.Category = p.Category
	}
	if p.Date.Set {
		if p.Date.Null {
			return ExpenseUpdate{}, Invalid("date", "Required")
		}
		d, err := ParseDate("date", p.Date.Value)
		if err != nil {
			return ExpenseUpdate{}, err
		}
		u.Date = Some(d)
	}
	return u, nil
}

// Apply merges u over e field by field. The id is never changed.
func (e Expense) Apply(u ExpenseUpdate) Expense {
	if u.Description.Present() {
		e.Description = u.Description.Value
	}
	if u.Amount.Present() {
		e.Amount = u.Amount.Value
	}
	if u.Category.Present() {
		e.Category = u.Category.Value
	}
	if u.Date.Present() {
		e.Date = u.Date.Value
	}
	return e
}

func validateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid("amount", "Expected a finite number")
	}
	if v <= 0 {
		return Invalid("amount", "Amount must be positive")
	}
	return nil
}

func validateCategory(c Category) error {
	if c == "" {
		return Invalid("category", "Required")
	}
	if !c.Valid() {
		return Invalid("category", "Invalid category %q", string(c))
	}
	return nil
}
