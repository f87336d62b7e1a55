// Package domain defines the core business entities for SmartSpendr.
// These models are independent of external services and represent the
// canonical data structures used throughout the BFF.
package domain

import "time"

// Expense represents a single expense record owned by one user.
// The id and the createdAt/updatedAt timestamps are assigned by the
// document store on write, never by the client.
type Expense struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	Category  Category  `json:"category"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ExpenseInput is the payload for creating or updating an expense.
// Zero-valued optional fields are left untouched on update.
type ExpenseInput struct {
	Title    string   `json:"title"`
	Amount   float64  `json:"amount"`
	Category Category `json:"category"`
	Date     string   `json:"date"` // YYYY-MM-DD
	Notes    string   `json:"notes,omitempty"`
}

// MaxTitleLen and MaxAmount bound the expense form fields.
const (
	MaxTitleLen = 50
	MaxAmount   = 999999
)

// Budget is a per-category monthly spending preference.
// Budgets are stored preferences only; no alerting is derived from them here.
type Budget struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Category  Category  `json:"category"`
	Amount    float64   `json:"amount"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// MutationKind enumerates the expense mutations that can be queued offline.
type MutationKind string

const (
	MutationAdd    MutationKind = "add"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// QueuedMutation is an expense mutation captured while offline.
// ClientID is generated at enqueue time and stays stable across retries,
// so the remote store can detect redelivery.
type QueuedMutation struct {
	ClientID  string       `json:"client_id"`
	UserID    string       `json:"user_id"`
	Kind      MutationKind `json:"kind"`
	ExpenseID string       `json:"expense_id,omitempty"`
	Payload   []byte       `json:"payload,omitempty"`
	QueuedAt  time.Time    `json:"queued_at"`
}
