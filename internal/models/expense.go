package models

import "time"

const (
	ExpenseStatusPending    = "pending"
	ExpenseStatusApproved   = "approved"
	ExpenseStatusRejected   = "rejected"
	ExpenseStatusReimbursed = "reimbursed"
)

type ExpenseCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"unique;not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Expense tied to a client and optionally a project.
type Expense struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	ClientID    *uint            `gorm:"index" json:"client_id,omitempty"`
	Client      *Client          `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID   *uint            `gorm:"index" json:"project_id,omitempty"`
	Project     *Project         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	CategoryID  *uint            `gorm:"index" json:"category_id,omitempty"`
	Category    *ExpenseCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Description string           `gorm:"not null" json:"description"`
	Amount      float64          `gorm:"not null" json:"amount"`
	Status      string           `gorm:"not null;default:'pending';index" json:"status"`
	ExpenseDate time.Time        `gorm:"not null;index" json:"expense_date"`
	ReceiptURL  string           `json:"receipt_url"`
	Notes       string           `json:"notes"`

	CreatedByID  uint       `gorm:"not null" json:"created_by_id"`
	ApprovedByID *uint      `json:"approved_by_id,omitempty"`
	ApprovedDate *time.Time `json:"approved_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
