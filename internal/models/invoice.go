package models

import "time"

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Invoicing models
type Invoice struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	InvoiceNumber string   `gorm:"size:50;unique;not null" json:"invoice_number"`
	ClientID      uint     `gorm:"not null;index:idx_invoice_client_status,priority:1" json:"client_id"`
	Client        Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID     *uint    `gorm:"index" json:"project_id,omitempty"`
	Project       *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Status        string   `gorm:"not null;default:'draft';index:idx_invoice_client_status,priority:2" json:"status"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null;index" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Description string `json:"description"`
	Notes       string `json:"notes"`

	// Totals recomputed from line items on every line-item mutation.
	Subtotal   float64 `gorm:"not null;default:0" json:"subtotal"`
	TaxRate    float64 `gorm:"not null;default:0" json:"tax_rate"` // percentage, e.g. 6.25
	TaxAmount  float64 `gorm:"not null;default:0" json:"tax_amount"`
	Total      float64 `gorm:"not null;default:0" json:"total"`
	AmountPaid float64 `gorm:"not null;default:0" json:"amount_paid"`

	// Token for the public payment link (no login required).
	PaymentToken string `gorm:"size:36;not null;uniqueIndex" json:"payment_token"`

	SentDate  *time.Time `json:"sent_date,omitempty"`
	SentCount int        `gorm:"not null;default:0" json:"sent_count"`

	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID" json:"line_items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceDue returns the outstanding amount.
func (i *Invoice) BalanceDue() float64 { return i.Total - i.AmountPaid }

// IsPaid reports whether the invoice is fully covered by succeeded payments.
func (i *Invoice) IsPaid() bool { return i.AmountPaid >= i.Total }

// IsOverdue reports whether the invoice is past due and still collectible.
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return i.DueDate.Before(today)
}

type InvoiceLineItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	InvoiceID   uint    `gorm:"not null;index" json:"invoice_id"`
	Description string  `gorm:"not null" json:"description"`
	Quantity    float64 `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   float64 `gorm:"not null" json:"unit_price"`
	Total       float64 `gorm:"not null" json:"total"` // quantity * unit_price, rounded to cents
	SortOrder   int     `gorm:"not null;default:0" json:"sort_order"`
}
