package models

import "time"

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Payment tied to invoices. A succeeded payment feeds the invoice's
// amount_paid; a refunded payment stays on record but is excluded from
// the succeeded sum because its status is no longer "succeeded".
type Payment struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	PaymentID string  `gorm:"size:36;not null;uniqueIndex" json:"payment_id"` // external-facing uuid
	InvoiceID uint    `gorm:"not null;index:idx_payment_invoice_status,priority:1" json:"invoice_id"`
	Invoice   Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	Amount float64 `gorm:"not null" json:"amount"`
	Method string  `gorm:"not null" json:"method"` // card, ach, check, cash, wire, other
	Status string  `gorm:"not null;default:'pending';index:idx_payment_invoice_status,priority:2" json:"status"`

	// Processor references for card/ach payments.
	ExternalIntentID string `json:"external_intent_id,omitempty"`
	ExternalChargeID string `json:"external_charge_id,omitempty"`

	// Check number, wire confirmation, etc.
	ReferenceNumber string `json:"reference_number,omitempty"`
	Notes           string `json:"notes,omitempty"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
