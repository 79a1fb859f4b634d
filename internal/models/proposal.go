package models

import "time"

const (
	ProposalStatusDraft    = "draft"
	ProposalStatusSent     = "sent"
	ProposalStatusViewed   = "viewed"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
	ProposalStatusExpired  = "expired"
)

// Proposal / estimate models. Proposals carry their own numbering sequence
// (PROP-YYMM-NN) independent of invoices.
type Proposal struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	ProposalNumber string   `gorm:"size:50;unique;not null" json:"proposal_number"`
	ClientID       uint     `gorm:"not null;index" json:"client_id"`
	Client         Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID      *uint    `gorm:"index" json:"project_id,omitempty"`
	Project        *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Status      string `gorm:"not null;default:'draft';index" json:"status"`

	IssueDate  time.Time  `gorm:"not null" json:"issue_date"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`

	TaxRate           float64 `gorm:"not null;default:0" json:"tax_rate"` // percentage
	Subtotal          float64 `gorm:"not null;default:0" json:"subtotal"`
	TaxAmount         float64 `gorm:"not null;default:0" json:"tax_amount"`
	Total             float64 `gorm:"not null;default:0" json:"total"`
	DepositPercentage float64 `gorm:"not null;default:0" json:"deposit_percentage"`
	DepositAmount     float64 `gorm:"not null;default:0" json:"deposit_amount"`

	ViewedDate   *time.Time `json:"viewed_date,omitempty"`
	AcceptedDate *time.Time `json:"accepted_date,omitempty"`
	RejectedDate *time.Time `json:"rejected_date,omitempty"`
	AcceptedBy   string     `json:"accepted_by,omitempty"`
	AcceptanceIP string     `json:"acceptance_ip,omitempty"`

	Notes     string             `json:"notes"`
	LineItems []ProposalLineItem `gorm:"foreignKey:ProposalID" json:"line_items,omitempty"`

	CreatedByID *uint     `json:"created_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsExpired reports whether a still-open proposal is past its valid_until date.
func (p *Proposal) IsExpired(now time.Time) bool {
	if p.Status == ProposalStatusAccepted || p.Status == ProposalStatusRejected {
		return false
	}
	if p.ValidUntil == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return p.ValidUntil.Before(today)
}

// Terminal reports whether the proposal can no longer change.
func (p *Proposal) Terminal() bool {
	return p.Status == ProposalStatusAccepted || p.Status == ProposalStatusRejected
}

type ProposalLineItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	ProposalID  uint    `gorm:"not null;index" json:"proposal_id"`
	Description string  `gorm:"not null" json:"description"`
	Quantity    float64 `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   float64 `gorm:"not null" json:"unit_price"`
	Total       float64 `gorm:"not null" json:"total"`
	SortOrder   int     `gorm:"not null;default:0" json:"sort_order"`
}
