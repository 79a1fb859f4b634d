package models

import "time"

// SystemSettings is the single-row portal configuration. Row id is pinned
// to 1; access goes through services.SettingsService which keeps an
// explicitly invalidated copy instead of a hidden process-wide global.
type SystemSettings struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CompanyName    string `gorm:"not null;default:'StudioBooks'" json:"company_name"`
	CompanyEmail   string `json:"company_email"`
	CompanyPhone   string `json:"company_phone"`
	CompanyAddress string `json:"company_address"`

	PortalTitle string `gorm:"not null;default:'Client Portal'" json:"portal_title"`

	InvoicePrefix           string  `gorm:"size:10;not null;default:'INV'" json:"invoice_prefix"`
	DefaultPaymentTermsDays int     `gorm:"not null;default:30" json:"default_payment_terms_days"`
	LateFeePercentage       float64 `gorm:"not null;default:0" json:"late_fee_percentage"`
	InvoiceReminderDays     int     `gorm:"not null;default:7" json:"invoice_reminder_days"`

	NotifyOnPayment bool   `gorm:"not null;default:true" json:"notify_on_payment"`
	BusinessHours   string `json:"business_hours"`

	UpdatedByID *uint     `json:"updated_by_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
