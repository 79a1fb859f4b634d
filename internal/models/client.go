package models

import (
	"strings"
	"time"
)

// Client entity (CRM customer database)
type Client struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FirstName    string    `gorm:"index:idx_client_name,priority:2" json:"first_name"`
	LastName     string    `gorm:"index:idx_client_name,priority:1" json:"last_name"`
	CompanyName  string    `gorm:"index" json:"company_name"`
	Email        string    `gorm:"index" json:"email"`
	Phone        string    `json:"phone"`
	PhoneType    string    `gorm:"default:'mobile'" json:"phone_type"` // mobile, work, home, fax
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zip_code"`
	Country      string    `gorm:"default:'United States'" json:"country"`
	Website      string    `json:"website"`
	TaxID        string    `json:"tax_id"`
	LeadSource   string    `json:"lead_source"`
	Status       string    `gorm:"not null;default:'active'" json:"status"` // active, inactive, lead, archived
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName prefers the company name, falling back to the person then email.
func (c *Client) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name != "" {
		return name
	}
	return c.Email
}
