package models

import "time"

// TimeEntry records work on a project, created manually or via the timer.
// A nil EndTime means the entry is still running.
type TimeEntry struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ProjectID uint    `gorm:"not null;index:idx_entry_project_start,priority:1" json:"project_id"`
	Project   Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint    `gorm:"not null;index:idx_entry_user_start,priority:1" json:"user_id"`
	User      User    `gorm:"foreignKey:UserID" json:"-"`

	StartTime       time.Time  `gorm:"not null;index:idx_entry_project_start,priority:2;index:idx_entry_user_start,priority:2" json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int64      `gorm:"not null;default:0" json:"duration_seconds"` // fixed at stop time

	Description string `json:"description"`
	IsBillable  bool   `gorm:"not null;default:true" json:"is_billable"`

	// One-way flag: once attached to an invoice an entry stays invoiced.
	Invoiced   bool    `gorm:"not null;default:false" json:"invoiced"`
	InvoiceID  *uint   `gorm:"index" json:"invoice_id,omitempty"`
	HourlyRate float64 `json:"hourly_rate"`

	CreatedViaTimer bool      `gorm:"not null;default:false" json:"created_via_timer"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsRunning reports whether this entry is an active timer.
func (e *TimeEntry) IsRunning() bool { return e.EndTime == nil }

// Elapsed returns the recorded duration, or the running elapsed time.
func (e *TimeEntry) Elapsed(now time.Time) time.Duration {
	if e.EndTime == nil {
		return now.Sub(e.StartTime)
	}
	return time.Duration(e.DurationSeconds) * time.Second
}

// DecimalHours returns the duration as decimal hours for billing.
func (e *TimeEntry) DecimalHours(now time.Time) float64 {
	return float64(int(e.Elapsed(now).Seconds())) / 3600
}

// ActiveTimer marks the single running time entry for a user.
// The unique index on UserID enforces at most one per user.
type ActiveTimer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	TimeEntryID uint      `gorm:"not null;uniqueIndex" json:"time_entry_id"`
	TimeEntry   TimeEntry `gorm:"foreignKey:TimeEntryID" json:"time_entry,omitempty"`
	StartedAt   time.Time `gorm:"not null" json:"started_at"`
}
