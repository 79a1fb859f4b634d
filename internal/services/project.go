package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/models"
)

var (
	ErrOutstandingBalance   = errors.New("outstanding_balance")
	ErrProjectAlreadyClosed = errors.New("project_already_closed")
	ErrProjectNotClosed     = errors.New("project_not_closed")
)

// ProjectService handles close/reopen bookkeeping. A project can only be
// closed when every non-cancelled invoice on it is paid in full.
type ProjectService struct {
	DB *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService { return &ProjectService{DB: db} }

// BalanceDue sums total - amount_paid over the project's non-cancelled
// invoices.
func (s *ProjectService) BalanceDue(tx *gorm.DB, projectID uint) (float64, error) {
	var due float64
	err := tx.Model(&models.Invoice{}).
		Where("project_id = ? AND status <> ?", projectID, models.InvoiceStatusCancelled).
		Select("COALESCE(SUM(total - amount_paid), 0)").Scan(&due).Error
	return round2(due), err
}

// Close marks the project closed, stamping who and when. It fails with
// ErrOutstandingBalance when unpaid invoice balance remains, leaving the
// project untouched.
func (s *ProjectService) Close(projectID, byUserID uint) (*models.Project, error) {
	var p models.Project
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, projectID).Error; err != nil {
			return err
		}
		if p.IsClosed {
			return ErrProjectAlreadyClosed
		}
		due, err := s.BalanceDue(tx, projectID)
		if err != nil {
			return err
		}
		if due > 0 {
			return ErrOutstandingBalance
		}
		now := time.Now()
		p.IsClosed = true
		p.ClosedDate = &now
		p.ClosedByID = &byUserID
		updates := map[string]interface{}{
			"is_closed":    true,
			"closed_date":  &now,
			"closed_by_id": &byUserID,
		}
		if p.Status == "in_progress" {
			p.Status = "completed"
			updates["status"] = "completed"
		}
		if err := tx.Model(&models.Project{}).Where("id = ?", p.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		return recordActivity(tx, &byUserID, "project", p.ID, "closed", p.Name)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Reopen clears the close bookkeeping and puts the project back in progress.
func (s *ProjectService) Reopen(projectID, byUserID uint) (*models.Project, error) {
	var p models.Project
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, projectID).Error; err != nil {
			return err
		}
		if !p.IsClosed {
			return ErrProjectNotClosed
		}
		p.IsClosed = false
		p.ClosedDate = nil
		p.ClosedByID = nil
		updates := map[string]interface{}{
			"is_closed":    false,
			"closed_date":  nil,
			"closed_by_id": nil,
		}
		if p.Status == "completed" {
			p.Status = "in_progress"
			updates["status"] = "in_progress"
		}
		if err := tx.Model(&models.Project{}).Where("id = ?", p.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		return recordActivity(tx, &byUserID, "project", p.ID, "reopened", p.Name)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
