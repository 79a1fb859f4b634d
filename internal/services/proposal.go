package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/models"
)

var (
	ErrProposalTerminal = errors.New("proposal_not_editable")
	ErrProposalExpired  = errors.New("proposal_expired")
	ErrProposalState    = errors.New("invalid_proposal_transition")
)

// ProposalService owns the PROP-YYMM numbering sequence and the proposal
// lifecycle (draft, sent, viewed, accepted/rejected/expired).
type ProposalService struct {
	DB *gorm.DB
}

func NewProposalService(db *gorm.DB) *ProposalService { return &ProposalService{DB: db} }

// Create persists a proposal with its line items, assigning the next
// number for the current month. Numbering uses the same unique-constraint
// retry as invoices.
func (s *ProposalService) Create(p *models.Proposal, items []models.ProposalLineItem, byUserID uint) error {
	if p.IssueDate.IsZero() {
		p.IssueDate = time.Now()
	}
	if p.Status == "" {
		p.Status = models.ProposalStatusDraft
	}
	if p.ValidUntil == nil {
		until := p.IssueDate.AddDate(0, 0, 30)
		p.ValidUntil = &until
	}
	p.CreatedByID = &byUserID

	var lastErr error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			number, err := nextSequential(tx, &models.Proposal{}, "proposal_number",
				"PROP-"+time.Now().Format("0601")+"-", 2)
			if err != nil {
				return err
			}
			p.ID = 0
			p.ProposalNumber = number
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			if err := s.replaceItems(tx, p, items); err != nil {
				return err
			}
			return recordActivity(tx, &byUserID, "proposal", p.ID, "created", p.ProposalNumber)
		})
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrNumberCollision, lastErr)
}

// Update replaces a proposal's editable fields and line items. Accepted
// and rejected proposals are immutable.
func (s *ProposalService) Update(p *models.Proposal, items []models.ProposalLineItem) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var current models.Proposal
		if err := tx.First(&current, p.ID).Error; err != nil {
			return err
		}
		if current.Terminal() {
			return ErrProposalTerminal
		}
		p.ProposalNumber = current.ProposalNumber
		p.Status = current.Status
		if err := tx.Model(&models.Proposal{}).Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"client_id":          p.ClientID,
				"project_id":         p.ProjectID,
				"title":              p.Title,
				"description":        p.Description,
				"issue_date":         p.IssueDate,
				"valid_until":        p.ValidUntil,
				"tax_rate":           p.TaxRate,
				"deposit_percentage": p.DepositPercentage,
				"notes":              p.Notes,
			}).Error; err != nil {
			return err
		}
		if err := tx.Where("proposal_id = ?", p.ID).Delete(&models.ProposalLineItem{}).Error; err != nil {
			return err
		}
		return s.replaceItems(tx, p, items)
	})
}

func (s *ProposalService) replaceItems(tx *gorm.DB, p *models.Proposal, items []models.ProposalLineItem) error {
	for i := range items {
		items[i].ID = 0
		items[i].ProposalID = p.ID
		items[i].Total = round2(items[i].Quantity * items[i].UnitPrice)
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	return s.recalculate(tx, p)
}

// recalculate recomputes subtotal, tax, total, and the deposit amount.
func (s *ProposalService) recalculate(tx *gorm.DB, p *models.Proposal) error {
	var items []models.ProposalLineItem
	if err := tx.Where("proposal_id = ?", p.ID).Find(&items).Error; err != nil {
		return err
	}
	subtotal := 0.0
	for _, it := range items {
		subtotal += it.Total
	}
	p.Subtotal = round2(subtotal)
	p.TaxAmount = round2(p.Subtotal * p.TaxRate / 100)
	p.Total = round2(p.Subtotal + p.TaxAmount)
	p.DepositAmount = round2(p.Total * p.DepositPercentage / 100)
	return tx.Model(&models.Proposal{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"subtotal":       p.Subtotal,
			"tax_amount":     p.TaxAmount,
			"total":          p.Total,
			"deposit_amount": p.DepositAmount,
		}).Error
}

// Send transitions a draft proposal to sent.
func (s *ProposalService) Send(proposalID, byUserID uint) (*models.Proposal, error) {
	var p models.Proposal
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, proposalID).Error; err != nil {
			return err
		}
		if p.Terminal() {
			return ErrProposalTerminal
		}
		p.Status = models.ProposalStatusSent
		if err := tx.Model(&models.Proposal{}).Where("id = ?", p.ID).
			Update("status", p.Status).Error; err != nil {
			return err
		}
		return recordActivity(tx, &byUserID, "proposal", p.ID, "sent", p.ProposalNumber)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkViewed stamps the first client view of a sent proposal.
func (s *ProposalService) MarkViewed(proposalID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var p models.Proposal
		if err := tx.First(&p, proposalID).Error; err != nil {
			return err
		}
		if p.Status != models.ProposalStatusSent || p.ViewedDate != nil {
			return nil
		}
		now := time.Now()
		return tx.Model(&models.Proposal{}).Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"status":      models.ProposalStatusViewed,
				"viewed_date": &now,
			}).Error
	})
}

// Accept records client acceptance. Expired or terminal proposals reject
// the transition without mutating state.
func (s *ProposalService) Accept(proposalID uint, acceptedBy, remoteAddr string) (*models.Proposal, error) {
	var p models.Proposal
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, proposalID).Error; err != nil {
			return err
		}
		if p.Terminal() {
			return ErrProposalTerminal
		}
		if p.IsExpired(time.Now()) {
			return ErrProposalExpired
		}
		if p.Status != models.ProposalStatusSent && p.Status != models.ProposalStatusViewed {
			return ErrProposalState
		}
		now := time.Now()
		p.Status = models.ProposalStatusAccepted
		p.AcceptedDate = &now
		p.AcceptedBy = acceptedBy
		p.AcceptanceIP = remoteAddr
		if err := tx.Model(&models.Proposal{}).Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"status":        p.Status,
				"accepted_date": p.AcceptedDate,
				"accepted_by":   p.AcceptedBy,
				"acceptance_ip": p.AcceptanceIP,
			}).Error; err != nil {
			return err
		}
		return recordActivity(tx, nil, "proposal", p.ID, "accepted", acceptedBy)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Reject records client rejection of a sent or viewed proposal.
func (s *ProposalService) Reject(proposalID uint) (*models.Proposal, error) {
	var p models.Proposal
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, proposalID).Error; err != nil {
			return err
		}
		if p.Terminal() {
			return ErrProposalTerminal
		}
		if p.Status != models.ProposalStatusSent && p.Status != models.ProposalStatusViewed {
			return ErrProposalState
		}
		now := time.Now()
		p.Status = models.ProposalStatusRejected
		p.RejectedDate = &now
		if err := tx.Model(&models.Proposal{}).Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"status":        p.Status,
				"rejected_date": p.RejectedDate,
			}).Error; err != nil {
			return err
		}
		return recordActivity(tx, nil, "proposal", p.ID, "rejected", p.ProposalNumber)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Duplicate clones a proposal and its items into a fresh draft with a new
// number.
func (s *ProposalService) Duplicate(proposalID, byUserID uint) (*models.Proposal, error) {
	var original models.Proposal
	if err := s.DB.Preload("LineItems").First(&original, proposalID).Error; err != nil {
		return nil, err
	}
	clone := models.Proposal{
		ClientID:          original.ClientID,
		ProjectID:         original.ProjectID,
		Title:             "Copy of " + original.Title,
		Description:       original.Description,
		TaxRate:           original.TaxRate,
		DepositPercentage: original.DepositPercentage,
		Notes:             original.Notes,
	}
	items := make([]models.ProposalLineItem, 0, len(original.LineItems))
	for _, it := range original.LineItems {
		items = append(items, models.ProposalLineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			SortOrder:   it.SortOrder,
		})
	}
	if err := s.Create(&clone, items, byUserID); err != nil {
		return nil, err
	}
	return &clone, nil
}

// MarkExpired flips open proposals past their valid_until date to expired
// and returns how many rows changed.
func (s *ProposalService) MarkExpired(now time.Time) (int64, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	res := s.DB.Model(&models.Proposal{}).
		Where("status IN ? AND valid_until IS NOT NULL AND valid_until < ?",
			[]string{models.ProposalStatusSent, models.ProposalStatusViewed}, today).
		Update("status", models.ProposalStatusExpired)
	return res.RowsAffected, res.Error
}
