package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/models"
)

var (
	// ErrPaymentTransition rejects a status change the lifecycle does not allow.
	ErrPaymentTransition = errors.New("invalid_payment_transition")

	// ErrInvoiceCancelled rejects reconciling payments into a cancelled invoice.
	ErrInvoiceCancelled = errors.New("invoice_cancelled")
)

// PaymentService records payments and reconciles them against invoices.
// Every transition and its invoice update share one transaction: on error
// nothing commits, so payment state and invoice state cannot diverge.
type PaymentService struct {
	DB *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService { return &PaymentService{DB: db} }

// Record creates a payment against an invoice. When markSucceeded is set
// (cash/check recorded after the fact) the payment is reconciled
// immediately.
func (s *PaymentService) Record(p *models.Payment, markSucceeded bool, byUserID uint) error {
	if p.PaymentID == "" {
		p.PaymentID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PaymentStatusPending
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, p.InvoiceID).Error; err != nil {
			return err
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		if err := recordActivity(tx, &byUserID, "payment", p.ID, "recorded", p.PaymentID); err != nil {
			return err
		}
		if markSucceeded {
			return s.succeed(tx, p, &byUserID)
		}
		return nil
	})
}

// MarkSucceeded transitions a pending/processing payment to succeeded and
// reconciles the owning invoice.
func (s *PaymentService) MarkSucceeded(paymentID, byUserID uint) (*models.Payment, error) {
	var p models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, paymentID).Error; err != nil {
			return err
		}
		return s.succeed(tx, &p, &byUserID)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PaymentService) succeed(tx *gorm.DB, p *models.Payment, byUserID *uint) error {
	var inv models.Invoice
	if err := tx.First(&inv, p.InvoiceID).Error; err != nil {
		return err
	}
	// a cancelled invoice never comes back as paid
	if inv.Status == models.InvoiceStatusCancelled {
		return ErrInvoiceCancelled
	}
	switch p.Status {
	case models.PaymentStatusPending, models.PaymentStatusProcessing:
	case models.PaymentStatusSucceeded:
		// idempotent: re-running reconciliation is harmless
		return s.reconcile(tx, p.InvoiceID)
	default:
		return ErrPaymentTransition
	}
	p.Status = models.PaymentStatusSucceeded
	if p.ProcessedAt == nil {
		now := time.Now()
		p.ProcessedAt = &now
	}
	if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"status":       p.Status,
			"processed_at": p.ProcessedAt,
		}).Error; err != nil {
		return err
	}
	if err := recordActivity(tx, byUserID, "payment", p.ID, "succeeded",
		fmt.Sprintf("%.2f", p.Amount)); err != nil {
		return err
	}
	return s.reconcile(tx, p.InvoiceID)
}

// MarkFailed transitions a pending/processing payment to failed. The
// invoice is untouched; failed payments never enter the succeeded sum.
func (s *PaymentService) MarkFailed(paymentID, byUserID uint, note string) (*models.Payment, error) {
	var p models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, paymentID).Error; err != nil {
			return err
		}
		if p.Status != models.PaymentStatusPending && p.Status != models.PaymentStatusProcessing {
			return ErrPaymentTransition
		}
		p.Status = models.PaymentStatusFailed
		updates := map[string]interface{}{"status": p.Status}
		if note != "" {
			p.Notes = note
			updates["notes"] = note
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return err
		}
		return recordActivity(tx, &byUserID, "payment", p.ID, "failed", note)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkRefunded moves a succeeded payment to refunded. The payment stays
// in history but leaves the succeeded sum; the invoice's amount_paid is
// not rewound (it is monotonically non-decreasing).
func (s *PaymentService) MarkRefunded(paymentID, byUserID uint, note string) (*models.Payment, error) {
	var p models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, paymentID).Error; err != nil {
			return err
		}
		if p.Status != models.PaymentStatusSucceeded {
			return ErrPaymentTransition
		}
		p.Status = models.PaymentStatusRefunded
		updates := map[string]interface{}{"status": p.Status}
		if note != "" {
			p.Notes = note
			updates["notes"] = note
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return err
		}
		return recordActivity(tx, &byUserID, "payment", p.ID, "refunded", note)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// reconcile recomputes the invoice's amount_paid as the sum of its
// succeeded payments and promotes the invoice to paid when covered.
func (s *PaymentService) reconcile(tx *gorm.DB, invoiceID uint) error {
	var inv models.Invoice
	if err := tx.First(&inv, invoiceID).Error; err != nil {
		return err
	}
	var totalPaid float64
	if err := tx.Model(&models.Payment{}).
		Where("invoice_id = ? AND status = ?", invoiceID, models.PaymentStatusSucceeded).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalPaid).Error; err != nil {
		return err
	}
	totalPaid = round2(totalPaid)
	if totalPaid < inv.AmountPaid {
		// amount_paid never decreases; refunds keep history only
		totalPaid = inv.AmountPaid
	}
	updates := map[string]interface{}{"amount_paid": totalPaid}
	if totalPaid >= inv.Total {
		updates["status"] = models.InvoiceStatusPaid
		if inv.PaidDate == nil {
			now := time.Now()
			updates["paid_date"] = &now
		}
	}
	return tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).Updates(updates).Error
}
