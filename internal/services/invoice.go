package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/models"
)

const numberAttempts = 5

var (
	// ErrNumberCollision is returned when sequential numbering keeps
	// colliding under concurrent creation after several retries.
	ErrNumberCollision = errors.New("number_collision")
	ErrInvoiceFinal    = errors.New("invoice_not_editable")
)

// InvoiceService owns invoice numbering, totals, and status transitions.
type InvoiceService struct {
	DB       *gorm.DB
	Settings *SettingsService
}

func NewInvoiceService(db *gorm.DB, settings *SettingsService) *InvoiceService {
	return &InvoiceService{DB: db, Settings: settings}
}

// Create persists an invoice and its line items in one transaction,
// assigning the next sequential number. A duplicate-number race loses the
// insert and retries with a fresh number; invoice_number is unique so the
// database is the arbiter.
func (s *InvoiceService) Create(inv *models.Invoice, items []models.InvoiceLineItem, byUserID uint) error {
	prefix := s.Settings.InvoicePrefix()
	if inv.PaymentToken == "" {
		inv.PaymentToken = uuid.NewString()
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = time.Now()
	}
	if inv.DueDate.IsZero() {
		terms := 30
		if settings, err := s.Settings.Get(); err == nil && settings.DefaultPaymentTermsDays > 0 {
			terms = settings.DefaultPaymentTermsDays
		}
		inv.DueDate = inv.IssueDate.AddDate(0, 0, terms)
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceStatusDraft
	}

	var lastErr error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			number, err := nextSequential(tx, &models.Invoice{}, "invoice_number",
				fmt.Sprintf("%s-%s-", prefix, time.Now().Format("20060102")), 4)
			if err != nil {
				return err
			}
			inv.ID = 0
			inv.InvoiceNumber = number
			if err := tx.Create(inv).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].ID = 0
				items[i].InvoiceID = inv.ID
				items[i].Total = round2(items[i].Quantity * items[i].UnitPrice)
			}
			if len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
			}
			if err := s.recalculate(tx, inv); err != nil {
				return err
			}
			return recordActivity(tx, &byUserID, "invoice", inv.ID, "created", inv.InvoiceNumber)
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

// nextSequential finds the highest number sharing prefix and returns
// prefix + zero-padded next value. Sequences grow past the pad width
// without wrapping, so the maximum is found by length before value:
// a plain string sort would rank "99" above "100".
func nextSequential(tx *gorm.DB, model interface{}, column, prefix string, pad int) (string, error) {
	var lasts []string
	err := tx.Model(model).
		Where(column+" LIKE ?", prefix+"%").
		Order("LENGTH(" + column + ") desc, " + column + " desc").
		Limit(1).
		Pluck(column, &lasts).Error
	if err != nil {
		return "", err
	}
	last := ""
	if len(lasts) > 0 {
		last = lasts[0]
	}
	seq := 1
	if last != "" {
		raw := last[strings.LastIndex(last, "-")+1:]
		if n, perr := strconv.Atoi(raw); perr == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, pad, seq), nil
}

// Recalculate recomputes subtotal, tax, and total from the stored line items.
func (s *InvoiceService) Recalculate(invoiceID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, invoiceID).Error; err != nil {
			return err
		}
		return s.recalculate(tx, &inv)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *InvoiceService) recalculate(tx *gorm.DB, inv *models.Invoice) error {
	var items []models.InvoiceLineItem
	if err := tx.Where("invoice_id = ?", inv.ID).Find(&items).Error; err != nil {
		return err
	}
	subtotal := 0.0
	for _, it := range items {
		subtotal += it.Total
	}
	inv.Subtotal = round2(subtotal)
	inv.TaxAmount = round2(inv.Subtotal * inv.TaxRate / 100)
	inv.Total = round2(inv.Subtotal + inv.TaxAmount)
	return tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
		Updates(map[string]interface{}{
			"subtotal":   inv.Subtotal,
			"tax_amount": inv.TaxAmount,
			"total":      inv.Total,
		}).Error
}

// SaveLineItem creates or updates a line item and recalculates the parent
// invoice in the same transaction.
func (s *InvoiceService) SaveLineItem(item *models.InvoiceLineItem) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, item.InvoiceID).Error; err != nil {
			return err
		}
		if inv.Status == models.InvoiceStatusPaid || inv.Status == models.InvoiceStatusCancelled {
			return ErrInvoiceFinal
		}
		item.Total = round2(item.Quantity * item.UnitPrice)
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return s.recalculate(tx, &inv)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// DeleteLineItem removes a line item and recalculates the parent invoice.
func (s *InvoiceService) DeleteLineItem(itemID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var item models.InvoiceLineItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return err
		}
		if err := tx.First(&inv, item.InvoiceID).Error; err != nil {
			return err
		}
		if inv.Status == models.InvoiceStatusPaid || inv.Status == models.InvoiceStatusCancelled {
			return ErrInvoiceFinal
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		return s.recalculate(tx, &inv)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkSent transitions a draft or resent invoice to sent and bumps the
// send tracking counters.
func (s *InvoiceService) MarkSent(invoiceID, byUserID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, invoiceID).Error; err != nil {
			return err
		}
		if inv.Status == models.InvoiceStatusPaid || inv.Status == models.InvoiceStatusCancelled {
			return ErrInvoiceFinal
		}
		now := time.Now()
		inv.Status = models.InvoiceStatusSent
		inv.SentDate = &now
		inv.SentCount++
		if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
			Updates(map[string]interface{}{
				"status":     inv.Status,
				"sent_date":  inv.SentDate,
				"sent_count": inv.SentCount,
			}).Error; err != nil {
			return err
		}
		return recordActivity(tx, &byUserID, "invoice", inv.ID, "sent", inv.InvoiceNumber)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkOverdue flips sent invoices past their due date to overdue and
// returns how many rows changed. Run from the maintenance flag on the
// server binary.
func (s *InvoiceService) MarkOverdue(now time.Time) (int64, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	res := s.DB.Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceStatusSent, today).
		Update("status", models.InvoiceStatusOverdue)
	return res.RowsAffected, res.Error
}
