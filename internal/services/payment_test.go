package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcrooks/studiobooks/internal/models"
)

func createInvoice(t *testing.T, svc *InvoiceService, clientID uint, total float64) models.Invoice {
	t.Helper()
	inv := models.Invoice{ClientID: clientID}
	require.NoError(t, svc.Create(&inv, []models.InvoiceLineItem{
		{Description: "Work", Quantity: 1, UnitPrice: total},
	}, 1))
	return inv
}

func TestPaymentSucceededReconcilesInvoice(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)

	inv := createInvoice(t, invSvc, client.ID, 220)

	p := models.Payment{InvoiceID: inv.ID, Amount: 220, Method: "check"}
	require.NoError(t, paySvc.Record(&p, true, 1))
	assert.Equal(t, models.PaymentStatusSucceeded, p.Status)
	assert.NotNil(t, p.ProcessedAt)

	var got models.Invoice
	require.NoError(t, db.First(&got, inv.ID).Error)
	assert.Equal(t, 220.0, got.AmountPaid)
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
	assert.NotNil(t, got.PaidDate)
}

func TestPartialPaymentLeavesInvoiceOpen(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)

	inv := createInvoice(t, invSvc, client.ID, 500)

	p := models.Payment{InvoiceID: inv.ID, Amount: 200, Method: "card"}
	require.NoError(t, paySvc.Record(&p, true, 1))

	var got models.Invoice
	require.NoError(t, db.First(&got, inv.ID).Error)
	assert.Equal(t, 200.0, got.AmountPaid)
	assert.Equal(t, models.InvoiceStatusDraft, got.Status)
	assert.Nil(t, got.PaidDate)
	assert.Equal(t, 300.0, got.BalanceDue())
}

func TestSucceedRejectedOnCancelledInvoice(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)

	inv := createInvoice(t, invSvc, client.ID, 150)

	p := models.Payment{InvoiceID: inv.ID, Amount: 150, Method: "card"}
	require.NoError(t, paySvc.Record(&p, false, 1))

	// invoice is cancelled while the payment is still pending
	require.NoError(t, db.Model(&models.Invoice{}).Where("id = ?", inv.ID).
		Update("status", models.InvoiceStatusCancelled).Error)

	_, err := paySvc.MarkSucceeded(p.ID, 1)
	assert.ErrorIs(t, err, ErrInvoiceCancelled)

	var got models.Invoice
	require.NoError(t, db.First(&got, inv.ID).Error)
	assert.Equal(t, models.InvoiceStatusCancelled, got.Status)
	assert.Equal(t, 0.0, got.AmountPaid)
	assert.Nil(t, got.PaidDate)

	var pending models.Payment
	require.NoError(t, db.First(&pending, p.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, pending.Status)
	assert.Nil(t, pending.ProcessedAt)
}

func TestMarkSucceededIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)

	inv := createInvoice(t, invSvc, client.ID, 100)

	p := models.Payment{InvoiceID: inv.ID, Amount: 100, Method: "cash"}
	require.NoError(t, paySvc.Record(&p, false, 1))
	first, err := paySvc.MarkSucceeded(p.ID, 1)
	require.NoError(t, err)
	processedAt := first.ProcessedAt
	require.NotNil(t, processedAt)

	second, err := paySvc.MarkSucceeded(p.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, second.ProcessedAt)
	assert.Equal(t, processedAt.Unix(), second.ProcessedAt.Unix())

	var got models.Invoice
	require.NoError(t, db.First(&got, inv.ID).Error)
	assert.Equal(t, 100.0, got.AmountPaid)
}

func TestFailedPaymentDoesNotTouchInvoice(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)

	inv := createInvoice(t, invSvc, client.ID, 100)

	p := models.Payment{InvoiceID: inv.ID, Amount: 100, Method: "card"}
	require.NoError(t, paySvc.Record(&p, false, 1))
	failed, err := paySvc.MarkFailed(p.ID, 1, "card declined")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, failed.Status)

	var got models.Invoice
	require.NoError(t, db.First(&got, inv.ID).Error)
	assert.Equal(t, 0.0, got.AmountPaid)

	// a failed payment cannot succeed later
	_, err = paySvc.MarkSucceeded(p.ID, 1)
	assert.ErrorIs(t, err, ErrPaymentTransition)
}

func TestRefundKeepsInvoicePaid(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)

	inv := createInvoice(t, invSvc, client.ID, 100)

	p := models.Payment{InvoiceID: inv.ID, Amount: 100, Method: "card"}
	require.NoError(t, paySvc.Record(&p, true, 1))

	refunded, err := paySvc.MarkRefunded(p.ID, 1, "customer request")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)

	// amount_paid is monotonic: the refund stays on record without
	// rewinding the invoice
	var got models.Invoice
	require.NoError(t, db.First(&got, inv.ID).Error)
	assert.Equal(t, 100.0, got.AmountPaid)
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
}

func TestRefundRequiresSucceeded(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)

	inv := createInvoice(t, invSvc, client.ID, 100)
	p := models.Payment{InvoiceID: inv.ID, Amount: 100, Method: "card"}
	require.NoError(t, paySvc.Record(&p, false, 1))

	_, err := paySvc.MarkRefunded(p.ID, 1, "")
	assert.ErrorIs(t, err, ErrPaymentTransition)
}

func TestMultiplePaymentsSumToPaid(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)

	inv := createInvoice(t, invSvc, client.ID, 300)

	for _, amount := range []float64{100, 150, 50} {
		p := models.Payment{InvoiceID: inv.ID, Amount: amount, Method: "check"}
		require.NoError(t, paySvc.Record(&p, true, 1))
	}

	var got models.Invoice
	require.NoError(t, db.First(&got, inv.ID).Error)
	assert.Equal(t, 300.0, got.AmountPaid)
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
}
