package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcrooks/studiobooks/internal/models"
)

func TestInvoiceCreateComputesTotals(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	svc := NewInvoiceService(db, NewSettingsService(db))

	inv := models.Invoice{ClientID: client.ID, TaxRate: 10}
	items := []models.InvoiceLineItem{
		{Description: "Design", Quantity: 2, UnitPrice: 100},
	}
	require.NoError(t, svc.Create(&inv, items, 1))

	var got models.Invoice
	require.NoError(t, db.Preload("LineItems").First(&got, inv.ID).Error)
	assert.Equal(t, 200.0, got.Subtotal)
	assert.Equal(t, 20.0, got.TaxAmount)
	assert.Equal(t, 220.0, got.Total)
	assert.Equal(t, models.InvoiceStatusDraft, got.Status)
	assert.NotEmpty(t, got.PaymentToken)
	assert.True(t, strings.HasPrefix(got.InvoiceNumber, "INV-"), got.InvoiceNumber)
	assert.True(t, strings.HasSuffix(got.InvoiceNumber, "-0001"), got.InvoiceNumber)
	// due date defaults from payment terms
	assert.False(t, got.DueDate.IsZero())
}

func TestInvoiceNumbersIncrement(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	svc := NewInvoiceService(db, NewSettingsService(db))

	first := models.Invoice{ClientID: client.ID}
	second := models.Invoice{ClientID: client.ID}
	require.NoError(t, svc.Create(&first, nil, 1))
	require.NoError(t, svc.Create(&second, nil, 1))

	assert.True(t, strings.HasSuffix(first.InvoiceNumber, "-0001"), first.InvoiceNumber)
	assert.True(t, strings.HasSuffix(second.InvoiceNumber, "-0002"), second.InvoiceNumber)
	assert.Greater(t, second.InvoiceNumber, first.InvoiceNumber)
}

func TestInvoiceNumberUsesConfiguredPrefix(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	settings := NewSettingsService(db)
	_, err := settings.Update(models.SystemSettings{
		InvoicePrefix:           "WC",
		DefaultPaymentTermsDays: 14,
		CompanyName:             "StudioBooks",
		PortalTitle:             "Client Portal",
	}, 1)
	require.NoError(t, err)

	svc := NewInvoiceService(db, settings)
	inv := models.Invoice{ClientID: client.ID}
	require.NoError(t, svc.Create(&inv, nil, 1))
	assert.True(t, strings.HasPrefix(inv.InvoiceNumber, "WC-"), inv.InvoiceNumber)
}

func TestSaveLineItemRecalculates(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	svc := NewInvoiceService(db, NewSettingsService(db))

	inv := models.Invoice{ClientID: client.ID, TaxRate: 0}
	require.NoError(t, svc.Create(&inv, []models.InvoiceLineItem{
		{Description: "Consult", Quantity: 1, UnitPrice: 50},
	}, 1))

	item := models.InvoiceLineItem{InvoiceID: inv.ID, Description: "Materials", Quantity: 3, UnitPrice: 19.99}
	updated, err := svc.SaveLineItem(&item)
	require.NoError(t, err)
	assert.Equal(t, 59.97, item.Total)
	assert.Equal(t, 109.97, updated.Subtotal)

	after, err := svc.DeleteLineItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, after.Subtotal)
}

func TestLineItemEditBlockedOnFinalInvoice(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	svc := NewInvoiceService(db, NewSettingsService(db))

	inv := models.Invoice{ClientID: client.ID, Status: models.InvoiceStatusPaid}
	require.NoError(t, svc.Create(&inv, nil, 1))

	item := models.InvoiceLineItem{InvoiceID: inv.ID, Description: "Late add", Quantity: 1, UnitPrice: 10}
	_, err := svc.SaveLineItem(&item)
	assert.ErrorIs(t, err, ErrInvoiceFinal)
}

func TestMarkSentBumpsCounters(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	svc := NewInvoiceService(db, NewSettingsService(db))

	inv := models.Invoice{ClientID: client.ID}
	require.NoError(t, svc.Create(&inv, nil, 1))

	sent, err := svc.MarkSent(inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, sent.Status)
	assert.NotNil(t, sent.SentDate)
	assert.Equal(t, 1, sent.SentCount)

	again, err := svc.MarkSent(inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, again.SentCount)
}

func TestMarkOverdue(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	svc := NewInvoiceService(db, NewSettingsService(db))

	pastDue := models.Invoice{ClientID: client.ID, DueDate: time.Now().AddDate(0, 0, -5)}
	require.NoError(t, svc.Create(&pastDue, nil, 1))
	_, err := svc.MarkSent(pastDue.ID, 1)
	require.NoError(t, err)

	current := models.Invoice{ClientID: client.ID, DueDate: time.Now().AddDate(0, 0, 10)}
	require.NoError(t, svc.Create(&current, nil, 1))
	_, err = svc.MarkSent(current.ID, 1)
	require.NoError(t, err)

	n, err := svc.MarkOverdue(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var flipped models.Invoice
	require.NoError(t, db.First(&flipped, pastDue.ID).Error)
	assert.Equal(t, models.InvoiceStatusOverdue, flipped.Status)

	var untouched models.Invoice
	require.NoError(t, db.First(&untouched, current.ID).Error)
	assert.Equal(t, models.InvoiceStatusSent, untouched.Status)
}

func TestCreateWritesActivity(t *testing.T) {
	db := setupTestDB(t)
	client, _ := seedClientProject(t, db)
	svc := NewInvoiceService(db, NewSettingsService(db))

	inv := models.Invoice{ClientID: client.ID}
	require.NoError(t, svc.Create(&inv, nil, 7))

	var act models.Activity
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", "invoice", inv.ID).First(&act).Error)
	assert.Equal(t, "created", act.Action)
	require.NotNil(t, act.UserID)
	assert.Equal(t, uint(7), *act.UserID)
}
