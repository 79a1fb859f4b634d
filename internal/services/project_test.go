package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcrooks/studiobooks/internal/models"
)

func TestCloseBlockedByOutstandingBalance(t *testing.T) {
	db := setupTestDB(t)
	client, project := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	svc := NewProjectService(db)

	inv := models.Invoice{ClientID: client.ID, ProjectID: &project.ID}
	require.NoError(t, invSvc.Create(&inv, []models.InvoiceLineItem{
		{Description: "Work", Quantity: 1, UnitPrice: 400},
	}, 1))

	_, err := svc.Close(project.ID, 1)
	assert.ErrorIs(t, err, ErrOutstandingBalance)

	var got models.Project
	require.NoError(t, db.First(&got, project.ID).Error)
	assert.False(t, got.IsClosed)
	assert.Nil(t, got.ClosedDate)
}

func TestCloseSucceedsWhenPaid(t *testing.T) {
	db := setupTestDB(t)
	client, project := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	paySvc := NewPaymentService(db)
	svc := NewProjectService(db)

	inv := models.Invoice{ClientID: client.ID, ProjectID: &project.ID}
	require.NoError(t, invSvc.Create(&inv, []models.InvoiceLineItem{
		{Description: "Work", Quantity: 1, UnitPrice: 400},
	}, 1))
	p := models.Payment{InvoiceID: inv.ID, Amount: 400, Method: "check"}
	require.NoError(t, paySvc.Record(&p, true, 1))

	closed, err := svc.Close(project.ID, 9)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed)
	assert.Equal(t, "completed", closed.Status)
	require.NotNil(t, closed.ClosedByID)
	assert.Equal(t, uint(9), *closed.ClosedByID)
	require.NotNil(t, closed.ClosedDate)

	_, err = svc.Close(project.ID, 9)
	assert.ErrorIs(t, err, ErrProjectAlreadyClosed)
}

func TestCancelledInvoicesDoNotBlockClose(t *testing.T) {
	db := setupTestDB(t)
	client, project := seedClientProject(t, db)
	invSvc := NewInvoiceService(db, NewSettingsService(db))
	svc := NewProjectService(db)

	inv := models.Invoice{ClientID: client.ID, ProjectID: &project.ID}
	require.NoError(t, invSvc.Create(&inv, []models.InvoiceLineItem{
		{Description: "Abandoned work", Quantity: 1, UnitPrice: 900},
	}, 1))
	require.NoError(t, db.Model(&models.Invoice{}).Where("id = ?", inv.ID).
		Update("status", models.InvoiceStatusCancelled).Error)

	_, err := svc.Close(project.ID, 1)
	require.NoError(t, err)
}

func TestReopen(t *testing.T) {
	db := setupTestDB(t)
	_, project := seedClientProject(t, db)
	svc := NewProjectService(db)

	_, err := svc.Reopen(project.ID, 1)
	assert.ErrorIs(t, err, ErrProjectNotClosed)

	closed, err := svc.Close(project.ID, 1)
	require.NoError(t, err)
	require.True(t, closed.IsClosed)

	reopened, err := svc.Reopen(project.ID, 1)
	require.NoError(t, err)
	assert.False(t, reopened.IsClosed)
	assert.Equal(t, "in_progress", reopened.Status)
	assert.Nil(t, reopened.ClosedDate)
	assert.Nil(t, reopened.ClosedByID)
}
