package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcrooks/studiobooks/internal/models"
)

func TestSettingsGetCreatesDefaultRow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, uint(1), settings.ID)
	assert.Equal(t, "INV", settings.InvoicePrefix)
	assert.Equal(t, 30, settings.DefaultPaymentTermsDays)

	var count int64
	db.Model(&models.SystemSettings{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSettingsUpdateReplacesCache(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	_, err := svc.Get()
	require.NoError(t, err)

	updated, err := svc.Update(models.SystemSettings{
		CompanyName:             "Crooks Woodworking",
		PortalTitle:             "Client Portal",
		InvoicePrefix:           "CW",
		DefaultPaymentTermsDays: 14,
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(1), updated.ID)
	require.NotNil(t, updated.UpdatedByID)
	assert.Equal(t, uint(3), *updated.UpdatedByID)

	// a fresh Get sees the write without an explicit invalidate
	after, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "CW", after.InvoicePrefix)
	assert.Equal(t, "CW", svc.InvoicePrefix())
}

func TestSettingsInvalidateReloads(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	_, err := svc.Get()
	require.NoError(t, err)

	// out-of-band write, invisible until invalidated
	require.NoError(t, db.Model(&models.SystemSettings{}).Where("id = ?", 1).
		Update("invoice_prefix", "ZZ").Error)
	cached, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "INV", cached.InvoicePrefix)

	svc.Invalidate()
	fresh, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "ZZ", fresh.InvoicePrefix)
}

func TestGetReturnsCopy(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSettingsService(db)

	first, err := svc.Get()
	require.NoError(t, err)
	first.InvoicePrefix = "MUTATED"

	second, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "INV", second.InvoicePrefix)
}
