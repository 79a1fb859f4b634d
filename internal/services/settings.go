package services

import (
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/models"
)

// SettingsService owns the single-row system settings. The row is loaded
// explicitly and cached behind a lock; Update replaces the cached copy so
// callers never observe a stale write. Row id is pinned to 1.
type SettingsService struct {
	DB *gorm.DB

	mu     sync.RWMutex
	cached *models.SystemSettings
}

func NewSettingsService(db *gorm.DB) *SettingsService { return &SettingsService{DB: db} }

func defaultSettings() models.SystemSettings {
	return models.SystemSettings{
		ID:                      1,
		CompanyName:             "StudioBooks",
		PortalTitle:             "Client Portal",
		InvoicePrefix:           "INV",
		DefaultPaymentTermsDays: 30,
		InvoiceReminderDays:     7,
		NotifyOnPayment:         true,
	}
}

// Get returns the current settings, creating the default row on first use.
func (s *SettingsService) Get() (*models.SystemSettings, error) {
	s.mu.RLock()
	if s.cached != nil {
		cp := *s.cached
		s.mu.RUnlock()
		return &cp, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		cp := *s.cached
		return &cp, nil
	}
	var settings models.SystemSettings
	err := s.DB.First(&settings, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = defaultSettings()
		if err := s.DB.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	s.cached = &settings
	cp := settings
	return &cp, nil
}

// Update persists new settings and invalidates the cached copy.
func (s *SettingsService) Update(in models.SystemSettings, byUserID uint) (*models.SystemSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = 1
	in.UpdatedByID = &byUserID
	if err := s.DB.Save(&in).Error; err != nil {
		return nil, err
	}
	s.cached = &in
	cp := in
	return &cp, nil
}

// Invalidate drops the cached copy; the next Get reloads from the database.
func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// InvoicePrefix returns the configured invoice number prefix.
func (s *SettingsService) InvoicePrefix() string {
	settings, err := s.Get()
	if err != nil || settings.InvoicePrefix == "" {
		return "INV"
	}
	return settings.InvoicePrefix
}
