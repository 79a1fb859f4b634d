package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/models"
)

var (
	ErrTimerAlreadyRunning = errors.New("timer_already_running")
	ErrNoActiveTimer       = errors.New("no_active_timer")
)

// TimerService manages the one-timer-per-user invariant. Starting while a
// timer runs is rejected; the caller must stop the running timer first.
type TimerService struct {
	DB *gorm.DB
}

func NewTimerService(db *gorm.DB) *TimerService { return &TimerService{DB: db} }

// Status returns the user's running entry, or nil when no timer is active.
func (s *TimerService) Status(userID uint) (*models.TimeEntry, error) {
	var at models.ActiveTimer
	err := s.DB.Preload("TimeEntry").Preload("TimeEntry.Project").
		Where("user_id = ?", userID).First(&at).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &at.TimeEntry, nil
}

// Start opens a new running entry for the user. The unique index on
// active_timers.user_id backstops the existence check under races.
func (s *TimerService) Start(userID, projectID uint, description string) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.ActiveTimer
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		if err == nil {
			return ErrTimerAlreadyRunning
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now()
		entry = models.TimeEntry{
			ProjectID:       projectID,
			UserID:          userID,
			StartTime:       now,
			Description:     description,
			IsBillable:      true,
			CreatedViaTimer: true,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		at := models.ActiveTimer{UserID: userID, TimeEntryID: entry.ID, StartedAt: now}
		if err := tx.Create(&at).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrTimerAlreadyRunning
			}
			return err
		}
		return recordActivity(tx, &userID, "time_entry", entry.ID, "timer_started", description)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Stop fixes the running entry's end time and duration and releases the
// active timer row, all in one transaction.
func (s *TimerService) Stop(userID uint) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var at models.ActiveTimer
		err := tx.Where("user_id = ?", userID).First(&at).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveTimer
		}
		if err != nil {
			return err
		}
		if err := tx.First(&entry, at.TimeEntryID).Error; err != nil {
			return err
		}
		now := time.Now()
		entry.EndTime = &now
		entry.DurationSeconds = int64(now.Sub(entry.StartTime).Seconds())
		if entry.DurationSeconds < 0 {
			entry.DurationSeconds = 0
		}
		if err := tx.Model(&models.TimeEntry{}).Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"end_time":         entry.EndTime,
				"duration_seconds": entry.DurationSeconds,
			}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ActiveTimer{}, at.ID).Error; err != nil {
			return err
		}
		return recordActivity(tx, &userID, "time_entry", entry.ID, "timer_stopped", "")
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
