package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcrooks/studiobooks/internal/models"
)

func TestTimerStartStop(t *testing.T) {
	db := setupTestDB(t)
	_, project := seedClientProject(t, db)
	svc := NewTimerService(db)

	entry, err := svc.Start(1, project.ID, "framing")
	require.NoError(t, err)
	assert.True(t, entry.IsRunning())
	assert.True(t, entry.CreatedViaTimer)

	running, err := svc.Status(1)
	require.NoError(t, err)
	require.NotNil(t, running)
	assert.Equal(t, entry.ID, running.ID)

	stopped, err := svc.Stop(1)
	require.NoError(t, err)
	assert.False(t, stopped.IsRunning())
	require.NotNil(t, stopped.EndTime)
	assert.GreaterOrEqual(t, stopped.DurationSeconds, int64(0))

	// timer row released
	none, err := svc.Status(1)
	require.NoError(t, err)
	assert.Nil(t, none)

	var count int64
	db.Model(&models.ActiveTimer{}).Where("user_id = ?", 1).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestTimerStartRejectedWhileRunning(t *testing.T) {
	db := setupTestDB(t)
	_, project := seedClientProject(t, db)
	svc := NewTimerService(db)

	_, err := svc.Start(1, project.ID, "first")
	require.NoError(t, err)

	_, err = svc.Start(1, project.ID, "second")
	assert.ErrorIs(t, err, ErrTimerAlreadyRunning)

	// the rejected start leaves no orphaned entry
	var entries int64
	db.Model(&models.TimeEntry{}).Where("user_id = ?", 1).Count(&entries)
	assert.Equal(t, int64(1), entries)
}

func TestTimerStopWithoutRunning(t *testing.T) {
	db := setupTestDB(t)
	seedClientProject(t, db)
	svc := NewTimerService(db)

	_, err := svc.Stop(1)
	assert.ErrorIs(t, err, ErrNoActiveTimer)
}

func TestTimersAreIndependentPerUser(t *testing.T) {
	db := setupTestDB(t)
	_, project := seedClientProject(t, db)
	svc := NewTimerService(db)

	_, err := svc.Start(1, project.ID, "user one")
	require.NoError(t, err)
	_, err = svc.Start(2, project.ID, "user two")
	require.NoError(t, err)

	stopped, err := svc.Stop(1)
	require.NoError(t, err)
	assert.False(t, stopped.IsRunning())

	still, err := svc.Status(2)
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.True(t, still.IsRunning())
}
