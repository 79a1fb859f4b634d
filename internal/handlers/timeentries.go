package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
	"github.com/wcrooks/studiobooks/internal/services"
)

// TimeEntryHandler covers manual time entries and the per-user timer.
// Non-staff users only ever see their own entries.
type TimeEntryHandler struct {
	DB    *gorm.DB
	Timer *services.TimerService
}

func NewTimeEntryHandler(db *gorm.DB, timer *services.TimerService) *TimeEntryHandler {
	return &TimeEntryHandler{DB: db, Timer: timer}
}

func (h *TimeEntryHandler) scoped(r *http.Request) *gorm.DB {
	dbq := h.DB.Model(&models.TimeEntry{})
	if !auth.IsStaff(r.Context()) {
		uid, _ := auth.UserIDFromContext(r.Context())
		dbq = dbq.Where("user_id = ?", uid)
	}
	return dbq
}

// List: GET /api/time-entries?project_id=&user_id=&updated_after=
func (h *TimeEntryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	dbq := withUpdatedAfter(h.scoped(r), r)

	if pid := r.URL.Query().Get("project_id"); pid != "" {
		dbq = dbq.Where("project_id = ?", pid)
	}
	if uidQ := r.URL.Query().Get("user_id"); uidQ != "" && auth.IsStaff(r.Context()) {
		dbq = dbq.Where("user_id = ?", uidQ)
	}

	var total int64
	dbq.Count(&total)
	var entries []models.TimeEntry
	if err := dbq.Preload("Project").Order("start_time desc").
		Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_time_entries", nil)
		return
	}
	httpx.JSONList(w, entries, total, limit, offset)
}

// Get: GET /api/time-entries/get?id=
func (h *TimeEntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var entry models.TimeEntry
	if err := h.scoped(r).Preload("Project").First(&entry, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

// Create: POST /api/time-entries - manual entry with explicit start and end.
func (h *TimeEntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var entry models.TimeEntry
	if err := decodeJSON(r, &entry); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	entry.ID = 0
	entry.CreatedViaTimer = false
	entry.Invoiced = false
	entry.InvoiceID = nil
	if entry.ProjectID == 0 || entry.StartTime.IsZero() || entry.EndTime == nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"project_id": "required", "start_time": "required", "end_time": "required"})
		return
	}
	if entry.EndTime.Before(entry.StartTime) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"end_time": "before_start_time"})
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	entry.UserID = uid
	entry.DurationSeconds = int64(entry.EndTime.Sub(entry.StartTime).Seconds())
	if err := h.DB.Create(&entry).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_time_entry", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

// Update: PUT /api/time-entries/update?id= - invoiced entries are frozen.
func (h *TimeEntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var entry models.TimeEntry
	if err := h.scoped(r).First(&entry, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if entry.Invoiced {
		httpx.JSONError(w, http.StatusConflict, "time_entry_invoiced", nil)
		return
	}
	if entry.IsRunning() {
		httpx.JSONError(w, http.StatusConflict, "time_entry_running", nil)
		return
	}
	var in models.TimeEntry
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.StartTime.IsZero() || in.EndTime == nil || in.EndTime.Before(in.StartTime) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"start_time": "required", "end_time": "after_start_time"})
		return
	}
	updates := map[string]interface{}{
		"start_time":       in.StartTime,
		"end_time":         in.EndTime,
		"duration_seconds": int64(in.EndTime.Sub(in.StartTime).Seconds()),
		"description":      in.Description,
		"is_billable":      in.IsBillable,
		"hourly_rate":      in.HourlyRate,
	}
	if in.ProjectID != 0 {
		updates["project_id"] = in.ProjectID
	}
	if err := h.DB.Model(&entry).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_time_entry", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

// Delete: DELETE /api/time-entries/delete?id=
func (h *TimeEntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var entry models.TimeEntry
	if err := h.scoped(r).First(&entry, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if entry.Invoiced {
		httpx.JSONError(w, http.StatusConflict, "time_entry_invoiced", nil)
		return
	}
	if entry.IsRunning() {
		httpx.JSONError(w, http.StatusConflict, "time_entry_running", nil)
		return
	}
	if err := h.DB.Delete(&models.TimeEntry{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_time_entry", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type timerStatusResponse struct {
	Running        bool              `json:"running"`
	Entry          *models.TimeEntry `json:"entry,omitempty"`
	ElapsedSeconds int64             `json:"elapsed_seconds"`
}

// TimerStatus: GET /api/timer/status
func (h *TimeEntryHandler) TimerStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	entry, err := h.Timer.Status(uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	resp := timerStatusResponse{Running: entry != nil}
	if entry != nil {
		resp.Entry = entry
		resp.ElapsedSeconds = int64(entry.Elapsed(time.Now()).Seconds())
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// TimerStart: POST /api/timer/start
func (h *TimeEntryHandler) TimerStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID   uint   `json:"project_id"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ProjectID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"project_id": "required"})
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	entry, err := h.Timer.Start(uid, req.ProjectID, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrTimerAlreadyRunning) {
			httpx.JSONError(w, http.StatusConflict, "timer_already_running", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_start_timer", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

// TimerStop: POST /api/timer/stop
func (h *TimeEntryHandler) TimerStop(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	entry, err := h.Timer.Stop(uid)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveTimer) {
			httpx.JSONError(w, http.StatusConflict, "no_active_timer", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_stop_timer", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}
