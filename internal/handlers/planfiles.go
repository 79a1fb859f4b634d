package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
)

type PlanFileHandler struct {
	DB *gorm.DB
}

func NewPlanFileHandler(db *gorm.DB) *PlanFileHandler {
	return &PlanFileHandler{DB: db}
}

// List: GET /api/plan-files?client_id=&project_id=&updated_after=
func (h *PlanFileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	dbq := withUpdatedAfter(h.DB.Model(&models.PlanFile{}), r)

	scope, err := clientScope(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if scope != nil {
		dbq = dbq.Where("client_id = ?", *scope)
	} else if cid := r.URL.Query().Get("client_id"); cid != "" {
		dbq = dbq.Where("client_id = ?", cid)
	}
	if pid := r.URL.Query().Get("project_id"); pid != "" {
		dbq = dbq.Where("project_id = ?", pid)
	}

	var total int64
	dbq.Count(&total)
	var files []models.PlanFile
	if err := dbq.Order("id desc").Limit(limit).Offset(offset).Find(&files).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_plan_files", nil)
		return
	}
	httpx.JSONList(w, files, total, limit, offset)
}

// Get: GET /api/plan-files/get?id=
func (h *PlanFileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	dbq := h.DB.Session(&gorm.Session{})
	scope, err := clientScope(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if scope != nil {
		dbq = dbq.Where("client_id = ?", *scope)
	}
	var file models.PlanFile
	if err := dbq.First(&file, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, file)
}

// Create: POST /api/plan-files - metadata only; the bytes live elsewhere.
func (h *PlanFileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var file models.PlanFile
	if err := decodeJSON(r, &file); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	file.ID = 0
	if file.ClientID == 0 || file.Name == "" || file.FilePath == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"client_id": "required", "name": "required", "file_path": "required"})
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	file.UploadedByID = uid
	if err := h.DB.Create(&file).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_plan_file", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, file)
}

// Update: PUT /api/plan-files/update?id=
func (h *PlanFileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var file models.PlanFile
	if err := h.DB.First(&file, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	var in struct {
		Name      string `json:"name"`
		ProjectID *uint  `json:"project_id"`
		Notes     string `json:"notes"`
	}
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	updates := map[string]interface{}{"notes": in.Notes}
	if in.Name != "" {
		updates["name"] = in.Name
	}
	if in.ProjectID != nil {
		updates["project_id"] = in.ProjectID
	}
	if err := h.DB.Model(&file).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_plan_file", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, file)
}

// Delete: DELETE /api/plan-files/delete?id= - soft delete keeps the row
// recoverable until storage cleanup runs.
func (h *PlanFileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.DB.Delete(&models.PlanFile{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_plan_file", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
