package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
	"github.com/wcrooks/studiobooks/internal/services"
)

type ProjectHandler struct {
	DB  *gorm.DB
	Svc *services.ProjectService
}

func NewProjectHandler(db *gorm.DB, svc *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{DB: db, Svc: svc}
}

// List: GET /api/projects?client_id=&status=&updated_after=
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	dbq := withUpdatedAfter(h.DB.Model(&models.Project{}), r)

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
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}

	var total int64
	dbq.Count(&total)
	var projects []models.Project
	if err := dbq.Preload("Client").Order("id desc").Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_projects", nil)
		return
	}
	httpx.JSONList(w, projects, total, limit, offset)
}

// Get: GET /api/projects/get?id=
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	dbq := h.DB.Preload("Client")
	scope, err := clientScope(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if scope != nil {
		dbq = dbq.Where("client_id = ?", *scope)
	}
	var project models.Project
	if err := dbq.First(&project, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

// Create: POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var project models.Project
	if err := decodeJSON(r, &project); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	project.ID = 0
	project.IsClosed = false
	project.ClosedDate = nil
	project.ClosedByID = nil
	if project.ClientID == 0 || project.Name == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"client_id": "required", "name": "required"})
		return
	}
	if project.Status == "" {
		project.Status = "in_progress"
	}
	if err := h.DB.Create(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_project", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

// Update: PUT /api/projects/update?id=
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var project models.Project
	if err := h.DB.First(&project, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	var in models.Project
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	// Close bookkeeping only moves through /close and /reopen.
	in.ID = project.ID
	in.IsClosed = project.IsClosed
	in.ClosedDate = project.ClosedDate
	in.ClosedByID = project.ClosedByID
	in.CreatedAt = project.CreatedAt
	if in.ClientID == 0 {
		in.ClientID = project.ClientID
	}
	if in.Status == "" {
		in.Status = project.Status
	}
	if err := h.DB.Save(&in).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_project", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

// Close: POST /api/projects/close?id=
func (h *ProjectHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	project, err := h.Svc.Close(id, uid)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOutstandingBalance):
			httpx.JSONError(w, http.StatusConflict, "outstanding_balance", nil)
		case errors.Is(err, services.ErrProjectAlreadyClosed):
			httpx.JSONError(w, http.StatusConflict, "project_already_closed", nil)
		default:
			notFoundOr500(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

// Reopen: POST /api/projects/reopen?id=
func (h *ProjectHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	project, err := h.Svc.Reopen(id, uid)
	if err != nil {
		if errors.Is(err, services.ErrProjectNotClosed) {
			httpx.JSONError(w, http.StatusConflict, "project_not_closed", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

// Delete: DELETE /api/projects/delete?id=
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var count int64
	h.DB.Model(&models.Invoice{}).Where("project_id = ?", id).Count(&count)
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "project_has_invoices", nil)
		return
	}
	if err := h.DB.Delete(&models.Project{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_project", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
