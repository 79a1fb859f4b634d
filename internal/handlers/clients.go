package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
)

type ClientHandler struct {
	DB *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{DB: db}
}

// List: GET /api/clients?q=&status=&updated_after=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	dbq := withUpdatedAfter(h.DB.Model(&models.Client{}), r)

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where(
			"lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(company_name) LIKE ? OR lower(email) LIKE ?",
			like, like, like, like)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}

	var total int64
	dbq.Count(&total)
	var clients []models.Client
	if err := dbq.Order("last_name, first_name").Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	httpx.JSONList(w, clients, total, limit, offset)
}

// Get: GET /api/clients/get?id=
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Create: POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var client models.Client
	if err := decodeJSON(r, &client); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	client.ID = 0
	if client.FirstName == "" && client.LastName == "" && client.CompanyName == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"name": "first_name, last_name or company_name required"})
		return
	}
	if client.Status == "" {
		client.Status = "active"
	}
	if err := h.DB.Create(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_client", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// Update: PUT /api/clients/update?id=
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	var in models.Client
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in.ID = client.ID
	in.CreatedAt = client.CreatedAt
	if in.Status == "" {
		in.Status = client.Status
	}
	if err := h.DB.Save(&in).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

// Delete: DELETE /api/clients/delete?id=
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var count int64
	h.DB.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&count)
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "client_has_invoices", nil)
		return
	}
	if err := h.DB.Delete(&models.Client{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
