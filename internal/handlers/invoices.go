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

type InvoiceHandler struct {
	DB  *gorm.DB
	Svc *services.InvoiceService
}

func NewInvoiceHandler(db *gorm.DB, svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc}
}

type invoiceItemReq struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	SortOrder   int     `json:"sort_order"`
}

type invoiceCreateReq struct {
	ClientID    uint             `json:"client_id"`
	ProjectID   *uint            `json:"project_id"`
	IssueDate   *time.Time       `json:"issue_date"`
	DueDate     *time.Time       `json:"due_date"`
	TaxRate     float64          `json:"tax_rate"`
	Description string           `json:"description"`
	Notes       string           `json:"notes"`
	Items       []invoiceItemReq `json:"items"`
}

// List: GET /api/invoices?client_id=&status=&updated_after=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	dbq := withUpdatedAfter(h.DB.Model(&models.Invoice{}), r)

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
	var invs []models.Invoice
	if err := dbq.Preload("LineItems").Preload("Client").Order("id desc").
		Limit(limit).Offset(offset).Find(&invs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSONList(w, invs, total, limit, offset)
}

// Get: GET /api/invoices/get?id=
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	dbq := h.DB.Preload("LineItems").Preload("Client")
	scope, err := clientScope(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if scope != nil {
		dbq = dbq.Where("client_id = ?", *scope)
	}
	var inv models.Invoice
	if err := dbq.First(&inv, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Create: POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceCreateReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.ClientID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"client_id": "required"})
		return
	}
	for _, it := range req.Items {
		if it.Description == "" || it.Quantity <= 0 {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
				map[string]string{"items": "invalid_description_or_quantity"})
			return
		}
	}

	inv := models.Invoice{
		ClientID:    req.ClientID,
		ProjectID:   req.ProjectID,
		TaxRate:     req.TaxRate,
		Description: req.Description,
		Notes:       req.Notes,
	}
	if req.IssueDate != nil {
		inv.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		inv.DueDate = *req.DueDate
	}
	items := make([]models.InvoiceLineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.InvoiceLineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			SortOrder:   it.SortOrder,
		})
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Svc.Create(&inv, items, uid); err != nil {
		if errors.Is(err, services.ErrNumberCollision) {
			httpx.JSONError(w, http.StatusConflict, "number_collision", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		return
	}
	if err := h.DB.Preload("LineItems").First(&inv, inv.ID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Update: PUT /api/invoices/update?id= - header fields only; line items go
// through the items endpoints so totals stay consistent.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var inv models.Invoice
	if err := h.DB.First(&inv, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if inv.Status == models.InvoiceStatusPaid || inv.Status == models.InvoiceStatusCancelled {
		httpx.JSONError(w, http.StatusConflict, "invoice_not_editable", nil)
		return
	}
	var req invoiceCreateReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	updates := map[string]interface{}{
		"description": req.Description,
		"notes":       req.Notes,
		"tax_rate":    req.TaxRate,
	}
	if req.ClientID != 0 {
		updates["client_id"] = req.ClientID
	}
	if req.ProjectID != nil {
		updates["project_id"] = req.ProjectID
	}
	if req.IssueDate != nil {
		updates["issue_date"] = *req.IssueDate
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if err := h.DB.Model(&inv).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		return
	}
	out, err := h.Svc.Recalculate(inv.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Send: POST /api/invoices/send?id=
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.Svc.MarkSent(id, uid)
	if err != nil {
		if errors.Is(err, services.ErrInvoiceFinal) {
			httpx.JSONError(w, http.StatusConflict, "invoice_not_editable", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Cancel: POST /api/invoices/cancel?id=
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var inv models.Invoice
	if err := h.DB.First(&inv, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if inv.Status == models.InvoiceStatusPaid {
		httpx.JSONError(w, http.StatusConflict, "invoice_not_editable", nil)
		return
	}
	if err := h.DB.Model(&inv).Update("status", models.InvoiceStatusCancelled).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_cancel_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// MarkOverdue: POST /api/invoices/mark-overdue - staff batch action that
// flips past-due sent invoices to overdue.
func (h *InvoiceHandler) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := h.Svc.MarkOverdue(time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_mark_overdue", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// SaveItem: POST /api/invoices/items - create or update one line item.
func (h *InvoiceHandler) SaveItem(w http.ResponseWriter, r *http.Request) {
	var item models.InvoiceLineItem
	if err := decodeJSON(r, &item); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if item.InvoiceID == 0 || item.Description == "" || item.Quantity <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"invoice_id": "required", "description": "required", "quantity": "positive"})
		return
	}
	inv, err := h.Svc.SaveLineItem(&item)
	if err != nil {
		if errors.Is(err, services.ErrInvoiceFinal) {
			httpx.JSONError(w, http.StatusConflict, "invoice_not_editable", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item": item, "invoice": inv})
}

// DeleteItem: DELETE /api/invoices/items?id=
func (h *InvoiceHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	inv, err := h.Svc.DeleteLineItem(id)
	if err != nil {
		if errors.Is(err, services.ErrInvoiceFinal) {
			httpx.JSONError(w, http.StatusConflict, "invoice_not_editable", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice": inv})
}
