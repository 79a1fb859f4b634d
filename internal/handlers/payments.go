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

// PaymentHandler exposes read access for clients plus staff-only actions
// to record and transition payments. Reconciliation itself lives in the
// service; the handler never touches invoice totals directly.
type PaymentHandler struct {
	DB  *gorm.DB
	Svc *services.PaymentService
}

func NewPaymentHandler(db *gorm.DB, svc *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{DB: db, Svc: svc}
}

// List: GET /api/payments?invoice_id=&status=&updated_after=
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	dbq := withUpdatedAfter(h.DB.Model(&models.Payment{}), r)

	scope, err := clientScope(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if scope != nil {
		dbq = dbq.Joins("JOIN invoices ON invoices.id = payments.invoice_id").
			Where("invoices.client_id = ?", *scope)
	}
	if iid := r.URL.Query().Get("invoice_id"); iid != "" {
		dbq = dbq.Where("payments.invoice_id = ?", iid)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("payments.status = ?", status)
	}

	var total int64
	dbq.Count(&total)
	var payments []models.Payment
	if err := dbq.Order("payments.id desc").Limit(limit).Offset(offset).Find(&payments).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_payments", nil)
		return
	}
	httpx.JSONList(w, payments, total, limit, offset)
}

// Get: GET /api/payments/get?id=
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var payment models.Payment
	if err := h.DB.First(&payment, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	scope, err := clientScope(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if scope != nil {
		var inv models.Invoice
		if err := h.DB.Select("id", "client_id").First(&inv, payment.InvoiceID).Error; err != nil || inv.ClientID != *scope {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, payment)
}

type paymentRecordReq struct {
	InvoiceID       uint    `json:"invoice_id"`
	Amount          float64 `json:"amount"`
	Method          string  `json:"method"`
	ReferenceNumber string  `json:"reference_number"`
	Notes           string  `json:"notes"`
	Succeeded       bool    `json:"succeeded"`
}

// Record: POST /api/payments/record - staff only. With succeeded=true the
// payment is reconciled against its invoice in the same transaction.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req paymentRecordReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.InvoiceID == 0 || req.Amount <= 0 || req.Method == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"invoice_id": "required", "amount": "positive", "method": "required"})
		return
	}
	var inv models.Invoice
	if err := h.DB.First(&inv, req.InvoiceID).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if inv.Status == models.InvoiceStatusCancelled {
		httpx.JSONError(w, http.StatusConflict, "invoice_cancelled", nil)
		return
	}

	payment := models.Payment{
		InvoiceID:       req.InvoiceID,
		Amount:          req.Amount,
		Method:          req.Method,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Svc.Record(&payment, req.Succeeded, uid); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_record_payment", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

// Succeed: POST /api/payments/succeed?id= - staff only.
func (h *PaymentHandler) Succeed(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	payment, err := h.Svc.MarkSucceeded(id, uid)
	if err != nil {
		if errors.Is(err, services.ErrPaymentTransition) {
			httpx.JSONError(w, http.StatusConflict, "invalid_payment_transition", nil)
			return
		}
		if errors.Is(err, services.ErrInvoiceCancelled) {
			httpx.JSONError(w, http.StatusConflict, "invoice_cancelled", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// Fail: POST /api/payments/fail?id= - staff only.
func (h *PaymentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	_ = decodeJSON(r, &req)
	uid, _ := auth.UserIDFromContext(r.Context())
	payment, err := h.Svc.MarkFailed(id, uid, req.Note)
	if err != nil {
		if errors.Is(err, services.ErrPaymentTransition) {
			httpx.JSONError(w, http.StatusConflict, "invalid_payment_transition", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// Refund: POST /api/payments/refund?id= - staff only. The invoice keeps
// its paid state; refunds adjust the books, not history.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	_ = decodeJSON(r, &req)
	uid, _ := auth.UserIDFromContext(r.Context())
	payment, err := h.Svc.MarkRefunded(id, uid, req.Note)
	if err != nil {
		if errors.Is(err, services.ErrPaymentTransition) {
			httpx.JSONError(w, http.StatusConflict, "invalid_payment_transition", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}
