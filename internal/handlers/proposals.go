package handlers

import (
	"errors"
	"net"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
	"github.com/wcrooks/studiobooks/internal/services"
)

type ProposalHandler struct {
	DB  *gorm.DB
	Svc *services.ProposalService
}

func NewProposalHandler(db *gorm.DB, svc *services.ProposalService) *ProposalHandler {
	return &ProposalHandler{DB: db, Svc: svc}
}

type proposalItemReq struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	SortOrder   int     `json:"sort_order"`
}

type proposalReq struct {
	ClientID          uint              `json:"client_id"`
	ProjectID         *uint             `json:"project_id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	IssueDate         *time.Time        `json:"issue_date"`
	ValidUntil        *time.Time        `json:"valid_until"`
	TaxRate           float64           `json:"tax_rate"`
	DepositPercentage float64           `json:"deposit_percentage"`
	Notes             string            `json:"notes"`
	Items             []proposalItemReq `json:"items"`
}

func (req *proposalReq) toModel() (models.Proposal, []models.ProposalLineItem) {
	p := models.Proposal{
		ClientID:          req.ClientID,
		ProjectID:         req.ProjectID,
		Title:             req.Title,
		Description:       req.Description,
		TaxRate:           req.TaxRate,
		DepositPercentage: req.DepositPercentage,
		Notes:             req.Notes,
		ValidUntil:        req.ValidUntil,
	}
	if req.IssueDate != nil {
		p.IssueDate = *req.IssueDate
	}
	items := make([]models.ProposalLineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.ProposalLineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			SortOrder:   it.SortOrder,
		})
	}
	return p, items
}

// List: GET /api/proposals?client_id=&status=&updated_after=
func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	dbq := withUpdatedAfter(h.DB.Model(&models.Proposal{}), r)

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
	var proposals []models.Proposal
	if err := dbq.Preload("LineItems").Order("id desc").Limit(limit).Offset(offset).Find(&proposals).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_proposals", nil)
		return
	}
	httpx.JSONList(w, proposals, total, limit, offset)
}

// Get: GET /api/proposals/get?id=. A client viewing a sent proposal stamps
// the viewed transition.
func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	var p models.Proposal
	if err := dbq.First(&p, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if scope != nil && p.Status == models.ProposalStatusSent {
		if err := h.Svc.MarkViewed(p.ID); err == nil {
			h.DB.Preload("LineItems").Preload("Client").First(&p, p.ID)
		}
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Create: POST /api/proposals
func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req proposalReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.ClientID == 0 || req.Title == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"client_id": "required", "title": "required"})
		return
	}
	p, items := req.toModel()
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.Svc.Create(&p, items, uid); err != nil {
		if errors.Is(err, services.ErrNumberCollision) {
			httpx.JSONError(w, http.StatusConflict, "number_collision", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_proposal", nil)
		return
	}
	if err := h.DB.Preload("LineItems").First(&p, p.ID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_proposal", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Update: PUT /api/proposals/update?id=
func (h *ProposalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req proposalReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	p, items := req.toModel()
	p.ID = id
	if err := h.Svc.Update(&p, items); err != nil {
		if errors.Is(err, services.ErrProposalTerminal) {
			httpx.JSONError(w, http.StatusConflict, "proposal_not_editable", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	var out models.Proposal
	if err := h.DB.Preload("LineItems").First(&out, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_proposal", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Send: POST /api/proposals/send?id=
func (h *ProposalHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	p, err := h.Svc.Send(id, uid)
	if err != nil {
		if errors.Is(err, services.ErrProposalTerminal) {
			httpx.JSONError(w, http.StatusConflict, "proposal_not_editable", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// inScope verifies a portal caller only acts on their own client's proposals.
func (h *ProposalHandler) inScope(w http.ResponseWriter, r *http.Request, id uint) bool {
	scope, err := clientScope(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return false
	}
	if scope == nil {
		return true
	}
	var p models.Proposal
	if err := h.DB.Select("id", "client_id").First(&p, id).Error; err != nil || p.ClientID != *scope {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return false
	}
	return true
}

// Accept: POST /api/proposals/accept?id=
func (h *ProposalHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if !h.inScope(w, r, id) {
		return
	}
	var req struct {
		AcceptedBy string `json:"accepted_by"`
	}
	_ = decodeJSON(r, &req)
	if req.AcceptedBy == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"accepted_by": "required"})
		return
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	p, err := h.Svc.Accept(id, req.AcceptedBy, host)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProposalExpired):
			httpx.JSONError(w, http.StatusConflict, "proposal_expired", nil)
		case errors.Is(err, services.ErrProposalTerminal), errors.Is(err, services.ErrProposalState):
			httpx.JSONError(w, http.StatusConflict, "invalid_proposal_transition", nil)
		default:
			notFoundOr500(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Reject: POST /api/proposals/reject?id=
func (h *ProposalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if !h.inScope(w, r, id) {
		return
	}
	p, err := h.Svc.Reject(id)
	if err != nil {
		if errors.Is(err, services.ErrProposalTerminal) || errors.Is(err, services.ErrProposalState) {
			httpx.JSONError(w, http.StatusConflict, "invalid_proposal_transition", nil)
			return
		}
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Duplicate: POST /api/proposals/duplicate?id=
func (h *ProposalHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	clone, err := h.Svc.Duplicate(id, uid)
	if err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, clone)
}

// Delete: DELETE /api/proposals/delete?id= - drafts only.
func (h *ProposalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var p models.Proposal
	if err := h.DB.First(&p, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if p.Status != models.ProposalStatusDraft {
		httpx.JSONError(w, http.StatusConflict, "proposal_not_deletable", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("proposal_id = ?", id).Delete(&models.ProposalLineItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Proposal{}, id).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_proposal", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
