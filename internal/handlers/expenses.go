package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
)

type ExpenseHandler struct {
	DB *gorm.DB
}

func NewExpenseHandler(db *gorm.DB) *ExpenseHandler {
	return &ExpenseHandler{DB: db}
}

// ListCategories: GET /api/expense-categories
func (h *ExpenseHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	var categories []models.ExpenseCategory
	if err := h.DB.Order("name").Find(&categories).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_categories", nil)
		return
	}
	httpx.JSONList(w, categories, int64(len(categories)), len(categories), 0)
}

// CreateCategory: POST /api/expense-categories - staff only.
func (h *ExpenseHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cat models.ExpenseCategory
	if err := decodeJSON(r, &cat); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	cat.ID = 0
	if cat.Name == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
		return
	}
	if err := h.DB.Create(&cat).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "category_exists", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, cat)
}

// List: GET /api/expenses?client_id=&project_id=&status=&updated_after=
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	dbq := withUpdatedAfter(h.DB.Model(&models.Expense{}), r)

	if cid := r.URL.Query().Get("client_id"); cid != "" {
		dbq = dbq.Where("client_id = ?", cid)
	}
	if pid := r.URL.Query().Get("project_id"); pid != "" {
		dbq = dbq.Where("project_id = ?", pid)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}

	var total int64
	dbq.Count(&total)
	var expenses []models.Expense
	if err := dbq.Preload("Category").Order("expense_date desc, id desc").
		Limit(limit).Offset(offset).Find(&expenses).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_expenses", nil)
		return
	}
	httpx.JSONList(w, expenses, total, limit, offset)
}

// Get: GET /api/expenses/get?id=
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var expense models.Expense
	if err := h.DB.Preload("Category").First(&expense, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

// Create: POST /api/expenses
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var expense models.Expense
	if err := decodeJSON(r, &expense); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	expense.ID = 0
	expense.ApprovedByID = nil
	expense.ApprovedDate = nil
	if expense.Description == "" || expense.Amount <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"description": "required", "amount": "positive"})
		return
	}
	if expense.Status == "" {
		expense.Status = models.ExpenseStatusPending
	}
	if expense.ExpenseDate.IsZero() {
		expense.ExpenseDate = time.Now()
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	expense.CreatedByID = uid
	if err := h.DB.Create(&expense).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_expense", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

// Update: PUT /api/expenses/update?id= - approvals are immutable here.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var expense models.Expense
	if err := h.DB.First(&expense, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	var in models.Expense
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in.ID = expense.ID
	in.CreatedByID = expense.CreatedByID
	in.ApprovedByID = expense.ApprovedByID
	in.ApprovedDate = expense.ApprovedDate
	in.CreatedAt = expense.CreatedAt
	if in.Status == "" {
		in.Status = expense.Status
	}
	if in.ExpenseDate.IsZero() {
		in.ExpenseDate = expense.ExpenseDate
	}
	if err := h.DB.Save(&in).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_expense", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

// Approve: POST /api/expenses/approve?id= - staff only.
func (h *ExpenseHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var expense models.Expense
	if err := h.DB.First(&expense, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if expense.Status != models.ExpenseStatusPending {
		httpx.JSONError(w, http.StatusConflict, "invalid_expense_transition", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	now := time.Now()
	if err := h.DB.Model(&expense).Updates(map[string]interface{}{
		"status":         models.ExpenseStatusApproved,
		"approved_by_id": &uid,
		"approved_date":  &now,
	}).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_approve_expense", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

// Delete: DELETE /api/expenses/delete?id=
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var expense models.Expense
	if err := h.DB.First(&expense, id).Error; err != nil {
		notFoundOr500(w, err)
		return
	}
	if expense.Status == models.ExpenseStatusApproved || expense.Status == models.ExpenseStatusReimbursed {
		httpx.JSONError(w, http.StatusConflict, "expense_not_deletable", nil)
		return
	}
	if err := h.DB.Delete(&models.Expense{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_expense", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
