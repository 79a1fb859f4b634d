package handlers

import (
	"net/http"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
	"github.com/wcrooks/studiobooks/internal/services"
)

type SettingsHandler struct {
	Svc *services.SettingsService
}

func NewSettingsHandler(svc *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{Svc: svc}
}

// Get: GET /api/settings - any authenticated user.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Svc.Get()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_settings", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

// Update: PUT /api/settings - staff only.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.SystemSettings
	if err := decodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if in.InvoicePrefix == "" || len(in.InvoicePrefix) > 10 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"invoice_prefix": "1-10 characters"})
		return
	}
	if in.DefaultPaymentTermsDays <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"default_payment_terms_days": "positive"})
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	settings, err := h.Svc.Update(in, uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_settings", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}
