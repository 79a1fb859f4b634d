package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
)

// idParam reads the ?id= query parameter used by action endpoints.
func idParam(r *http.Request) (uint, bool) {
	idStr := r.URL.Query().Get("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// pageParams reads limit/offset with the defaults and caps used everywhere.
func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// withUpdatedAfter applies the ?updated_after= incremental-sync filter.
// Malformed timestamps are ignored rather than rejected so sloppy clients
// fall back to a full fetch.
func withUpdatedAfter(dbq *gorm.DB, r *http.Request) *gorm.DB {
	v := strings.TrimSpace(r.URL.Query().Get("updated_after"))
	if v == "" {
		return dbq
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return dbq
	}
	return dbq.Where("updated_at > ?", ts)
}

// clientScope returns the client id the caller is confined to, or nil for
// staff. Portal users without a linked client see nothing.
func clientScope(db *gorm.DB, r *http.Request) (*uint, error) {
	if auth.IsStaff(r.Context()) {
		return nil, nil
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	var u models.User
	if err := db.Select("id", "client_id").First(&u, uid).Error; err != nil {
		return nil, err
	}
	if u.ClientID == nil {
		zero := uint(0)
		return &zero, nil
	}
	return u.ClientID, nil
}

// notFoundOr500 maps a gorm load error to a JSON error response.
func notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}
