package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/httpx"
	"github.com/wcrooks/studiobooks/internal/models"
)

// AuthHandler issues access tokens against username/email + password, and
// refreshes them with a rotating device token.
type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{DB: db}
}

type tokenResponse struct {
	Token       string `json:"token"`
	DeviceToken string `json:"device_token"`
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	IsStaff     bool   `json:"is_staff"`
	ExpiresAt   string `json:"expires_at"`
}

// Token: POST /api/auth/token. Accepts username or email in the same field.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Device   string `json:"device"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			map[string]string{"username": "required", "password": "required"})
		return
	}

	var user models.User
	err := h.DB.Where("username = ? OR email = ?", req.Username, strings.ToLower(req.Username)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	h.issue(w, &user, req.Device)
}

// Refresh: POST /api/auth/refresh. Exchanges a valid device token for a
// fresh access token, rotating the device token in the process.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceToken string `json:"device_token"`
	}
	if err := decodeJSON(r, &req); err != nil || req.DeviceToken == "" {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	var dt models.DeviceToken
	err := h.DB.Where("token_hash = ? AND revoked = ? AND expires_at > ?",
		auth.HashToken(req.DeviceToken), false, time.Now()).First(&dt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_device_token", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	var user models.User
	if err := h.DB.First(&user, dt.UserID).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_device_token", nil)
		return
	}

	// Rotate: revoking the presented token and issuing its replacement
	// must land together, or a failure mid-rotation locks the user out.
	var resp tokenResponse
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&dt).Update("revoked", true).Error; err != nil {
			return err
		}
		resp, err = mint(tx, &user, dt.Label)
		return err
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "token_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) issue(w http.ResponseWriter, user *models.User, device string) {
	resp, err := mint(h.DB, user, device)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "token_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// mint creates an access token plus a stored device token for user.
func mint(tx *gorm.DB, user *models.User, device string) (tokenResponse, error) {
	access, err := auth.MintAccessToken(user.ID, user.IsStaff)
	if err != nil {
		return tokenResponse{}, err
	}
	raw, hash, err := auth.NewDeviceToken()
	if err != nil {
		return tokenResponse{}, err
	}
	dt := models.DeviceToken{
		UserID:    user.ID,
		TokenHash: hash,
		Label:     device,
		ExpiresAt: time.Now().Add(auth.DeviceTokenTTL),
	}
	if err := tx.Create(&dt).Error; err != nil {
		return tokenResponse{}, err
	}

	return tokenResponse{
		Token:       access,
		DeviceToken: raw,
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsStaff:     user.IsStaff,
		ExpiresAt:   time.Now().Add(auth.AccessTokenTTL).Format(time.RFC3339),
	}, nil
}
