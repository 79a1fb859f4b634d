package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/models"
)

func TestTokenLoginWithUsernameAndEmail(t *testing.T) {
	db := setupTestDB(t)
	seedStaffUser(t, db)
	h := NewAuthHandler(db)

	for _, login := range []string{"walter", "walter@example.com"} {
		body := `{"username":"` + login + `","password":"hunter22"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.Token(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("login %q: expected 200 got %d body=%s", login, w.Code, w.Body.String())
		}
		var resp tokenResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Token == "" || resp.DeviceToken == "" {
			t.Fatalf("missing tokens in response: %#v", resp)
		}
		if !resp.IsStaff {
			t.Fatal("expected staff flag")
		}
		uid, staff, err := auth.ParseAccessToken(resp.Token)
		if err != nil || uid != resp.UserID || !staff {
			t.Fatalf("access token claims wrong: uid=%d staff=%v err=%v", uid, staff, err)
		}
	}
}

func TestTokenLoginRejectsBadPassword(t *testing.T) {
	db := setupTestDB(t)
	seedStaffUser(t, db)
	h := NewAuthHandler(db)

	body := `{"username":"walter","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Token(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestRefreshRotatesDeviceToken(t *testing.T) {
	db := setupTestDB(t)
	seedStaffUser(t, db)
	h := NewAuthHandler(db)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/token",
		strings.NewReader(`{"username":"walter","password":"hunter22","device":"phone"}`))
	w := httptest.NewRecorder()
	h.Token(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d", w.Code)
	}
	var first tokenResponse
	_ = json.Unmarshal(w.Body.Bytes(), &first)

	refreshReq := httptest.NewRequest(http.MethodPost, "/api/auth/refresh",
		strings.NewReader(`{"device_token":"`+first.DeviceToken+`"}`))
	refreshW := httptest.NewRecorder()
	h.Refresh(refreshW, refreshReq)
	if refreshW.Code != http.StatusOK {
		t.Fatalf("refresh: got %d body=%s", refreshW.Code, refreshW.Body.String())
	}
	var second tokenResponse
	_ = json.Unmarshal(refreshW.Body.Bytes(), &second)
	if second.DeviceToken == first.DeviceToken {
		t.Fatal("device token was not rotated")
	}

	// revoke and replacement land together: exactly one live token remains
	var live int64
	if err := db.Model(&models.DeviceToken{}).
		Where("user_id = ? AND revoked = ?", first.UserID, false).
		Count(&live).Error; err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	if live != 1 {
		t.Fatalf("expected 1 live device token after refresh, got %d", live)
	}

	// the old device token is now revoked
	replayReq := httptest.NewRequest(http.MethodPost, "/api/auth/refresh",
		strings.NewReader(`{"device_token":"`+first.DeviceToken+`"}`))
	replayW := httptest.NewRecorder()
	h.Refresh(replayW, replayReq)
	if replayW.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for replayed device token, got %d", replayW.Code)
	}

	var revoked models.DeviceToken
	if err := db.Where("token_hash = ?", auth.HashToken(first.DeviceToken)).First(&revoked).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	if !revoked.Revoked {
		t.Fatal("expected first token marked revoked")
	}
}
