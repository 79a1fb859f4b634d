package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/models"
)

func setupRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.DeviceToken{},
		&models.Client{}, &models.Project{},
		&models.Invoice{}, &models.InvoiceLineItem{},
		&models.Payment{},
		&models.Proposal{}, &models.ProposalLineItem{},
		&models.ExpenseCategory{}, &models.Expense{},
		&models.TimeEntry{}, &models.ActiveTimer{},
		&models.PlanFile{}, &models.SystemSettings{}, &models.Activity{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db), db
}

func seedUser(t *testing.T, db *gorm.DB, username string, staff bool) models.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	user := models.User{Username: username, Email: username + "@example.com", Password: string(hash), IsStaff: staff}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return user
}

func login(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"hunter22"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := setupRouter(t)
	for _, path := range []string{"/health", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, w.Code)
		}
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	h, _ := setupRouter(t)
	for _, path := range []string{"/api/invoices", "/api/projects", "/api/timer/status", "/api/settings"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, w.Code)
		}
	}
}

func TestStaffOnlyEndpointsReject(t *testing.T) {
	h, db := setupRouter(t)
	seedUser(t, db, "portal", false)
	token := login(t, h, "portal")

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
}

func TestInvoiceFlowThroughRouter(t *testing.T) {
	h, db := setupRouter(t)
	seedUser(t, db, "boss", true)
	token := login(t, h, "boss")

	// create client
	clientReq := httptest.NewRequest(http.MethodPost, "/api/clients",
		strings.NewReader(`{"company_name":"Hopper LLC","email":"grace@example.com"}`))
	clientReq.Header.Set("Authorization", "Bearer "+token)
	clientW := httptest.NewRecorder()
	h.ServeHTTP(clientW, clientReq)
	if clientW.Code != http.StatusCreated {
		t.Fatalf("client create: got %d body=%s", clientW.Code, clientW.Body.String())
	}
	var client models.Client
	_ = json.Unmarshal(clientW.Body.Bytes(), &client)

	// create invoice
	invBody := fmt.Sprintf(`{"client_id":%d,"tax_rate":10,"items":[{"description":"Design","quantity":2,"unit_price":100}]}`, client.ID)
	invReq := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(invBody))
	invReq.Header.Set("Authorization", "Bearer "+token)
	invW := httptest.NewRecorder()
	h.ServeHTTP(invW, invReq)
	if invW.Code != http.StatusCreated {
		t.Fatalf("invoice create: got %d body=%s", invW.Code, invW.Body.String())
	}
	var inv models.Invoice
	_ = json.Unmarshal(invW.Body.Bytes(), &inv)
	if inv.Total != 220 {
		t.Fatalf("expected total 220, got %v", inv.Total)
	}

	// record succeeded payment for the full amount
	payBody := fmt.Sprintf(`{"invoice_id":%d,"amount":220,"method":"check","succeeded":true}`, inv.ID)
	payReq := httptest.NewRequest(http.MethodPost, "/api/payments/record", strings.NewReader(payBody))
	payReq.Header.Set("Authorization", "Bearer "+token)
	payW := httptest.NewRecorder()
	h.ServeHTTP(payW, payReq)
	if payW.Code != http.StatusCreated {
		t.Fatalf("payment record: got %d body=%s", payW.Code, payW.Body.String())
	}

	var got models.Invoice
	if err := db.First(&got, inv.ID).Error; err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if got.Status != models.InvoiceStatusPaid || got.AmountPaid != 220 {
		t.Fatalf("invoice not reconciled: status=%s paid=%v", got.Status, got.AmountPaid)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	h, db := setupRouter(t)
	seedUser(t, db, "boss", true)
	token := login(t, h, "boss")

	getReq := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	getReq.Header.Set("Authorization", "Bearer "+token)
	getW := httptest.NewRecorder()
	h.ServeHTTP(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Fatalf("settings get: got %d", getW.Code)
	}

	putReq := httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"company_name":"Crooks Woodworking","portal_title":"Portal","invoice_prefix":"CW","default_payment_terms_days":14}`))
	putReq.Header.Set("Authorization", "Bearer "+token)
	putW := httptest.NewRecorder()
	h.ServeHTTP(putW, putReq)
	if putW.Code != http.StatusOK {
		t.Fatalf("settings put: got %d body=%s", putW.Code, putW.Body.String())
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	h, db := setupRouter(t)
	seedUser(t, db, "boss", true)
	token := login(t, h, "boss")

	req := httptest.NewRequest(http.MethodDelete, "/api/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", w.Code)
	}
}
