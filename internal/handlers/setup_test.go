package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/auth"
	"github.com/wcrooks/studiobooks/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedStaffUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	user := models.User{
		Username: "walter",
		Email:    "walter@example.com",
		Password: string(hash),
		IsStaff:  true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return user
}

func seedClient(t *testing.T, db *gorm.DB) models.Client {
	t.Helper()
	client := models.Client{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return client
}

// asUser attaches an authenticated user to the request context, the same
// shape auth.Middleware produces after verifying a bearer token.
func asUser(r *http.Request, user models.User) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), user.ID, user.IsStaff))
}
