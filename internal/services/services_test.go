package services

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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

func seedClientProject(t *testing.T, db *gorm.DB) (models.Client, models.Project) {
	t.Helper()
	client := models.Client{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	project := models.Project{ClientID: client.ID, Name: "Kitchen remodel", Status: "in_progress"}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("project: %v", err)
	}
	return client, project
}
