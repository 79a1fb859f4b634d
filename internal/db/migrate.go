package db

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wcrooks/studiobooks/internal/logger"
	"github.com/wcrooks/studiobooks/internal/models"
)

// AllModels is the AutoMigrate set, ordered so FK targets come first.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{}, &models.DeviceToken{}, &models.SystemSettings{},
		&models.Client{}, &models.Project{},
		&models.Invoice{}, &models.InvoiceLineItem{},
		&models.Payment{},
		&models.Proposal{}, &models.ProposalLineItem{},
		&models.ExpenseCategory{}, &models.Expense{},
		&models.TimeEntry{}, &models.ActiveTimer{},
		&models.PlanFile{}, &models.Activity{},
	}
}

func ConnectAndMigrate() (*gorm.DB, error) {
	log := logger.WithComponent("db")
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check the environment configuration")
	}
	var db *gorm.DB
	var err error
	logLevel := gormlogger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = gormlogger.Info
	}
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Msg("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	log.Info().Str("dsn", MaskDSN(dsn)).Msg("connected")

	// MIGRATIONS=1 runs SQL migrations via golang-migrate;
	// otherwise AutoMigrate keeps the schema current (dev convenience).
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range AllModels() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"users", "clients", "invoices", "system_settings"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		Seed(db)
	}
	return db, nil
}

// Seed creates the baseline rows a fresh install needs: the settings row,
// the default expense categories, and an admin login when none exists.
func Seed(db *gorm.DB) {
	log := logger.WithComponent("db")

	var settings models.SystemSettings
	if err := db.First(&settings, 1).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.SystemSettings{ID: 1}
		if err := db.Create(&settings).Error; err != nil {
			log.Error().Err(err).Msg("seed settings")
		}
	}

	baseCategories := []models.ExpenseCategory{
		{Name: "Labor"}, {Name: "Materials"}, {Name: "Equipment"},
		{Name: "Permits"}, {Name: "Subcontractors"}, {Name: "Travel"}, {Name: "Other"},
	}
	for _, c := range baseCategories {
		var existing models.ExpenseCategory
		if err := db.Where("name = ?", c.Name).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			db.Create(&c)
		}
	}

	var count int64
	db.Model(&models.User{}).Where("is_staff = ?", true).Count(&count)
	if count == 0 {
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			password = "admin123"
		}
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		admin := models.User{Username: "admin", Email: "admin@example.com", Password: string(hash), IsStaff: true}
		if err := db.Create(&admin).Error; err != nil {
			log.Error().Err(err).Msg("seed admin user")
		} else {
			log.Info().Str("username", admin.Username).Msg("seeded admin user")
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using the
// golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
