package services

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suda/punchcard/internal/clock"
	"github.com/suda/punchcard/internal/models"
)

var moscow = time.FixedZone("MSK", 3*3600)

// openTestDB returns an isolated in-file SQLite database in a temp directory.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return gdb
}

func newTestService(t *testing.T, threshold int) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	gdb := openTestDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 10, 16, 10, 0, 0, 0, moscow))
	svc := New(gdb, Options{Threshold: threshold, Location: moscow, Clock: clk}, zap.NewNop())
	return svc, gdb, clk
}

func seedCustomer(t *testing.T, gdb *gorm.DB, tgID, last, phone string, points int) models.Customer {
	t.Helper()
	c := models.Customer{TelegramID: tgID, FirstName: "Иван", LastName: last, Phone: phone, Points: points}
	if err := gdb.Create(&c).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}
