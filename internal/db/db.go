package db

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/suda/punchcard/internal/config"
	"github.com/suda/punchcard/internal/logger"
	"github.com/suda/punchcard/internal/models"
)

const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// Open connects to the configured database and migrates the schema.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBType {
	case config.DBPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	case config.DBSqlite, "":
		dialector = sqlite.Open(sqliteDSN(cfg.DatabaseURL))
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(log, gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBType, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBType == config.DBPostgres {
		if cfg.DBMaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		}
	} else {
		// SQLite works best with a single writer; cap the pool accordingly.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	if cfg.AutoMigrate {
		if err := Migrate(conn); err != nil {
			return nil, err
		}
	}

	log.Info("database ready", zap.String("type", cfg.DBType))
	return conn, nil
}

// Migrate creates or updates every table the bot uses.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	// Lookup by issuance day per customer is the hot path during code issuance.
	if err := conn.Exec("CREATE INDEX IF NOT EXISTS idx_daily_codes_customer_day ON daily_codes(customer_id, issued_on)").Error; err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// SeedAdmins makes sure every configured identifier has an admin Staff row.
// Existing non-admin rows are left untouched.
func SeedAdmins(conn *gorm.DB, ids []string) (int, error) {
	created := 0
	for _, id := range ids {
		var s models.Staff
		err := conn.Where("telegram_id = ?", id).First(&s).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}
		if err := conn.Create(&models.Staff{TelegramID: id, IsAdmin: true}).Error; err != nil {
			return created, fmt.Errorf("seed admin %s: %w", id, err)
		}
		created++
	}
	return created, nil
}

func sqliteDSN(url string) string {
	if url == "" {
		url = "punchcard.db"
	}
	if strings.Contains(url, "?") || strings.HasPrefix(url, "file::memory:") {
		return url
	}
	return url + "?" + sqliteParams
}
