package db_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suda/punchcard/internal/config"
	"github.com/suda/punchcard/internal/db"
	"github.com/suda/punchcard/internal/models"
)

func openTemp(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBType:      config.DBSqlite,
		DatabaseURL: filepath.Join(t.TempDir(), "punchcard.db"),
		AutoMigrate: true,
	}
}

// TestWALMode verifies that the default sqlite DSN enables WAL journal mode.
func TestWALMode(t *testing.T) {
	conn, err := db.Open(openTemp(t), zap.NewNop())
	require.NoError(t, err)

	var mode string
	conn.Raw("PRAGMA journal_mode").Scan(&mode)
	assert.Equal(t, "wal", mode)
}

func TestOpen_CreatesIndexes(t *testing.T) {
	conn, err := db.Open(openTemp(t), zap.NewNop())
	require.NoError(t, err)

	var names []string
	require.NoError(t, conn.Raw("SELECT name FROM pragma_index_list('daily_codes')").Scan(&names).Error)
	assert.Contains(t, names, "idx_daily_codes_customer_day")
	assert.Contains(t, names, "idx_daily_codes_code")
}

func TestSeedAdmins(t *testing.T) {
	conn, err := db.Open(openTemp(t), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, conn.Create(&models.Staff{TelegramID: "2", IsAdmin: false}).Error)

	n, err := db.SeedAdmins(conn, []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.SeedAdmins(conn, []string{"1", "2"})
	require.NoError(t, err)
	assert.Zero(t, n, "seeding is idempotent")

	var s models.Staff
	require.NoError(t, conn.Where("telegram_id = ?", "2").First(&s).Error)
	assert.False(t, s.IsAdmin)
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := db.Open(config.Config{DBType: "oracle"}, zap.NewNop())
	assert.Error(t, err)
}
