package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suda/punchcard/internal/clock"
	"github.com/suda/punchcard/internal/models"
	"github.com/suda/punchcard/internal/services"
	"github.com/suda/punchcard/internal/session"
)

func TestReaper_DeletesOnlyBeforeYesterday(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(t.TempDir()+"/reaper.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(models.All()...))

	loc := time.FixedZone("MSK", 3*3600)
	clk := clock.NewFakeClock(time.Date(2026, 10, 16, 0, 0, 30, 0, loc))
	svc := services.New(gdb, services.Options{Threshold: 7, Location: loc, Clock: clk}, zap.NewNop())
	sessions := session.NewDBStore(gdb, time.Hour, clk)

	for i, day := range []string{"2026-10-13", "2026-10-14", "2026-10-15", "2026-10-16"} {
		require.NoError(t, gdb.Create(&models.DailyCode{
			Code:       "10000" + string(rune('0'+i)),
			CustomerID: 1,
			IssuedOn:   day,
		}).Error)
	}
	ctx := context.Background()
	require.NoError(t, sessions.Set(ctx, "1", session.State{Step: session.AwaitingName}))
	clk.Advance(2 * time.Hour)
	require.NoError(t, sessions.Set(ctx, "2", session.State{Step: session.AwaitingName}))

	reg := prometheus.NewRegistry()
	r := NewReaper(svc, sessions, reg, zap.NewNop())
	r.RunOnce(ctx)

	var left []string
	require.NoError(t, gdb.Model(&models.DailyCode{}).Order("issued_on").Pluck("issued_on", &left).Error)
	assert.Equal(t, []string{"2026-10-15", "2026-10-16"}, left)

	var n int64
	require.NoError(t, gdb.Model(&models.Session{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.deleted.WithLabelValues("code")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("ok")))
}

type failingPurger struct{ calls int }

func (f *failingPurger) Yesterday() string { return "2026-10-15" }

func (f *failingPurger) PurgeCodesBefore(context.Context, string) (int64, error) {
	f.calls++
	return 0, errors.New("database is locked")
}

func TestReaper_ErrorsAreSwallowed(t *testing.T) {
	p := &failingPurger{}
	r := NewReaper(p, nil, nil, zap.NewNop())

	r.RunOnce(context.Background())
	r.RunOnce(context.Background())

	assert.Equal(t, 2, p.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("error")))
}

func TestReaper_Schedule(t *testing.T) {
	r := NewReaper(&failingPurger{}, nil, nil, zap.NewNop())

	_, err := r.Schedule("not a schedule", time.UTC)
	assert.Error(t, err)

	h, err := r.Schedule("0 0 * * *", time.UTC)
	require.NoError(t, err)
	h.Stop()
}
