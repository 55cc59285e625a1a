// Package jobs holds the background work that runs beside chat traffic.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	cron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CodePurger deletes codes issued strictly before a calendar day.
type CodePurger interface {
	Yesterday() string
	PurgeCodesBefore(ctx context.Context, day string) (int64, error)
}

// SessionPurger drops expired conversation sessions.
type SessionPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// Reaper removes stale daily codes and expired sessions.
type Reaper struct {
	codes    CodePurger
	sessions SessionPurger // nil when the session backend expires keys itself
	log      *zap.Logger
	timeout  time.Duration

	runs    *prometheus.CounterVec
	deleted *prometheus.CounterVec
}

func NewReaper(codes CodePurger, sessions SessionPurger, reg prometheus.Registerer, log *zap.Logger) *Reaper {
	r := &Reaper{
		codes:    codes,
		sessions: sessions,
		log:      log.Named("reaper"),
		timeout:  time.Minute,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_reaper_runs_total",
			Help: "Daily reaper runs by status.",
		}, []string{"status"}),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_reaper_deleted_total",
			Help: "Rows removed by the daily reaper.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(r.runs, r.deleted)
	}
	return r
}

// RunOnce performs a single sweep. Errors are logged and counted, never returned,
// so one bad run cannot affect the next.
func (r *Reaper) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status := "ok"
	cutoff := r.codes.Yesterday()
	n, err := r.codes.PurgeCodesBefore(ctx, cutoff)
	if err != nil {
		status = "error"
		r.log.Error("purge codes", zap.String("before", cutoff), zap.Error(err))
	} else {
		r.deleted.WithLabelValues("code").Add(float64(n))
		r.log.Info("stale codes purged", zap.String("before", cutoff), zap.Int64("deleted", n))
	}

	if r.sessions != nil {
		n, err := r.sessions.Purge(ctx)
		if err != nil {
			status = "error"
			r.log.Error("purge sessions", zap.Error(err))
		} else {
			r.deleted.WithLabelValues("session").Add(float64(n))
			r.log.Info("expired sessions purged", zap.Int64("deleted", n))
		}
	}
	r.runs.WithLabelValues(status).Inc()
}

// Schedule starts a cron runner that calls RunOnce on expr (standard
// five-field syntax) in loc. The caller owns the returned handle.
func (r *Reaper) Schedule(expr string, loc *time.Location) (*Handle, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.AddFunc(expr, func() { r.RunOnce(ctx) })
	if err != nil {
		cancel()
		return nil, fmt.Errorf("reaper schedule %q: %w", expr, err)
	}
	c.Start()
	r.log.Info("reaper scheduled", zap.String("schedule", expr), zap.String("tz", loc.String()))
	return &Handle{cron: c, cancel: cancel}, nil
}

// Handle controls a scheduled reaper.
type Handle struct {
	cron   *cron.Cron
	cancel context.CancelFunc
}

// Stop prevents further runs and waits for a running sweep to finish.
func (h *Handle) Stop() {
	<-h.cron.Stop().Done()
	h.cancel()
}
