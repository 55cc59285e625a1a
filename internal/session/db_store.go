package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/suda/punchcard/internal/clock"
	"github.com/suda/punchcard/internal/models"
)

// DBStore keeps sessions in the sessions table. Expired rows are ignored on
// read and removed by Purge.
type DBStore struct {
	db    *gorm.DB
	ttl   time.Duration
	clock clock.Clock
}

func NewDBStore(conn *gorm.DB, ttl time.Duration, clk clock.Clock) *DBStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &DBStore{db: conn, ttl: ttl, clock: clk}
}

func (s *DBStore) Get(ctx context.Context, participantID string) (State, error) {
	var row models.Session
	err := s.db.WithContext(ctx).
		Where("participant_id = ? AND expires_at > ?", participantID, s.clock.Now().UTC()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	st := State{Step: Step(row.Step), Data: map[string]string{}}
	for k, v := range row.Data {
		if sv, ok := v.(string); ok {
			st.Data[k] = sv
		}
	}
	return st, nil
}

func (s *DBStore) Set(ctx context.Context, participantID string, st State) error {
	if st.Step == Idle {
		return s.Clear(ctx, participantID)
	}
	data := datatypes.JSONMap{}
	for k, v := range st.Data {
		data[k] = v
	}
	row := models.Session{
		ParticipantID: participantID,
		Step:          string(st.Step),
		Data:          data,
		ExpiresAt:     s.clock.Now().UTC().Add(s.ttl),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"step", "data", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *DBStore) Clear(ctx context.Context, participantID string) error {
	return s.db.WithContext(ctx).Where("participant_id = ?", participantID).Delete(&models.Session{}).Error
}

// Purge deletes expired sessions.
func (s *DBStore) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.clock.Now().UTC()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
