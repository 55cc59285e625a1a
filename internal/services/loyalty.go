package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/suda/punchcard/internal/clock"
	"github.com/suda/punchcard/internal/models"
)

const (
	dayLayout       = "2006-01-02"
	maxCodeAttempts = 10
)

type Options struct {
	Threshold int
	Location  *time.Location
	Clock     clock.Clock

	// NewCode defaults to GenerateCode.
	NewCode func() (string, error)
}

// Service implements the loyalty rules on top of the relational store.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	threshold int
	loc       *time.Location
	clock     clock.Clock
	newCode   func() (string, error)
}

func New(conn *gorm.DB, opts Options, log *zap.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.NewCode == nil {
		opts.NewCode = GenerateCode
	}
	return &Service{
		db:        conn,
		log:       log.Named("loyalty"),
		threshold: opts.Threshold,
		loc:       opts.Location,
		clock:     opts.Clock,
		newCode:   opts.NewCode,
	}
}

func (s *Service) Threshold() int { return s.threshold }

// Remaining is how many more points a customer needs for a free drink.
func (s *Service) Remaining(points int) int { return s.threshold - points }

// Today is the current calendar day in the shop timezone.
func (s *Service) Today() string { return s.day(s.clock.Now()) }

// Yesterday is the calendar day before Today.
func (s *Service) Yesterday() string {
	now := s.clock.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day()-1, 12, 0, 0, 0, s.loc).Format(dayLayout)
}

func (s *Service) day(t time.Time) string { return t.In(s.loc).Format(dayLayout) }

func (s *Service) startOfToday() time.Time {
	now := s.clock.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

type RegisterInput struct {
	TelegramID string
	FirstName  string
	LastName   string
	Phone      string // canonical, see NormPhone
}

// Register creates a customer with zero points.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Customer{}).Where("telegram_id = ?", in.TelegramID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrCustomerExists
		}
		if err := tx.Model(&models.Customer{}).Where("phone = ?", in.Phone).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrPhoneTaken
		}
		c = models.Customer{
			TelegramID: in.TelegramID,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			Phone:      in.Phone,
		}
		if err := tx.Create(&c).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrPhoneTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("customer registered", zap.Uint("customer_id", c.ID), zap.String("telegram_id", c.TelegramID))
	return &c, nil
}

func (s *Service) CustomerByTelegramID(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Service) CustomerByID(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// LookupCustomers matches a last name and the last four phone digits.
// ErrNotFound is returned when nothing matches.
func (s *Service) LookupCustomers(ctx context.Context, lastName, suffix string) ([]models.Customer, error) {
	var out []models.Customer
	err := s.db.WithContext(ctx).
		Where("last_name = ? AND phone LIKE ?", lastName, "%"+suffix).
		Order("id asc").
		Limit(10).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

type Issued struct {
	Customer models.Customer
	Code     models.DailyCode
	Created  bool
}

// IssueCode drops the customer's stale codes, then returns today's code,
// creating one when none exists yet.
func (s *Service) IssueCode(ctx context.Context, customerID uint) (*Issued, error) {
	today := s.Today()
	out := Issued{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out.Customer, customerID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("customer_id = ? AND issued_on < ?", customerID, today).
			Delete(&models.DailyCode{}).Error; err != nil {
			return fmt.Errorf("delete stale codes: %w", err)
		}

		err := tx.Where("customer_id = ? AND issued_on = ?", customerID, today).
			Order("id asc").First(&out.Code).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// try up to maxCodeAttempts times to avoid unique collisions
		for i := 0; i < maxCodeAttempts; i++ {
			code, err := s.newCode()
			if err != nil {
				return err
			}
			dc := models.DailyCode{Code: code, CustomerID: customerID, IssuedOn: today}
			if err := tx.SavePoint("issue_code").Error; err != nil {
				return err
			}
			if err := tx.Create(&dc).Error; err != nil {
				if !isUniqueViolation(err) {
					return err
				}
				s.log.Warn("daily code collision", zap.Int("attempt", i+1))
				if err := tx.RollbackTo("issue_code").Error; err != nil {
					return err
				}
				continue
			}
			out.Code = dc
			out.Created = true
			return nil
		}
		return ErrCodeSpaceExhausted
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type Redemption struct {
	Customer  models.Customer
	Remaining int
	Rewarded  bool
}

// Redeem applies a customer-entered code. Checks run in order:
// code exists and is unused, code belongs to the customer, no redemption yet today.
func (s *Service) Redeem(ctx context.Context, participantID, code string) (*Redemption, error) {
	now := s.clock.Now()
	out := Redemption{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c := &out.Customer
		if err := tx.Where("telegram_id = ?", participantID).First(c).Error; err != nil {
			return notFound(err)
		}

		var dc models.DailyCode
		if err := tx.Where("code = ? AND used = ?", code, false).First(&dc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeInvalid
			}
			return err
		}
		if dc.CustomerID != c.ID {
			return ErrCodeNotOwned
		}
		if c.LastCheckIn != nil && s.day(*c.LastCheckIn) == s.day(now) {
			return ErrAlreadyRedeemedToday
		}

		// Conditional writes keep a double-submit from earning twice.
		res := tx.Model(&models.DailyCode{}).
			Where("id = ? AND used = ?", dc.ID, false).
			Updates(map[string]any{"used": true, "used_at": now.UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrCodeInvalid
		}
		res = tx.Model(&models.Customer{}).
			Where("id = ? AND (last_check_in IS NULL OR last_check_in < ?)", c.ID, s.startOfToday().UTC()).
			Updates(map[string]any{"points": gorm.Expr("points + 1"), "last_check_in": now.UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrAlreadyRedeemedToday
		}

		if err := tx.First(c, c.ID).Error; err != nil {
			return err
		}
		if c.Points >= s.threshold {
			if err := tx.Model(&models.Customer{}).Where("id = ?", c.ID).
				Updates(map[string]any{"points": 0, "rewards": gorm.Expr("rewards + 1")}).Error; err != nil {
				return err
			}
			c.Points = 0
			c.Rewards++
			out.Rewarded = true
		}
		out.Remaining = s.Remaining(c.Points)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("code redeemed",
		zap.Uint("customer_id", out.Customer.ID),
		zap.Int("points", out.Customer.Points),
		zap.Bool("rewarded", out.Rewarded))
	return &out, nil
}

type Adjustment struct {
	Customer models.Customer
	Before   int
	Rewards  int
}

// AdjustPoints adds (delta > 0) or deducts (delta < 0) points directly.
// Admin rights are checked here, at the moment the change is applied.
// Added points that cross the threshold grant rewards and keep the remainder;
// deductions floor at zero.
func (s *Service) AdjustPoints(ctx context.Context, actorID string, customerID uint, delta int) (*Adjustment, error) {
	if delta == 0 {
		return nil, errors.New("zero adjustment")
	}
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	out := Adjustment{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c := &out.Customer
		if err := tx.First(c, customerID).Error; err != nil {
			return notFound(err)
		}
		out.Before = c.Points

		points := c.Points + delta
		if delta > 0 {
			out.Rewards = points / s.threshold
			points %= s.threshold
		} else if points < 0 {
			points = 0
		}
		if err := tx.Model(&models.Customer{}).Where("id = ?", c.ID).Updates(map[string]any{
			"points":  points,
			"rewards": gorm.Expr("rewards + ?", out.Rewards),
		}).Error; err != nil {
			return err
		}
		c.Points = points
		c.Rewards += out.Rewards
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("points adjusted",
		zap.String("actor", actorID),
		zap.Uint("customer_id", customerID),
		zap.Int("delta", delta),
		zap.Int("points", out.Customer.Points))
	return &out, nil
}

// AddStaff provisions a non-admin barista. Only admins may call it.
func (s *Service) AddStaff(ctx context.Context, actorID, telegramID string) (*models.Staff, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Staff{}).Where("telegram_id = ?", telegramID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrStaffExists
	}
	st := models.Staff{TelegramID: telegramID, AddedBy: actorID}
	if err := s.db.WithContext(ctx).Create(&st).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrStaffExists
		}
		return nil, err
	}
	s.log.Info("staff added", zap.String("actor", actorID), zap.String("telegram_id", telegramID))
	return &st, nil
}

func (s *Service) StaffMembers(ctx context.Context) ([]models.Staff, error) {
	var out []models.Staff
	err := s.db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// ActiveCode returns an unused code issued today, used by the QR endpoint.
func (s *Service) ActiveCode(ctx context.Context, code string) (*models.DailyCode, error) {
	var dc models.DailyCode
	err := s.db.WithContext(ctx).
		Where("code = ? AND used = ? AND issued_on = ?", code, false, s.Today()).
		First(&dc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &dc, nil
}

// PurgeCodesBefore deletes every code issued strictly before day (YYYY-MM-DD).
func (s *Service) PurgeCodesBefore(ctx context.Context, day string) (int64, error) {
	res := s.db.WithContext(ctx).Where("issued_on < ?", day).Delete(&models.DailyCode{})
	return res.RowsAffected, res.Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
