package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/suda/punchcard/internal/models"
)

type Role int

const (
	RoleUnregistered Role = iota
	RoleCustomer
	RoleStaff
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleStaff:
		return "staff"
	case RoleCustomer:
		return "customer"
	default:
		return "unregistered"
	}
}

// IsStaff is true for both staff and admin-staff.
func (r Role) IsStaff() bool { return r == RoleStaff || r == RoleAdmin }

// ResolveRole classifies a participant: admin staff, then staff, then customer.
// The first match wins, so an admin that also has a Customer row is an admin.
func (s *Service) ResolveRole(ctx context.Context, participantID string) (Role, error) {
	var staff models.Staff
	err := s.db.WithContext(ctx).Where("telegram_id = ?", participantID).First(&staff).Error
	switch {
	case err == nil && staff.IsAdmin:
		return RoleAdmin, nil
	case err == nil:
		return RoleStaff, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return RoleUnregistered, err
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Customer{}).
		Where("telegram_id = ?", participantID).Count(&n).Error; err != nil {
		return RoleUnregistered, err
	}
	if n > 0 {
		return RoleCustomer, nil
	}
	return RoleUnregistered, nil
}

func (s *Service) requireAdmin(ctx context.Context, actorID string) error {
	role, err := s.ResolveRole(ctx, actorID)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}
