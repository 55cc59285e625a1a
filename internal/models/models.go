package models

import (
	"time"

	"gorm.io/datatypes"
)

// Customer is a registered loyalty-program participant.
type Customer struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TelegramID string `gorm:"uniqueIndex;not null"` // opaque participant identity

	FirstName string
	LastName  string `gorm:"index"`
	Phone     string `gorm:"uniqueIndex;not null"` // canonical 7XXXXXXXXXX

	Points        int `gorm:"not null;default:0"`
	Rewards       int `gorm:"not null;default:0"` // free drinks granted so far
	LastCheckIn   *time.Time
	FreeDrinkUsed bool `gorm:"not null;default:false"`
}

// Staff is a barista; IsAdmin is fixed at creation.
type Staff struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TelegramID string `gorm:"uniqueIndex;not null"`
	IsAdmin    bool   `gorm:"not null;default:false"`
	AddedBy    string // TelegramID of the admin who provisioned this row, empty for seeded admins
}

// DailyCode ties one redemption to one customer on one calendar day.
type DailyCode struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Code       string `gorm:"uniqueIndex;size:6;not null"`
	CustomerID uint   `gorm:"index;not null"`
	IssuedOn   string `gorm:"index;size:10;not null"` // YYYY-MM-DD in the shop timezone
	Used       bool   `gorm:"not null;default:false"`
	UsedAt     *time.Time
}

// Session is a participant's pending conversation step.
type Session struct {
	ParticipantID string `gorm:"primaryKey"`
	Step          string `gorm:"not null"`
	Data          datatypes.JSONMap
	ExpiresAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{&Customer{}, &Staff{}, &DailyCode{}, &Session{}}
}
