package services

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrCustomerExists       = errors.New("customer already registered")
	ErrPhoneTaken           = errors.New("phone already registered")
	ErrCodeInvalid          = errors.New("code invalid or already used")
	ErrCodeNotOwned         = errors.New("code belongs to another customer")
	ErrAlreadyRedeemedToday = errors.New("already redeemed today")
	ErrForbidden            = errors.New("forbidden")
	ErrStaffExists          = errors.New("staff already exists")
	ErrCodeSpaceExhausted   = errors.New("unable to allocate a unique code")
)
