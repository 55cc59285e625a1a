// Package session keeps each participant's pending conversation step.
// Entries expire after a TTL; an expired or missing entry reads as Idle.
package session

import "context"

type Step string

const (
	Idle Step = ""

	AwaitingName  Step = "awaiting_name"
	AwaitingPhone Step = "awaiting_phone"

	AwaitingIssueMatch   Step = "awaiting_customer_match"
	AwaitingBalanceMatch Step = "awaiting_balance_match"
	AwaitingAddMatch     Step = "awaiting_add_match"
	AwaitingDeductMatch  Step = "awaiting_deduct_match"
	AwaitingAmount       Step = "awaiting_amount"
	AwaitingStaffID      Step = "awaiting_staff_id"
)

type State struct {
	Step Step
	Data map[string]string
}

// Get returns a value from Data, or "" when unset.
func (s State) Get(key string) string {
	if s.Data == nil {
		return ""
	}
	return s.Data[key]
}

// Store persists State keyed by participant identity.
type Store interface {
	Get(ctx context.Context, participantID string) (State, error)
	Set(ctx context.Context, participantID string, st State) error
	Clear(ctx context.Context, participantID string) error
}
