package event

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyWithdrawal is emitted with a fixed shape regardless of adapter,
// so operator-level pool extractions are always auditable the same way.
type EmergencyWithdrawal struct {
	EventID   uuid.UUID
	Asset     string
	Requested int64
	Redeemed  int64 // Actual asset amount the share redemption yielded
}

func (e *EmergencyWithdrawal) ID() uuid.UUID    { return e.EventID }
func (e *EmergencyWithdrawal) Type() EventType  { return EventTypeEmergencyWithdrawal }
func (e *EmergencyWithdrawal) AssetID() *string { return &e.Asset }

// TotalWithdrawalInitiated is emitted by Phase 1 of the time-locked protocol.
// CachedBalance is the entitlement frozen for the whole cycle; depositors can
// audit it publicly during the notice window.
type TotalWithdrawalInitiated struct {
	EventID       uuid.UUID
	Asset         string
	Client        uuid.UUID
	CachedBalance int64
	ExecutableAt  time.Time
	ExpiresAt     time.Time
}

func (e *TotalWithdrawalInitiated) ID() uuid.UUID    { return e.EventID }
func (e *TotalWithdrawalInitiated) Type() EventType  { return EventTypeTotalWithdrawalInitiated }
func (e *TotalWithdrawalInitiated) AssetID() *string { return &e.Asset }

// TotalWithdrawalExecuted is emitted by Phase 2 after the redemption completes.
type TotalWithdrawalExecuted struct {
	EventID       uuid.UUID
	Asset         string
	Client        uuid.UUID
	CachedBalance int64
	Redeemed      int64
}

func (e *TotalWithdrawalExecuted) ID() uuid.UUID    { return e.EventID }
func (e *TotalWithdrawalExecuted) Type() EventType  { return EventTypeTotalWithdrawalExecuted }
func (e *TotalWithdrawalExecuted) AssetID() *string { return &e.Asset }
