package event

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeClientAuthorizationSet
	EventTypeWithdrawerAuthorizationSet
	EventTypeDepositRecorded
	EventTypeWithdrawalRecorded
	EventTypeWithdrawerWithdrawal
	EventTypeEmergencyWithdrawal
	EventTypeTotalWithdrawalInitiated
	EventTypeTotalWithdrawalExecuted
	EventTypeExtractorConfigured
	EventTypeSurplusWithdrawn
)

// Envelope wraps every notification in the audit log.
type Envelope struct {
	// Global monotonic sequence assigned by the router
	Sequence int64

	// Stable event identity (also the idempotency key for persistence)
	EventID uuid.UUID

	// Event type discriminator
	EventType EventType

	// Asset context (nil for global events such as authorization changes)
	Asset *string

	// Timestamp from the router's injected clock
	Timestamp time.Time
}

// Event is the interface all notification payloads implement.
type Event interface {
	// ID returns the stable event identity.
	ID() uuid.UUID

	// Type returns the discriminator.
	Type() EventType

	// AssetID returns the asset context (nil for global events).
	AssetID() *string
}

func (et EventType) String() string {
	switch et {
	case EventTypeClientAuthorizationSet:
		return "ClientAuthorizationSet"
	case EventTypeWithdrawerAuthorizationSet:
		return "WithdrawerAuthorizationSet"
	case EventTypeDepositRecorded:
		return "DepositRecorded"
	case EventTypeWithdrawalRecorded:
		return "WithdrawalRecorded"
	case EventTypeWithdrawerWithdrawal:
		return "WithdrawerWithdrawal"
	case EventTypeEmergencyWithdrawal:
		return "EmergencyWithdrawal"
	case EventTypeTotalWithdrawalInitiated:
		return "TotalWithdrawalInitiated"
	case EventTypeTotalWithdrawalExecuted:
		return "TotalWithdrawalExecuted"
	case EventTypeExtractorConfigured:
		return "ExtractorConfigured"
	case EventTypeSurplusWithdrawn:
		return "SurplusWithdrawn"
	default:
		return "Unknown"
	}
}
