package router

import (
	"time"

	"github.com/google/uuid"
)

// Time-lock windows for the two-phase total-withdrawal protocol.
const (
	// WaitPeriod is the notice window between initiation and execution.
	WaitPeriod = 24 * time.Hour

	// ExecWindow is how long Phase 2 stays available after the notice
	// window elapses.
	ExecWindow = 48 * time.Hour
)

// WithdrawalStatus is the phase of a total-withdrawal cycle. The transition
// Initiated -> Executable -> Expired is purely time-driven; there is no
// background timer, every entry point re-derives the phase from the clock.
type WithdrawalStatus int32

const (
	StatusNone WithdrawalStatus = iota
	StatusInitiated
	StatusExecutable
	StatusExpired
)

func (s WithdrawalStatus) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusInitiated:
		return "initiated"
	case StatusExecutable:
		return "executable"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// WithdrawalRecord is the persisted state of one pending total-withdrawal
// cycle for an (asset, client) pair.
type WithdrawalRecord struct {
	Asset       string    `json:"asset"`
	Client      uuid.UUID `json:"client"`
	InitiatedAt time.Time `json:"initiated_at"`

	// CachedBalance is the client's total entitlement frozen at
	// initiation. Freezing it stops an operator from quietly growing the
	// withdrawable amount during the notice window and gives depositors a
	// deterministic number to audit.
	CachedBalance int64 `json:"cached_balance"`

	// CachedPrincipal is the client's recorded principal frozen at
	// initiation. Phase 2 redeems against this basis, so principal
	// deposited during the notice window stays out of the payout.
	CachedPrincipal int64 `json:"cached_principal"`
}

// ExecutableAt returns when Phase 2 opens.
func (w *WithdrawalRecord) ExecutableAt() time.Time {
	return w.InitiatedAt.Add(WaitPeriod)
}

// ExpiresAt returns when the execution window closes. At exactly ExpiresAt
// the record is still executable; past it the cycle is expired.
func (w *WithdrawalRecord) ExpiresAt() time.Time {
	return w.InitiatedAt.Add(WaitPeriod + ExecWindow)
}

// DeriveStatus refreshes a record's phase against the clock. A nil record is
// StatusNone. Pure function so the state machine is testable without a
// clock dependency.
func DeriveStatus(rec *WithdrawalRecord, now time.Time) WithdrawalStatus {
	if rec == nil {
		return StatusNone
	}
	if now.Before(rec.ExecutableAt()) {
		return StatusInitiated
	}
	if now.After(rec.ExpiresAt()) {
		return StatusExpired
	}
	return StatusExecutable
}
