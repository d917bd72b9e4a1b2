package event

import "github.com/google/uuid"

// DepositRecorded records principal entering the pool on behalf of a recipient.
type DepositRecorded struct {
	EventID   uuid.UUID
	Asset     string
	Client    uuid.UUID
	Recipient uuid.UUID
	Amount    int64
	Shares    int64 // Pool shares received at the deposit-time exchange rate
}

func (e *DepositRecorded) ID() uuid.UUID    { return e.EventID }
func (e *DepositRecorded) Type() EventType  { return EventTypeDepositRecorded }
func (e *DepositRecorded) AssetID() *string { return &e.Asset }

// WithdrawalRecorded records a principal withdrawal through the ordinary path.
// Requested is the caller's original amount; Capped is that amount after
// capping at the recipient's principal; Paid is what the share redemption
// actually yielded (Paid <= Capped under flooring).
type WithdrawalRecorded struct {
	EventID        uuid.UUID
	Asset          string
	Client         uuid.UUID
	Recipient      uuid.UUID
	Requested      int64
	Capped         int64
	Paid           int64
	SharesRedeemed int64
}

func (e *WithdrawalRecorded) ID() uuid.UUID    { return e.EventID }
func (e *WithdrawalRecorded) Type() EventType  { return EventTypeWithdrawalRecorded }
func (e *WithdrawalRecorded) AssetID() *string { return &e.Asset }

// WithdrawerWithdrawal records value moved by an authorized withdrawer out of
// a client's pool entitlement (the surplus-extraction path).
type WithdrawerWithdrawal struct {
	EventID    uuid.UUID
	Asset      string
	Withdrawer uuid.UUID
	Client     uuid.UUID
	Recipient  uuid.UUID
	Amount     int64
}

func (e *WithdrawerWithdrawal) ID() uuid.UUID    { return e.EventID }
func (e *WithdrawerWithdrawal) Type() EventType  { return EventTypeWithdrawerWithdrawal }
func (e *WithdrawerWithdrawal) AssetID() *string { return &e.Asset }
