package event

import "github.com/google/uuid"

// ClientAuthorizationSet records an owner toggling the client role.
type ClientAuthorizationSet struct {
	EventID  uuid.UUID
	Identity uuid.UUID
	Enabled  bool
}

func (e *ClientAuthorizationSet) ID() uuid.UUID    { return e.EventID }
func (e *ClientAuthorizationSet) Type() EventType  { return EventTypeClientAuthorizationSet }
func (e *ClientAuthorizationSet) AssetID() *string { return nil }

// WithdrawerAuthorizationSet records an owner toggling the withdrawer role.
type WithdrawerAuthorizationSet struct {
	EventID  uuid.UUID
	Identity uuid.UUID
	Enabled  bool
}

func (e *WithdrawerAuthorizationSet) ID() uuid.UUID    { return e.EventID }
func (e *WithdrawerAuthorizationSet) Type() EventType  { return EventTypeWithdrawerAuthorizationSet }
func (e *WithdrawerAuthorizationSet) AssetID() *string { return nil }
