package event

import "github.com/google/uuid"

// ExtractorConfigured records a wholesale overwrite of the surplus-extractor
// configuration.
type ExtractorConfigured struct {
	EventID uuid.UUID
	Token   string
	Pool    uuid.UUID
	Adapter uuid.UUID
	Client  uuid.UUID
}

func (e *ExtractorConfigured) ID() uuid.UUID    { return e.EventID }
func (e *ExtractorConfigured) Type() EventType  { return EventTypeExtractorConfigured }
func (e *ExtractorConfigured) AssetID() *string { return &e.Token }

// SurplusWithdrawn records a percentage skim of accumulated yield.
type SurplusWithdrawn struct {
	EventID    uuid.UUID
	Token      string
	Pool       uuid.UUID
	Client     uuid.UUID
	Percentage int64
	Amount     int64
	Recipient  uuid.UUID
}

func (e *SurplusWithdrawn) ID() uuid.UUID    { return e.EventID }
func (e *SurplusWithdrawn) Type() EventType  { return EventTypeSurplusWithdrawn }
func (e *SurplusWithdrawn) AssetID() *string { return &e.Token }
