package persistence

import (
	"fmt"

	"github.com/Behodler/yield-strategy-router/internal/event"
	"github.com/Behodler/yield-strategy-router/internal/ledger"
)

// ChannelSink converts router emissions to persistence records and feeds the
// worker channel. Sends block: the ops loop stalls rather than losing an
// audit record.
type ChannelSink struct {
	ch chan<- Record
}

func NewChannelSink(ch chan<- Record) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Record(env event.Envelope, ev event.Event, batch *ledger.Batch) error {
	payload, err := MarshalPayload(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", env.EventID, err)
	}

	rec := Record{
		EventRow: EventRow{
			Sequence:  env.Sequence,
			EventID:   env.EventID.String(),
			EventType: env.EventType.String(),
			Asset:     env.Asset,
			Payload:   payload,
			Timestamp: env.Timestamp,
		},
	}

	if batch != nil {
		rec.JournalRows = make([]JournalRow, 0, len(batch.Journals))
		for _, j := range batch.Journals {
			rec.JournalRows = append(rec.JournalRows, JournalRow{
				JournalID:     j.JournalID.String(),
				BatchID:       j.BatchID.String(),
				EventRef:      j.EventRef,
				Sequence:      j.Sequence,
				DebitAccount:  j.DebitAccount.AccountPath(),
				CreditAccount: j.CreditAccount.AccountPath(),
				AssetID:       uint16(j.AssetID),
				Amount:        j.Amount,
				JournalType:   int32(j.JournalType),
				Timestamp:     j.Timestamp,
			})
		}
	}

	s.ch <- rec
	return nil
}
