package router

import (
	"github.com/Behodler/yield-strategy-router/internal/event"
	"github.com/Behodler/yield-strategy-router/internal/ledger"
)

// Sink receives every notification the router emits, together with the
// journal batch the operation produced (nil for pure notifications such as
// authorization changes). Persistence and the outbound publisher sit behind
// this interface.
type Sink interface {
	Record(env event.Envelope, ev event.Event, batch *ledger.Batch) error
}

// NopSink discards everything. Used by tests and by deployments that run
// without an event log.
type NopSink struct{}

func (NopSink) Record(event.Envelope, event.Event, *ledger.Batch) error { return nil }

// MultiSink fans a notification out to several sinks in order, stopping at
// the first error.
type MultiSink []Sink

func (m MultiSink) Record(env event.Envelope, ev event.Event, batch *ledger.Batch) error {
	for _, s := range m {
		if err := s.Record(env, ev, batch); err != nil {
			return err
		}
	}
	return nil
}
