package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Behodler/yield-strategy-router/internal/event"
	"github.com/Behodler/yield-strategy-router/internal/ledger"
	"github.com/Behodler/yield-strategy-router/internal/router"
	"github.com/Behodler/yield-strategy-router/internal/surplus"
	"github.com/Behodler/yield-strategy-router/internal/testutil"
)

// ============================================================================
// Helpers
// ============================================================================

func testEmission(seq int64) (event.Envelope, event.Event, *ledger.Batch) {
	asset := "DAI"
	client := uuid.New()
	eventID := uuid.New()
	batchID := uuid.New()
	daiID, _ := ledger.GetAssetID(asset)

	env := event.Envelope{
		Sequence:  seq,
		EventID:   eventID,
		EventType: event.EventTypeDepositRecorded,
		Asset:     &asset,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	ev := &event.DepositRecorded{
		EventID:   eventID,
		Asset:     asset,
		Client:    client,
		Recipient: client,
		Amount:    1000,
		Shares:    1000,
	}
	batch := &ledger.Batch{
		BatchID:  batchID,
		EventRef: eventID.String(),
		Sequence: seq,
		Journals: []ledger.Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			EventRef:      eventID.String(),
			Sequence:      seq,
			DebitAccount:  ledger.NewClientAccountKey(client, daiID),
			CreditAccount: ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits, daiID),
			AssetID:       daiID,
			Amount:        1000,
			JournalType:   ledger.JournalTypeDeposit,
		}},
	}
	return env, ev, batch
}

// ============================================================================
// Channel Sink
// ============================================================================

func TestChannelSinkConvertsEmission(t *testing.T) {
	ch := make(chan Record, 1)
	sink := NewChannelSink(ch)

	env, ev, batch := testEmission(7)
	if err := sink.Record(env, ev, batch); err != nil {
		t.Fatalf("Record: %v", err)
	}

	rec := <-ch
	if rec.EventRow.Sequence != 7 {
		t.Errorf("sequence = %d, want 7", rec.EventRow.Sequence)
	}
	if rec.EventRow.EventType != "DepositRecorded" {
		t.Errorf("event type = %q, want DepositRecorded", rec.EventRow.EventType)
	}
	if rec.EventRow.Asset == nil || *rec.EventRow.Asset != "DAI" {
		t.Errorf("asset = %v, want DAI", rec.EventRow.Asset)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.EventRow.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}

	if len(rec.JournalRows) != 1 {
		t.Fatalf("journal rows = %d, want 1", len(rec.JournalRows))
	}
	jr := rec.JournalRows[0]
	if jr.Amount != 1000 {
		t.Errorf("journal amount = %d, want 1000", jr.Amount)
	}
	if jr.DebitAccount == jr.CreditAccount {
		t.Error("journal debit and credit paths are equal")
	}
}

func TestChannelSinkNilBatch(t *testing.T) {
	ch := make(chan Record, 1)
	sink := NewChannelSink(ch)

	env, ev, _ := testEmission(1)
	if err := sink.Record(env, ev, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	rec := <-ch
	if len(rec.JournalRows) != 0 {
		t.Errorf("journal rows = %d, want 0", len(rec.JournalRows))
	}
}

// ============================================================================
// Event Log Writer (integration)
// ============================================================================

func TestWriteEventBatchIdempotent(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	writer := NewEventLogWriter(db)

	asset := "DAI"
	rows := []EventRow{{
		Sequence:  1,
		EventID:   uuid.New().String(),
		EventType: "DepositRecorded",
		Asset:     &asset,
		Payload:   []byte(`{"amount":1000}`),
		Timestamp: time.Now().UTC(),
	}}

	if err := writer.WriteEventBatch(ctx, db, rows); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// Replay of the same sequence must be a no-op, not a conflict.
	if err := writer.WriteEventBatch(ctx, db, rows); err != nil {
		t.Fatalf("replay write: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM event_log.events WHERE sequence = 1").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("events at sequence 1 = %d, want 1", count)
	}
}

func TestWriteJournalBatch(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	writer := NewEventLogWriter(db)

	env, _, batch := testEmission(2)
	asset := "DAI"
	if err := writer.WriteEventBatch(ctx, db, []EventRow{{
		Sequence:  env.Sequence,
		EventID:   env.EventID.String(),
		EventType: env.EventType.String(),
		Asset:     &asset,
		Payload:   []byte(`{}`),
		Timestamp: env.Timestamp,
	}}); err != nil {
		t.Fatalf("write event: %v", err)
	}

	j := batch.Journals[0]
	rows := []JournalRow{{
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
	}}

	if err := writer.WriteJournalBatch(ctx, db, rows); err != nil {
		t.Fatalf("write journals: %v", err)
	}
	if err := writer.WriteJournalBatch(ctx, db, rows); err != nil {
		t.Fatalf("replay journals: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM event_log.journal WHERE batch_id = $1", j.BatchID.String()).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("journal rows = %d, want 1", count)
	}
}

// ============================================================================
// Worker (integration)
// ============================================================================

func TestWorkerFlushesOnTimeout(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	input := make(chan Record, 16)
	worker := NewWorker(db, input, 100, 20*time.Millisecond, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	env, ev, batch := testEmission(10)
	sink := NewChannelSink(input)
	if err := sink.Record(env, ev, batch); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Wait past the flush timeout.
	deadline := time.Now().Add(3 * time.Second)
	for {
		var count int
		db.QueryRow("SELECT COUNT(*) FROM event_log.events WHERE sequence = 10").Scan(&count)
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("event never flushed")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	<-done
}

// ============================================================================
// Snapshots (integration)
// ============================================================================

func TestSnapshotRoundTrip(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	mgr := NewSnapshotManager(db)

	// Cold start returns nil, not an error.
	snap, err := mgr.LoadLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("cold load: %v", err)
	}
	if snap != nil {
		t.Fatalf("cold load returned snapshot: %+v", snap)
	}

	client := uuid.New()
	in := &SnapshotData{
		Sequence: 42,
		Router: router.State{
			Sequence: 42,
			Clients:  []uuid.UUID{client},
		},
		Principal: []ledger.Entry{{Asset: "DAI", Client: client, Principal: 1000}},
		Extractor: &surplus.Config{Token: "DAI", Pool: uuid.New(), Adapter: uuid.New(), Client: client},
		CreatedAt: time.Now().UTC(),
	}
	if err := mgr.SaveSnapshot(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := mgr.LoadLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out == nil {
		t.Fatal("load returned nil")
	}
	if out.Sequence != 42 {
		t.Errorf("sequence = %d, want 42", out.Sequence)
	}
	if len(out.Principal) != 1 || out.Principal[0].Principal != 1000 {
		t.Errorf("principal entries = %+v", out.Principal)
	}
	if out.Extractor == nil || out.Extractor.Client != client {
		t.Errorf("extractor config = %+v", out.Extractor)
	}

	// Re-saving the same sequence overwrites rather than erroring.
	in.Principal[0].Principal = 2000
	if err := mgr.SaveSnapshot(ctx, in); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	out, err = mgr.LoadLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("re-load: %v", err)
	}
	if out.Principal[0].Principal != 2000 {
		t.Errorf("principal after overwrite = %d, want 2000", out.Principal[0].Principal)
	}
}
