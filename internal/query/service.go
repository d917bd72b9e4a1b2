package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides read-only access to the event log and journal in
// Postgres. The live balance queries go through the router; this is the
// audit-history side.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// EventRecord is one audit-log row.
type EventRecord struct {
	Sequence  int64           `json:"sequence"`
	EventID   uuid.UUID       `json:"event_id"`
	EventType string          `json:"event_type"`
	Asset     *string         `json:"asset,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// JournalRecord is one double-entry journal row.
type JournalRecord struct {
	JournalID     uuid.UUID `json:"journal_id"`
	BatchID       uuid.UUID `json:"batch_id"`
	EventRef      string    `json:"event_ref"`
	Sequence      int64     `json:"sequence"`
	DebitAccount  string    `json:"debit_account"`
	CreditAccount string    `json:"credit_account"`
	AssetID       uint16    `json:"asset_id"`
	Amount        int64     `json:"amount"`
	JournalType   int32     `json:"journal_type"`
	Timestamp     int64     `json:"timestamp"`
}

// Events returns audit-log rows from a sequence onward, oldest first.
func (s *Service) Events(ctx context.Context, fromSequence int64, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, event_id, event_type, asset, payload, timestamp
		FROM event_log.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(&e.Sequence, &e.EventID, &e.EventType, &e.Asset, &e.Payload, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EventsByAsset returns the newest audit-log rows for one asset.
func (s *Service) EventsByAsset(ctx context.Context, asset string, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, event_id, event_type, asset, payload, timestamp
		FROM event_log.events
		WHERE asset = $1
		ORDER BY sequence DESC
		LIMIT $2
	`, asset, limit)
	if err != nil {
		return nil, fmt.Errorf("query events by asset: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(&e.Sequence, &e.EventID, &e.EventType, &e.Asset, &e.Payload, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// JournalByAccount returns the newest journal rows touching an account,
// on either side of the entry.
func (s *Service) JournalByAccount(ctx context.Context, accountPath string, limit int) ([]JournalRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT journal_id, batch_id, event_ref, sequence, debit_account,
		       credit_account, asset_id, amount, journal_type, timestamp
		FROM event_log.journal
		WHERE debit_account = $1 OR credit_account = $1
		ORDER BY sequence DESC
		LIMIT $2
	`, accountPath, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	return scanJournalRows(rows)
}

// JournalByClient returns the newest journal rows for a client's principal
// account in one asset.
func (s *Service) JournalByClient(ctx context.Context, client uuid.UUID, asset string, limit int) ([]JournalRecord, error) {
	accountPath := fmt.Sprintf("client:%s:principal:%s", client, asset)
	return s.JournalByAccount(ctx, accountPath, limit)
}

func scanJournalRows(rows *sql.Rows) ([]JournalRecord, error) {
	var out []JournalRecord
	for rows.Next() {
		var j JournalRecord
		if err := rows.Scan(
			&j.JournalID, &j.BatchID, &j.EventRef, &j.Sequence,
			&j.DebitAccount, &j.CreditAccount, &j.AssetID, &j.Amount,
			&j.JournalType, &j.Timestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
