package router

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Behodler/yield-strategy-router/internal/event"
	"github.com/Behodler/yield-strategy-router/internal/ledger"
)

// Router wraps per-asset redeemers with authorization and the two-phase
// time-locked total-withdrawal protocol. It is the single entry point for
// every balance-mutating operation and the sole assigner of the global event
// sequence.
//
// The router is not internally synchronized: the service shell drives it
// from one goroutine (the ops loop), which is what serializes operations.
// The reentrancy flag below is a separate concern: it rejects an external
// callee calling back into the router inside an in-flight operation on the
// same goroutine.
type Router struct {
	owner uuid.UUID

	clients     map[uuid.UUID]bool
	withdrawers map[uuid.UUID]bool
	redeemers   map[string]Redeemer

	withdrawals map[withdrawalKey]*WithdrawalRecord

	seq     int64
	entered atomic.Bool

	now  func() time.Time
	sink Sink
	log  zerolog.Logger
}

type withdrawalKey struct {
	asset  string
	client uuid.UUID
}

// Outcome reports what a TotalWithdrawal call did: either Phase 1
// (Initiated=true, cycle opened) or Phase 2 (Initiated=false, position
// liquidated).
type Outcome struct {
	Initiated        bool
	CachedBalance    int64
	Redeemed         int64
	ClearedPrincipal int64
	ExecutableAt     time.Time
	ExpiresAt        time.Time
}

// New creates a router owned by owner. sink may be nil; now may be nil, in
// which case the wall clock is used.
func New(owner uuid.UUID, sink Sink, now func() time.Time, log zerolog.Logger) (*Router, error) {
	if owner == uuid.Nil {
		return nil, fmt.Errorf("router: nil owner: %w", ledger.ErrInvalidArgument)
	}
	if sink == nil {
		sink = NopSink{}
	}
	if now == nil {
		now = time.Now
	}

	return &Router{
		owner:       owner,
		clients:     make(map[uuid.UUID]bool),
		withdrawers: make(map[uuid.UUID]bool),
		redeemers:   make(map[string]Redeemer),
		withdrawals: make(map[withdrawalKey]*WithdrawalRecord),
		now:         now,
		sink:        sink,
		log:         log.With().Str("component", "router").Logger(),
	}, nil
}

// Owner returns the owning identity.
func (r *Router) Owner() uuid.UUID { return r.owner }

// RegisterRedeemer binds an asset to its redeemer. One redeemer per asset.
func (r *Router) RegisterRedeemer(rd Redeemer) error {
	asset := rd.Asset()
	if _, ok := r.redeemers[asset]; ok {
		return fmt.Errorf("redeemer for %s already registered: %w", asset, ledger.ErrInvalidArgument)
	}
	r.redeemers[asset] = rd
	return nil
}

func (r *Router) redeemer(asset string) (Redeemer, error) {
	rd, ok := r.redeemers[asset]
	if !ok {
		return nil, fmt.Errorf("no redeemer for asset %q: %w", asset, ledger.ErrInvalidArgument)
	}
	return rd, nil
}

// ============================================================================
// Reentrancy Guard
// ============================================================================

func (r *Router) enter() error {
	if !r.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (r *Router) exit() {
	r.entered.Store(false)
}

// ============================================================================
// Authorization
// ============================================================================

// IsClient reports whether identity holds the client role.
func (r *Router) IsClient(identity uuid.UUID) bool { return r.clients[identity] }

// IsWithdrawer reports whether identity holds the withdrawer role.
func (r *Router) IsWithdrawer(identity uuid.UUID) bool { return r.withdrawers[identity] }

// SetClient toggles the client role for identity. Owner-only, idempotent;
// the notification is re-emitted even when the membership does not change.
func (r *Router) SetClient(caller, identity uuid.UUID, enabled bool) error {
	if caller != r.owner {
		return fmt.Errorf("set client: caller %s is not owner: %w", caller, ledger.ErrUnauthorized)
	}
	if identity == uuid.Nil {
		return fmt.Errorf("set client: nil identity: %w", ledger.ErrInvalidArgument)
	}

	if enabled {
		r.clients[identity] = true
	} else {
		delete(r.clients, identity)
	}

	r.log.Info().Stringer("identity", identity).Bool("enabled", enabled).Msg("client authorization set")

	return r.emit(&event.ClientAuthorizationSet{
		EventID:  uuid.New(),
		Identity: identity,
		Enabled:  enabled,
	}, nil)
}

// SetWithdrawer toggles the withdrawer role for identity. Owner-only,
// idempotent.
func (r *Router) SetWithdrawer(caller, identity uuid.UUID, enabled bool) error {
	if caller != r.owner {
		return fmt.Errorf("set withdrawer: caller %s is not owner: %w", caller, ledger.ErrUnauthorized)
	}
	if identity == uuid.Nil {
		return fmt.Errorf("set withdrawer: nil identity: %w", ledger.ErrInvalidArgument)
	}

	if enabled {
		r.withdrawers[identity] = true
	} else {
		delete(r.withdrawers, identity)
	}

	r.log.Info().Stringer("identity", identity).Bool("enabled", enabled).Msg("withdrawer authorization set")

	return r.emit(&event.WithdrawerAuthorizationSet{
		EventID:  uuid.New(),
		Identity: identity,
		Enabled:  enabled,
	}, nil)
}

// ============================================================================
// Balance Queries
// ============================================================================

// PrincipalOf returns account's principal for asset.
func (r *Router) PrincipalOf(asset string, account uuid.UUID) (int64, error) {
	rd, err := r.redeemer(asset)
	if err != nil {
		return 0, err
	}
	return rd.PrincipalOf(asset, account)
}

// TotalBalanceOf returns account's principal plus proportional yield.
func (r *Router) TotalBalanceOf(asset string, account uuid.UUID) (int64, error) {
	rd, err := r.redeemer(asset)
	if err != nil {
		return 0, err
	}
	return rd.TotalBalanceOf(asset, account)
}

// BalanceOf returns exactly PrincipalOf. Retained for older callers.
func (r *Router) BalanceOf(asset string, account uuid.UUID) (int64, error) {
	rd, err := r.redeemer(asset)
	if err != nil {
		return 0, err
	}
	return rd.BalanceOf(asset, account)
}

// WithdrawalStatusOf refreshes and returns the current phase of the
// (asset, client) total-withdrawal cycle, with the record when one exists.
func (r *Router) WithdrawalStatusOf(asset string, client uuid.UUID) (WithdrawalStatus, *WithdrawalRecord) {
	rec := r.withdrawals[withdrawalKey{asset, client}]
	return DeriveStatus(rec, r.now()), rec
}

// ============================================================================
// Deposit / Withdraw
// ============================================================================

// Deposit moves amount of asset from client into the pool for recipient.
// Client role required.
func (r *Router) Deposit(client uuid.UUID, asset string, amount int64, recipient uuid.UUID) (int64, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.exit()

	if !r.clients[client] {
		return 0, fmt.Errorf("deposit: %s is not an authorized client: %w", client, ledger.ErrUnauthorized)
	}
	rd, err := r.redeemer(asset)
	if err != nil {
		return 0, err
	}

	shares, err := rd.Deposit(asset, amount, client, recipient)
	if err != nil {
		return 0, err
	}

	ev := &event.DepositRecorded{
		EventID:   uuid.New(),
		Asset:     asset,
		Client:    client,
		Recipient: recipient,
		Amount:    amount,
		Shares:    shares,
	}
	batch := r.newBatch(ev.EventID, ledger.JournalTypeDeposit, journalEntry{
		debit:  ledger.NewClientAccountKey(recipient, assetID(asset)),
		credit: ledger.NewExternalAccountKey(ledger.SubTypeExternalDeposits, assetID(asset)),
		amount: amount,
	})
	return shares, r.emit(ev, batch)
}

// Withdraw pays out up to amount of recipient's principal. Client role
// required. Returns the amount actually paid.
func (r *Router) Withdraw(client uuid.UUID, asset string, amount int64, recipient uuid.UUID) (int64, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.exit()

	if !r.clients[client] {
		return 0, fmt.Errorf("withdraw: %s is not an authorized client: %w", client, ledger.ErrUnauthorized)
	}
	rd, err := r.redeemer(asset)
	if err != nil {
		return 0, err
	}

	paid, capped, shares, err := rd.Withdraw(asset, amount, client, recipient)
	if err != nil {
		return 0, err
	}

	ev := &event.WithdrawalRecorded{
		EventID:        uuid.New(),
		Asset:          asset,
		Client:         client,
		Recipient:      recipient,
		Requested:      amount,
		Capped:         capped,
		Paid:           paid,
		SharesRedeemed: shares,
	}
	batch := r.newBatch(ev.EventID, ledger.JournalTypeWithdrawal, journalEntry{
		debit:  ledger.NewExternalAccountKey(ledger.SubTypeExternalWithdrawals, assetID(asset)),
		credit: ledger.NewClientAccountKey(recipient, assetID(asset)),
		amount: capped,
	})
	return paid, r.emit(ev, batch)
}

// WithdrawFrom moves amount out of client's pool entitlement to recipient.
// Withdrawer role required; the surplus extractor rides this path. The
// client's entitlement is re-read at call time and the request fails when it
// is exceeded, so this can never dip into another client's value.
func (r *Router) WithdrawFrom(withdrawer uuid.UUID, asset string, client uuid.UUID, amount int64, recipient uuid.UUID) (int64, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.exit()

	if !r.withdrawers[withdrawer] {
		return 0, fmt.Errorf("withdraw from: %s is not an authorized withdrawer: %w", withdrawer, ledger.ErrUnauthorized)
	}
	if client == uuid.Nil || recipient == uuid.Nil {
		return 0, fmt.Errorf("withdraw from: nil identity: %w", ledger.ErrInvalidArgument)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("withdraw from: non-positive amount %d: %w", amount, ledger.ErrInvalidArgument)
	}
	rd, err := r.redeemer(asset)
	if err != nil {
		return 0, err
	}

	entitlement, err := rd.TotalBalanceOf(asset, client)
	if err != nil {
		return 0, err
	}
	if amount > entitlement {
		return 0, fmt.Errorf("withdraw from: amount %d exceeds entitlement %d: %w",
			amount, entitlement, ledger.ErrInsufficientBalance)
	}

	paid, err := rd.RedeemForWithdraw(asset, client, amount, recipient)
	if err != nil {
		return 0, err
	}

	ev := &event.WithdrawerWithdrawal{
		EventID:    uuid.New(),
		Asset:      asset,
		Withdrawer: withdrawer,
		Client:     client,
		Recipient:  recipient,
		Amount:     paid,
	}
	batch := r.newBatch(ev.EventID, ledger.JournalTypeWithdrawerWithdrawal, journalEntry{
		debit:  ledger.NewExternalAccountKey(ledger.SubTypeExternalWithdrawals, assetID(asset)),
		credit: ledger.NewPoolAccountKey(ledger.SubTypePoolYield, assetID(asset)),
		amount: paid,
	})
	return paid, r.emit(ev, batch)
}

// ============================================================================
// Emergency Withdrawal
// ============================================================================

// EmergencyWithdraw redeems up to amount of pool value directly to the
// owner, bypassing per-client bookkeeping. Owner-only. Logged with a fixed
// event shape regardless of redeemer.
func (r *Router) EmergencyWithdraw(caller uuid.UUID, asset string, amount int64) (int64, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.exit()

	if caller != r.owner {
		return 0, fmt.Errorf("emergency withdraw: caller %s is not owner: %w", caller, ledger.ErrUnauthorized)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("emergency withdraw: non-positive amount %d: %w", amount, ledger.ErrInvalidArgument)
	}
	rd, err := r.redeemer(asset)
	if err != nil {
		return 0, err
	}

	redeemed, err := rd.RedeemForEmergency(amount)
	if err != nil {
		return 0, err
	}

	ev := &event.EmergencyWithdrawal{
		EventID:   uuid.New(),
		Asset:     asset,
		Requested: amount,
		Redeemed:  redeemed,
	}
	var batch *ledger.Batch
	if redeemed > 0 {
		batch = r.newBatch(ev.EventID, ledger.JournalTypeEmergencyWithdrawal, journalEntry{
			debit:  ledger.NewOwnerAccountKey(r.owner, assetID(asset)),
			credit: ledger.NewPoolAccountKey(ledger.SubTypePoolValue, assetID(asset)),
			amount: redeemed,
		})
	}
	return redeemed, r.emit(ev, batch)
}

// ============================================================================
// Two-Phase Total Withdrawal
// ============================================================================

// TotalWithdrawal drives the time-locked liquidation of client's whole
// position. Owner-only. The cycle's phase is re-derived from the clock on
// every call:
//
//   - None or Expired: Phase 1. The client's entitlement is read, cached,
//     and a fresh cycle opens. An expired cycle never blocks re-initiation.
//   - Initiated: the notice window has not elapsed; fails with
//     StillWaitingError carrying the unlock timestamp.
//   - Executable: Phase 2. The record is cleared before the external
//     redemption so a reentrant callee cannot re-trigger the transition,
//     then the position is liquidated to the owner.
func (r *Router) TotalWithdrawal(caller uuid.UUID, asset string, client uuid.UUID) (*Outcome, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.exit()

	if caller != r.owner {
		return nil, fmt.Errorf("total withdrawal: caller %s is not owner: %w", caller, ledger.ErrUnauthorized)
	}
	if client == uuid.Nil {
		return nil, fmt.Errorf("total withdrawal: nil client: %w", ledger.ErrInvalidArgument)
	}
	rd, err := r.redeemer(asset)
	if err != nil {
		return nil, err
	}

	now := r.now()
	key := withdrawalKey{asset, client}
	rec := r.withdrawals[key]

	switch DeriveStatus(rec, now) {
	case StatusNone, StatusExpired:
		return r.initiateTotalWithdrawal(rd, key, now)

	case StatusInitiated:
		return nil, &StillWaitingError{ExecutableAt: rec.ExecutableAt()}

	case StatusExecutable:
		return r.executeTotalWithdrawal(rd, key, rec)
	}

	return nil, fmt.Errorf("total withdrawal: unreachable status")
}

func (r *Router) initiateTotalWithdrawal(rd Redeemer, key withdrawalKey, now time.Time) (*Outcome, error) {
	entitlement, err := rd.TotalBalanceOf(key.asset, key.client)
	if err != nil {
		return nil, err
	}
	if entitlement == 0 {
		return nil, fmt.Errorf("total withdrawal: no entitlement for %s: %w", key.client, ledger.ErrNoBalance)
	}
	principal, err := rd.PrincipalOf(key.asset, key.client)
	if err != nil {
		return nil, err
	}

	rec := &WithdrawalRecord{
		Asset:           key.asset,
		Client:          key.client,
		InitiatedAt:     now,
		CachedBalance:   entitlement,
		CachedPrincipal: principal,
	}
	r.withdrawals[key] = rec

	r.log.Info().
		Str("asset", key.asset).
		Stringer("client", key.client).
		Int64("cached_balance", entitlement).
		Time("executable_at", rec.ExecutableAt()).
		Msg("total withdrawal initiated")

	ev := &event.TotalWithdrawalInitiated{
		EventID:       uuid.New(),
		Asset:         key.asset,
		Client:        key.client,
		CachedBalance: entitlement,
		ExecutableAt:  rec.ExecutableAt(),
		ExpiresAt:     rec.ExpiresAt(),
	}
	if err := r.emit(ev, nil); err != nil {
		return nil, err
	}

	return &Outcome{
		Initiated:     true,
		CachedBalance: entitlement,
		ExecutableAt:  rec.ExecutableAt(),
		ExpiresAt:     rec.ExpiresAt(),
	}, nil
}

func (r *Router) executeTotalWithdrawal(rd Redeemer, key withdrawalKey, rec *WithdrawalRecord) (*Outcome, error) {
	cached := rec.CachedBalance

	// State before effects: the record is gone before the pool is touched.
	delete(r.withdrawals, key)

	redeemed, cleared, err := rd.RedeemForTotalWithdraw(key.asset, key.client, rec.CachedPrincipal)
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("asset", key.asset).
		Stringer("client", key.client).
		Int64("cached_balance", cached).
		Int64("redeemed", redeemed).
		Msg("total withdrawal executed")

	ev := &event.TotalWithdrawalExecuted{
		EventID:       uuid.New(),
		Asset:         key.asset,
		Client:        key.client,
		CachedBalance: cached,
		Redeemed:      redeemed,
	}

	entries := []journalEntry{{
		debit:  ledger.NewOwnerAccountKey(r.owner, assetID(key.asset)),
		credit: ledger.NewClientAccountKey(key.client, assetID(key.asset)),
		amount: cleared,
	}}
	if yield := redeemed - cleared; yield > 0 {
		entries = append(entries, journalEntry{
			debit:  ledger.NewOwnerAccountKey(r.owner, assetID(key.asset)),
			credit: ledger.NewPoolAccountKey(ledger.SubTypePoolYield, assetID(key.asset)),
			amount: yield,
		})
	}
	batch := r.newBatch(ev.EventID, ledger.JournalTypeTotalWithdrawal, entries...)

	if err := r.emit(ev, batch); err != nil {
		return nil, err
	}

	return &Outcome{
		CachedBalance:    cached,
		Redeemed:         redeemed,
		ClearedPrincipal: cleared,
	}, nil
}

// ============================================================================
// Notifications
// ============================================================================

// Announce emits a notification with no journal batch on behalf of a
// collaborator. The surplus extractor uses this for its own events.
func (r *Router) Announce(ev event.Event) error {
	return r.emit(ev, nil)
}

func (r *Router) emit(ev event.Event, batch *ledger.Batch) error {
	r.seq++
	env := event.Envelope{
		Sequence:  r.seq,
		EventID:   ev.ID(),
		EventType: ev.Type(),
		Asset:     ev.AssetID(),
		Timestamp: r.now(),
	}
	if err := r.sink.Record(env, ev, batch); err != nil {
		return fmt.Errorf("record event %s: %w", env.EventID, err)
	}
	return nil
}

type journalEntry struct {
	debit  ledger.AccountKey
	credit ledger.AccountKey
	amount int64
}

func (r *Router) newBatch(eventID uuid.UUID, jt ledger.JournalType, entries ...journalEntry) *ledger.Batch {
	ts := r.now().UnixMicro()
	batch := &ledger.Batch{
		BatchID:   uuid.New(),
		EventRef:  eventID.String(),
		Sequence:  r.seq + 1,
		Timestamp: ts,
	}
	for _, e := range entries {
		if e.amount <= 0 {
			continue
		}
		batch.Journals = append(batch.Journals, ledger.Journal{
			JournalID:     uuid.New(),
			BatchID:       batch.BatchID,
			EventRef:      batch.EventRef,
			Sequence:      batch.Sequence,
			DebitAccount:  e.debit,
			CreditAccount: e.credit,
			AssetID:       e.amountAsset(),
			Amount:        e.amount,
			JournalType:   jt,
			Timestamp:     ts,
		})
	}
	if len(batch.Journals) == 0 {
		return nil
	}
	return batch
}

func (e journalEntry) amountAsset() ledger.AssetID {
	return e.debit.AssetID
}

func assetID(asset string) ledger.AssetID {
	id, _ := ledger.GetAssetID(asset)
	return id
}

// ============================================================================
// Snapshot / Restore
// ============================================================================

// State is the router's persisted state for snapshots.
type State struct {
	Sequence    int64              `json:"sequence"`
	Clients     []uuid.UUID        `json:"clients"`
	Withdrawers []uuid.UUID        `json:"withdrawers"`
	Withdrawals []WithdrawalRecord `json:"withdrawals"`
}

// Snapshot captures authorization sets, pending withdrawal cycles, and the
// event sequence.
func (r *Router) Snapshot() State {
	st := State{Sequence: r.seq}
	for id := range r.clients {
		st.Clients = append(st.Clients, id)
	}
	for id := range r.withdrawers {
		st.Withdrawers = append(st.Withdrawers, id)
	}
	for _, rec := range r.withdrawals {
		st.Withdrawals = append(st.Withdrawals, *rec)
	}
	return st
}

// Restore replaces the router's state from a snapshot.
func (r *Router) Restore(st State) {
	r.seq = st.Sequence
	r.clients = make(map[uuid.UUID]bool, len(st.Clients))
	for _, id := range st.Clients {
		r.clients[id] = true
	}
	r.withdrawers = make(map[uuid.UUID]bool, len(st.Withdrawers))
	for _, id := range st.Withdrawers {
		r.withdrawers[id] = true
	}
	r.withdrawals = make(map[withdrawalKey]*WithdrawalRecord, len(st.Withdrawals))
	for i := range st.Withdrawals {
		rec := st.Withdrawals[i]
		r.withdrawals[withdrawalKey{rec.Asset, rec.Client}] = &rec
	}
}
