package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// principalKey identifies one client's principal ledger slot for one asset.
// Disjoint slots per (asset, client) pair keep cross-client isolation
// structural rather than lock-based.
type principalKey struct {
	AssetID AssetID
	Client  uuid.UUID
}

// PrincipalBook tracks what each client is owed as principal, per asset,
// alongside the per-asset total. Principal moves only through deposits and
// principal withdrawals, never through yield.
type PrincipalBook struct {
	principal      map[principalKey]int64
	totalDeposited map[AssetID]int64
}

func NewPrincipalBook() *PrincipalBook {
	return &PrincipalBook{
		principal:      make(map[principalKey]int64),
		totalDeposited: make(map[AssetID]int64),
	}
}

// PrincipalOf returns the recorded principal for a client.
func (b *PrincipalBook) PrincipalOf(assetID AssetID, client uuid.UUID) int64 {
	return b.principal[principalKey{assetID, client}]
}

// TotalDeposited returns the sum of all clients' principal for an asset.
func (b *PrincipalBook) TotalDeposited(assetID AssetID) int64 {
	return b.totalDeposited[assetID]
}

// Credit increases a client's principal and the asset total by amount.
func (b *PrincipalBook) Credit(assetID AssetID, client uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("principal credit: non-positive amount %d", amount)
	}
	b.principal[principalKey{assetID, client}] += amount
	b.totalDeposited[assetID] += amount
	return nil
}

// Debit decreases a client's principal and the asset total by amount.
// Callers cap amount at the client's principal before calling; a debit past
// zero is a bookkeeping bug, not a user error.
func (b *PrincipalBook) Debit(assetID AssetID, client uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("principal debit: non-positive amount %d", amount)
	}

	key := principalKey{assetID, client}
	if b.principal[key] < amount {
		return fmt.Errorf("principal debit for %s: have=%d, need=%d",
			client, b.principal[key], amount)
	}

	b.principal[key] -= amount
	b.totalDeposited[assetID] -= amount
	if b.principal[key] == 0 {
		delete(b.principal, key)
	}
	return nil
}

// SumPrincipal recomputes the asset total from individual slots.
func (b *PrincipalBook) SumPrincipal(assetID AssetID) int64 {
	var sum int64
	for key, amount := range b.principal {
		if key.AssetID == assetID {
			sum += amount
		}
	}
	return sum
}

// Entry is one (asset, client, principal) row of the book.
type Entry struct {
	Asset     string    `json:"asset"`
	Client    uuid.UUID `json:"client"`
	Principal int64     `json:"principal"`
}

// Snapshot returns a copy of all non-zero principal slots.
func (b *PrincipalBook) Snapshot() []Entry {
	entries := make([]Entry, 0, len(b.principal))
	for key, amount := range b.principal {
		asset, _ := GetAssetName(key.AssetID)
		entries = append(entries, Entry{
			Asset:     asset,
			Client:    key.Client,
			Principal: amount,
		})
	}
	return entries
}

// Restore replaces the book's contents with the given entries.
func (b *PrincipalBook) Restore(entries []Entry) error {
	b.principal = make(map[principalKey]int64, len(entries))
	b.totalDeposited = make(map[AssetID]int64)

	for _, e := range entries {
		assetID, ok := GetAssetID(e.Asset)
		if !ok {
			return fmt.Errorf("restore: unknown asset %q", e.Asset)
		}
		if e.Principal <= 0 {
			return fmt.Errorf("restore: non-positive principal %d for %s", e.Principal, e.Client)
		}
		b.principal[principalKey{assetID, e.Client}] = e.Principal
		b.totalDeposited[assetID] += e.Principal
	}
	return nil
}
