package ledger

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

// ============================================================================
// Asset Registry
// ============================================================================

func TestAssetRegistryRoundTrip(t *testing.T) {
	for _, symbol := range []string{"DAI", "EYE", "SCX", "WETH"} {
		id, ok := GetAssetID(symbol)
		if !ok {
			t.Fatalf("GetAssetID(%s): not found", symbol)
		}
		name, ok := GetAssetName(id)
		if !ok || name != symbol {
			t.Errorf("GetAssetName(%d) = %q, want %q", id, name, symbol)
		}
	}

	if _, ok := GetAssetID("SHIB"); ok {
		t.Error("GetAssetID(SHIB): expected not found")
	}
}

// ============================================================================
// Account Paths
// ============================================================================

func TestAccountPaths(t *testing.T) {
	client := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	daiID, _ := GetAssetID("DAI")

	tests := []struct {
		name string
		key  AccountKey
		want string
	}{
		{
			"client principal",
			NewClientAccountKey(client, daiID),
			"client:11111111-2222-3333-4444-555555555555:principal:DAI",
		},
		{
			"pool value",
			NewPoolAccountKey(SubTypePoolValue, daiID),
			"pool:value:DAI",
		},
		{
			"pool yield",
			NewPoolAccountKey(SubTypePoolYield, daiID),
			"pool:yield:DAI",
		},
		{
			"owner payout",
			NewOwnerAccountKey(client, daiID),
			"owner:11111111-2222-3333-4444-555555555555:payout:DAI",
		},
		{
			"external deposits",
			NewExternalAccountKey(SubTypeExternalDeposits, daiID),
			"external:deposits:DAI",
		},
		{
			"external withdrawals",
			NewExternalAccountKey(SubTypeExternalWithdrawals, daiID),
			"external:withdrawals:DAI",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.AccountPath(); got != tt.want {
				t.Errorf("AccountPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================================
// Principal Book
// ============================================================================

func TestBookCreditDebit(t *testing.T) {
	book := NewPrincipalBook()
	client := uuid.New()
	daiID, _ := GetAssetID("DAI")

	if err := book.Credit(daiID, client, 1000); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if got := book.PrincipalOf(daiID, client); got != 1000 {
		t.Errorf("PrincipalOf = %d, want 1000", got)
	}
	if got := book.TotalDeposited(daiID); got != 1000 {
		t.Errorf("TotalDeposited = %d, want 1000", got)
	}

	if err := book.Debit(daiID, client, 400); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if got := book.PrincipalOf(daiID, client); got != 600 {
		t.Errorf("PrincipalOf after debit = %d, want 600", got)
	}
	if got := book.TotalDeposited(daiID); got != 600 {
		t.Errorf("TotalDeposited after debit = %d, want 600", got)
	}
}

func TestBookRejectsNonPositiveAmounts(t *testing.T) {
	book := NewPrincipalBook()
	client := uuid.New()
	daiID, _ := GetAssetID("DAI")

	if err := book.Credit(daiID, client, 0); err == nil {
		t.Error("Credit(0): expected error")
	}
	if err := book.Credit(daiID, client, -5); err == nil {
		t.Error("Credit(-5): expected error")
	}
	if err := book.Debit(daiID, client, 0); err == nil {
		t.Error("Debit(0): expected error")
	}
}

func TestBookDebitPastZeroFails(t *testing.T) {
	book := NewPrincipalBook()
	client := uuid.New()
	daiID, _ := GetAssetID("DAI")

	if err := book.Credit(daiID, client, 100); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := book.Debit(daiID, client, 101); err == nil {
		t.Fatal("Debit past balance: expected error")
	}
	// Failed debits must not touch the book.
	if got := book.PrincipalOf(daiID, client); got != 100 {
		t.Errorf("PrincipalOf after failed debit = %d, want 100", got)
	}
	if got := book.TotalDeposited(daiID); got != 100 {
		t.Errorf("TotalDeposited after failed debit = %d, want 100", got)
	}
}

func TestBookDebitIsolation(t *testing.T) {
	book := NewPrincipalBook()
	alice := uuid.New()
	bob := uuid.New()
	daiID, _ := GetAssetID("DAI")

	book.Credit(daiID, alice, 3000)
	book.Credit(daiID, bob, 1000)

	if err := book.Debit(daiID, alice, 3000); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if got := book.PrincipalOf(daiID, alice); got != 0 {
		t.Errorf("PrincipalOf after full debit = %d, want 0", got)
	}
	if got := book.PrincipalOf(daiID, bob); got != 1000 {
		t.Errorf("bob's principal disturbed by alice's debit: %d, want 1000", got)
	}
	if got := book.TotalDeposited(daiID); got != 1000 {
		t.Errorf("TotalDeposited = %d, want 1000", got)
	}
}

func TestBookAssetIsolation(t *testing.T) {
	book := NewPrincipalBook()
	client := uuid.New()
	daiID, _ := GetAssetID("DAI")
	wethID, _ := GetAssetID("WETH")

	book.Credit(daiID, client, 500)
	book.Credit(wethID, client, 7)

	if got := book.PrincipalOf(daiID, client); got != 500 {
		t.Errorf("DAI principal = %d, want 500", got)
	}
	if got := book.PrincipalOf(wethID, client); got != 7 {
		t.Errorf("WETH principal = %d, want 7", got)
	}
	if err := book.Debit(wethID, client, 500); err == nil {
		t.Error("debit of one asset against another's balance: expected error")
	}
}

func TestBookSnapshotRestore(t *testing.T) {
	book := NewPrincipalBook()
	alice := uuid.New()
	bob := uuid.New()
	daiID, _ := GetAssetID("DAI")
	wethID, _ := GetAssetID("WETH")

	book.Credit(daiID, alice, 3000)
	book.Credit(daiID, bob, 1000)
	book.Credit(wethID, alice, 5)

	entries := book.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("Snapshot: %d entries, want 3", len(entries))
	}

	restored := NewPrincipalBook()
	if err := restored.Restore(entries); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if got := restored.PrincipalOf(daiID, alice); got != 3000 {
		t.Errorf("alice DAI = %d, want 3000", got)
	}
	if got := restored.PrincipalOf(daiID, bob); got != 1000 {
		t.Errorf("bob DAI = %d, want 1000", got)
	}
	if got := restored.PrincipalOf(wethID, alice); got != 5 {
		t.Errorf("alice WETH = %d, want 5", got)
	}
	if got := restored.TotalDeposited(daiID); got != 4000 {
		t.Errorf("TotalDeposited DAI = %d, want 4000", got)
	}
}

func TestBookRestoreRejectsBadEntries(t *testing.T) {
	book := NewPrincipalBook()

	err := book.Restore([]Entry{{Asset: "SHIB", Client: uuid.New(), Principal: 10}})
	if err == nil || !strings.Contains(err.Error(), "unknown asset") {
		t.Errorf("Restore unknown asset: got %v", err)
	}

	err = book.Restore([]Entry{{Asset: "DAI", Client: uuid.New(), Principal: 0}})
	if err == nil {
		t.Error("Restore zero principal: expected error")
	}
}

// ============================================================================
// Journal Batches
// ============================================================================

func testBatch(t *testing.T) *Batch {
	t.Helper()

	daiID, _ := GetAssetID("DAI")
	batchID := uuid.New()
	client := uuid.New()

	return &Batch{
		BatchID:  batchID,
		EventRef: uuid.New().String(),
		Sequence: 1,
		Journals: []Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			Sequence:      1,
			DebitAccount:  NewClientAccountKey(client, daiID),
			CreditAccount: NewExternalAccountKey(SubTypeExternalDeposits, daiID),
			AssetID:       daiID,
			Amount:        1000,
			JournalType:   JournalTypeDeposit,
		}},
	}
}

func TestBatchValidate(t *testing.T) {
	if err := testBatch(t).Validate(); err != nil {
		t.Errorf("valid batch rejected: %v", err)
	}

	empty := &Batch{BatchID: uuid.New()}
	if err := empty.Validate(); err == nil {
		t.Error("empty batch: expected error")
	}

	b := testBatch(t)
	b.Journals[0].Amount = 0
	if err := b.Validate(); err == nil {
		t.Error("zero amount: expected error")
	}

	b = testBatch(t)
	b.Journals[0].BatchID = uuid.New()
	if err := b.Validate(); err == nil {
		t.Error("mismatched batch id: expected error")
	}

	b = testBatch(t)
	b.Journals[0].CreditAccount = b.Journals[0].DebitAccount
	if err := b.Validate(); err == nil {
		t.Error("self-transfer: expected error")
	}
}

// ============================================================================
// Invariant Validator
// ============================================================================

func TestValidateTotalDeposited(t *testing.T) {
	book := NewPrincipalBook()
	daiID, _ := GetAssetID("DAI")
	v := NewInvariantValidator(book)

	book.Credit(daiID, uuid.New(), 100)
	book.Credit(daiID, uuid.New(), 200)

	if err := v.ValidateTotalDeposited(daiID); err != nil {
		t.Errorf("consistent book rejected: %v", err)
	}

	// Corrupt the running total directly.
	book.totalDeposited[daiID] = 999
	if err := v.ValidateTotalDeposited(daiID); err == nil {
		t.Error("corrupted total: expected error")
	}
}
