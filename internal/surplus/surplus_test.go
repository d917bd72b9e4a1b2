package surplus

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Behodler/yield-strategy-router/internal/adapter"
	"github.com/Behodler/yield-strategy-router/internal/ledger"
	"github.com/Behodler/yield-strategy-router/internal/router"
	"github.com/Behodler/yield-strategy-router/internal/vault"
)

// ============================================================================
// Test Fixture
// ============================================================================

type surplusFixture struct {
	t         *testing.T
	token     *vault.SimToken
	pool      *vault.SimPool
	router    *router.Router
	adapter   *adapter.VaultAdapter
	extractor *Extractor
	owner     uuid.UUID
	client    uuid.UUID
}

func newSurplusFixture(t *testing.T) *surplusFixture {
	t.Helper()

	token := vault.NewSimToken("DAI")
	pool := vault.NewSimPool(token)
	book := ledger.NewPrincipalBook()
	owner := uuid.New()
	client := uuid.New()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r, err := router.New(owner, nil, func() time.Time { return now }, zerolog.Nop())
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	a, err := adapter.New(owner, "DAI", token, pool, nil, book, zerolog.Nop())
	if err != nil {
		t.Fatalf("adapter.New: %v", err)
	}
	if err := r.RegisterRedeemer(a); err != nil {
		t.Fatalf("RegisterRedeemer: %v", err)
	}
	if err := r.SetClient(owner, client, true); err != nil {
		t.Fatalf("SetClient: %v", err)
	}

	e, err := New(owner, r, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.SetWithdrawer(owner, e.Identity(), true); err != nil {
		t.Fatalf("SetWithdrawer: %v", err)
	}

	return &surplusFixture{
		t:         t,
		token:     token,
		pool:      pool,
		router:    r,
		adapter:   a,
		extractor: e,
		owner:     owner,
		client:    client,
	}
}

func (f *surplusFixture) fundAndDeposit(amount int64) {
	f.t.Helper()
	if err := f.token.Mint(f.client, amount); err != nil {
		f.t.Fatalf("mint: %v", err)
	}
	if _, err := f.router.Deposit(f.client, "DAI", amount, f.client); err != nil {
		f.t.Fatalf("Deposit: %v", err)
	}
}

func (f *surplusFixture) configure() {
	f.t.Helper()
	err := f.extractor.Configure(f.owner, Config{
		Token:   "DAI",
		Pool:    f.pool.ID(),
		Adapter: f.adapter.ID(),
		Client:  f.client,
	})
	if err != nil {
		f.t.Fatalf("Configure: %v", err)
	}
}

func (f *surplusFixture) accrueYield(amount int64) {
	f.t.Helper()
	if err := f.pool.AccrueYield(amount); err != nil {
		f.t.Fatalf("AccrueYield: %v", err)
	}
}

func (f *surplusFixture) principalOf(account uuid.UUID) int64 {
	f.t.Helper()
	p, err := f.router.PrincipalOf("DAI", account)
	if err != nil {
		f.t.Fatalf("PrincipalOf: %v", err)
	}
	return p
}

// ============================================================================
// Calculator
// ============================================================================

func TestCalculateRejectsNilIdentity(t *testing.T) {
	f := newSurplusFixture(t)

	_, err := Calculate(f.router, uuid.Nil, "DAI", f.client, 0)
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("nil pool: err = %v, want ErrInvalidArgument", err)
	}
	_, err = Calculate(f.router, f.pool.ID(), "DAI", uuid.Nil, 0)
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("nil account: err = %v, want ErrInvalidArgument", err)
	}
}

func TestCalculateReturnsYield(t *testing.T) {
	f := newSurplusFixture(t)
	f.fundAndDeposit(1_000)
	f.accrueYield(100)

	got, err := Calculate(f.router, f.pool.ID(), "DAI", f.client, 1_000)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got != 100 {
		t.Errorf("surplus = %d, want 100", got)
	}
}

func TestCalculateClampsAdversarialBalance(t *testing.T) {
	f := newSurplusFixture(t)
	f.fundAndDeposit(1_000)
	f.accrueYield(100)

	// An internalBalance exceeding the real balance must clamp to zero,
	// never underflow.
	got, err := Calculate(f.router, f.pool.ID(), "DAI", f.client, 1_000_000)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got != 0 {
		t.Errorf("surplus = %d, want 0", got)
	}
}

// ============================================================================
// Configure
// ============================================================================

func TestConfigureOwnerOnly(t *testing.T) {
	f := newSurplusFixture(t)

	err := f.extractor.Configure(uuid.New(), Config{
		Token: "DAI", Pool: f.pool.ID(), Adapter: f.adapter.ID(), Client: f.client,
	})
	if !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestConfigureRejectsIncomplete(t *testing.T) {
	f := newSurplusFixture(t)

	err := f.extractor.Configure(f.owner, Config{
		Token: "DAI", Pool: f.pool.ID(), Adapter: f.adapter.ID(), // Client unset
	})
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestConfigureOverwritesWholesale(t *testing.T) {
	f := newSurplusFixture(t)
	f.configure()

	other := uuid.New()
	err := f.extractor.Configure(f.owner, Config{
		Token: "DAI", Pool: f.pool.ID(), Adapter: f.adapter.ID(), Client: other,
	})
	if err != nil {
		t.Fatalf("second Configure: %v", err)
	}
	if got := f.extractor.Config().Client; got != other {
		t.Errorf("config client = %s, want %s", got, other)
	}
}

// ============================================================================
// WithdrawSurplusPercent
// ============================================================================

func TestWithdrawSurplusValidation(t *testing.T) {
	f := newSurplusFixture(t)
	recipient := uuid.New()

	if _, err := f.extractor.WithdrawSurplusPercent(uuid.New(), 50, recipient); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("stranger: err = %v, want ErrUnauthorized", err)
	}
	if _, err := f.extractor.WithdrawSurplusPercent(f.owner, 0, recipient); !errors.Is(err, ErrBadPercentage) {
		t.Errorf("0%%: err = %v, want ErrBadPercentage", err)
	}
	if _, err := f.extractor.WithdrawSurplusPercent(f.owner, 101, recipient); !errors.Is(err, ErrBadPercentage) {
		t.Errorf("101%%: err = %v, want ErrBadPercentage", err)
	}
	if _, err := f.extractor.WithdrawSurplusPercent(f.owner, 50, recipient); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured: err = %v, want ErrNotConfigured", err)
	}
}

func TestWithdrawSurplusNoSurplus(t *testing.T) {
	f := newSurplusFixture(t)
	f.fundAndDeposit(1_000)
	f.configure()

	_, err := f.extractor.WithdrawSurplusPercent(f.owner, 100, uuid.New())
	if !errors.Is(err, ErrNoSurplus) {
		t.Errorf("err = %v, want ErrNoSurplus", err)
	}
}

func TestWithdrawSurplusScenario(t *testing.T) {
	f := newSurplusFixture(t)
	recipient := uuid.New()

	// Deposit 1000, simulate 100 of yield: total balance 1100, principal
	// exactly 1000, surplus 100.
	f.fundAndDeposit(1_000)
	f.accrueYield(100)
	f.configure()

	total, err := f.router.TotalBalanceOf("DAI", f.client)
	if err != nil {
		t.Fatalf("TotalBalanceOf: %v", err)
	}
	if total != 1_100 {
		t.Errorf("total balance = %d, want 1100", total)
	}
	if got := f.principalOf(f.client); got != 1_000 {
		t.Errorf("principal = %d, want 1000", got)
	}

	paid, err := f.extractor.WithdrawSurplusPercent(f.owner, 100, recipient)
	if err != nil {
		t.Fatalf("WithdrawSurplusPercent: %v", err)
	}
	if paid != 100 {
		t.Errorf("paid = %d, want 100", paid)
	}

	bal, _ := f.token.BalanceOf(recipient)
	if bal != 100 {
		t.Errorf("recipient token balance = %d, want 100", bal)
	}
}

func TestWithdrawSurplusPartialPercent(t *testing.T) {
	f := newSurplusFixture(t)
	recipient := uuid.New()
	f.fundAndDeposit(1_000)
	f.accrueYield(200)
	f.configure()

	paid, err := f.extractor.WithdrawSurplusPercent(f.owner, 25, recipient)
	if err != nil {
		t.Fatalf("WithdrawSurplusPercent: %v", err)
	}
	if paid != 50 {
		t.Errorf("paid = %d, want 50 (25%% of 200)", paid)
	}
}

func TestWithdrawSurplusPreservesPrincipal(t *testing.T) {
	f := newSurplusFixture(t)
	f.fundAndDeposit(1_000)
	f.accrueYield(300)
	f.configure()

	before := f.principalOf(f.client)
	if _, err := f.extractor.WithdrawSurplusPercent(f.owner, 100, uuid.New()); err != nil {
		t.Fatalf("WithdrawSurplusPercent: %v", err)
	}
	after := f.principalOf(f.client)

	if before != after {
		t.Errorf("principal moved: before=%d after=%d", before, after)
	}

	// Principal remains fully withdrawable afterwards.
	paid, err := f.router.Withdraw(f.client, "DAI", 1_000, f.client)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if paid < 999 {
		t.Errorf("paid = %d, want ~1000", paid)
	}
}

// ============================================================================
// End-to-End Scenario
// ============================================================================

func TestFullLifecycle(t *testing.T) {
	f := newSurplusFixture(t)
	recipient := uuid.New()

	f.fundAndDeposit(1_000)
	f.accrueYield(100)
	f.configure()

	// Withdraw all principal first: received <= 1000, principal zeroed.
	paid, err := f.router.Withdraw(f.client, "DAI", 1_000, f.client)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if paid > 1_000 {
		t.Errorf("paid = %d, must never exceed 1000", paid)
	}
	if got := f.principalOf(f.client); got != 0 {
		t.Errorf("principal = %d, want 0", got)
	}

	// The ~100 of yield is still in the pool. With all principal gone the
	// residual pool value is pure surplus and stays extractable.
	got, err := f.extractor.WithdrawSurplusPercent(f.owner, 100, recipient)
	if err != nil {
		t.Fatalf("WithdrawSurplusPercent: %v", err)
	}
	if got < 95 || got > 105 {
		t.Errorf("residual surplus = %d, want ~100", got)
	}

	// Protocol never overpays: everything that left sums to at most what
	// the pool ever held.
	recvd, _ := f.token.BalanceOf(recipient)
	clientBal, _ := f.token.BalanceOf(f.client)
	if clientBal+recvd > 1_100 {
		t.Errorf("total out = %d, must not exceed 1100", clientBal+recvd)
	}
}
