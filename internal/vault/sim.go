package vault

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Behodler/yield-strategy-router/internal/mathutil"
)

// SimToken is an in-memory Token. It backs the simulated pool and the test
// suites; production deployments replace it with a bridge to the real asset.
type SimToken struct {
	mu       sync.Mutex
	symbol   string
	balances map[uuid.UUID]int64
}

func NewSimToken(symbol string) *SimToken {
	return &SimToken{
		symbol:   symbol,
		balances: make(map[uuid.UUID]int64),
	}
}

func (t *SimToken) Symbol() string { return t.symbol }

func (t *SimToken) Transfer(from, to uuid.UUID, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount < 0 {
		return fmt.Errorf("transfer %s: negative amount %d", t.symbol, amount)
	}
	if t.balances[from] < amount {
		return fmt.Errorf("transfer %s from %s: %w (have=%d, need=%d)",
			t.symbol, from, ErrInsufficientFunds, t.balances[from], amount)
	}

	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

func (t *SimToken) BalanceOf(holder uuid.UUID) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[holder], nil
}

func (t *SimToken) Mint(to uuid.UUID, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount < 0 {
		return fmt.Errorf("mint %s: negative amount %d", t.symbol, amount)
	}
	t.balances[to] += amount
	return nil
}

// SimPool is an in-memory interest-bearing pool. The exchange rate is
// totalAssets / totalShares; AccrueYield raises it by adding assets without
// minting shares, exactly how a lending pool's receipt token appreciates.
type SimPool struct {
	mu sync.Mutex

	id    uuid.UUID
	token *SimToken

	totalAssets int64
	totalShares int64
	shares      map[uuid.UUID]int64
}

func NewSimPool(token *SimToken) *SimPool {
	return &SimPool{
		id:     uuid.New(),
		token:  token,
		shares: make(map[uuid.UUID]int64),
	}
}

// ID returns the pool's identity for token custody.
func (p *SimPool) ID() uuid.UUID { return p.id }

func (p *SimPool) DepositAssets(holder uuid.UUID, amount int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount <= 0 {
		return 0, fmt.Errorf("pool deposit: non-positive amount %d", amount)
	}

	shares := amount // First deposit mints 1:1
	if p.totalShares > 0 {
		shares = mathutil.MulDiv(amount, p.totalShares, p.totalAssets)
	}
	if shares == 0 {
		return 0, fmt.Errorf("pool deposit: amount %d too small at current rate", amount)
	}

	if err := p.token.Transfer(holder, p.id, amount); err != nil {
		return 0, err
	}

	p.totalAssets += amount
	p.totalShares += shares
	p.shares[holder] += shares
	return shares, nil
}

func (p *SimPool) RedeemShares(holder uuid.UUID, shares int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if shares <= 0 {
		return 0, fmt.Errorf("pool redeem: non-positive shares %d", shares)
	}
	if p.shares[holder] < shares {
		return 0, fmt.Errorf("pool redeem for %s: %w (have=%d, need=%d)",
			holder, ErrInsufficientShares, p.shares[holder], shares)
	}

	assets := mathutil.MulDiv(shares, p.totalAssets, p.totalShares)

	p.shares[holder] -= shares
	p.totalShares -= shares
	p.totalAssets -= assets

	if err := p.token.Transfer(p.id, holder, assets); err != nil {
		return 0, err
	}
	return assets, nil
}

func (p *SimPool) AssetsToShares(amount int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalShares == 0 || p.totalAssets == 0 {
		return amount, nil
	}
	return mathutil.MulDiv(amount, p.totalShares, p.totalAssets), nil
}

func (p *SimPool) SharesToAssets(shares int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalShares == 0 {
		return shares, nil
	}
	return mathutil.MulDiv(shares, p.totalAssets, p.totalShares), nil
}

func (p *SimPool) ShareBalanceOf(holder uuid.UUID) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shares[holder], nil
}

// AccrueYield mints amount of the underlying asset into the pool without
// minting shares, raising the exchange rate for every share holder.
func (p *SimPool) AccrueYield(amount int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalShares == 0 {
		return fmt.Errorf("pool accrue: no shares outstanding")
	}
	if err := p.token.Mint(p.id, amount); err != nil {
		return err
	}
	p.totalAssets += amount
	return nil
}

// moveShares transfers share custody between a holder and the staking
// facility without touching the exchange rate.
func (p *SimPool) moveShares(from, to uuid.UUID, shares int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shares[from] < shares {
		return fmt.Errorf("move shares from %s: %w (have=%d, need=%d)",
			from, ErrInsufficientShares, p.shares[from], shares)
	}
	p.shares[from] -= shares
	p.shares[to] += shares
	return nil
}

// SimStaking is an in-memory rewards facility. Staked shares are parked on a
// facility-owned pool account; rewards are accrued explicitly by tests.
type SimStaking struct {
	mu sync.Mutex

	id          uuid.UUID
	pool        *SimPool
	rewardToken *SimToken

	staked    map[uuid.UUID]int64
	claimable map[uuid.UUID]int64
}

func NewSimStaking(pool *SimPool, rewardToken *SimToken) *SimStaking {
	return &SimStaking{
		id:          uuid.New(),
		pool:        pool,
		rewardToken: rewardToken,
		staked:      make(map[uuid.UUID]int64),
		claimable:   make(map[uuid.UUID]int64),
	}
}

func (s *SimStaking) Stake(holder uuid.UUID, shares int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shares <= 0 {
		return fmt.Errorf("stake: non-positive shares %d", shares)
	}
	if err := s.pool.moveShares(holder, s.id, shares); err != nil {
		return err
	}
	s.staked[holder] += shares
	return nil
}

func (s *SimStaking) Unstake(holder uuid.UUID, shares int64, claimRewards bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shares <= 0 {
		return fmt.Errorf("unstake: non-positive shares %d", shares)
	}
	if s.staked[holder] < shares {
		return fmt.Errorf("unstake for %s: %w (have=%d, need=%d)",
			holder, ErrInsufficientShares, s.staked[holder], shares)
	}
	if err := s.pool.moveShares(s.id, holder, shares); err != nil {
		return err
	}
	s.staked[holder] -= shares

	if claimRewards && s.claimable[holder] > 0 {
		if err := s.rewardToken.Mint(holder, s.claimable[holder]); err != nil {
			return err
		}
		s.claimable[holder] = 0
	}
	return nil
}

func (s *SimStaking) StakedBalanceOf(holder uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staked[holder], nil
}

func (s *SimStaking) ClaimableRewards(holder uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimable[holder], nil
}

// AccrueRewards credits claimable reward tokens to a staker.
func (s *SimStaking) AccrueRewards(holder uuid.UUID, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimable[holder] += amount
}
