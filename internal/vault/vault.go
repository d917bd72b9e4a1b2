package vault

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInsufficientShares is returned when a redemption or unstake asks for
// more shares than the holder actually has.
var ErrInsufficientShares = errors.New("insufficient shares")

// ErrInsufficientFunds is returned by token transfers exceeding the sender's balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Pool is the external interest-bearing pool that custodies deposited assets
// and reports a growing-or-flat exchange rate. The adapter never computes the
// rate itself; all asset/share conversion goes through the pool.
type Pool interface {
	// DepositAssets moves amount of the underlying asset from the caller into
	// the pool and returns the shares minted at the current exchange rate.
	DepositAssets(holder uuid.UUID, amount int64) (shares int64, err error)

	// RedeemShares burns shares held by the caller and returns the underlying
	// asset amount at the current exchange rate.
	RedeemShares(holder uuid.UUID, shares int64) (assets int64, err error)

	// AssetsToShares converts an asset amount to shares at the current rate.
	AssetsToShares(amount int64) (int64, error)

	// SharesToAssets converts shares to an asset amount at the current rate.
	SharesToAssets(shares int64) (int64, error)

	// ShareBalanceOf returns the unstaked shares held by holder.
	ShareBalanceOf(holder uuid.UUID) (int64, error)
}

// Staking is the secondary rewards facility that pool shares are parked in
// while not needed for a redemption.
type Staking interface {
	Stake(holder uuid.UUID, shares int64) error

	// Unstake returns shares to the holder's unstaked pool balance. When
	// claimRewards is set, accrued reward tokens are paid out alongside.
	Unstake(holder uuid.UUID, shares int64, claimRewards bool) error

	StakedBalanceOf(holder uuid.UUID) (int64, error)

	ClaimableRewards(holder uuid.UUID) (int64, error)
}

// Token is the fungible-asset transfer primitive for the underlying asset
// and any secondary reward token.
type Token interface {
	Transfer(from, to uuid.UUID, amount int64) error
	BalanceOf(holder uuid.UUID) (int64, error)
	Mint(to uuid.UUID, amount int64) error
}
