package adapter

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Behodler/yield-strategy-router/internal/ledger"
	"github.com/Behodler/yield-strategy-router/internal/mathutil"
	"github.com/Behodler/yield-strategy-router/internal/vault"
)

// VaultAdapter owns per-client principal bookkeeping for a single asset and
// converts between asset amounts and external-pool shares. It answers three
// distinct balance questions (principal, principal plus proportional yield,
// and the compatibility raw balance) and performs all pool interaction.
//
// The central correctness property: ordinary deposit/withdraw operations only
// ever move principal. Yield stays locked in the pool until it leaves through
// the withdrawer or total-withdrawal paths.
type VaultAdapter struct {
	id      uuid.UUID // Holder identity at the pool, staking facility, and token
	owner   uuid.UUID
	asset   string
	assetID ledger.AssetID

	token   vault.Token
	pool    vault.Pool
	staking vault.Staking // nil when no rewards facility is configured

	book *ledger.PrincipalBook
	log  zerolog.Logger
}

// New creates an adapter scoped to one asset. staking may be nil.
func New(
	owner uuid.UUID,
	asset string,
	token vault.Token,
	pool vault.Pool,
	staking vault.Staking,
	book *ledger.PrincipalBook,
	log zerolog.Logger,
) (*VaultAdapter, error) {
	assetID, ok := ledger.GetAssetID(asset)
	if !ok {
		return nil, fmt.Errorf("adapter: unknown asset %q: %w", asset, ledger.ErrInvalidArgument)
	}
	if owner == uuid.Nil {
		return nil, fmt.Errorf("adapter: nil owner: %w", ledger.ErrInvalidArgument)
	}

	return &VaultAdapter{
		id:      uuid.New(),
		owner:   owner,
		asset:   asset,
		assetID: assetID,
		token:   token,
		pool:    pool,
		staking: staking,
		book:    book,
		log:     log.With().Str("asset", asset).Logger(),
	}, nil
}

// ID returns the adapter's holder identity at the pool and token.
func (a *VaultAdapter) ID() uuid.UUID { return a.id }

// Asset returns the single asset this adapter instance is scoped to.
func (a *VaultAdapter) Asset() string { return a.asset }

func (a *VaultAdapter) checkAsset(asset string) error {
	if asset != a.asset {
		return fmt.Errorf("asset %q does not match adapter asset %q: %w",
			asset, a.asset, ledger.ErrInvalidArgument)
	}
	return nil
}

// totalShares returns the adapter's full share position: unstaked plus staked.
func (a *VaultAdapter) totalShares() (int64, error) {
	held, err := a.pool.ShareBalanceOf(a.id)
	if err != nil {
		return 0, fmt.Errorf("pool share balance: %w", err)
	}
	if a.staking == nil {
		return held, nil
	}
	staked, err := a.staking.StakedBalanceOf(a.id)
	if err != nil {
		return 0, fmt.Errorf("staked share balance: %w", err)
	}
	return held + staked, nil
}

// PrincipalOf returns the amount originally deposited for an account,
// never including yield.
func (a *VaultAdapter) PrincipalOf(asset string, account uuid.UUID) (int64, error) {
	if err := a.checkAsset(asset); err != nil {
		return 0, err
	}
	return a.book.PrincipalOf(a.assetID, account), nil
}

// BalanceOf is retained for older callers and returns exactly PrincipalOf.
func (a *VaultAdapter) BalanceOf(asset string, account uuid.UUID) (int64, error) {
	return a.PrincipalOf(asset, account)
}

// TotalBalanceOf returns principal plus the account's proportional share of
// accrued yield: principal * poolValue / totalDeposited. When the adapter
// holds no shares it falls back to the raw stored principal rather than
// claiming yield that cannot be located. When totalDeposited is zero but
// shares remain, no principal is owed to anyone and the whole residual pool
// value is reported as extractable surplus.
func (a *VaultAdapter) TotalBalanceOf(asset string, account uuid.UUID) (int64, error) {
	if err := a.checkAsset(asset); err != nil {
		return 0, err
	}

	principal := a.book.PrincipalOf(a.assetID, account)
	totalDeposited := a.book.TotalDeposited(a.assetID)

	shares, err := a.totalShares()
	if err != nil {
		return 0, err
	}
	if shares == 0 {
		return principal, nil
	}

	poolValue, err := a.pool.SharesToAssets(shares)
	if err != nil {
		return 0, fmt.Errorf("shares to assets: %w", err)
	}

	if totalDeposited == 0 {
		return poolValue, nil
	}
	if principal == 0 {
		return 0, nil
	}

	return mathutil.MulDiv(principal, poolValue, totalDeposited), nil
}

// Deposit moves amount of the asset from client into the pool, stakes the
// minted shares, and credits the recipient's principal by exactly amount.
func (a *VaultAdapter) Deposit(asset string, amount int64, client, recipient uuid.UUID) (int64, error) {
	if err := a.checkAsset(asset); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("deposit amount must be positive: %w", ledger.ErrInvalidArgument)
	}
	if recipient == uuid.Nil {
		return 0, fmt.Errorf("deposit recipient is nil: %w", ledger.ErrInvalidArgument)
	}

	if err := a.token.Transfer(client, a.id, amount); err != nil {
		return 0, fmt.Errorf("transfer in: %w", err)
	}

	shares, err := a.pool.DepositAssets(a.id, amount)
	if err != nil {
		return 0, fmt.Errorf("pool deposit: %w", err)
	}

	if a.staking != nil && shares > 0 {
		if err := a.staking.Stake(a.id, shares); err != nil {
			return 0, fmt.Errorf("stake shares: %w", err)
		}
	}

	if err := a.book.Credit(a.assetID, recipient, amount); err != nil {
		return 0, err
	}

	a.log.Debug().
		Stringer("recipient", recipient).
		Int64("amount", amount).
		Int64("shares", shares).
		Msg("deposit recorded")

	return shares, nil
}

// Withdraw pays out up to amount of the recipient's principal.
//
// The requested amount is silently capped at the recipient's principal so
// "withdraw everything" stays idiomatic under off-by-one drift. The capped
// amount is converted to shares at the pool's current exchange rate. When
// yield has accrued, fewer shares are redeemed per unit withdrawn than the
// deposit ratio implied, which is what keeps yield locked in the pool.
// Principal is then decremented by the capped request, not by whatever the
// redemption happened to yield.
//
// Returns (paid, capped, sharesRedeemed).
func (a *VaultAdapter) Withdraw(asset string, amount int64, client, recipient uuid.UUID) (int64, int64, int64, error) {
	if err := a.checkAsset(asset); err != nil {
		return 0, 0, 0, err
	}
	if amount <= 0 {
		return 0, 0, 0, fmt.Errorf("withdraw amount must be positive: %w", ledger.ErrInvalidArgument)
	}
	if recipient == uuid.Nil {
		return 0, 0, 0, fmt.Errorf("withdraw recipient is nil: %w", ledger.ErrInvalidArgument)
	}

	principal := a.book.PrincipalOf(a.assetID, recipient)
	if principal == 0 {
		return 0, 0, 0, fmt.Errorf("no principal for %s: %w", recipient, ledger.ErrNoBalance)
	}

	capped := mathutil.Min(amount, principal)

	shares, err := a.pool.AssetsToShares(capped)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("assets to shares: %w", err)
	}

	// Record intent before any external redemption so a reentrant callee
	// observes post-operation state.
	if err := a.book.Debit(a.assetID, recipient, capped); err != nil {
		return 0, 0, 0, err
	}

	paid, redeemed, err := a.redeemAndPay(shares, recipient)
	if err != nil {
		return 0, 0, 0, err
	}

	a.log.Debug().
		Stringer("recipient", recipient).
		Int64("requested", amount).
		Int64("capped", capped).
		Int64("paid", paid).
		Int64("shares", redeemed).
		Msg("withdrawal recorded")

	return paid, capped, redeemed, nil
}

// RedeemForWithdraw is the authorized-withdrawer routine: it pays amount of
// pool value to recipient without touching any principal slot. Surplus
// extraction rides this path.
func (a *VaultAdapter) RedeemForWithdraw(asset string, client uuid.UUID, amount int64, recipient uuid.UUID) (int64, error) {
	if err := a.checkAsset(asset); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("withdrawer amount must be positive: %w", ledger.ErrInvalidArgument)
	}

	shares, err := a.pool.AssetsToShares(amount)
	if err != nil {
		return 0, fmt.Errorf("assets to shares: %w", err)
	}
	if shares == 0 {
		return 0, fmt.Errorf("amount %d converts to zero shares: %w", amount, ledger.ErrNoBalance)
	}

	// The floor conversion can undershoot by one share. This path pays out
	// of yield, never principal, so round up to cover the full amount.
	covered, err := a.pool.SharesToAssets(shares)
	if err != nil {
		return 0, fmt.Errorf("shares to assets: %w", err)
	}
	if covered < amount {
		shares++
	}

	paid, _, err := a.redeemAndPay(shares, recipient)
	if err != nil {
		return 0, err
	}
	return paid, nil
}

// RedeemForEmergency redeems up to amount of pool value and pays the owner
// directly. It deliberately does not touch client principal bookkeeping;
// its only obligation is never to redeem more shares than exist.
func (a *VaultAdapter) RedeemForEmergency(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("emergency amount must be positive: %w", ledger.ErrInvalidArgument)
	}

	available, err := a.totalShares()
	if err != nil {
		return 0, err
	}
	if available == 0 {
		return 0, fmt.Errorf("emergency withdraw: %w", vault.ErrInsufficientShares)
	}

	needed, err := a.pool.AssetsToShares(amount)
	if err != nil {
		return 0, fmt.Errorf("assets to shares: %w", err)
	}
	toRedeem := mathutil.Min(needed, available)

	paid, _, err := a.redeemAndPay(toRedeem, a.owner)
	if err != nil {
		return 0, err
	}

	a.log.Warn().
		Int64("requested", amount).
		Int64("redeemed", paid).
		Msg("emergency withdrawal executed")

	return paid, nil
}

// RedeemForTotalWithdraw liquidates a client's position for Phase 2 of the
// time-locked protocol. The redemption basis is the principal cached at
// initiation, capped at the client's live principal: the basis cut of total
// shares (totalShares * basis / totalDeposited) is redeemed and paid to the
// owner, the client's principal and the asset total are reduced by the
// basis. Principal deposited after initiation stays in the pool untouched.
// Returns (redeemed, clearedPrincipal).
func (a *VaultAdapter) RedeemForTotalWithdraw(asset string, client uuid.UUID, cachedPrincipal int64) (int64, int64, error) {
	if err := a.checkAsset(asset); err != nil {
		return 0, 0, err
	}

	basis := mathutil.Min(cachedPrincipal, a.book.PrincipalOf(a.assetID, client))
	if basis <= 0 {
		return 0, 0, fmt.Errorf("no principal for %s: %w", client, ledger.ErrNoBalance)
	}

	totalDeposited := a.book.TotalDeposited(a.assetID)
	shares, err := a.totalShares()
	if err != nil {
		return 0, 0, err
	}

	cut := mathutil.MulDiv(shares, basis, totalDeposited)

	// State before effects: debit the book before the external redemption.
	if err := a.book.Debit(a.assetID, client, basis); err != nil {
		return 0, 0, err
	}
	cleared := basis

	var paid int64
	if cut > 0 {
		paid, _, err = a.redeemAndPay(cut, a.owner)
		if err != nil {
			return 0, 0, err
		}
	}

	a.log.Info().
		Stringer("client", client).
		Int64("principal", cleared).
		Int64("shares", cut).
		Int64("redeemed", paid).
		Msg("total withdrawal executed")

	return paid, cleared, nil
}

// redeemAndPay unstakes what is missing, redeems shares from the pool, pays
// the recipient, and re-stakes any idle shares left over in the same call.
// Idle unstaked shares have no entitlement protection, so none may remain.
// Returns (paid, sharesRedeemed).
func (a *VaultAdapter) redeemAndPay(shares int64, recipient uuid.UUID) (int64, int64, error) {
	held, err := a.pool.ShareBalanceOf(a.id)
	if err != nil {
		return 0, 0, fmt.Errorf("pool share balance: %w", err)
	}

	if a.staking != nil && held < shares {
		missing := shares - held
		staked, err := a.staking.StakedBalanceOf(a.id)
		if err != nil {
			return 0, 0, fmt.Errorf("staked share balance: %w", err)
		}
		// Unstake all if fewer are staked than required.
		toUnstake := mathutil.Min(missing, staked)
		if toUnstake > 0 {
			if err := a.staking.Unstake(a.id, toUnstake, false); err != nil {
				return 0, 0, fmt.Errorf("unstake: %w", err)
			}
			held += toUnstake
		}
	}

	toRedeem := mathutil.Min(shares, held)
	if toRedeem == 0 {
		return 0, 0, fmt.Errorf("redeem: %w", vault.ErrInsufficientShares)
	}

	assets, err := a.pool.RedeemShares(a.id, toRedeem)
	if err != nil {
		return 0, 0, fmt.Errorf("redeem shares: %w", err)
	}

	if assets > 0 {
		if err := a.token.Transfer(a.id, recipient, assets); err != nil {
			return 0, 0, fmt.Errorf("transfer out: %w", err)
		}
	}

	if err := a.restakeIdle(); err != nil {
		return 0, 0, err
	}

	return assets, toRedeem, nil
}

// restakeIdle returns any unstaked share balance to the rewards facility.
func (a *VaultAdapter) restakeIdle() error {
	if a.staking == nil {
		return nil
	}

	idle, err := a.pool.ShareBalanceOf(a.id)
	if err != nil {
		return fmt.Errorf("pool share balance: %w", err)
	}
	if idle == 0 {
		return nil
	}

	if err := a.staking.Stake(a.id, idle); err != nil {
		return fmt.Errorf("restake idle shares: %w", err)
	}
	return nil
}
