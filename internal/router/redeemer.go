package router

import "github.com/google/uuid"

// Redeemer is the adapter-specific strategy behind the router. The router
// owns authorization and the time-locked withdrawal protocol; the redeemer
// owns share math and all interaction with the external pool.
//
// Implementations must mutate their internal state to its post-operation
// value before making external calls, so a callee re-entering the router
// observes already-updated balances.
type Redeemer interface {
	// Asset returns the single asset this redeemer is scoped to.
	Asset() string

	// PrincipalOf returns the amount originally deposited, never including
	// yield.
	PrincipalOf(asset string, account uuid.UUID) (int64, error)

	// TotalBalanceOf returns principal plus the account's proportional
	// share of accrued yield.
	TotalBalanceOf(asset string, account uuid.UUID) (int64, error)

	// BalanceOf returns exactly PrincipalOf. Retained for older callers.
	BalanceOf(asset string, account uuid.UUID) (int64, error)

	// Deposit pulls amount from client, deposits it into the pool, and
	// credits recipient's principal. Returns the shares received.
	Deposit(asset string, amount int64, client, recipient uuid.UUID) (int64, error)

	// Withdraw pays out up to amount of recipient's principal. Returns
	// (paid, capped, sharesRedeemed).
	Withdraw(asset string, amount int64, client, recipient uuid.UUID) (int64, int64, int64, error)

	// RedeemForWithdraw pays amount of pool value to recipient without
	// touching principal. Returns the amount actually paid.
	RedeemForWithdraw(asset string, client uuid.UUID, amount int64, recipient uuid.UUID) (int64, error)

	// RedeemForEmergency redeems up to amount of pool value directly to
	// the owner. Returns the amount redeemed.
	RedeemForEmergency(amount int64) (int64, error)

	// RedeemForTotalWithdraw liquidates client's position to the owner,
	// using cachedPrincipal as the redemption basis. Principal above the
	// cached basis stays in the pool. Returns (redeemed, clearedPrincipal).
	RedeemForTotalWithdraw(asset string, client uuid.UUID, cachedPrincipal int64) (int64, int64, error)
}
