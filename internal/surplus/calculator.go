package surplus

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Behodler/yield-strategy-router/internal/ledger"
)

// BalanceReader is the slice of the router the surplus machinery needs.
type BalanceReader interface {
	PrincipalOf(asset string, account uuid.UUID) (int64, error)
	TotalBalanceOf(asset string, account uuid.UUID) (int64, error)
}

// Calculate returns the non-negative difference between an account's
// reported total entitlement and an internally-tracked balance: the
// unharvested yield. internalBalance may be arbitrarily stale or even
// exceed the real balance; the result is clamped at zero, never negative.
func Calculate(reader BalanceReader, pool uuid.UUID, asset string, account uuid.UUID, internalBalance int64) (int64, error) {
	if pool == uuid.Nil || account == uuid.Nil {
		return 0, fmt.Errorf("surplus: nil identity: %w", ledger.ErrInvalidArgument)
	}

	total, err := reader.TotalBalanceOf(asset, account)
	if err != nil {
		return 0, err
	}

	if surplus := total - internalBalance; surplus > 0 {
		return surplus, nil
	}
	return 0, nil
}
