package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// InvariantValidator checks principal-book invariants
type InvariantValidator struct {
	book *PrincipalBook
}

func NewInvariantValidator(book *PrincipalBook) *InvariantValidator {
	return &InvariantValidator{
		book: book,
	}
}

// ValidateBatch verifies an operation's journal batch is well-formed
func (v *InvariantValidator) ValidateBatch(batch *Batch) error {
	return batch.Validate()
}

// ValidateTotalDeposited verifies totalDeposited[asset] == sum of all
// clients' principal: the book's central invariant, which must hold at
// every operation boundary.
func (v *InvariantValidator) ValidateTotalDeposited(assetID AssetID) error {
	total := v.book.TotalDeposited(assetID)
	sum := v.book.SumPrincipal(assetID)

	if total != sum {
		assetName, _ := GetAssetName(assetID)
		return fmt.Errorf("total deposited for %s is %d but principal sums to %d",
			assetName, total, sum)
	}

	return nil
}

// ValidatePrincipalNonNegative checks a client's principal slot is >= 0.
// The book's Debit guard should make this unreachable; it exists as a
// post-operation check.
func (v *InvariantValidator) ValidatePrincipalNonNegative(assetID AssetID, client uuid.UUID) error {
	principal := v.book.PrincipalOf(assetID, client)
	if principal < 0 {
		return fmt.Errorf("client %s has negative principal for asset %d: %d",
			client, assetID, principal)
	}
	return nil
}
