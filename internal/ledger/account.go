package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeClient AccountScope = iota
	AccountScopePool
	AccountScopeOwner
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// Client sub-types
	SubTypePrincipal AccountSubType = iota

	// Pool sub-types
	SubTypePoolValue
	SubTypePoolYield

	// Owner sub-types
	SubTypeOwnerPayout

	// External sub-types
	SubTypeExternalDeposits
	SubTypeExternalWithdrawals
)

// AssetID maps asset symbols to numeric IDs for compact keys
type AssetID uint16

var (
	assetToID = map[string]AssetID{
		"DAI":  1,
		"EYE":  2,
		"SCX":  3,
		"WETH": 4,
	}
	idToAsset = map[AssetID]string{
		1: "DAI",
		2: "EYE",
		3: "SCX",
		4: "WETH",
	}
)

func GetAssetID(asset string) (AssetID, bool) {
	id, ok := assetToID[asset]
	return id, ok
}

func GetAssetName(id AssetID) (string, bool) {
	name, ok := idToAsset[id]
	return name, ok
}

// AccountKey is the in-memory key for journal accounts
type AccountKey struct {
	Scope    AccountScope
	EntityID [16]byte // UUID for clients/owner, zero for pool/external
	SubType  AccountSubType
	AssetID  AssetID
}

// NewClientAccountKey creates a key for a client's principal account
func NewClientAccountKey(client uuid.UUID, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeClient,
		EntityID: client,
		SubType:  SubTypePrincipal,
		AssetID:  assetID,
	}
}

// NewPoolAccountKey creates a key for the adapter's pool position
func NewPoolAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopePool,
		SubType: subType,
		AssetID: assetID,
	}
}

// NewOwnerAccountKey creates a key for owner payout accounts
func NewOwnerAccountKey(owner uuid.UUID, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:    AccountScopeOwner,
		EntityID: owner,
		SubType:  SubTypeOwnerPayout,
		AssetID:  assetID,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
		AssetID: assetID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	assetName, _ := GetAssetName(k.AssetID)

	switch k.Scope {
	case AccountScopeClient:
		uid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("client:%s:%s:%s", uid.String(), k.subTypeName(), assetName)
	case AccountScopePool:
		return fmt.Sprintf("pool:%s:%s", k.subTypeName(), assetName)
	case AccountScopeOwner:
		uid := uuid.UUID(k.EntityID)
		return fmt.Sprintf("owner:%s:%s:%s", uid.String(), k.subTypeName(), assetName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), assetName)
	}
	return "unknown"
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypePrincipal:
		return "principal"
	case SubTypePoolValue:
		return "value"
	case SubTypePoolYield:
		return "yield"
	case SubTypeOwnerPayout:
		return "payout"
	case SubTypeExternalDeposits:
		return "deposits"
	case SubTypeExternalWithdrawals:
		return "withdrawals"
	default:
		return "unknown"
	}
}
