package state

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Key namespaces. Every stored row lives under a hashed key built from one
// of these prefixes plus the identifying addresses, so rows from different
// modules can never collide even on a shared backend.
var (
	marketPrefix        = []byte("risk/market/")
	marketListPrefix    = []byte("risk/markets")
	memberFlagPrefix    = []byte("risk/member/")
	memberListPrefix    = []byte("risk/memberships/")
	rewardStatePrefix   = []byte("flywheel/market/")
	speedPrefix         = []byte("flywheel/speed/")
	supplierIndexPrefix = []byte("flywheel/supplier/")
	borrowerIndexPrefix = []byte("flywheel/borrower/")
	accruedPrefix       = []byte("flywheel/accrued/")
	stableMintPrefix    = []byte("flywheel/stable-mint")
	minterIndexPrefix   = []byte("flywheel/minter/")
	vaultPrefix         = []byte("flywheel/vault")
	stableDebtPrefix    = []byte("stable/debt/")
)

func singletonKey(prefix []byte) []byte {
	return ethcrypto.Keccak256(prefix)
}

func addrKey(prefix []byte, addr common.Address) []byte {
	return ethcrypto.Keccak256(prefix, addr.Bytes())
}

// pairKey builds a key for rows scoped by two addresses, e.g. a supplier
// snapshot scoped by (market, account).
func pairKey(prefix []byte, a, b common.Address) []byte {
	return ethcrypto.Keccak256(prefix, a.Bytes(), b.Bytes())
}
