package params

// Transaction root derivation versions committed to by proposals.
const (
	// TxRootChain is the serial hash-chain derivation.
	TxRootChain uint8 = 1
	// TxRootMerkle is the pairwise Merkle derivation (last leaf duplicated
	// on odd counts).
	TxRootMerkle uint8 = 2
)

// ChainConfig carries the per-deployment behaviour switches of the core.
type ChainConfig struct {
	// TxRootVersion selects how the proposer derives the transaction root.
	TxRootVersion uint8

	// LegacyContractAddr selects the historical sender_contract_height
	// derivation for deployed contract addresses instead of the hash-based
	// one. The legacy form collides when one sender deploys twice in a
	// block; it exists for compatibility with existing deployments.
	LegacyContractAddr bool
}

// DefaultChainConfig is the configuration used when none is supplied.
var DefaultChainConfig = &ChainConfig{
	TxRootVersion: TxRootChain,
}
