// Package params holds the protocol constants of the oso chain.
package params

// Council constants. The standard validator set is a council of twelve peers
// plus one distinguished peer.
const (
	// CouncilSize is the number of ordinary council seats.
	CouncilSize = 12

	// StandardValidatorCount is the size of the standard validator set.
	StandardValidatorCount = CouncilSize + 1

	// StandardThreshold is the finality threshold for the standard set.
	// 2/3 of 13 is 8.66, so nine matching votes are required.
	StandardThreshold uint64 = 9
)

// InheritanceWalletCount is the number of inheritance wallets; claim
// transactions must carry a wallet id strictly below it.
const InheritanceWalletCount uint16 = 1440

// TxGas is the base gas accounted to every transaction in its receipt.
const TxGas uint64 = 21_000
