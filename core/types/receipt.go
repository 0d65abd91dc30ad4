package types

import "github.com/jbino85/techgnosis/common"

// ReceiptStatus is the outcome recorded for an applied transaction.
type ReceiptStatus uint8

const (
	ReceiptStatusSuccess ReceiptStatus = iota
	ReceiptStatusFailed
	ReceiptStatusPending
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptStatusSuccess:
		return "success"
	case ReceiptStatusFailed:
		return "failed"
	case ReceiptStatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Receipt records the execution outcome of a transaction inside a block.
type Receipt struct {
	TxHash   common.Hash
	BlockNum uint64
	Status   ReceiptStatus
	// Reason carries the failure message when Status is failed.
	Reason  string
	GasUsed uint64
	Output  []byte
}
