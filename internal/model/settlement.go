package model

// OpOutcome reports the effect of one operation in a settled batch.
type OpOutcome struct {
	Kind       string `json:"kind"`
	PositionID uint64 `json:"position_id"`
	Liquidity  string `json:"liquidity"`
	Amount0    string `json:"amount0"`
	Amount1    string `json:"amount1"`
}

// SettlementRecord is one output line per processed batch.
type SettlementRecord struct {
	Seq         uint64      `json:"seq"`
	Pool        string      `json:"pool"`
	Sender      string      `json:"sender"`
	Status      string      `json:"status"`
	Error       string      `json:"error,omitempty"`
	Net0        string      `json:"net0,omitempty"`
	Net1        string      `json:"net1,omitempty"`
	Ops         []OpOutcome `json:"ops,omitempty"`
	ProcessedAt string      `json:"processed_at"`
}

// Settlement status values.
const (
	StatusSettled  = "settled"
	StatusRejected = "rejected"
)
