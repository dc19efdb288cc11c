// Package model defines the JSONL wire records consumed and produced by the
// processing pipeline, and the snapshot rows persisted to storage. Large
// numeric fields travel as decimal strings.
package model

import "encoding/json"

// Record kinds accepted by the pipeline.
const (
	KindInitPool        = "init_pool"
	KindFund            = "fund"
	KindBatch           = "batch"
	KindSwap            = "swap"
	KindDonate          = "donate"
	KindCollectTreasury = "collect_treasury"
	KindCollectHook     = "collect_hook"
)

// Record is the envelope for one pipeline input line. Seq orders records
// and drives resume; Payload decodes per Kind.
type Record struct {
	Seq     uint64          `json:"seq"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// InitPoolPayload creates a pool.
type InitPoolPayload struct {
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Fee          uint32 `json:"fee"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
}

// FundPayload credits a custody balance, seeding a payer account.
type FundPayload struct {
	Token   string `json:"token"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// OpPayload is one position operation inside a batch.
type OpPayload struct {
	Kind           string `json:"kind"`
	TickLower      int    `json:"tick_lower,omitempty"`
	TickUpper      int    `json:"tick_upper,omitempty"`
	Amount0Desired string `json:"amount0_desired,omitempty"`
	Amount1Desired string `json:"amount1_desired,omitempty"`
	Owner          string `json:"owner,omitempty"`
	PositionID     uint64 `json:"position_id,omitempty"`
	LiquidityDelta string `json:"liquidity_delta,omitempty"`
}

// BatchPayload is an all-or-nothing settlement batch against one pool.
type BatchPayload struct {
	Pool      string      `json:"pool"`
	Sender    string      `json:"sender"`
	Recipient string      `json:"recipient,omitempty"`
	Deadline  uint64      `json:"deadline,omitempty"`
	Ops       []OpPayload `json:"ops"`
}

// SwapPayload reports a swap observed on the external pool engine: the
// post-swap price, the LP fee amounts, and the output side for the hook.
type SwapPayload struct {
	Pool              string `json:"pool"`
	SqrtPriceX96After string `json:"sqrt_price_x96_after,omitempty"`
	FeeAmount0        string `json:"fee_amount0,omitempty"`
	FeeAmount1        string `json:"fee_amount1,omitempty"`
	OutToken          string `json:"out_token,omitempty"`
	AmountOut         string `json:"amount_out,omitempty"`
}

// DonatePayload is a direct fee donation to in-range liquidity.
type DonatePayload struct {
	Pool    string `json:"pool"`
	Amount0 string `json:"amount0,omitempty"`
	Amount1 string `json:"amount1,omitempty"`
}

// CollectTreasuryPayload drains a pool's treasury accrual to a recipient.
type CollectTreasuryPayload struct {
	Pool      string `json:"pool"`
	Recipient string `json:"recipient"`
}

// CollectHookPayload drains the hook accrual for a pool and token to a
// recipient.
type CollectHookPayload struct {
	Pool      string `json:"pool"`
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
}
