package model

// PoolSnapshot is a point-in-time row of pool accounting state.
type PoolSnapshot struct {
	Pool                 string `json:"pool"`
	Token0               string `json:"token0"`
	Token1               string `json:"token1"`
	Fee                  uint32 `json:"fee"`
	TickSpacing          int32  `json:"tick_spacing"`
	SqrtPriceX96         string `json:"sqrt_price_x96"`
	Tick                 int64  `json:"tick"`
	Liquidity            string `json:"liquidity"`
	FeeGrowthGlobal0X128 string `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128 string `json:"fee_growth_global1_x128"`
	TreasuryFees0        string `json:"treasury_fees0"`
	TreasuryFees1        string `json:"treasury_fees1"`
}

// PositionSnapshot is a point-in-time row of one position.
type PositionSnapshot struct {
	PositionID               uint64 `json:"position_id"`
	Pool                     string `json:"pool"`
	Owner                    string `json:"owner"`
	TickLower                int64  `json:"tick_lower"`
	TickUpper                int64  `json:"tick_upper"`
	Liquidity                string `json:"liquidity"`
	FeeGrowthInside0LastX128 string `json:"fee_growth_inside0_last_x128"`
	FeeGrowthInside1LastX128 string `json:"fee_growth_inside1_last_x128"`
	TokensOwed0              string `json:"tokens_owed0"`
	TokensOwed1              string `json:"tokens_owed1"`
}
