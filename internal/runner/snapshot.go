package runner

import (
	"ammLedger/internal/engine"
	"ammLedger/internal/model"
)

func buildPoolSnapshots(eng *engine.Engine) []model.PoolSnapshot {
	pools := eng.Pools()
	out := make([]model.PoolSnapshot, 0, len(pools))
	for _, p := range pools {
		out = append(out, model.PoolSnapshot{
			Pool:                 p.Key.ID().Hex(),
			Token0:               p.Key.Token0.Hex(),
			Token1:               p.Key.Token1.Hex(),
			Fee:                  p.Key.Fee,
			TickSpacing:          int32(p.TickSpacing),
			SqrtPriceX96:         p.SqrtPriceX96.Dec(),
			Tick:                 int64(p.Tick),
			Liquidity:            p.Liquidity.Dec(),
			FeeGrowthGlobal0X128: p.FeeGrowthGlobal0X128.Dec(),
			FeeGrowthGlobal1X128: p.FeeGrowthGlobal1X128.Dec(),
			TreasuryFees0:        p.TreasuryFees0.Dec(),
			TreasuryFees1:        p.TreasuryFees1.Dec(),
		})
	}
	return out
}

func buildPositionSnapshots(eng *engine.Engine) []model.PositionSnapshot {
	positions := eng.Ledger().All()
	out := make([]model.PositionSnapshot, 0, len(positions))
	for _, p := range positions {
		out = append(out, model.PositionSnapshot{
			PositionID:               p.ID,
			Pool:                     p.PoolID.Hex(),
			Owner:                    p.Owner.Hex(),
			TickLower:                int64(p.TickLower),
			TickUpper:                int64(p.TickUpper),
			Liquidity:                p.Liquidity.Dec(),
			FeeGrowthInside0LastX128: p.FeeGrowthInside0LastX128.Dec(),
			FeeGrowthInside1LastX128: p.FeeGrowthInside1LastX128.Dec(),
			TokensOwed0:              p.TokensOwed0.Dec(),
			TokensOwed1:              p.TokensOwed1.Dec(),
		})
	}
	return out
}
