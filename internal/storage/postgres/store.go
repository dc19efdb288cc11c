package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammLedger/internal/model"
)

// Store provides Postgres persistence for snapshots and settlements.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPoolSnapshots inserts or updates pool accounting rows.
func (s *Store) UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO pools (
				pool_id, token0, token1, fee, tick_spacing,
				sqrt_price_x96, tick, liquidity,
				fee_growth_global0_x128, fee_growth_global1_x128,
				treasury_fees0, treasury_fees1, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				tick = EXCLUDED.tick,
				liquidity = EXCLUDED.liquidity,
				fee_growth_global0_x128 = EXCLUDED.fee_growth_global0_x128,
				fee_growth_global1_x128 = EXCLUDED.fee_growth_global1_x128,
				treasury_fees0 = EXCLUDED.treasury_fees0,
				treasury_fees1 = EXCLUDED.treasury_fees1,
				updated_at = now()
		`,
			snap.Pool,
			snap.Token0,
			snap.Token1,
			int64(snap.Fee),
			snap.TickSpacing,
			snap.SqrtPriceX96,
			snap.Tick,
			snap.Liquidity,
			snap.FeeGrowthGlobal0X128,
			snap.FeeGrowthGlobal1X128,
			snap.TreasuryFees0,
			snap.TreasuryFees1,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPositionSnapshots inserts or updates position rows.
func (s *Store) UpsertPositionSnapshots(ctx context.Context, snapshots []model.PositionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO positions (
				position_id, pool_id, owner, tick_lower, tick_upper,
				liquidity, fee_growth_inside0_last_x128, fee_growth_inside1_last_x128,
				tokens_owed0, tokens_owed1, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
			ON CONFLICT (position_id)
			DO UPDATE SET
				liquidity = EXCLUDED.liquidity,
				fee_growth_inside0_last_x128 = EXCLUDED.fee_growth_inside0_last_x128,
				fee_growth_inside1_last_x128 = EXCLUDED.fee_growth_inside1_last_x128,
				tokens_owed0 = EXCLUDED.tokens_owed0,
				tokens_owed1 = EXCLUDED.tokens_owed1,
				updated_at = now()
		`,
			int64(snap.PositionID),
			snap.Pool,
			snap.Owner,
			snap.TickLower,
			snap.TickUpper,
			snap.Liquidity,
			snap.FeeGrowthInside0LastX128,
			snap.FeeGrowthInside1LastX128,
			snap.TokensOwed0,
			snap.TokensOwed1,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertSettlements appends settlement outcome rows.
func (s *Store) InsertSettlements(ctx context.Context, records []model.SettlementRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO settlements (
				seq, pool_id, sender, status, error, net0, net1, processed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (seq) DO NOTHING
		`,
			int64(rec.Seq),
			rec.Pool,
			rec.Sender,
			rec.Status,
			rec.Error,
			rec.Net0,
			rec.Net1,
			rec.ProcessedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
