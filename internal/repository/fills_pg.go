package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/pkg/logger"
)

// PostgresFillRepo persists fill rows and answers OHLC aggregations
// against the fill_events time-series table. Inserts are at-least-once:
// the table carries no uniqueness constraint, so re-ingesting a
// signature produces duplicate rows by design of this layer.
type PostgresFillRepo struct {
	db *sqlx.DB
}

func NewPostgresFillRepo(db *sqlx.DB) *PostgresFillRepo {
	repo := &PostgresFillRepo{db: db}
	if err := repo.ensureSchema(context.Background()); err != nil {
		logger.Error("failed to ensure fill_events schema", "error", err)
	}
	return repo
}

// Insert writes one fill event together with a denormalized snapshot of
// the market's conversion constants at insert time.
func (r *PostgresFillRepo) Insert(ctx context.Context, ev model.CanonicalEvent, fill model.Fill, meta *model.MarketMetadata) error {
	if meta == nil {
		return fmt.Errorf("insert fill: nil market metadata")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fill_events (
			market, sequence_number, slot, "timestamp", signature, signer, event_index,
			order_sequence_number, maker, taker, price_in_ticks, base_lots_filled, base_lots_remaining,
			side_filled, is_full_fill, base_mint, quote_mint, base_decimals, quote_decimals,
			base_atoms_per_raw_base_unit, quote_atoms_per_quote_unit, quote_atoms_per_quote_lot,
			base_atoms_per_base_lot, tick_size_in_quote_atoms_per_base_unit, num_base_lots_per_base_unit,
			raw_base_units_per_base_unit, bids_size, asks_size, num_seats
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,
			$8,$9,$10,$11,$12,$13,
			$14,$15,$16,$17,$18,$19,
			$20,$21,$22,
			$23,$24,$25,
			$26,$27,$28,$29
		)
	`,
		ev.Market, ev.SequenceNumber, ev.Slot, ev.Timestamp, ev.Signature, ev.Signer, ev.EventIndex,
		fill.OrderSequenceNumber, fill.Maker, fill.Taker, fill.PriceInTicks, fill.BaseLotsFilled, fill.BaseLotsRemaining,
		string(fill.SideFilled), fill.IsFullFill, meta.BaseMint, meta.QuoteMint, meta.BaseDecimals, meta.QuoteDecimals,
		meta.BaseAtomsPerRawBaseUnit, meta.QuoteAtomsPerQuoteUnit, meta.QuoteAtomsPerQuoteLot,
		meta.BaseAtomsPerBaseLot, meta.TickSizeInQuoteAtomsPerBaseUnit, meta.NumBaseLotsPerBaseUnit,
		meta.RawBaseUnitsPerBaseUnit, meta.BidsSize, meta.AsksSize, meta.NumSeats,
	)
	return err
}

// QueryOHLC aggregates fills for a mint pair into buckets of the given
// width and returns the first bucket in time order, or (nil, nil) when
// the range holds no fills. Open and close follow event timestamps,
// not insertion order.
func (r *PostgresFillRepo) QueryOHLC(ctx context.Context, baseMint, quoteMint string, startTime, endTime, bucketMinutes int64) (*model.OHLC, error) {
	var row model.OHLC
	err := r.db.GetContext(ctx, &row, `
		SELECT
			(array_agg(price_in_ticks ORDER BY "timestamp" ASC))[1]  AS open,
			MAX(price_in_ticks)                                      AS high,
			MIN(price_in_ticks)                                      AS low,
			(array_agg(price_in_ticks ORDER BY "timestamp" DESC))[1] AS close,
			MIN(tick_size_in_quote_atoms_per_base_unit) AS tick_size_in_quote_atoms_per_base_unit,
			MIN(quote_atoms_per_quote_unit)             AS quote_atoms_per_quote_unit,
			MIN(raw_base_units_per_base_unit)           AS raw_base_units_per_base_unit,
			MIN(quote_decimals)                         AS quote_decimals
		FROM fill_events
		WHERE base_mint = $1 AND quote_mint = $2
		  AND "timestamp" >= $3 AND "timestamp" <= $4
		GROUP BY "timestamp" / ($5::bigint * 60)
		ORDER BY MIN("timestamp")
		LIMIT 1
	`, baseMint, quoteMint, startTime, endTime, bucketMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *PostgresFillRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fill_events (
			market TEXT NOT NULL,
			sequence_number BIGINT,
			slot BIGINT,
			"timestamp" BIGINT NOT NULL,
			signature TEXT NOT NULL,
			signer TEXT,
			event_index BIGINT,
			order_sequence_number NUMERIC(20,0),
			maker TEXT,
			taker TEXT,
			price_in_ticks BIGINT NOT NULL,
			base_lots_filled BIGINT,
			base_lots_remaining BIGINT,
			side_filled TEXT,
			is_full_fill BOOLEAN,
			base_mint TEXT NOT NULL,
			quote_mint TEXT NOT NULL,
			base_decimals INTEGER,
			quote_decimals INTEGER,
			base_atoms_per_raw_base_unit BIGINT,
			quote_atoms_per_quote_unit BIGINT,
			quote_atoms_per_quote_lot BIGINT,
			base_atoms_per_base_lot BIGINT,
			tick_size_in_quote_atoms_per_base_unit BIGINT,
			num_base_lots_per_base_unit BIGINT,
			raw_base_units_per_base_unit BIGINT,
			bids_size BIGINT,
			asks_size BIGINT,
			num_seats BIGINT
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_fill_events_pair_ts ON fill_events(base_mint, quote_mint, "timestamp")`)
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_fill_events_signature ON fill_events(signature)`)
	return nil
}
