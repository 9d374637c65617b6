package model

import "github.com/shopspring/decimal"

// MarketMetadata holds the per-market conversion constants needed to turn
// raw lot/tick integers into human-scale units. Immutable once fetched;
// owned by the metadata cache and shared by read-only pointer.
type MarketMetadata struct {
	Market        string
	BaseMint      string
	QuoteMint     string
	BaseDecimals  uint32
	QuoteDecimals uint32

	BaseAtomsPerRawBaseUnit         uint64
	QuoteAtomsPerQuoteUnit          uint64
	QuoteAtomsPerQuoteLot           uint64
	BaseAtomsPerBaseLot             uint64
	TickSizeInQuoteAtomsPerBaseUnit uint64
	NumBaseLotsPerBaseUnit          uint64
	RawBaseUnitsPerBaseUnit         uint32

	// Market capacity parameters, carried through to the fill row snapshot.
	BidsSize uint64
	AsksSize uint64
	NumSeats uint64
}

// PriceFromTicks converts a price in ticks to quote units per raw base
// unit, exactly. Display helper only; stored prices stay in ticks.
func (m *MarketMetadata) PriceFromTicks(ticks uint64) decimal.Decimal {
	num := decimal.NewFromUint64(ticks).Mul(decimal.NewFromUint64(m.TickSizeInQuoteAtomsPerBaseUnit))
	den := decimal.NewFromUint64(m.QuoteAtomsPerQuoteUnit).Mul(decimal.NewFromInt(int64(m.RawBaseUnitsPerBaseUnit)))
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, int32(m.QuoteDecimals))
}
