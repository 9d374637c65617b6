package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceFromTicks(t *testing.T) {
	// SOL/USDC-shaped market: tick 100 quote atoms per base unit,
	// 6 quote decimals.
	meta := &MarketMetadata{
		TickSizeInQuoteAtomsPerBaseUnit: 100,
		QuoteAtomsPerQuoteUnit:          1_000_000,
		RawBaseUnitsPerBaseUnit:         1,
		QuoteDecimals:                   6,
	}

	assert.Equal(t, "1.2345", meta.PriceFromTicks(12345).String())
	assert.Equal(t, "0.0001", meta.PriceFromTicks(1).String())
	assert.Equal(t, "0", meta.PriceFromTicks(0).String())
}

func TestPriceFromTicksRawBaseUnitScaling(t *testing.T) {
	// A 1000x raw-base-unit market (the BONK pattern) scales the
	// denominator, not the tick.
	meta := &MarketMetadata{
		TickSizeInQuoteAtomsPerBaseUnit: 100,
		QuoteAtomsPerQuoteUnit:          1_000_000,
		RawBaseUnitsPerBaseUnit:         1000,
		QuoteDecimals:                   6,
	}

	assert.Equal(t, "0.000005", meta.PriceFromTicks(50).String())

	// Below the quote currency's resolution the display price rounds
	// away entirely.
	assert.Equal(t, "0", meta.PriceFromTicks(1).String())
}

func TestPriceFromTicksZeroDenominator(t *testing.T) {
	meta := &MarketMetadata{TickSizeInQuoteAtomsPerBaseUnit: 100}
	assert.True(t, meta.PriceFromTicks(500).IsZero())
}

func TestSideFromOrderSequenceNumber(t *testing.T) {
	assert.Equal(t, Bid, SideFromOrderSequenceNumber(0))
	assert.Equal(t, Ask, SideFromOrderSequenceNumber(1))
	assert.Equal(t, Bid, SideFromOrderSequenceNumber(42))
	assert.Equal(t, Ask, SideFromOrderSequenceNumber(18446744073709551615))
}
