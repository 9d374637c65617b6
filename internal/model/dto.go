package model

// OHLCRequest carries one aggregation query through validation and
// admission control.
type OHLCRequest struct {
	UserID         string `form:"user_id" json:"user_id"`
	BaseTokenMint  string `form:"base_token_mint" json:"base_token_mint"`
	QuoteTokenMint string `form:"quote_token_mint" json:"quote_token_mint"`
	StartTime      int64  `form:"start_time" json:"start_time"`
	EndTime        int64  `form:"end_time" json:"end_time"`
	Interval       string `form:"interval" json:"interval"`
}

// OHLC is one aggregation row from the store. Prices are in ticks.
// The conversion constants ride along from the denormalized fill rows
// so the service can attach display prices without a metadata fetch.
type OHLC struct {
	Open  uint64 `db:"open"`
	High  uint64 `db:"high"`
	Low   uint64 `db:"low"`
	Close uint64 `db:"close"`

	TickSizeInQuoteAtomsPerBaseUnit uint64 `db:"tick_size_in_quote_atoms_per_base_unit"`
	QuoteAtomsPerQuoteUnit          uint64 `db:"quote_atoms_per_quote_unit"`
	RawBaseUnitsPerBaseUnit         uint64 `db:"raw_base_units_per_base_unit"`
	QuoteDecimals                   uint32 `db:"quote_decimals"`
}

type OHLCResponse struct {
	Open  uint64 `json:"open"`
	High  uint64 `json:"high"`
	Low   uint64 `json:"low"`
	Close uint64 `json:"close"`

	// Decimal display prices in quote units per raw base unit, derived
	// from the tick size snapshot. Omitted when the snapshot is absent.
	OpenPrice  string `json:"open_price,omitempty"`
	HighPrice  string `json:"high_price,omitempty"`
	LowPrice   string `json:"low_price,omitempty"`
	ClosePrice string `json:"close_price,omitempty"`
}

// FillMessage is the wire shape pushed to live stream subscribers after
// a fill row is persisted.
type FillMessage struct {
	Market         string `json:"market"`
	SequenceNumber uint64 `json:"sequence_number"`
	Slot           uint64 `json:"slot"`
	Timestamp      int64  `json:"timestamp"`
	Signature      string `json:"signature"`
	Maker          string `json:"maker"`
	Taker          string `json:"taker"`
	PriceInTicks   uint64 `json:"price_in_ticks"`
	BaseLotsFilled uint64 `json:"base_lots_filled"`
	Side           Side   `json:"side"`
	IsFullFill     bool   `json:"is_full_fill"`
}
