package model

// Side is the resting side of the book an order sits on.
type Side string

const (
	Bid Side = "Bid"
	Ask Side = "Ask"
)

// SideFromOrderSequenceNumber recovers the side from the exchange's
// order-id convention: even sequence numbers are bids, odd are asks.
func SideFromOrderSequenceNumber(osn uint64) Side {
	if osn%2 == 0 {
		return Bid
	}
	return Ask
}

type EventKind string

const (
	KindFill        EventKind = "fill"
	KindReduce      EventKind = "reduce"
	KindPlace       EventKind = "place"
	KindEvict       EventKind = "evict"
	KindFillSummary EventKind = "fill_summary"
	KindFee         EventKind = "fee"
	KindTimeInForce EventKind = "time_in_force"
)

// EventDetails is the closed set of canonical event payloads. Modeled as
// a kind-tagged union so downstream dispatch stays exhaustive.
type EventDetails interface {
	Kind() EventKind
}

// CanonicalEvent is one normalized market occurrence. Immutable once
// constructed; header fields are shared across every event in a batch.
type CanonicalEvent struct {
	Market         string       `json:"market"`
	SequenceNumber uint64       `json:"sequence_number"`
	Slot           uint64       `json:"slot"`
	Timestamp      int64        `json:"timestamp"`
	Signature      string       `json:"signature"`
	Signer         string       `json:"signer"`
	EventIndex     uint64       `json:"event_index"`
	Details        EventDetails `json:"details"`
}

type Fill struct {
	OrderSequenceNumber uint64 `json:"order_sequence_number"`
	Maker               string `json:"maker"`
	Taker               string `json:"taker"`
	PriceInTicks        uint64 `json:"price_in_ticks"`
	BaseLotsFilled      uint64 `json:"base_lots_filled"`
	BaseLotsRemaining   uint64 `json:"base_lots_remaining"`
	SideFilled          Side   `json:"side_filled"`
	IsFullFill          bool   `json:"is_full_fill"`
}

func (Fill) Kind() EventKind { return KindFill }

// Reduce covers cancels, partial reductions, and expired orders (an
// expiry is represented as a full cancel with zero lots remaining).
type Reduce struct {
	OrderSequenceNumber uint64 `json:"order_sequence_number"`
	Maker               string `json:"maker"`
	PriceInTicks        uint64 `json:"price_in_ticks"`
	BaseLotsRemoved     uint64 `json:"base_lots_removed"`
	BaseLotsRemaining   uint64 `json:"base_lots_remaining"`
	IsFullCancel        bool   `json:"is_full_cancel"`
}

func (Reduce) Kind() EventKind { return KindReduce }

type Place struct {
	OrderSequenceNumber uint64 `json:"order_sequence_number"`
	ClientOrderID       uint64 `json:"client_order_id"`
	Maker               string `json:"maker"`
	PriceInTicks        uint64 `json:"price_in_ticks"`
	BaseLotsPlaced      uint64 `json:"base_lots_placed"`
}

func (Place) Kind() EventKind { return KindPlace }

// Evict is the forced removal of a resting order to make room in the book.
type Evict struct {
	OrderSequenceNumber uint64 `json:"order_sequence_number"`
	Maker               string `json:"maker"`
	PriceInTicks        uint64 `json:"price_in_ticks"`
	BaseLotsEvicted     uint64 `json:"base_lots_evicted"`
}

func (Evict) Kind() EventKind { return KindEvict }

// FillSummary aggregates a taker order's fills, converted to atoms.
// TradeDirection is -1 when the first fill in the transaction hit the
// bid side, +1 for the ask side, 0 when no fill preceded the summary.
type FillSummary struct {
	ClientOrderID                 uint64 `json:"client_order_id"`
	TotalBaseFilled               uint64 `json:"total_base_filled"`
	TotalQuoteFilledIncludingFees uint64 `json:"total_quote_filled_including_fees"`
	TotalQuoteFees                uint64 `json:"total_quote_fees"`
	TradeDirection                int    `json:"trade_direction"`
}

func (FillSummary) Kind() EventKind { return KindFillSummary }

type Fee struct {
	FeesCollectedInQuoteAtoms uint64 `json:"fees_collected_in_quote_atoms"`
}

func (Fee) Kind() EventKind { return KindFee }

type TimeInForce struct {
	OrderSequenceNumber  uint64 `json:"order_sequence_number"`
	LastValidSlot        uint64 `json:"last_valid_slot"`
	LastValidUnixSeconds int64  `json:"last_valid_unix_timestamp_in_seconds"`
}

func (TimeInForce) Kind() EventKind { return KindTimeInForce }
