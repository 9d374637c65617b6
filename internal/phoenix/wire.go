package phoenix

import (
	"encoding/binary"
	"math/big"

	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/pkg/apperrors"
)

// Event tags as emitted by the exchange program. Tags beyond this set
// belong to future program versions and are dropped during parsing.
type EventTag uint8

const (
	TagFill EventTag = iota
	TagPlace
	TagReduce
	TagEvict
	TagFillSummary
	TagFee
	TagTimeInForce
	TagExpiredOrder
)

// EventHeader is shared by every event in one emitted batch.
type EventHeader struct {
	Market         string
	SequenceNumber uint64
	Slot           uint64
	Timestamp      int64
	Signer         string
	TotalEvents    uint16
}

// RawEvent is one tagged record from the event log, before normalization.
// Exactly one payload pointer is set, matching Tag.
type RawEvent struct {
	Tag   EventTag
	Index uint16

	Fill         *RawFill
	Place        *RawPlace
	Reduce       *RawReduce
	Evict        *RawEvict
	FillSummary  *RawFillSummary
	Fee          *RawFee
	TimeInForce  *RawTimeInForce
	ExpiredOrder *RawExpiredOrder
}

type RawFill struct {
	MakerID             string
	OrderSequenceNumber uint64
	PriceInTicks        uint64
	BaseLotsFilled      uint64
	BaseLotsRemaining   uint64
}

type RawPlace struct {
	OrderSequenceNumber uint64
	ClientOrderID       uint64
	PriceInTicks        uint64
	BaseLotsPlaced      uint64
}

type RawReduce struct {
	OrderSequenceNumber uint64
	PriceInTicks        uint64
	BaseLotsRemoved     uint64
	BaseLotsRemaining   uint64
}

type RawEvict struct {
	MakerID             string
	OrderSequenceNumber uint64
	PriceInTicks        uint64
	BaseLotsEvicted     uint64
}

type RawFillSummary struct {
	ClientOrderID        uint64
	TotalBaseLotsFilled  uint64
	TotalQuoteLotsFilled uint64
	TotalFeeInQuoteLots  uint64
}

type RawFee struct {
	FeesCollectedInQuoteLots uint64
}

type RawTimeInForce struct {
	OrderSequenceNumber  uint64
	LastValidSlot        uint64
	LastValidUnixSeconds int64
}

type RawExpiredOrder struct {
	MakerID             string
	OrderSequenceNumber uint64
	PriceInTicks        uint64
	BaseLotsRemoved     uint64
}

// RawBatch is the event log payload of one program invocation.
type RawBatch struct {
	Header EventHeader
	Events []RawEvent
}

const eventHeaderSize = 32 + 8 + 8 + 8 + 32 + 2

// ParseEventBatch decodes one emitted event-log payload. All integers
// are little-endian; public keys are 32 raw bytes. An unknown tag ends
// the batch at that point rather than failing it, so parsing stays
// total against newer program versions.
func ParseEventBatch(data []byte) (*RawBatch, error) {
	if len(data) < eventHeaderSize {
		return nil, apperrors.New(apperrors.ErrDecode, "event batch shorter than header", nil)
	}

	r := reader{buf: data}
	batch := &RawBatch{
		Header: EventHeader{
			Market:         r.pubkey(),
			SequenceNumber: r.u64(),
			Slot:           r.u64(),
			Timestamp:      int64(r.u64()),
			Signer:         r.pubkey(),
			TotalEvents:    r.u16(),
		},
	}

	for r.remaining() > 0 {
		if r.remaining() < 3 {
			break
		}
		tag := EventTag(r.u8())
		index := r.u16()
		ev := RawEvent{Tag: tag, Index: index}

		switch tag {
		case TagFill:
			if r.remaining() < 64 {
				return batch, truncatedErr()
			}
			ev.Fill = &RawFill{
				MakerID:             r.pubkey(),
				OrderSequenceNumber: r.u64(),
				PriceInTicks:        r.u64(),
				BaseLotsFilled:      r.u64(),
				BaseLotsRemaining:   r.u64(),
			}
		case TagPlace:
			if r.remaining() < 32 {
				return batch, truncatedErr()
			}
			ev.Place = &RawPlace{
				OrderSequenceNumber: r.u64(),
				ClientOrderID:       r.u64(),
				PriceInTicks:        r.u64(),
				BaseLotsPlaced:      r.u64(),
			}
		case TagReduce:
			if r.remaining() < 32 {
				return batch, truncatedErr()
			}
			ev.Reduce = &RawReduce{
				OrderSequenceNumber: r.u64(),
				PriceInTicks:        r.u64(),
				BaseLotsRemoved:     r.u64(),
				BaseLotsRemaining:   r.u64(),
			}
		case TagEvict:
			if r.remaining() < 56 {
				return batch, truncatedErr()
			}
			ev.Evict = &RawEvict{
				MakerID:             r.pubkey(),
				OrderSequenceNumber: r.u64(),
				PriceInTicks:        r.u64(),
				BaseLotsEvicted:     r.u64(),
			}
		case TagFillSummary:
			if r.remaining() < 32 {
				return batch, truncatedErr()
			}
			ev.FillSummary = &RawFillSummary{
				ClientOrderID:        r.u64(),
				TotalBaseLotsFilled:  r.u64(),
				TotalQuoteLotsFilled: r.u64(),
				TotalFeeInQuoteLots:  r.u64(),
			}
		case TagFee:
			if r.remaining() < 8 {
				return batch, truncatedErr()
			}
			ev.Fee = &RawFee{FeesCollectedInQuoteLots: r.u64()}
		case TagTimeInForce:
			if r.remaining() < 24 {
				return batch, truncatedErr()
			}
			ev.TimeInForce = &RawTimeInForce{
				OrderSequenceNumber:  r.u64(),
				LastValidSlot:        r.u64(),
				LastValidUnixSeconds: int64(r.u64()),
			}
		case TagExpiredOrder:
			if r.remaining() < 56 {
				return batch, truncatedErr()
			}
			ev.ExpiredOrder = &RawExpiredOrder{
				MakerID:             r.pubkey(),
				OrderSequenceNumber: r.u64(),
				PriceInTicks:        r.u64(),
				BaseLotsRemoved:     r.u64(),
			}
		default:
			// Unknown record length; drop the rest of the batch.
			return batch, nil
		}

		batch.Events = append(batch.Events, ev)
	}
	return batch, nil
}

func truncatedErr() error {
	return apperrors.New(apperrors.ErrDecode, "event record truncated", nil)
}

const marketHeaderSize = 8 + 8 + 8 + 8 + 8 + 4 + 4 + 32 + 32 + 8 + 8 + 8 + 4 + 4

// DecodeMarketHeader turns the market account's header bytes into
// MarketMetadata. The derived constants follow the venue convention:
// atoms-per-unit come from the mint decimals, lots-per-base-unit from
// the lot size.
func DecodeMarketHeader(market string, data []byte) (*model.MarketMetadata, error) {
	if len(data) < marketHeaderSize {
		return nil, apperrors.New(apperrors.ErrDecode, "market account data shorter than header", nil)
	}

	r := reader{buf: data}
	_ = r.u64() // discriminant
	_ = r.u64() // status

	meta := &model.MarketMetadata{Market: market}
	meta.BidsSize = r.u64()
	meta.AsksSize = r.u64()
	meta.NumSeats = r.u64()
	meta.BaseDecimals = r.u32()
	meta.QuoteDecimals = r.u32()
	meta.BaseMint = r.pubkey()
	meta.QuoteMint = r.pubkey()
	meta.BaseAtomsPerBaseLot = r.u64()
	meta.QuoteAtomsPerQuoteLot = r.u64()
	meta.TickSizeInQuoteAtomsPerBaseUnit = r.u64()
	meta.RawBaseUnitsPerBaseUnit = r.u32()

	meta.BaseAtomsPerRawBaseUnit = pow10(meta.BaseDecimals)
	meta.QuoteAtomsPerQuoteUnit = pow10(meta.QuoteDecimals)
	if meta.BaseAtomsPerBaseLot > 0 && meta.RawBaseUnitsPerBaseUnit > 0 {
		meta.NumBaseLotsPerBaseUnit = meta.BaseAtomsPerRawBaseUnit * uint64(meta.RawBaseUnitsPerBaseUnit) / meta.BaseAtomsPerBaseLot
	}
	return meta, nil
}

func pow10(n uint32) uint64 {
	v := uint64(1)
	for i := uint32(0); i < n; i++ {
		v *= 10
	}
	return v
}

// reader walks a little-endian buffer. Bounds are checked by callers
// before each record; pubkey/u64 on an exhausted buffer return zeros.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) pubkey() string {
	key := r.buf[r.off : r.off+32]
	r.off += 32
	return encodeBase58(key)
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// encodeBase58 renders a public key the way ledger tooling displays it.
func encodeBase58(b []byte) string {
	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(b)
	radix := big.NewInt(58)
	mod := new(big.Int)

	out := make([]byte, 0, len(b)*2)
	for n.Sign() > 0 {
		n.DivMod(n, radix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, base58Alphabet[0])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
