package phoenix

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solscope/phoenixscope/internal/pkg/apperrors"
)

type batchBuilder struct {
	buf []byte
}

func (b *batchBuilder) pubkey(fill byte) *batchBuilder {
	key := make([]byte, 32)
	for i := range key {
		key[i] = fill
	}
	b.buf = append(b.buf, key...)
	return b
}

func (b *batchBuilder) u8(v uint8) *batchBuilder {
	b.buf = append(b.buf, v)
	return b
}

func (b *batchBuilder) u16(v uint16) *batchBuilder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	return b
}

func (b *batchBuilder) u32(v uint32) *batchBuilder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	return b
}

func (b *batchBuilder) u64(v uint64) *batchBuilder {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
	return b
}

func (b *batchBuilder) header() *batchBuilder {
	return b.pubkey(1). // market
				u64(42).       // sequence number
				u64(1234).     // slot
				u64(1700000000). // timestamp
				pubkey(2).     // signer
				u16(1)         // total events
}

func TestParseEventBatchFill(t *testing.T) {
	b := &batchBuilder{}
	b.header().
		u8(uint8(TagFill)).u16(0).
		pubkey(3).u64(8).u64(100).u64(5).u64(0)

	batch, err := ParseEventBatch(b.buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), batch.Header.SequenceNumber)
	assert.Equal(t, uint64(1234), batch.Header.Slot)
	assert.Equal(t, int64(1700000000), batch.Header.Timestamp)

	require.Len(t, batch.Events, 1)
	fill := batch.Events[0].Fill
	require.NotNil(t, fill)
	assert.Equal(t, uint64(8), fill.OrderSequenceNumber)
	assert.Equal(t, uint64(100), fill.PriceInTicks)
	assert.Equal(t, uint64(5), fill.BaseLotsFilled)
	assert.Equal(t, uint64(0), fill.BaseLotsRemaining)
}

func TestParseEventBatchShortHeader(t *testing.T) {
	_, err := ParseEventBatch(make([]byte, 10))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecode))
}

func TestParseEventBatchUnknownTagEndsBatch(t *testing.T) {
	b := &batchBuilder{}
	b.header().
		u8(uint8(TagFee)).u16(0).u64(13).
		u8(200).u16(1). // future event kind with unknown length
		u64(999)        // opaque payload

	batch, err := ParseEventBatch(b.buf)
	require.NoError(t, err, "unknown tags must not fail the batch")
	require.Len(t, batch.Events, 1)
	assert.Equal(t, TagFee, batch.Events[0].Tag)
}

func TestParseEventBatchTruncatedRecord(t *testing.T) {
	b := &batchBuilder{}
	b.header().
		u8(uint8(TagFill)).u16(0).
		u64(1) // far too short for a fill record

	batch, err := ParseEventBatch(b.buf)
	require.Error(t, err)
	assert.Empty(t, batch.Events)
}

func TestDecodeMarketHeader(t *testing.T) {
	b := &batchBuilder{}
	b.u64(1).  // discriminant
		u64(0).  // status
		u64(512).  // bids size
		u64(512).  // asks size
		u64(128).  // seats
		u32(9).    // base decimals
		u32(6).    // quote decimals
		pubkey(4). // base mint
		pubkey(5). // quote mint
		u64(1000). // base atoms per base lot
		u64(25).   // quote atoms per quote lot
		u64(100).  // tick size
		u32(1).    // raw base units per base unit
		u32(0)     // padding

	meta, err := DecodeMarketHeader("mkt", b.buf)
	require.NoError(t, err)

	assert.Equal(t, uint64(512), meta.BidsSize)
	assert.Equal(t, uint64(128), meta.NumSeats)
	assert.Equal(t, uint32(9), meta.BaseDecimals)
	assert.Equal(t, uint64(1_000_000_000), meta.BaseAtomsPerRawBaseUnit)
	assert.Equal(t, uint64(1_000_000), meta.QuoteAtomsPerQuoteUnit)
	assert.Equal(t, uint64(1000), meta.BaseAtomsPerBaseLot)
	assert.Equal(t, uint64(25), meta.QuoteAtomsPerQuoteLot)
	// 10^9 atoms per raw base unit, 1 raw unit per unit, 1000 atoms per lot
	assert.Equal(t, uint64(1_000_000), meta.NumBaseLotsPerBaseUnit)
}

func TestDecodeMarketHeaderUndersized(t *testing.T) {
	_, err := DecodeMarketHeader("mkt", make([]byte, marketHeaderSize-1))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecode))
}

func TestEncodeBase58(t *testing.T) {
	// The system program address is the canonical all-zero key.
	assert.Equal(t, "11111111111111111111111111111111", encodeBase58(make([]byte, 32)))
	assert.Equal(t, "Cn8eVZg", encodeBase58([]byte("hello")))
}
