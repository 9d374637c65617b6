package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/pkg/apperrors"
)

type fakeOHLCStore struct {
	calls int
	row   *model.OHLC
	err   error

	lastBucket int64
}

func (f *fakeOHLCStore) QueryOHLC(_ context.Context, _, _ string, _, _, bucketMinutes int64) (*model.OHLC, error) {
	f.calls++
	f.lastBucket = bucketMinutes
	return f.row, f.err
}

type fakeAdmitter struct {
	calls int
	err   error
}

func (f *fakeAdmitter) Admit(context.Context, string) error {
	f.calls++
	return f.err
}

func validRequest() model.OHLCRequest {
	return model.OHLCRequest{
		UserID:         "alice",
		BaseTokenMint:  "So11111111111111111111111111111111111111112",
		QuoteTokenMint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		StartTime:      1_700_000_000,
		EndTime:        1_700_003_600,
		Interval:       "1h",
	}
}

func TestGetOHLCInvalidRangeBeforeAdmission(t *testing.T) {
	store := &fakeOHLCStore{}
	adm := &fakeAdmitter{}
	svc := NewQueryService(store, adm, nil)

	req := validRequest()
	req.StartTime = req.EndTime

	_, err := svc.GetOHLC(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRange))
	assert.Equal(t, 0, adm.calls, "validation failures must not consume quota or credits")
	assert.Equal(t, 0, store.calls)
}

func TestGetOHLCInvalidIntervalBeforeAdmission(t *testing.T) {
	store := &fakeOHLCStore{}
	adm := &fakeAdmitter{}
	svc := NewQueryService(store, adm, nil)

	req := validRequest()
	req.Interval = "5m"

	_, err := svc.GetOHLC(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInterval))
	assert.Equal(t, 0, adm.calls)
	assert.Equal(t, 0, store.calls)
}

func TestGetOHLCAdmissionRejectBeforeStore(t *testing.T) {
	store := &fakeOHLCStore{}
	adm := &fakeAdmitter{err: apperrors.NewRateLimited()}
	svc := NewQueryService(store, adm, nil)

	_, err := svc.GetOHLC(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrRateLimited))
	assert.Equal(t, 1, adm.calls)
	assert.Equal(t, 0, store.calls, "rejected requests must not reach the store")
}

func TestGetOHLCNoData(t *testing.T) {
	store := &fakeOHLCStore{row: nil}
	svc := NewQueryService(store, &fakeAdmitter{}, nil)

	_, err := svc.GetOHLC(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNoData))
	assert.Equal(t, 1, store.calls, "admission happened, so the query ran and found nothing")
}

func TestGetOHLCStoreError(t *testing.T) {
	store := &fakeOHLCStore{err: fmt.Errorf("connection reset")}
	svc := NewQueryService(store, &fakeAdmitter{}, nil)

	_, err := svc.GetOHLC(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreRead))
	assert.False(t, apperrors.Is(err, apperrors.ErrNoData))
}

func TestGetOHLCIntervalBuckets(t *testing.T) {
	cases := map[string]int64{"1m": 1, "1h": 60, "1d": 1440}
	for interval, want := range cases {
		store := &fakeOHLCStore{row: &model.OHLC{Open: 1, High: 2, Low: 1, Close: 2}}
		svc := NewQueryService(store, &fakeAdmitter{}, nil)

		req := validRequest()
		req.Interval = interval
		_, err := svc.GetOHLC(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, want, store.lastBucket, "interval %s", interval)
	}
}

func TestGetOHLCDisplayPrices(t *testing.T) {
	store := &fakeOHLCStore{row: &model.OHLC{
		Open:  12345,
		High:  20000,
		Low:   10000,
		Close: 15500,

		TickSizeInQuoteAtomsPerBaseUnit: 100,
		QuoteAtomsPerQuoteUnit:          1_000_000,
		RawBaseUnitsPerBaseUnit:         1,
		QuoteDecimals:                   6,
	}}
	svc := NewQueryService(store, &fakeAdmitter{}, nil)

	resp, err := svc.GetOHLC(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), resp.Open)
	assert.Equal(t, uint64(15500), resp.Close)

	// ticks * 100 / 1e6 quote units per raw base unit.
	assert.Equal(t, "1.2345", resp.OpenPrice)
	assert.Equal(t, "2", resp.HighPrice)
	assert.Equal(t, "1", resp.LowPrice)
	assert.Equal(t, "1.55", resp.ClosePrice)
}

func TestGetOHLCDisplayPricesOmittedWithoutSnapshot(t *testing.T) {
	store := &fakeOHLCStore{row: &model.OHLC{Open: 1, High: 2, Low: 1, Close: 2}}
	svc := NewQueryService(store, &fakeAdmitter{}, nil)

	resp, err := svc.GetOHLC(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.OpenPrice)
	assert.Empty(t, resp.ClosePrice)
}
