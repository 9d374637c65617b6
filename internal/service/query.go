package service

import (
	"context"
	"log/slog"

	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/pkg/apperrors"
)

// intervalMinutes maps the accepted interval tokens to bucket widths.
var intervalMinutes = map[string]int64{
	"1m": 1,
	"1h": 60,
	"1d": 1440,
}

// OHLCStore answers bucketed price aggregations over persisted fills.
type OHLCStore interface {
	QueryOHLC(ctx context.Context, baseMint, quoteMint string, startTime, endTime, bucketMinutes int64) (*model.OHLC, error)
}

// Admitter gates a request before any store access.
type Admitter interface {
	Admit(ctx context.Context, userID string) error
}

// QueryService validates, admits, and answers OHLC queries.
type QueryService struct {
	store     OHLCStore
	admission Admitter
	logger    *slog.Logger
}

func NewQueryService(store OHLCStore, admission Admitter, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{store: store, admission: admission, logger: logger}
}

// GetOHLC runs one aggregation query. Validation rejects consume
// neither rate-limit quota nor credits; a zero-row aggregation is a
// distinct NO_DATA outcome, never a silently zeroed response.
func (s *QueryService) GetOHLC(ctx context.Context, req model.OHLCRequest) (*model.OHLCResponse, error) {
	if req.StartTime >= req.EndTime {
		return nil, apperrors.NewInvalidRange("start_time must be less than end_time")
	}
	bucket, ok := intervalMinutes[req.Interval]
	if !ok {
		return nil, apperrors.NewInvalidInterval("invalid interval, supported values: 1m, 1h, 1d")
	}

	if err := s.admission.Admit(ctx, req.UserID); err != nil {
		return nil, err
	}

	row, err := s.store.QueryOHLC(ctx, req.BaseTokenMint, req.QuoteTokenMint, req.StartTime, req.EndTime, bucket)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrStoreRead, "ohlc aggregation failed", err)
	}
	if row == nil {
		return nil, apperrors.NewNoData()
	}

	resp := &model.OHLCResponse{
		Open:  row.Open,
		High:  row.High,
		Low:   row.Low,
		Close: row.Close,
	}
	attachDisplayPrices(resp, row)
	return resp, nil
}

// attachDisplayPrices derives human-scale prices from the tick-size
// snapshot carried on the aggregation row.
func attachDisplayPrices(resp *model.OHLCResponse, row *model.OHLC) {
	if row.TickSizeInQuoteAtomsPerBaseUnit == 0 || row.QuoteAtomsPerQuoteUnit == 0 || row.RawBaseUnitsPerBaseUnit == 0 {
		return
	}
	meta := model.MarketMetadata{
		TickSizeInQuoteAtomsPerBaseUnit: row.TickSizeInQuoteAtomsPerBaseUnit,
		QuoteAtomsPerQuoteUnit:          row.QuoteAtomsPerQuoteUnit,
		RawBaseUnitsPerBaseUnit:         uint32(row.RawBaseUnitsPerBaseUnit),
		QuoteDecimals:                   row.QuoteDecimals,
	}
	resp.OpenPrice = meta.PriceFromTicks(row.Open).String()
	resp.HighPrice = meta.PriceFromTicks(row.High).String()
	resp.LowPrice = meta.PriceFromTicks(row.Low).String()
	resp.ClosePrice = meta.PriceFromTicks(row.Close).String()
}
