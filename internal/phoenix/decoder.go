package phoenix

import (
	"context"
	"log/slog"

	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/pkg/apperrors"
)

// MetadataSource resolves conversion constants for a market. Implemented
// by the metadata cache; decoding never hits it more than once per
// market per call.
type MetadataSource interface {
	Get(ctx context.Context, marketID string) (*model.MarketMetadata, error)
}

// Decoder normalizes raw event batches into canonical events.
type Decoder struct {
	meta   MetadataSource
	logger *slog.Logger
}

func NewDecoder(meta MetadataSource, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{meta: meta, logger: logger}
}

// Decode produces the canonical event stream for one transaction. The
// trade direction is transaction-scoped: the first Fill fixes it (-1
// for a bid-side fill, +1 for ask) and every later FillSummary carries
// it; it stays 0 when no Fill precedes the summary. A nil or empty
// batch list decodes to an empty slice — the caller treats "no event
// log" and "zero events" uniformly.
func (d *Decoder) Decode(ctx context.Context, signature string, batches []*RawBatch) ([]model.CanonicalEvent, error) {
	var events []model.CanonicalEvent
	tradeDirection := 0

	// Metadata memoized per call so pathological transactions touching
	// one market many times cost a single lookup.
	metaByMarket := make(map[string]*model.MarketMetadata)
	lookup := func(marketID string) (*model.MarketMetadata, error) {
		if m, ok := metaByMarket[marketID]; ok {
			return m, nil
		}
		m, err := d.meta.Get(ctx, marketID)
		if err != nil {
			return nil, apperrors.NewMetadataUnavailable(marketID, err)
		}
		metaByMarket[marketID] = m
		return m, nil
	}

	for _, batch := range batches {
		if batch == nil {
			continue
		}
		header := batch.Header

		for _, raw := range batch.Events {
			base := model.CanonicalEvent{
				Market:         header.Market,
				SequenceNumber: header.SequenceNumber,
				Slot:           header.Slot,
				Timestamp:      header.Timestamp,
				Signature:      signature,
				Signer:         header.Signer,
				EventIndex:     uint64(raw.Index),
			}

			switch raw.Tag {
			case TagFill:
				f := raw.Fill
				side := model.SideFromOrderSequenceNumber(f.OrderSequenceNumber)
				base.Details = model.Fill{
					OrderSequenceNumber: f.OrderSequenceNumber,
					Maker:               f.MakerID,
					Taker:               header.Signer,
					PriceInTicks:        f.PriceInTicks,
					BaseLotsFilled:      f.BaseLotsFilled,
					BaseLotsRemaining:   f.BaseLotsRemaining,
					SideFilled:          side,
					IsFullFill:          f.BaseLotsRemaining == 0,
				}
				if tradeDirection == 0 {
					if side == model.Bid {
						tradeDirection = -1
					} else {
						tradeDirection = 1
					}
				}

			case TagReduce:
				r := raw.Reduce
				base.Details = model.Reduce{
					OrderSequenceNumber: r.OrderSequenceNumber,
					Maker:               header.Signer,
					PriceInTicks:        r.PriceInTicks,
					BaseLotsRemoved:     r.BaseLotsRemoved,
					BaseLotsRemaining:   r.BaseLotsRemaining,
					IsFullCancel:        r.BaseLotsRemaining == 0,
				}

			case TagPlace:
				p := raw.Place
				base.Details = model.Place{
					OrderSequenceNumber: p.OrderSequenceNumber,
					ClientOrderID:       p.ClientOrderID,
					Maker:               header.Signer,
					PriceInTicks:        p.PriceInTicks,
					BaseLotsPlaced:      p.BaseLotsPlaced,
				}

			case TagEvict:
				e := raw.Evict
				base.Details = model.Evict{
					OrderSequenceNumber: e.OrderSequenceNumber,
					Maker:               e.MakerID,
					PriceInTicks:        e.PriceInTicks,
					BaseLotsEvicted:     e.BaseLotsEvicted,
				}

			case TagFillSummary:
				s := raw.FillSummary
				meta, err := lookup(header.Market)
				if err != nil {
					return nil, err
				}
				base.Details = model.FillSummary{
					ClientOrderID:                 s.ClientOrderID,
					TotalBaseFilled:               s.TotalBaseLotsFilled * meta.BaseAtomsPerBaseLot,
					TotalQuoteFilledIncludingFees: s.TotalQuoteLotsFilled * meta.QuoteAtomsPerQuoteLot,
					TotalQuoteFees:                s.TotalFeeInQuoteLots * meta.QuoteAtomsPerQuoteLot,
					TradeDirection:                tradeDirection,
				}

			case TagFee:
				f := raw.Fee
				meta, err := lookup(header.Market)
				if err != nil {
					return nil, err
				}
				base.Details = model.Fee{
					FeesCollectedInQuoteAtoms: f.FeesCollectedInQuoteLots * meta.QuoteAtomsPerQuoteLot,
				}

			case TagTimeInForce:
				t := raw.TimeInForce
				base.Details = model.TimeInForce{
					OrderSequenceNumber:  t.OrderSequenceNumber,
					LastValidSlot:        t.LastValidSlot,
					LastValidUnixSeconds: t.LastValidUnixSeconds,
				}

			case TagExpiredOrder:
				// Expiry is a terminal full cancel; downstream handles it
				// as a Reduce with nothing remaining.
				e := raw.ExpiredOrder
				base.Details = model.Reduce{
					OrderSequenceNumber: e.OrderSequenceNumber,
					Maker:               e.MakerID,
					PriceInTicks:        e.PriceInTicks,
					BaseLotsRemoved:     e.BaseLotsRemoved,
					BaseLotsRemaining:   0,
					IsFullCancel:        true,
				}

			default:
				d.logger.Debug("skipping unknown event tag", "tag", uint8(raw.Tag), "signature", signature)
				continue
			}

			events = append(events, base)
		}
	}
	return events, nil
}
