package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/solscope/phoenixscope/internal/ledger"
	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/phoenix"
	"github.com/solscope/phoenixscope/internal/pkg/metrics"
)

// FillStore receives decoded fill events paired with their market's
// metadata snapshot.
type FillStore interface {
	Insert(ctx context.Context, ev model.CanonicalEvent, fill model.Fill, meta *model.MarketMetadata) error
}

// CursorRepo persists the resume point of the signature walk.
type CursorRepo interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, signature string) error
}

// Publisher fans persisted fills out to live subscribers. Optional.
type Publisher interface {
	Publish(msg model.FillMessage)
}

type Options struct {
	ProgramID    string
	PageLimit    int
	MaxPages     int
	PollInterval time.Duration
}

// Ingestor walks the exchange program's transaction history, decodes
// each transaction's event log, and persists fill events.
type Ingestor struct {
	ledger  ledger.Client
	decoder *phoenix.Decoder
	meta    phoenix.MetadataSource
	store   FillStore
	cursor  CursorRepo
	pub     Publisher
	opts    Options
	logger  *slog.Logger
}

func New(client ledger.Client, decoder *phoenix.Decoder, meta phoenix.MetadataSource, store FillStore, cursor CursorRepo, pub Publisher, opts Options, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = 1000
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Second
	}
	return &Ingestor{
		ledger:  client,
		decoder: decoder,
		meta:    meta,
		store:   store,
		cursor:  cursor,
		pub:     pub,
		opts:    opts,
		logger:  logger,
	}
}

// Run walks history until the context is cancelled. Signatures are
// applied oldest-first: the RPC lists newest-first, so each pass
// collects pages back to the persisted cursor and replays them in
// reverse. Each pass backfills at most MaxPages*PageLimit signatures;
// history older than that bound is dropped, not queued for later.
// Per-signature failures are logged and skipped; delivery to the store
// is best-effort, at-least-once, with no deduplication at this layer.
func (in *Ingestor) Run(ctx context.Context) error {
	in.logger.Info("ingestion loop started", "program", in.opts.ProgramID)

	ticker := time.NewTicker(in.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := in.pass(ctx); err != nil {
			in.logger.Error("ingestion pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			in.logger.Info("ingestion loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pass processes every signature newer than the cursor, oldest first.
func (in *Ingestor) pass(ctx context.Context) error {
	last, err := in.cursor.Get(ctx)
	if err != nil {
		in.logger.Warn("cursor read failed, walking without resume point", "error", err)
		last = ""
	}

	pending, err := in.collect(ctx, last)
	if err != nil {
		return err
	}

	for i := len(pending) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sig := pending[i]
		if err := in.processSignature(ctx, sig); err != nil {
			metrics.SignaturesProcessed.WithLabelValues("error").Inc()
			in.logger.Error("failed to process signature", "signature", sig.Signature, "error", err)
		} else {
			metrics.SignaturesProcessed.WithLabelValues("ok").Inc()
		}

		// Advance past the signature either way; a persistent failure
		// would otherwise wedge the walk forever.
		if err := in.cursor.Set(ctx, sig.Signature); err != nil {
			in.logger.Warn("cursor write failed", "signature", sig.Signature, "error", err)
		}
	}
	return nil
}

// collect pages signatures newest-first until it reaches the cursor or
// the page cap, returning them still newest-first. MaxPages bounds the
// backfill on each pass: when the cap fires before the cursor (or
// genesis) is reached, everything older than the collected pages stays
// unvisited, and once the cursor advances it is skipped for good.
func (in *Ingestor) collect(ctx context.Context, until string) ([]ledger.SignatureInfo, error) {
	var collected []ledger.SignatureInfo
	before := ""

	for page := 0; page < in.opts.MaxPages; page++ {
		infos, err := in.ledger.Signatures(ctx, in.opts.ProgramID, before, in.opts.PageLimit)
		if err != nil {
			return nil, err
		}
		if len(infos) == 0 {
			return collected, nil
		}

		for _, info := range infos {
			if until != "" && info.Signature == until {
				return collected, nil
			}
			collected = append(collected, info)
		}
		before = infos[len(infos)-1].Signature
	}

	in.logger.Warn("page cap reached before cursor, any older history is skipped this pass",
		"max_pages", in.opts.MaxPages, "collected", len(collected), "cursor", until)
	return collected, nil
}

func (in *Ingestor) processSignature(ctx context.Context, sig ledger.SignatureInfo) error {
	tx, err := in.ledger.Transaction(ctx, sig.Signature)
	if err != nil {
		return err
	}
	// Failed transactions and transactions without an event log decode
	// to nothing; both are skipped uniformly.
	if tx.Failed || len(tx.LogData) == 0 {
		metrics.SignaturesProcessed.WithLabelValues("empty").Inc()
		return nil
	}

	batches := make([]*phoenix.RawBatch, 0, len(tx.LogData))
	for _, data := range tx.LogData {
		batch, err := phoenix.ParseEventBatch(data)
		if err != nil {
			metrics.DecodeFailures.Inc()
			in.logger.Warn("undecodable event batch", "signature", sig.Signature, "error", err)
			continue
		}
		batches = append(batches, batch)
	}

	events, err := in.decoder.Decode(ctx, sig.Signature, batches)
	if err != nil {
		metrics.DecodeFailures.Inc()
		return err
	}

	for _, ev := range events {
		fill, ok := ev.Details.(model.Fill)
		if !ok {
			continue
		}

		meta, err := in.meta.Get(ctx, ev.Market)
		if err != nil {
			in.logger.Error("metadata unavailable for fill", "market", ev.Market, "error", err)
			continue
		}

		if err := in.store.Insert(ctx, ev, fill, meta); err != nil {
			metrics.StoreWriteFailures.Inc()
			in.logger.Error("failed to persist fill", "signature", ev.Signature, "event_index", ev.EventIndex, "error", err)
			continue
		}
		metrics.FillsPersisted.Inc()

		if in.pub != nil {
			in.pub.Publish(model.FillMessage{
				Market:         ev.Market,
				SequenceNumber: ev.SequenceNumber,
				Slot:           ev.Slot,
				Timestamp:      ev.Timestamp,
				Signature:      ev.Signature,
				Maker:          fill.Maker,
				Taker:          fill.Taker,
				PriceInTicks:   fill.PriceInTicks,
				BaseLotsFilled: fill.BaseLotsFilled,
				Side:           fill.SideFilled,
				IsFullFill:     fill.IsFullFill,
			})
		}
	}
	return nil
}
