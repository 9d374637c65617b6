// Inspector decodes one transaction signature from the command line and
// prints the canonical events, for poking at the upstream surface
// without running the full pipeline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/solscope/phoenixscope/internal/config"
	"github.com/solscope/phoenixscope/internal/ledger"
	"github.com/solscope/phoenixscope/internal/metadata"
	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/phoenix"
	"github.com/solscope/phoenixscope/internal/pkg/logger"
)

func main() {
	sig := flag.String("signature", "", "transaction signature to decode")
	flag.Parse()

	if *sig == "" {
		fmt.Fprintln(os.Stderr, "usage: inspector -signature <tx signature>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	logger.Init(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := ledger.NewRPCClient(cfg.Ledger.RPCURL,
		ledger.WithCommitment(cfg.Ledger.Commitment),
		ledger.WithLogger(logger.Get()),
	)
	cache := metadata.NewCache(client, logger.Get())
	decoder := phoenix.NewDecoder(cache, logger.Get())

	tx, err := client.Transaction(ctx, *sig)
	if err != nil {
		logger.Fatal("Failed to fetch transaction", "error", err)
	}
	if tx.Failed {
		fmt.Println("transaction failed on chain; no events")
		return
	}

	var batches []*phoenix.RawBatch
	for _, data := range tx.LogData {
		batch, err := phoenix.ParseEventBatch(data)
		if err != nil {
			logger.Warn("skipping undecodable batch", "error", err)
			continue
		}
		batches = append(batches, batch)
	}

	events, err := decoder.Decode(ctx, *sig, batches)
	if err != nil {
		logger.Fatal("Failed to decode events", "error", err)
	}

	fmt.Printf("--- %d events ---\n", len(events))
	for _, ev := range events {
		out, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Println(string(out))

		if fill, ok := ev.Details.(model.Fill); ok {
			if meta, err := cache.Get(ctx, ev.Market); err == nil {
				fmt.Printf("  price: %s %s per %s\n",
					meta.PriceFromTicks(fill.PriceInTicks), meta.QuoteMint, meta.BaseMint)
			}
		}
	}
}
