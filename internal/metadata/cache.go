package metadata

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/solscope/phoenixscope/internal/ledger"
	"github.com/solscope/phoenixscope/internal/model"
	"github.com/solscope/phoenixscope/internal/phoenix"
	"github.com/solscope/phoenixscope/internal/pkg/apperrors"
)

// Cache is a read-through store of per-market conversion constants.
// Entries are effectively static per market, so there is no eviction;
// they live for the process lifetime.
type Cache struct {
	ledger ledger.Client
	logger *slog.Logger

	mu      sync.RWMutex
	markets map[string]*model.MarketMetadata

	// group coalesces concurrent misses for the same key into one fetch.
	group singleflight.Group
}

func NewCache(client ledger.Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		ledger:  client,
		logger:  logger,
		markets: make(map[string]*model.MarketMetadata),
	}
}

// Get returns the metadata for a market, fetching and decoding the
// market account header on first reference. The read path takes only
// an RLock, so a hit never blocks behind a miss-fill for another key.
func (c *Cache) Get(ctx context.Context, marketID string) (*model.MarketMetadata, error) {
	c.mu.RLock()
	meta, ok := c.markets[marketID]
	c.mu.RUnlock()
	if ok {
		return meta, nil
	}

	v, err, _ := c.group.Do(marketID, func() (interface{}, error) {
		// Re-check under the flight: a racing caller may have filled it.
		c.mu.RLock()
		cached, ok := c.markets[marketID]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		data, err := c.ledger.AccountData(ctx, marketID)
		if err != nil {
			return nil, apperrors.NewMetadataUnavailable(marketID, err)
		}
		decoded, err := phoenix.DecodeMarketHeader(marketID, data)
		if err != nil {
			return nil, apperrors.NewMetadataUnavailable(marketID, err)
		}

		c.mu.Lock()
		c.markets[marketID] = decoded
		c.mu.Unlock()
		return decoded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.MarketMetadata), nil
}

// Warm eagerly populates the cache from a list of known markets.
// Best effort: a market that fails to load is logged and skipped.
func (c *Cache) Warm(ctx context.Context, marketIDs []string) {
	for _, id := range marketIDs {
		if _, err := c.Get(ctx, id); err != nil {
			c.logger.Warn("failed to warm market metadata", "market", id, "error", err)
		}
	}
}

// Len reports how many markets are cached. Used by tests and the
// inspector summary.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markets)
}
