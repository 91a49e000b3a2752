package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridwatt/energymarket/internal/types"
)

const tapeKey = "trades:recent"

// Tape is a capped, most-recent-first record of settled trades kept in a
// Redis sorted set. It is a read-optimized sidecar, not the system of
// record; the trade store owns durability.
type Tape struct {
	client *redis.Client
	cap    int
}

// NewTape connects to Redis and returns a tape capped at cfg.MaxTrades
// entries (FIFO eviction).
func NewTape(cfg Config) (*Tape, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	capN := cfg.MaxTrades
	if capN <= 0 {
		capN = 1000
	}
	return &Tape{client: client, cap: capN}, nil
}

// Append pushes a settled trade onto the tape and trims the oldest entries
// past the cap, in one pipeline.
func (t *Tape) Append(ctx context.Context, trade *types.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	data, err := json.Marshal(trade)
	if err != nil {
		return err
	}

	pipe := t.client.Pipeline()
	pipe.ZAdd(ctx, tapeKey, redis.Z{
		Score:  float64(trade.ExecutedAt.UnixNano()),
		Member: data,
	})
	pipe.ZRemRangeByRank(ctx, tapeKey, 0, int64(-t.cap-1))

	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit trades, newest first. Entries that fail to
// decode are skipped.
func (t *Tape) Recent(ctx context.Context, limit int) ([]*types.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if limit <= 0 || limit > t.cap {
		limit = 100
	}

	results, err := t.client.ZRevRange(ctx, tapeKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	trades := make([]*types.Trade, 0, len(results))
	for _, data := range results {
		var trade types.Trade
		if err := json.Unmarshal([]byte(data), &trade); err != nil {
			continue
		}
		trades = append(trades, &trade)
	}
	return trades, nil
}

func (t *Tape) Close() error {
	return t.client.Close()
}
