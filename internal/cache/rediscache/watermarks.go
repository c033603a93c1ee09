package rediscache

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const watermarkPrefix = "chat:lastread:"

// Watermarks хранит отметки прочтения чатов: один hash на личность, поле tracking_id, значение в unix-секундах.
type Watermarks struct {
	c   *redis.Client
	ttl time.Duration
}

func NewWatermarks(addr string, ttl time.Duration) *Watermarks {
	return &Watermarks{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		ttl: ttl,
	}
}

func (w *Watermarks) MarkRead(ctx context.Context, identity, trackingID string, at time.Time) error {
	key := watermarkPrefix + identity
	pipe := w.c.TxPipeline()
	pipe.HSet(ctx, key, trackingID, at.Unix())
	if w.ttl > 0 {
		pipe.Expire(ctx, key, w.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "redis hset watermark")
	}
	return nil
}

func (w *Watermarks) LastRead(ctx context.Context, identity string) (map[string]int64, error) {
	raw, err := w.c.HGetAll(ctx, watermarkPrefix+identity).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis hgetall watermark")
	}
	out := make(map[string]int64, len(raw))
	for id, v := range raw {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			// чужое значение в hash не должно ломать счётчик, поле считается непрочитанным
			continue
		}
		out[id] = ts
	}
	return out, nil
}

func (w *Watermarks) Ping(ctx context.Context) error {
	return errors.Wrap(w.c.Ping(ctx).Err(), "redis ping")
}

func (w *Watermarks) Close() error {
	return w.c.Close()
}
