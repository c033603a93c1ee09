package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/pkg/errors"
)

type Applier interface {
	ApplyStatusReport(ctx context.Context, r messages.StatusReported) error
}

type Consumer interface {
	Consume(ctx context.Context, handle func(key, value []byte) error) error
}

// Feed применяет сканы перевозчика из Kafka. Битые сообщения коммитятся и пропускаются;
// ошибка применения после ретраев останавливает чтение без коммита.
type Feed struct {
	applier  Applier
	consumer Consumer
	topic    string
	logger   *slog.Logger

	retries    int
	retryDelay time.Duration

	startedAtUnixNano   int64
	lastAppliedUnixNano atomic.Int64
	totalReceived       atomic.Int64
	totalApplied        atomic.Int64
	totalSkipped        atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(applier Applier, consumer Consumer, topic string) *Feed {
	return &Feed{
		applier:           applier,
		consumer:          consumer,
		topic:             topic,
		logger:            slog.Default(),
		retries:           5,
		retryDelay:        200 * time.Millisecond,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (f *Feed) WithRetry(retries int, delay time.Duration) *Feed {
	if retries >= 0 {
		f.retries = retries
	}
	if delay > 0 {
		f.retryDelay = delay
	}
	return f
}

func (f *Feed) WithLogger(l *slog.Logger) *Feed {
	if l != nil {
		f.logger = l
	}
	return f
}

func (f *Feed) Run(ctx context.Context) error {
	f.logger.Info("status feed started", "topic", f.topic)
	err := f.consumer.Consume(ctx, func(_ []byte, value []byte) error {
		return f.handle(ctx, value)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (f *Feed) handle(ctx context.Context, value []byte) error {
	f.totalReceived.Add(1)
	r, err := messages.DecodeStatusReported(value)
	if err != nil {
		f.totalSkipped.Add(1)
		f.logger.Warn("status report skipped", "topic", f.topic, "err", err)
		return nil
	}

	for attempt := 0; ; attempt++ {
		err = f.applier.ApplyStatusReport(ctx, r)
		if err == nil {
			f.totalApplied.Add(1)
			f.lastAppliedUnixNano.Store(time.Now().UTC().UnixNano())
			return nil
		}
		if attempt >= f.retries || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt+1) * f.retryDelay):
		}
	}

	f.totalErrors.Add(1)
	f.lastErrorMu.Lock()
	f.lastError = err.Error()
	f.lastErrorMu.Unlock()
	f.logger.Error("status report apply failed", "tracking_id", r.TrackingID, "err", err)
	return errors.Wrap(err, "apply status report")
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastAppliedAt *time.Time `json:"lastAppliedAt,omitempty"`
	TotalReceived int64      `json:"totalReceived"`
	TotalApplied  int64      `json:"totalApplied"`
	TotalSkipped  int64      `json:"totalSkipped"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (f *Feed) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, f.startedAtUnixNano).UTC(),
		TotalReceived: f.totalReceived.Load(),
		TotalApplied:  f.totalApplied.Load(),
		TotalSkipped:  f.totalSkipped.Load(),
		TotalErrors:   f.totalErrors.Load(),
	}
	if n := f.lastAppliedUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastAppliedAt = &t
	}
	f.lastErrorMu.Lock()
	st.LastError = f.lastError
	f.lastErrorMu.Unlock()
	return st
}
