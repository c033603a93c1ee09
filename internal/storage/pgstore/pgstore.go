package pgstore

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const (
	collectionShipments = "shipments"
	collectionChats     = "chats"
)

// CorruptHook вызывается, когда документ не удалось разобрать и он подменён пустым значением.
type CorruptHook func(collection, key string, err error)

type Option func(*Storage)

func WithCorruptHook(h CorruptHook) Option {
	return func(s *Storage) { s.onCorrupt = h }
}

type Storage struct {
	db *pgxpool.Pool

	onCorrupt    CorruptHook
	corruptCount atomic.Int64
}

func New(connString string, opts ...Option) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db, onCorrupt: logCorrupt}
	for _, o := range opts {
		o(s)
	}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// CorruptDocuments считает документы, отброшенные как нечитаемые с момента старта.
func (s *Storage) CorruptDocuments() int64 {
	return s.corruptCount.Load()
}

func (s *Storage) corrupt(collection, key string, err error) {
	s.corruptCount.Add(1)
	if s.onCorrupt != nil {
		s.onCorrupt(collection, key, err)
	}
}

func logCorrupt(collection, key string, err error) {
	slog.Warn("corrupt document replaced with empty default", "collection", collection, "key", key, "error", err.Error())
}
