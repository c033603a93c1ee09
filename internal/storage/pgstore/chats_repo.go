package pgstore

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) GetThread(ctx context.Context, trackingID string) (*models.ChatThread, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM chat_threads WHERE tracking_id = $1`, trackingID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select chat thread")
	}
	th, ok := s.decodeThread(trackingID, doc)
	if !ok {
		return nil, models.ErrNotFound
	}
	return th, nil
}

func (s *Storage) ListThreadsByOwner(ctx context.Context, ownerEmail string) ([]*models.ChatThread, error) {
	rows, err := s.db.Query(ctx, `SELECT tracking_id, doc FROM chat_threads WHERE owner_email = $1 ORDER BY tracking_id`,
		models.NormalizeEmail(ownerEmail))
	if err != nil {
		return nil, errors.Wrap(err, "select chat threads")
	}
	defer rows.Close()

	out := make([]*models.ChatThread, 0)
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, errors.Wrap(err, "scan chat thread")
		}
		if th, ok := s.decodeThread(id, doc); ok {
			out = append(out, th)
		}
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) PutThread(ctx context.Context, th *models.ChatThread) error {
	return putThread(ctx, s.db, th)
}

func putThread(ctx context.Context, db execer, th *models.ChatThread) error {
	doc, err := json.Marshal(th)
	if err != nil {
		return errors.Wrap(err, "marshal chat thread")
	}
	_, err = db.Exec(ctx, `
INSERT INTO chat_threads (tracking_id, owner_email, doc, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (tracking_id)
DO UPDATE SET owner_email = EXCLUDED.owner_email, doc = EXCLUDED.doc, updated_at = now()
`, th.TrackingID, models.NormalizeEmail(th.OwnerEmail), doc)
	return errors.Wrap(err, "upsert chat thread")
}

func (s *Storage) decodeThread(id string, doc []byte) (*models.ChatThread, bool) {
	th := models.NewChatThread(id, "")
	if err := json.Unmarshal(doc, th); err != nil {
		s.corrupt(collectionChats, id, err)
		return nil, false
	}
	th.TrackingID = id
	if th.Messages == nil {
		th.Messages = []models.ChatMessage{}
	}
	return th, true
}
