package pgstore

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Storage) GetShipment(ctx context.Context, trackingID string) (*models.Shipment, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM shipments WHERE tracking_id = $1`, trackingID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment")
	}
	sh, ok := s.decodeShipment(trackingID, doc)
	if !ok {
		return nil, models.ErrNotFound
	}
	return sh, nil
}

func (s *Storage) ListShipments(ctx context.Context) ([]*models.Shipment, error) {
	return s.queryShipments(ctx, `SELECT tracking_id, doc FROM shipments ORDER BY tracking_id`)
}

func (s *Storage) ListShipmentsByOwner(ctx context.Context, ownerEmail string) ([]*models.Shipment, error) {
	return s.queryShipments(ctx, `SELECT tracking_id, doc FROM shipments WHERE owner_email = $1 ORDER BY tracking_id`,
		models.NormalizeEmail(ownerEmail))
}

func (s *Storage) PutShipment(ctx context.Context, sh *models.Shipment) error {
	return putShipment(ctx, s.db, sh)
}

func (s *Storage) DeleteShipment(ctx context.Context, trackingID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM shipments WHERE tracking_id = $1`, trackingID)
	return errors.Wrap(err, "delete shipment")
}

// PutShipmentAndThread пишет отправление и его чат одной транзакцией.
func (s *Storage) PutShipmentAndThread(ctx context.Context, sh *models.Shipment, th *models.ChatThread) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := putShipment(ctx, tx, sh); err != nil {
		return err
	}
	if err := putThread(ctx, tx, th); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func putShipment(ctx context.Context, db execer, sh *models.Shipment) error {
	doc, err := json.Marshal(sh)
	if err != nil {
		return errors.Wrap(err, "marshal shipment")
	}
	_, err = db.Exec(ctx, `
INSERT INTO shipments (tracking_id, owner_email, doc, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (tracking_id)
DO UPDATE SET owner_email = EXCLUDED.owner_email, doc = EXCLUDED.doc, updated_at = now()
`, sh.TrackingID, models.NormalizeEmail(sh.OwnerEmail), doc)
	return errors.Wrap(err, "upsert shipment")
}

func (s *Storage) queryShipments(ctx context.Context, q string, args ...any) ([]*models.Shipment, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	defer rows.Close()

	out := make([]*models.Shipment, 0)
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		if sh, ok := s.decodeShipment(id, doc); ok {
			out = append(out, sh)
		}
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) decodeShipment(id string, doc []byte) (*models.Shipment, bool) {
	sh := models.NewShipment(id)
	if err := json.Unmarshal(doc, sh); err != nil {
		s.corrupt(collectionShipments, id, err)
		return nil, false
	}
	sh.TrackingID = id
	return sh, true
}
