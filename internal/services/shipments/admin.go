package shipments

import (
	"context"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/pkg/errors"
)

// Delete удаляет отправление; тред чата остаётся. Неизвестный id не ошибка.
func (s *Service) Delete(ctx context.Context, actor *models.Identity, trackingID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	trackingID, err := cleanID(trackingID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	sh, err := s.repo.GetShipment(ctx, trackingID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	if err := s.repo.DeleteShipment(ctx, trackingID); err != nil {
		return errors.Wrap(err, "delete shipment")
	}
	s.logger.Info("shipment deleted", "tracking_id", trackingID)
	s.notify(ctx, sh, messages.OpDeleted)
	return nil
}

// ApplyStatusReport применяет скан перевозчика с правами системы. Неизвестные id пропускаются.
func (s *Service) ApplyStatusReport(ctx context.Context, r messages.StatusReported) error {
	trackingID, err := cleanID(r.TrackingID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	sh, err := s.repo.GetShipment(ctx, trackingID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		s.logger.Info("status report for unknown shipment skipped", "tracking_id", trackingID)
		return nil
	case err != nil:
		return err
	}

	changed := false
	old := sh.Status
	if r.Status != "" && r.Status != old {
		sh.Status = r.Status
		loc := r.Location
		if loc == "" {
			loc = "Carrier Scan"
		}
		s.journal.Append(sh, loc, "Carrier reported: "+r.Status)
		s.journal.NoteStatusChange(sh, old, sh.Status)
		changed = true
	}
	if p := r.CurrentLocation; p != nil {
		if sh.CurrentLocation == nil || *sh.CurrentLocation != (models.Location{Lat: p.Lat, Lng: p.Lng}) {
			sh.CurrentLocation = &models.Location{Lat: p.Lat, Lng: p.Lng}
			changed = true
		}
	}
	if s.journal.Reconcile(sh) {
		changed = true
	}
	if !changed {
		return nil
	}

	if err := s.repo.PutShipment(ctx, sh); err != nil {
		return errors.Wrap(err, "save shipment")
	}
	s.logger.Info("status report applied", "tracking_id", trackingID, "status", sh.Status, "actor", models.SystemIdentity.Email)
	s.notify(ctx, sh, messages.OpStatusReported)
	return nil
}
