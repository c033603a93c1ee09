package shipments

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/escrow"
	"github.com/BearBump/ShipDesk/internal/services/routes"
	"github.com/pkg/errors"
)

// ShipmentUpdate — форма администратора. Пустые строки означают «не менять».
type ShipmentUpdate struct {
	TrackingID           string          `json:"tracking_id"`
	Status               string          `json:"status"`
	CustomStatus         string          `json:"custom_status,omitempty"`
	OwnerEmail           string          `json:"owner_email,omitempty"`
	Origin               string          `json:"origin,omitempty"`
	Destination          string          `json:"destination,omitempty"`
	PackageDetails       string          `json:"package_details,omitempty"`
	EstimatedDelivery    string          `json:"estimated_delivery,omitempty"`
	EstimatedDeliveryTBD bool            `json:"estimated_delivery_tbd,omitempty"`
	FeeAmount            string          `json:"fees_amount,omitempty"`
	FeeReason            string          `json:"fees_reason,omitempty"`
	ClearFees            bool            `json:"clear_fees,omitempty"`
	FeesPaid             bool            `json:"fees_paid,omitempty"`
	Route                json.RawMessage `json:"route,omitempty"`
	CurrentLocation      json.RawMessage `json:"current_location,omitempty"`
}

// status учитывает выбор «Custom Status» с собственным текстом.
func (u ShipmentUpdate) status() string {
	st := strings.TrimSpace(u.Status)
	if custom := strings.TrimSpace(u.CustomStatus); st == models.StatusCustom && custom != "" {
		return custom
	}
	return st
}

type overrides struct {
	route    []models.Waypoint
	hasRoute bool
	location *models.Location
}

// parseOverrides разбирает структурные поля до любых изменений: ошибка отменяет всё обновление.
func parseOverrides(u ShipmentUpdate) (overrides, error) {
	var o overrides
	if raw := bytes.TrimSpace(u.Route); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if raw[0] != '[' {
			return o, errors.Wrap(models.ErrMalformedInput, "route must be a JSON array")
		}
		if err := json.Unmarshal(raw, &o.route); err != nil {
			return o, errors.Wrap(models.ErrMalformedInput, "invalid JSON for route")
		}
		if o.route == nil {
			o.route = []models.Waypoint{}
		}
		o.hasRoute = true
	}
	if raw := bytes.TrimSpace(u.CurrentLocation); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if raw[0] != '{' {
			return o, errors.Wrap(models.ErrMalformedInput, "current_location must be a JSON object")
		}
		var loc models.Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			return o, errors.Wrap(models.ErrMalformedInput, "invalid JSON for current_location")
		}
		o.location = &loc
	}
	return o, nil
}

// Upsert создаёт или перезаписывает отправление из формы администратора.
func (s *Service) Upsert(ctx context.Context, actor *models.Identity, u ShipmentUpdate) (*models.Shipment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	trackingID := strings.TrimSpace(u.TrackingID)
	if trackingID == "" || u.status() == "" {
		return nil, errors.Wrap(models.ErrValidation, "missing required fields (tracking_id, status)")
	}
	ov, err := parseOverrides(u)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	existing, err := s.repo.GetShipment(ctx, trackingID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		existing = models.NewShipment(trackingID)
	case err != nil:
		return nil, err
	}

	sh := existing.Clone()
	if owner := models.NormalizeEmail(u.OwnerEmail); owner != "" {
		sh.OwnerEmail = owner
	}
	s.apply(sh, existing, u, ov)

	if err := s.repo.PutShipment(ctx, sh); err != nil {
		return nil, errors.Wrap(err, "save shipment")
	}
	s.logger.Info("shipment upserted", "tracking_id", trackingID, "status", sh.Status)
	s.notify(ctx, sh, messages.OpUpserted)
	return sh, nil
}

// Update правит существующее отправление из списка. Неизвестный id даёт ErrNotFound.
func (s *Service) Update(ctx context.Context, actor *models.Identity, trackingID string, u ShipmentUpdate) (*models.Shipment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	trackingID, err := cleanID(trackingID)
	if err != nil {
		return nil, err
	}
	ov, err := parseOverrides(u)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	existing, err := s.repo.GetShipment(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	sh := existing.Clone()
	s.apply(sh, existing, u, ov)

	if err := s.repo.PutShipment(ctx, sh); err != nil {
		return nil, errors.Wrap(err, "save shipment")
	}
	s.logger.Info("shipment updated", "tracking_id", trackingID, "status", sh.Status)
	s.notify(ctx, sh, messages.OpUpdated)
	return sh, nil
}

// apply: общий конвейер, поля, маршрут, сборы, отметка оплаты, журнал, вехи.
func (s *Service) apply(sh, existing *models.Shipment, u ShipmentUpdate, ov overrides) {
	oldStatus := existing.Status
	oldEst := ""
	if existing.EstimatedDelivery != nil {
		oldEst = *existing.EstimatedDelivery
	}

	if st := u.status(); st != "" {
		sh.Status = st
	}
	if v := strings.TrimSpace(u.Origin); v != "" {
		sh.Origin = v
	}
	if v := strings.TrimSpace(u.Destination); v != "" {
		sh.Destination = v
	}
	if v := strings.TrimSpace(u.PackageDetails); v != "" {
		sh.PackageDetails = v
	}

	// TBD затирает сохранённую дату: после снятия флага её придётся ввести заново
	sh.EstimatedDeliveryTBD = u.EstimatedDeliveryTBD
	if u.EstimatedDeliveryTBD {
		sh.EstimatedDelivery = nil
	} else if v := strings.TrimSpace(u.EstimatedDelivery); v != "" {
		sh.EstimatedDelivery = &v
	}

	switch {
	case ov.hasRoute:
		sh.Route = ov.route
	case routes.ShouldRegenerate(existing.Origin, existing.Destination, sh.Origin, sh.Destination, sh.Route):
		sh.Route = routes.Generate(sh.Origin, sh.Destination)
	}
	if ov.location != nil {
		sh.CurrentLocation = ov.location
	}

	if u.ClearFees {
		s.machine.Clear(sh)
	} else {
		amount, ok := escrow.ParseAmount(u.FeeAmount)
		if !ok {
			s.logger.Warn("fee amount is not a number, left unset", "tracking_id", sh.TrackingID, "raw", u.FeeAmount)
		}
		s.machine.Assess(sh, amount, u.FeeReason)
	}
	if u.FeesPaid {
		s.machine.MarkPaid(sh)
	}

	s.journal.NoteStatusChange(sh, oldStatus, sh.Status)
	newEst := ""
	if sh.EstimatedDelivery != nil {
		newEst = *sh.EstimatedDelivery
	}
	s.journal.NoteEstimateChange(sh, oldEst, newEst)
	s.journal.Reconcile(sh)
}
