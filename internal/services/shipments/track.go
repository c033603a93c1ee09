package shipments

import (
	"context"
	"sort"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/visibility"
	"github.com/pkg/errors"
)

// Track отдаёт представление отправления для любого зрителя, включая анонимного.
// Недостающие вехи и текущая точка дописываются при чтении; запись только если что-то изменилось.
func (s *Service) Track(ctx context.Context, viewer *models.Identity, trackingID string) (visibility.View, error) {
	trackingID, err := cleanID(trackingID)
	if err != nil {
		return visibility.View{}, err
	}
	sh, err := s.repo.GetShipment(ctx, trackingID)
	if err != nil {
		return visibility.View{}, err
	}

	if s.backfill(sh.Clone()) {
		if sh, err = s.backfillAndSave(ctx, trackingID); err != nil {
			return visibility.View{}, err
		}
	}
	return visibility.Render(sh, viewer), nil
}

func (s *Service) backfillAndSave(ctx context.Context, trackingID string) (*models.Shipment, error) {
	unlock := s.locks.Lock(trackingID)
	defer unlock()

	sh, err := s.repo.GetShipment(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if !s.backfill(sh) {
		return sh, nil
	}
	if err := s.repo.PutShipment(ctx, sh); err != nil {
		return nil, errors.Wrap(err, "save shipment")
	}
	s.notify(ctx, sh, messages.OpTracked)
	return sh, nil
}

func (s *Service) backfill(sh *models.Shipment) bool {
	changed := s.journal.Reconcile(sh)
	if sh.CurrentLocation == nil && len(sh.Route) > 0 {
		last := sh.Route[len(sh.Route)-1]
		sh.CurrentLocation = &models.Location{Lat: last.Lat, Lng: last.Lng}
		changed = true
	}
	return changed
}

// List отдаёт все отправления для панели администратора.
func (s *Service) List(ctx context.Context, actor *models.Identity) ([]*models.Shipment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.ListShipments(ctx)
}

// ListMine отдаёт отправления зрителя, поздние ожидаемые даты первыми.
func (s *Service) ListMine(ctx context.Context, viewer *models.Identity) ([]visibility.View, error) {
	if !viewer.LoggedIn() {
		return nil, models.ErrUnauthenticated
	}
	owned, err := s.repo.ListShipmentsByOwner(ctx, viewer.Email)
	if err != nil {
		return nil, errors.Wrap(err, "list shipments")
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return estimate(owned[i]) > estimate(owned[j])
	})
	out := make([]visibility.View, 0, len(owned))
	for _, sh := range owned {
		out = append(out, visibility.Render(sh, viewer))
	}
	return out, nil
}

// LatestForOwner выбирает отправление для кнопки поддержки: с самой поздней датой последнего события.
// При равенстве побеждает следующее по порядку обхода.
func (s *Service) LatestForOwner(ctx context.Context, viewer *models.Identity) (string, error) {
	if !viewer.LoggedIn() {
		return "", models.ErrUnauthenticated
	}
	owned, err := s.repo.ListShipmentsByOwner(ctx, viewer.Email)
	if err != nil {
		return "", errors.Wrap(err, "list shipments")
	}
	latestID, latestTime := "", ""
	for _, sh := range owned {
		t := ""
		if n := len(sh.Events); n > 0 {
			t = sh.Events[n-1].Date
		}
		if t >= latestTime {
			latestID, latestTime = sh.TrackingID, t
		}
	}
	if latestID == "" {
		return "", errors.Wrap(models.ErrNotFound, "no shipment found for your account yet")
	}
	return latestID, nil
}

// PaymentDetails для страницы оплаты: только неоплаченный сбор владельца или для администратора.
func (s *Service) PaymentDetails(ctx context.Context, viewer *models.Identity, trackingID string) (*models.Fee, error) {
	trackingID, err := cleanID(trackingID)
	if err != nil {
		return nil, err
	}
	sh, err := s.ownedOrAdmin(ctx, viewer, trackingID)
	if err != nil {
		return nil, err
	}
	if sh.Fees == nil {
		return nil, models.ErrNoFees
	}
	if sh.Fees.Paid {
		return nil, models.ErrAlreadyPaid
	}
	return sh.Fees, nil
}

func estimate(sh *models.Shipment) string {
	if sh.EstimatedDelivery == nil {
		return ""
	}
	return *sh.EstimatedDelivery
}
