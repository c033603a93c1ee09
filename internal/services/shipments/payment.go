package shipments

import (
	"context"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/chats"
	"github.com/pkg/errors"
)

// InitiatePayment выдаёт код и пишет его системным сообщением в тред; оба документа в одной транзакции.
func (s *Service) InitiatePayment(ctx context.Context, viewer *models.Identity, trackingID, paymentMethod, payerEmail string) (*models.ChatThread, error) {
	trackingID, err := cleanID(trackingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedOrAdmin(ctx, viewer, trackingID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	sh, err := s.repo.GetShipment(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	code, err := s.machine.Initiate(sh, paymentMethod, payerEmail)
	if err != nil {
		return nil, err
	}

	th, err := s.repo.GetThread(ctx, trackingID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	th, _ = chats.EnsureThread(th, trackingID, sh.OwnerEmail)
	msg, _ := chats.AppendMessage(th, models.SenderSystem, chats.PaymentInitiatedText(code), s.now())

	if err := s.repo.PutShipmentAndThread(ctx, sh, th); err != nil {
		return nil, errors.Wrap(err, "save shipment and thread")
	}
	s.logger.Info("payment initiated", "tracking_id", trackingID, "method", sh.Fees.PaymentMethod)
	if s.hub != nil {
		s.hub.Broadcast(trackingID, msg)
	}
	s.notify(ctx, sh, messages.OpPaymentInit)
	return th, nil
}

// VerifyPayment выпускает груз после ручной проверки оплаты.
func (s *Service) VerifyPayment(ctx context.Context, actor *models.Identity, trackingID string) (*models.Shipment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	trackingID, err := cleanID(trackingID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	sh, err := s.repo.GetShipment(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if err := s.machine.Verify(sh); err != nil {
		return nil, err
	}
	if err := s.repo.PutShipment(ctx, sh); err != nil {
		return nil, errors.Wrap(err, "save shipment")
	}
	s.logger.Info("payment verified", "tracking_id", trackingID)
	s.notify(ctx, sh, messages.OpPaymentVerified)
	return sh, nil
}
