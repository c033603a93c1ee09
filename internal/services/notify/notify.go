package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/escrow"
	"github.com/BearBump/ShipDesk/internal/services/history"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Notifier публикует shipment.updated после успешных изменений. Ошибки только логируются:
// запрос, изменивший отправление, не должен падать из-за брокера.
type Notifier struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	now      func() time.Time
	timeout  time.Duration
}

func New(producer Producer, topic string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		producer: producer,
		topic:    topic,
		logger:   logger,
		now:      time.Now,
		timeout:  3 * time.Second,
	}
}

// ShipmentChanged безопасен для nil-получателя и для пустого producer.
func (n *Notifier) ShipmentChanged(ctx context.Context, s *models.Shipment, op string) {
	if n == nil || n.producer == nil || s == nil {
		return
	}
	msg := messages.ShipmentUpdated{
		TrackingID: s.TrackingID,
		Op:         op,
		UpdatedAt:  n.now().UTC(),
	}
	if op != messages.OpDeleted {
		msg.Status = s.Status
		msg.Bucket = string(history.Bucket(s.Status))
		msg.FeeState = string(escrow.State(s.Fees))
		msg.Events = len(s.Events)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		n.logger.Warn("shipment.updated marshal failed", "tracking_id", s.TrackingID, "err", err)
		return
	}

	// отдельный таймаут: отмена входящего запроса не должна обрывать уже принятое событие
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.producer.Publish(pctx, n.topic, []byte(s.TrackingID), b); err != nil {
		n.logger.Warn("shipment.updated publish failed", "tracking_id", s.TrackingID, "topic", n.topic, "err", err)
	}
}
