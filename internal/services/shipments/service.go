package shipments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/keylock"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/escrow"
	"github.com/BearBump/ShipDesk/internal/services/history"
	"github.com/pkg/errors"
)

type Repository interface {
	GetShipment(ctx context.Context, trackingID string) (*models.Shipment, error)
	ListShipments(ctx context.Context) ([]*models.Shipment, error)
	ListShipmentsByOwner(ctx context.Context, ownerEmail string) ([]*models.Shipment, error)
	PutShipment(ctx context.Context, s *models.Shipment) error
	DeleteShipment(ctx context.Context, trackingID string) error
	GetThread(ctx context.Context, trackingID string) (*models.ChatThread, error)
	PutShipmentAndThread(ctx context.Context, s *models.Shipment, th *models.ChatThread) error
}

type Notifier interface {
	ShipmentChanged(ctx context.Context, s *models.Shipment, op string)
}

type Broadcaster interface {
	Broadcast(trackingID string, msg models.ChatMessage)
}

type Service struct {
	repo    Repository
	locks   *keylock.Locker
	journal *history.Journal
	machine *escrow.Machine

	notifier Notifier
	hub      Broadcaster
	logger   *slog.Logger
	now      func() time.Time
}

// New: locks должен быть общим с сервисом чатов, иначе запись треда и отправления разойдётся.
func New(repo Repository, locks *keylock.Locker, journal *history.Journal, machine *escrow.Machine) *Service {
	if locks == nil {
		locks = keylock.New()
	}
	if journal == nil {
		journal = history.NewJournal(nil)
	}
	if machine == nil {
		machine = escrow.New(journal, nil, nil)
	}
	return &Service{
		repo:    repo,
		locks:   locks,
		journal: journal,
		machine: machine,
		logger:  slog.Default(),
		now:     time.Now,
	}
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.hub = b
	return s
}

func (s *Service) WithLogger(l *slog.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) notify(ctx context.Context, sh *models.Shipment, op string) {
	if s.notifier != nil {
		s.notifier.ShipmentChanged(ctx, sh, op)
	}
}

func requireAdmin(actor *models.Identity) error {
	if !actor.LoggedIn() {
		return models.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	return nil
}

func cleanID(trackingID string) (string, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return "", errors.Wrap(models.ErrValidation, "tracking_id is required")
	}
	return trackingID, nil
}

// ownedOrAdmin загружает отправление и проверяет, что зритель владелец или администратор.
func (s *Service) ownedOrAdmin(ctx context.Context, viewer *models.Identity, trackingID string) (*models.Shipment, error) {
	if !viewer.LoggedIn() {
		return nil, models.ErrUnauthenticated
	}
	sh, err := s.repo.GetShipment(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !viewer.Owns(sh.OwnerEmail) {
		return nil, models.ErrForbidden
	}
	return sh, nil
}
