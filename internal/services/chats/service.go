package chats

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/keylock"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/escrow"
	"github.com/pkg/errors"
)

type Repository interface {
	GetShipment(ctx context.Context, trackingID string) (*models.Shipment, error)
	GetThread(ctx context.Context, trackingID string) (*models.ChatThread, error)
	ListThreadsByOwner(ctx context.Context, ownerEmail string) ([]*models.ChatThread, error)
	PutThread(ctx context.Context, th *models.ChatThread) error
	PutShipmentAndThread(ctx context.Context, s *models.Shipment, th *models.ChatThread) error
}

// WatermarkStore хранит отметки прочтения вне документа треда.
type WatermarkStore interface {
	LastRead(ctx context.Context, identity string) (map[string]int64, error)
	MarkRead(ctx context.Context, identity, trackingID string, at time.Time) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Broadcaster interface {
	Broadcast(trackingID string, msg models.ChatMessage)
}

type Notifier interface {
	ShipmentChanged(ctx context.Context, s *models.Shipment, op string)
}

type Service struct {
	repo    Repository
	marks   WatermarkStore
	locks   *keylock.Locker
	machine *escrow.Machine

	rl                 RateLimiter
	rateLimitPerMinute int64
	hub                Broadcaster
	notifier           Notifier
	logger             *slog.Logger
	now                func() time.Time
}

func New(repo Repository, marks WatermarkStore, locks *keylock.Locker, machine *escrow.Machine) *Service {
	if locks == nil {
		locks = keylock.New()
	}
	if machine == nil {
		machine = escrow.New(nil, nil, nil)
	}
	return &Service{
		repo:    repo,
		marks:   marks,
		locks:   locks,
		machine: machine,
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// WithRateLimit включает ограничение числа сообщений в минуту на личность; perMinute<=0 выключает.
func (s *Service) WithRateLimit(rl RateLimiter, perMinute int64) *Service {
	s.rl = rl
	s.rateLimitPerMinute = perMinute
	return s
}

func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.hub = b
	return s
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
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

// Thread открывает переписку владельца или администратора и отмечает её прочитанной.
func (s *Service) Thread(ctx context.Context, viewer *models.Identity, trackingID string) (*models.ChatThread, error) {
	trackingID, sh, err := s.authorize(ctx, viewer, trackingID)
	if err != nil {
		return nil, err
	}

	th, err := s.ensureThread(ctx, trackingID, sh.OwnerEmail)
	if err != nil {
		return nil, err
	}
	s.markRead(ctx, viewer, trackingID)
	return th, nil
}

// PostAsUser публикует сообщение со страницы отправления. Сообщение владельца проверяется на код подтверждения.
func (s *Service) PostAsUser(ctx context.Context, viewer *models.Identity, trackingID, text string) (*models.ChatThread, error) {
	trackingID, _, err := s.authorize(ctx, viewer, trackingID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return s.Thread(ctx, viewer, trackingID)
	}
	if err := s.allow(ctx, viewer); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	// перечитываем под блокировкой: между проверкой доступа и записью отправление могло измениться
	sh, err := s.repo.GetShipment(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	th, err := s.loadThread(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && !viewer.Owns(sh.OwnerEmail) {
		return nil, models.ErrForbidden
	}
	th, _ = EnsureThread(th, trackingID, sh.OwnerEmail)

	sender := models.SenderAdmin
	if viewer.Owns(sh.OwnerEmail) {
		sender = models.SenderUser
	}
	now := s.now()
	posted := make([]models.ChatMessage, 0, 2)
	msg, _ := AppendMessage(th, sender, text, now)
	posted = append(posted, msg)

	if sender == models.SenderUser && s.machine.ReceiveCode(sh, text) {
		sys, _ := AppendMessage(th, models.SenderSystem, CodeReceivedText, now)
		posted = append(posted, sys)
		if err := s.repo.PutShipmentAndThread(ctx, sh, th); err != nil {
			return nil, errors.Wrap(err, "save shipment and thread")
		}
		s.logger.Info("verification code received", "tracking_id", trackingID)
		if s.notifier != nil {
			s.notifier.ShipmentChanged(ctx, sh, messages.OpCodeReceived)
		}
	} else if err := s.repo.PutThread(ctx, th); err != nil {
		return nil, errors.Wrap(err, "save thread")
	}

	s.broadcast(trackingID, posted...)
	s.markRead(ctx, viewer, trackingID)
	return th.Clone(), nil
}

// AdminThread открывает тред для любого tracking_id, даже если отправления нет.
func (s *Service) AdminThread(ctx context.Context, actor *models.Identity, trackingID string) (*models.ChatThread, error) {
	trackingID, owner, err := s.adminTarget(ctx, actor, trackingID)
	if err != nil {
		return nil, err
	}
	return s.ensureThread(ctx, trackingID, owner)
}

func (s *Service) PostAsAdmin(ctx context.Context, actor *models.Identity, trackingID, text string) (*models.ChatThread, error) {
	trackingID, owner, err := s.adminTarget(ctx, actor, trackingID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return s.ensureThread(ctx, trackingID, owner)
	}
	if err := s.allow(ctx, actor); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	th, err := s.loadThread(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	th, _ = EnsureThread(th, trackingID, owner)
	msg, _ := AppendMessage(th, models.SenderAdmin, text, s.now())
	if err := s.repo.PutThread(ctx, th); err != nil {
		return nil, errors.Wrap(err, "save thread")
	}
	s.broadcast(trackingID, msg)
	return th.Clone(), nil
}

// Unread считает непрочитанное для значка уведомлений. Для анонимов и администраторов всегда ноль.
func (s *Service) Unread(ctx context.Context, viewer *models.Identity) (count int, latestTrackingID string, err error) {
	if !viewer.LoggedIn() || viewer.IsAdmin() {
		return 0, "", nil
	}
	email := models.NormalizeEmail(viewer.Email)
	threads, err := s.repo.ListThreadsByOwner(ctx, email)
	if err != nil {
		return 0, "", errors.Wrap(err, "list threads")
	}
	lastRead, err := s.marks.LastRead(ctx, email)
	if err != nil {
		return 0, "", errors.Wrap(err, "load watermarks")
	}
	count, latestTrackingID = CountUnread(threads, lastRead)
	return count, latestTrackingID, nil
}

func (s *Service) MarkRead(ctx context.Context, viewer *models.Identity, trackingID string) error {
	if !viewer.LoggedIn() {
		return models.ErrUnauthenticated
	}
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return errors.Wrap(models.ErrValidation, "tracking_id is required")
	}
	if err := s.marks.MarkRead(ctx, models.NormalizeEmail(viewer.Email), trackingID, s.now()); err != nil {
		return errors.Wrap(err, "mark read")
	}
	return nil
}

// authorize пускает владельца существующего отправления и администратора.
func (s *Service) authorize(ctx context.Context, viewer *models.Identity, trackingID string) (string, *models.Shipment, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return "", nil, errors.Wrap(models.ErrValidation, "tracking_id is required")
	}
	if !viewer.LoggedIn() {
		return "", nil, models.ErrUnauthenticated
	}
	sh, err := s.repo.GetShipment(ctx, trackingID)
	if err != nil {
		return "", nil, err
	}
	if !viewer.IsAdmin() && !viewer.Owns(sh.OwnerEmail) {
		return "", nil, models.ErrForbidden
	}
	return trackingID, sh, nil
}

func (s *Service) adminTarget(ctx context.Context, actor *models.Identity, trackingID string) (string, string, error) {
	if !actor.LoggedIn() {
		return "", "", models.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return "", "", models.ErrForbidden
	}
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return "", "", errors.Wrap(models.ErrValidation, "tracking_id is required")
	}
	sh, err := s.repo.GetShipment(ctx, trackingID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return trackingID, "", nil
	case err != nil:
		return "", "", err
	}
	return trackingID, sh.OwnerEmail, nil
}

// ensureThread сохраняет тред только при создании или дозаполнении владельца.
func (s *Service) ensureThread(ctx context.Context, trackingID, owner string) (*models.ChatThread, error) {
	th, err := s.loadThread(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if _, changed := EnsureThread(th, trackingID, owner); !changed {
		return th, nil
	}

	unlock := s.locks.Lock(trackingID)
	defer unlock()

	th, err = s.loadThread(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	th, changed := EnsureThread(th, trackingID, owner)
	if changed {
		if err := s.repo.PutThread(ctx, th); err != nil {
			return nil, errors.Wrap(err, "save thread")
		}
	}
	return th, nil
}

func (s *Service) loadThread(ctx context.Context, trackingID string) (*models.ChatThread, error) {
	th, err := s.repo.GetThread(ctx, trackingID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return th, err
}

func (s *Service) allow(ctx context.Context, who *models.Identity) error {
	if s.rl == nil || s.rateLimitPerMinute <= 0 {
		return nil
	}
	now := s.now()
	key := "rl:chat:" + models.NormalizeEmail(who.Email) + ":" + strconv.FormatInt(now.Unix()/60, 10)
	ok, _, err := s.rl.Allow(ctx, key, s.rateLimitPerMinute, time.Minute)
	if err != nil {
		// лимитер недоступен: сообщение важнее лимита
		s.logger.Warn("chat rate limiter failed", "err", err)
		return nil
	}
	if !ok {
		return models.ErrRateLimited
	}
	return nil
}

func (s *Service) markRead(ctx context.Context, viewer *models.Identity, trackingID string) {
	if err := s.marks.MarkRead(ctx, models.NormalizeEmail(viewer.Email), trackingID, s.now()); err != nil {
		s.logger.Warn("mark read failed", "tracking_id", trackingID, "err", err)
	}
}

func (s *Service) broadcast(trackingID string, msgs ...models.ChatMessage) {
	if s.hub == nil {
		return
	}
	for _, m := range msgs {
		s.hub.Broadcast(trackingID, m)
	}
}
