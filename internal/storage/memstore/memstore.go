package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
)

// Store хранит документы в памяти с тем же контрактом, что и pgstore.
// Наружу всегда отдаются копии, чтобы снапшот не менялся под читателем.
type Store struct {
	mu        sync.RWMutex
	shipments map[string]*models.Shipment
	threads   map[string]*models.ChatThread
}

func New() *Store {
	return &Store{
		shipments: make(map[string]*models.Shipment),
		threads:   make(map[string]*models.ChatThread),
	}
}

func (s *Store) GetShipment(_ context.Context, trackingID string) (*models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shipments[trackingID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return sh.Clone(), nil
}

func (s *Store) ListShipments(_ context.Context) ([]*models.Shipment, error) {
	return s.listShipments(func(*models.Shipment) bool { return true }), nil
}

func (s *Store) ListShipmentsByOwner(_ context.Context, ownerEmail string) ([]*models.Shipment, error) {
	owner := models.NormalizeEmail(ownerEmail)
	return s.listShipments(func(sh *models.Shipment) bool {
		return models.NormalizeEmail(sh.OwnerEmail) == owner
	}), nil
}

func (s *Store) PutShipment(_ context.Context, sh *models.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipments[sh.TrackingID] = sh.Clone()
	return nil
}

func (s *Store) DeleteShipment(_ context.Context, trackingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shipments, trackingID)
	return nil
}

func (s *Store) GetThread(_ context.Context, trackingID string) (*models.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	th, ok := s.threads[trackingID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return th.Clone(), nil
}

func (s *Store) ListThreadsByOwner(_ context.Context, ownerEmail string) ([]*models.ChatThread, error) {
	owner := models.NormalizeEmail(ownerEmail)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ChatThread, 0)
	for _, th := range s.threads {
		if models.NormalizeEmail(th.OwnerEmail) == owner {
			out = append(out, th.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackingID < out[j].TrackingID })
	return out, nil
}

func (s *Store) PutThread(_ context.Context, th *models.ChatThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[th.TrackingID] = th.Clone()
	return nil
}

func (s *Store) PutShipmentAndThread(_ context.Context, sh *models.Shipment, th *models.ChatThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipments[sh.TrackingID] = sh.Clone()
	s.threads[th.TrackingID] = th.Clone()
	return nil
}

func (s *Store) listShipments(keep func(*models.Shipment) bool) []*models.Shipment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Shipment, 0, len(s.shipments))
	for _, sh := range s.shipments {
		if keep(sh) {
			out = append(out, sh.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackingID < out[j].TrackingID })
	return out
}

// Watermarks держит отметки прочтения чатов в памяти процесса (для storage_driver: memory и тестов).
type Watermarks struct {
	mu sync.Mutex
	m  map[string]map[string]int64
}

func NewWatermarks() *Watermarks {
	return &Watermarks{m: make(map[string]map[string]int64)}
}

func (w *Watermarks) LastRead(_ context.Context, identity string) (map[string]int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int64, len(w.m[identity]))
	for k, v := range w.m[identity] {
		out[k] = v
	}
	return out, nil
}

func (w *Watermarks) MarkRead(_ context.Context, identity, trackingID string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.m[identity] == nil {
		w.m[identity] = make(map[string]int64)
	}
	w.m[identity][trackingID] = at.Unix()
	return nil
}
