// Package testutil provides in-memory stand-ins for the durable stores so
// service and gateway tests can run without a MySQL instance.  The Redis
// stores are exercised for real against miniredis; only the catalog is
// faked here.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seatflow/seat-coordinator/internal/model"
	"github.com/seatflow/seat-coordinator/internal/repository"
)

// MemCatalog implements the allocator's SeatCatalog interface with the same
// semantics as the MySQL repository: one row per label forever, soft delete
// flips is_active, creating a soft-deleted label resurrects the row.
type MemCatalog struct {
	mu     sync.Mutex
	seats  map[uint64]model.Seat
	nextID uint64
}

// NewMemCatalog returns an empty catalog.
func NewMemCatalog() *MemCatalog {
	return &MemCatalog{seats: make(map[uint64]model.Seat)}
}

// Seed creates one available seat per label and returns them by label.
func (m *MemCatalog) Seed(labels ...uint32) map[uint32]model.Seat {
	out := make(map[uint32]model.Seat, len(labels))
	for _, l := range labels {
		s, err := m.Create(context.Background(), l, model.SeatAvailable)
		if err != nil {
			panic(err)
		}
		out[l] = *s
	}
	return out
}

func (m *MemCatalog) Create(_ context.Context, label uint32, status model.SeatStatus) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for id, s := range m.seats {
		if s.Label != label {
			continue
		}
		if s.IsActive {
			return nil, repository.ErrSeatExists
		}
		s.IsActive = true
		s.Status = status
		s.UpdatedAt = now
		m.seats[id] = s
		cp := s
		return &cp, nil
	}
	m.nextID++
	s := model.Seat{ID: m.nextID, Label: label, Status: status, IsActive: true, CreatedAt: now, UpdatedAt: now}
	m.seats[s.ID] = s
	cp := s
	return &cp, nil
}

func (m *MemCatalog) ListActive(_ context.Context) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Seat
	for _, s := range m.seats {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (m *MemCatalog) GetByID(_ context.Context, id uint64) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[id]
	if !ok || !s.IsActive {
		return nil, repository.ErrSeatNotFound
	}
	cp := s
	return &cp, nil
}

func (m *MemCatalog) Update(_ context.Context, id uint64, label uint32, status model.SeatStatus) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[id]
	if !ok || !s.IsActive {
		return nil, repository.ErrSeatNotFound
	}
	for otherID, other := range m.seats {
		if otherID != id && other.Label == label {
			return nil, repository.ErrSeatExists
		}
	}
	s.Label = label
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	m.seats[id] = s
	cp := s
	return &cp, nil
}

func (m *MemCatalog) SoftDelete(_ context.Context, id uint64) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[id]
	if !ok || !s.IsActive {
		return nil, repository.ErrSeatNotFound
	}
	s.IsActive = false
	s.UpdatedAt = time.Now().UTC()
	m.seats[id] = s
	cp := s
	return &cp, nil
}
