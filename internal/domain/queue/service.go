package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateQueue(ctx context.Context, q *Queue) error {
	if q.Name == "" {
		return fmt.Errorf("name is required")
	}
	if q.LocationID == uuid.Nil {
		return fmt.Errorf("location_id is required")
	}
	return s.repo.Create(ctx, q)
}

func (s *Service) GetQueue(ctx context.Context, id uuid.UUID) (*Queue, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateQueue(ctx context.Context, q *Queue) error {
	if q.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.Update(ctx, q)
}

// RetireQueue soft-deletes a queue. Entries referencing it remain valid;
// retired queues stop accepting admissions at the API layer.
func (s *Service) RetireQueue(ctx context.Context, id uuid.UUID, reason string) (*Queue, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("queue not found: %w", err)
	}
	if q.Retired {
		return q, nil
	}
	q.Retired = true
	q.RetireReason = &reason
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) UnretireQueue(ctx context.Context, id uuid.UUID) (*Queue, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("queue not found: %w", err)
	}
	q.Retired = false
	q.RetireReason = nil
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) ListQueues(ctx context.Context, includeRetired bool, limit, offset int) ([]*Queue, int, error) {
	return s.repo.List(ctx, includeRetired, limit, offset)
}

func (s *Service) ListQueuesByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*Queue, int, error) {
	return s.repo.ListByLocation(ctx, locationID, limit, offset)
}

func (s *Service) CreateRoom(ctx context.Context, rm *Room) error {
	if rm.Name == "" {
		return fmt.Errorf("name is required")
	}
	if rm.QueueID == uuid.Nil {
		return fmt.Errorf("queue_id is required")
	}
	if _, err := s.repo.GetByID(ctx, rm.QueueID); err != nil {
		return fmt.Errorf("queue not found: %w", err)
	}
	return s.repo.CreateRoom(ctx, rm)
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	return s.repo.GetRoom(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, queueID uuid.UUID) ([]*Room, error) {
	return s.repo.ListRooms(ctx, queueID)
}

// AssignProvider maps a provider to a room. Any prior active mapping for the
// provider is retired first, so at most one mapping is active per provider.
func (s *Service) AssignProvider(ctx context.Context, roomID, providerID uuid.UUID) (*RoomProviderMap, error) {
	if roomID == uuid.Nil || providerID == uuid.Nil {
		return nil, fmt.Errorf("room_id and provider_id are required")
	}
	rm, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", err)
	}
	if rm.Retired {
		return nil, fmt.Errorf("room %s is retired", roomID)
	}

	if err := s.repo.RetireProviderMaps(ctx, providerID); err != nil {
		return nil, err
	}

	m := &RoomProviderMap{RoomID: roomID, ProviderID: providerID}
	if err := s.repo.CreateProviderMap(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ActiveProviderRoom(ctx context.Context, providerID uuid.UUID) (*RoomProviderMap, error) {
	return s.repo.ActiveProviderMap(ctx, providerID)
}

func (s *Service) ListRoomProviders(ctx context.Context, roomID uuid.UUID) ([]*RoomProviderMap, error) {
	return s.repo.ListProviderMaps(ctx, roomID)
}
