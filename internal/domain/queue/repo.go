package queue

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, q *Queue) error
	GetByID(ctx context.Context, id uuid.UUID) (*Queue, error)
	Update(ctx context.Context, q *Queue) error
	List(ctx context.Context, includeRetired bool, limit, offset int) ([]*Queue, int, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*Queue, int, error)

	// Rooms
	CreateRoom(ctx context.Context, rm *Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	ListRooms(ctx context.Context, queueID uuid.UUID) ([]*Room, error)
	UpdateRoom(ctx context.Context, rm *Room) error

	// Provider mappings
	CreateProviderMap(ctx context.Context, m *RoomProviderMap) error
	ActiveProviderMap(ctx context.Context, providerID uuid.UUID) (*RoomProviderMap, error)
	RetireProviderMaps(ctx context.Context, providerID uuid.UUID) error
	ListProviderMaps(ctx context.Context, roomID uuid.UUID) ([]*RoomProviderMap, error)
}
