package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicq/clinicq/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const queueCols = `id, name, description, location_id, service_concept_id,
	allowed_priorities_set_id, allowed_statuses_set_id,
	retired, retire_reason, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, q *Queue) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO queue (
			id, name, description, location_id, service_concept_id,
			allowed_priorities_set_id, allowed_statuses_set_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		q.ID, q.Name, q.Description, q.LocationID, q.ServiceConceptID,
		q.AllowedPrioritiesSetID, q.AllowedStatusesSetID,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Queue, error) {
	return scanQueue(r.conn(ctx).QueryRow(ctx, `SELECT `+queueCols+` FROM queue WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, q *Queue) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue SET
			name=$2, description=$3, location_id=$4, service_concept_id=$5,
			allowed_priorities_set_id=$6, allowed_statuses_set_id=$7,
			retired=$8, retire_reason=$9, updated_at=NOW()
		WHERE id = $1`,
		q.ID, q.Name, q.Description, q.LocationID, q.ServiceConceptID,
		q.AllowedPrioritiesSetID, q.AllowedStatusesSetID,
		q.Retired, q.RetireReason,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, includeRetired bool, limit, offset int) ([]*Queue, int, error) {
	where := `WHERE retired = FALSE`
	if includeRetired {
		where = ``
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM queue `+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+queueCols+` FROM queue `+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectQueues(rows, total)
}

func (r *repoPG) ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*Queue, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM queue WHERE location_id = $1 AND retired = FALSE`, locationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+queueCols+` FROM queue WHERE location_id = $1 AND retired = FALSE ORDER BY name LIMIT $2 OFFSET $3`,
		locationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectQueues(rows, total)
}

// Rooms

const roomCols = `id, queue_id, name, description, retired, created_at, updated_at`

func (r *repoPG) CreateRoom(ctx context.Context, rm *Room) error {
	if rm.ID == uuid.Nil {
		rm.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO queue_room (id, queue_id, name, description) VALUES ($1,$2,$3,$4)`,
		rm.ID, rm.QueueID, rm.Name, rm.Description,
	)
	return err
}

func (r *repoPG) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	var rm Room
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+roomCols+` FROM queue_room WHERE id = $1`, id).
		Scan(&rm.ID, &rm.QueueID, &rm.Name, &rm.Description, &rm.Retired, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *repoPG) ListRooms(ctx context.Context, queueID uuid.UUID) ([]*Room, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roomCols+` FROM queue_room WHERE queue_id = $1 AND retired = FALSE ORDER BY name`, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		var rm Room
		if err := rows.Scan(&rm.ID, &rm.QueueID, &rm.Name, &rm.Description, &rm.Retired, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, &rm)
	}
	return rooms, rows.Err()
}

func (r *repoPG) UpdateRoom(ctx context.Context, rm *Room) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE queue_room SET name=$2, description=$3, retired=$4, updated_at=NOW() WHERE id = $1`,
		rm.ID, rm.Name, rm.Description, rm.Retired,
	)
	return err
}

// Provider mappings

const rpmCols = `id, room_id, provider_id, retired, created_at, updated_at`

func (r *repoPG) CreateProviderMap(ctx context.Context, m *RoomProviderMap) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO room_provider_map (id, room_id, provider_id) VALUES ($1,$2,$3)`,
		m.ID, m.RoomID, m.ProviderID,
	)
	return err
}

func (r *repoPG) ActiveProviderMap(ctx context.Context, providerID uuid.UUID) (*RoomProviderMap, error) {
	var m RoomProviderMap
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+rpmCols+` FROM room_provider_map WHERE provider_id = $1 AND retired = FALSE`, providerID).
		Scan(&m.ID, &m.RoomID, &m.ProviderID, &m.Retired, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) RetireProviderMaps(ctx context.Context, providerID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE room_provider_map SET retired = TRUE, updated_at = NOW() WHERE provider_id = $1 AND retired = FALSE`,
		providerID,
	)
	return err
}

func (r *repoPG) ListProviderMaps(ctx context.Context, roomID uuid.UUID) ([]*RoomProviderMap, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+rpmCols+` FROM room_provider_map WHERE room_id = $1 AND retired = FALSE`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var maps []*RoomProviderMap
	for rows.Next() {
		var m RoomProviderMap
		if err := rows.Scan(&m.ID, &m.RoomID, &m.ProviderID, &m.Retired, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		maps = append(maps, &m)
	}
	return maps, rows.Err()
}

func scanQueue(row pgx.Row) (*Queue, error) {
	var q Queue
	err := row.Scan(
		&q.ID, &q.Name, &q.Description, &q.LocationID, &q.ServiceConceptID,
		&q.AllowedPrioritiesSetID, &q.AllowedStatusesSetID,
		&q.Retired, &q.RetireReason, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func collectQueues(rows pgx.Rows, total int) ([]*Queue, int, error) {
	var queues []*Queue
	for rows.Next() {
		var q Queue
		err := rows.Scan(
			&q.ID, &q.Name, &q.Description, &q.LocationID, &q.ServiceConceptID,
			&q.AllowedPrioritiesSetID, &q.AllowedStatusesSetID,
			&q.Retired, &q.RetireReason, &q.CreatedAt, &q.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		queues = append(queues, &q)
	}
	return queues, total, rows.Err()
}
