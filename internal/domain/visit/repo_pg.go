package visit

import (
	"context"

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

const visitCols = `id, patient_id, location_id, started_at, stopped_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit (id, patient_id, location_id, started_at, stopped_at)
		VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.PatientID, v.LocationID, v.StartedAt, v.StoppedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, v *Visit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit SET location_id=$2, started_at=$3, stopped_at=$4, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.LocationID, v.StartedAt, v.StoppedAt,
	)
	return err
}

func (r *repoPG) ListOpen(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE stopped_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM visit WHERE stopped_at IS NULL ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+visitCols+` FROM visit WHERE patient_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.LocationID, &v.StartedAt, &v.StoppedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVisits(rows pgx.Rows, total int) ([]*Visit, int, error) {
	var visits []*Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.PatientID, &v.LocationID, &v.StartedAt, &v.StoppedAt, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		visits = append(visits, &v)
	}
	return visits, total, rows.Err()
}
