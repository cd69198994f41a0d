package concept

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

func (r *repoPG) CreateConcept(ctx context.Context, c *Concept) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO concept (id, name, description) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.Description,
	)
	return err
}

func (r *repoPG) GetConcept(ctx context.Context, id uuid.UUID) (*Concept, error) {
	var c Concept
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, description, created_at FROM concept WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) CreateSet(ctx context.Context, s *Set) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO concept_set (id, name) VALUES ($1, $2)`, s.ID, s.Name)
	return err
}

func (r *repoPG) GetSet(ctx context.Context, id uuid.UUID) (*Set, error) {
	var s Set
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, created_at FROM concept_set WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) AddMember(ctx context.Context, m *SetMember) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO concept_set_member (id, set_id, concept_id, sort_order)
		VALUES ($1, $2, $3, $4)`,
		m.ID, m.SetID, m.ConceptID, m.SortOrder,
	)
	return err
}

func (r *repoPG) SetMembers(ctx context.Context, setID uuid.UUID) ([]*Concept, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.id, c.name, c.description, c.created_at
		FROM concept_set_member m
		JOIN concept c ON c.id = m.concept_id
		WHERE m.set_id = $1
		ORDER BY m.sort_order`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Concept
	for rows.Next() {
		var c Concept
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, &c)
	}
	return members, rows.Err()
}
