package queueentry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

const entryCols = `id, queue_id, patient_id, visit_id, priority_concept_id, priority_comment,
	status_concept_id, sort_weight, location_waiting_for, provider_waiting_for, queue_coming_from,
	started_at, ended_at, voided, void_reason, voided_by, voided_at, created_at, date_changed`

const entrySetCols = `queue_id=$2, patient_id=$3, visit_id=$4, priority_concept_id=$5,
	priority_comment=$6, status_concept_id=$7, sort_weight=$8, location_waiting_for=$9,
	provider_waiting_for=$10, queue_coming_from=$11, started_at=$12, ended_at=$13,
	voided=$14, void_reason=$15, voided_by=$16, voided_at=$17, date_changed=NOW()`

func entryArgs(e *QueueEntry) []interface{} {
	return []interface{}{
		e.ID, e.QueueID, e.PatientID, e.VisitID, e.PriorityConceptID, e.PriorityComment,
		e.StatusConceptID, e.SortWeight, e.LocationWaitingFor, e.ProviderWaitingFor,
		e.QueueComingFrom, e.StartedAt, e.EndedAt, e.Voided, e.VoidReason, e.VoidedBy, e.VoidedAt,
	}
}

func (r *repoPG) Create(ctx context.Context, e *QueueEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO queue_entry (id, queue_id, patient_id, visit_id, priority_concept_id,
			priority_comment, status_concept_id, sort_weight, location_waiting_for,
			provider_waiting_for, queue_coming_from, started_at, ended_at, voided,
			void_reason, voided_by, voided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, date_changed`,
		entryArgs(e)...,
	).Scan(&e.CreatedAt, &e.DateChanged)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	return scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM queue_entry WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, e *QueueEntry) error {
	return r.conn(ctx).QueryRow(ctx,
		`UPDATE queue_entry SET `+entrySetCols+` WHERE id = $1 RETURNING date_changed`,
		entryArgs(e)...,
	).Scan(&e.DateChanged)
}

func (r *repoPG) UpdateIfUnmodified(ctx context.Context, e *QueueEntry, expected time.Time) (bool, error) {
	args := append(entryArgs(e), expected)
	err := r.conn(ctx).QueryRow(ctx,
		`UPDATE queue_entry SET `+entrySetCols+` WHERE id = $1 AND date_changed = $18 RETURNING date_changed`,
		args...,
	).Scan(&e.DateChanged)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repoPG) Search(ctx context.Context, c SearchCriteria, limit, offset int) ([]*QueueEntry, error) {
	where, args := buildWhere(c)
	args = append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT `+entryCols+` FROM queue_entry %s
		ORDER BY sort_weight DESC, started_at ASC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *repoPG) Count(ctx context.Context, c SearchCriteria) (int64, error) {
	where, args := buildWhere(c)
	var total int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM queue_entry `+where, args...).Scan(&total)
	return total, err
}

func (r *repoPG) CreateVisitLink(ctx context.Context, link *VisitQueueEntry) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit_queue_entry (id, visit_id, queue_entry_id)
		VALUES ($1, $2, $3)`,
		link.ID, link.VisitID, link.QueueEntryID,
	)
	return err
}

func (r *repoPG) VoidVisitLink(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE visit_queue_entry SET voided = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) ListVisitLinks(ctx context.Context, visitID uuid.UUID) ([]*VisitQueueEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, visit_id, queue_entry_id, created_at
		FROM visit_queue_entry WHERE visit_id = $1 AND voided = FALSE
		ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var links []*VisitQueueEntry
	for rows.Next() {
		var l VisitQueueEntry
		if err := rows.Scan(&l.ID, &l.VisitID, &l.QueueEntryID, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

// buildWhere compiles criteria into a WHERE clause and positional args. The
// clause mirrors SearchCriteria.Matches: nil collections add nothing, empty
// collections compile to IS NULL. The queue-scoped filters (location,
// service) have no in-memory counterpart and are applied here only.
func buildWhere(c SearchCriteria) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if !c.IncludeVoided {
		conds = append(conds, "voided = FALSE")
	}
	if c.PatientID != nil {
		args = append(args, *c.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if c.VisitID != nil {
		args = append(args, *c.VisitID)
		conds = append(conds, fmt.Sprintf("visit_id = $%d", len(args)))
	}
	if c.HasVisit != nil {
		if *c.HasVisit {
			conds = append(conds, "visit_id IS NOT NULL")
		} else {
			conds = append(conds, "visit_id IS NULL")
		}
	}
	addSet := func(col string, ids []uuid.UUID) {
		if ids == nil {
			return
		}
		if len(ids) == 0 {
			conds = append(conds, col+" IS NULL")
			return
		}
		args = append(args, ids)
		conds = append(conds, fmt.Sprintf("%s = ANY($%d)", col, len(args)))
	}
	addSet("queue_id", c.QueueIDs)

	// Location and service live on the queue, not the entry.
	addQueueSet := func(col string, ids []uuid.UUID) {
		if ids == nil {
			return
		}
		if len(ids) == 0 {
			conds = append(conds, fmt.Sprintf("queue_id IN (SELECT id FROM queue WHERE %s IS NULL)", col))
			return
		}
		args = append(args, ids)
		conds = append(conds, fmt.Sprintf("queue_id IN (SELECT id FROM queue WHERE %s = ANY($%d))", col, len(args)))
	}
	addQueueSet("location_id", c.LocationIDs)
	addQueueSet("service_concept_id", c.ServiceConceptIDs)

	addSet("status_concept_id", c.StatusConceptIDs)
	addSet("priority_concept_id", c.PriorityConceptIDs)
	addSet("queue_coming_from", c.ComingFromQueueIDs)
	addSet("location_waiting_for", c.WaitingForLocation)
	addSet("provider_waiting_for", c.WaitingForProvider)

	addTime := func(expr string, t *time.Time) {
		if t == nil {
			return
		}
		args = append(args, *t)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	addTime("started_at >= $%d", c.StartedOnOrAfter)
	addTime("started_at <= $%d", c.StartedOnOrBefore)
	addTime("started_at = $%d", c.StartedAt)
	addTime("ended_at >= $%d", c.EndedOnOrAfter)
	addTime("ended_at <= $%d", c.EndedOnOrBefore)
	addTime("ended_at = $%d", c.EndedAt)

	if c.IsEnded != nil {
		if *c.IsEnded {
			conds = append(conds, "ended_at IS NOT NULL")
		} else {
			conds = append(conds, "ended_at IS NULL")
		}
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(row pgx.Row) (*QueueEntry, error) {
	var e QueueEntry
	err := row.Scan(&e.ID, &e.QueueID, &e.PatientID, &e.VisitID, &e.PriorityConceptID,
		&e.PriorityComment, &e.StatusConceptID, &e.SortWeight, &e.LocationWaitingFor,
		&e.ProviderWaitingFor, &e.QueueComingFrom, &e.StartedAt, &e.EndedAt, &e.Voided,
		&e.VoidReason, &e.VoidedBy, &e.VoidedAt, &e.CreatedAt, &e.DateChanged)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]*QueueEntry, error) {
	var entries []*QueueEntry
	for rows.Next() {
		var e QueueEntry
		if err := rows.Scan(&e.ID, &e.QueueID, &e.PatientID, &e.VisitID, &e.PriorityConceptID,
			&e.PriorityComment, &e.StatusConceptID, &e.SortWeight, &e.LocationWaitingFor,
			&e.ProviderWaitingFor, &e.QueueComingFrom, &e.StartedAt, &e.EndedAt, &e.Voided,
			&e.VoidReason, &e.VoidedBy, &e.VoidedAt, &e.CreatedAt, &e.DateChanged); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
