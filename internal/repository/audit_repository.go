package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so audit and
// comment inserts can run inside an incident mutation transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AuditRepository is the append-only audit ledger. There is deliberately no
// update or delete operation.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByIncident(ctx context.Context, incidentID string) ([]domain.AuditLogEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds the repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func insertAudit(ctx context.Context, q rowQuerier, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_logs (incident_id, actor_id, action, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.IncidentID,
		entry.ActorID,
		entry.Action,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	return insertAudit(ctx, r.pool, entry)
}

func (r *auditRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.AuditLogEntry, error) {
	const query = `
        SELECT id, incident_id, actor_id, action, old_value, new_value, created_at
        FROM audit_logs WHERE incident_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IncidentID,
			&entry.ActorID,
			&entry.Action,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
