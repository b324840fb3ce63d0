package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// IncidentFilter captures listing parameters. Role scoping is expressed by
// the service through ReporterID/DepartmentID before the query is built.
type IncidentFilter struct {
	ReporterID   *string
	AssigneeID   *string
	DepartmentID *string
	CategoryID   *string
	Statuses     []domain.IncidentStatus
	Priorities   []domain.IncidentPriority
	Search       *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// StatusCount is one row of the by-status aggregate.
type StatusCount struct {
	Status domain.IncidentStatus
	Count  int64
}

// NameCount is one row of a by-name aggregate (departments).
type NameCount struct {
	Name  string
	Count int64
}

// PriorityCount is one row of the by-priority aggregate.
type PriorityCount struct {
	Priority domain.IncidentPriority
	Count    int64
}

// PriorityMTTR is mean time to resolution for one priority, in seconds.
type PriorityMTTR struct {
	Priority   domain.IncidentPriority
	AvgSeconds float64
}

// DailyMTTR is one day of the resolution-time trend.
type DailyMTTR struct {
	Day        time.Time
	AvgSeconds float64
	Resolved   int64
}

// WorkloadEntry counts open incidents assigned to one user.
type WorkloadEntry struct {
	UserID    string
	Name      string
	OpenCount int64
}

// IncidentRepository encapsulates incident persistence. Mutations commit
// together with their audit entries: there is no way to persist one without
// the other.
type IncidentRepository interface {
	CreateWithAudit(ctx context.Context, incident *domain.Incident, entry *domain.AuditLogEntry) error
	UpdateWithAudit(ctx context.Context, incident *domain.Incident, entries []domain.AuditLogEntry, comments []domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Incident, error)
	Count(ctx context.Context) (int64, error)
	ListWithFilter(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error)
	SetProblem(ctx context.Context, incidentID, problemID string) error
	ListByProblem(ctx context.Context, problemID string) ([]domain.Incident, error)

	CountsByStatus(ctx context.Context) ([]StatusCount, error)
	CountsByDepartment(ctx context.Context) ([]NameCount, error)
	CountsByPriority(ctx context.Context) ([]PriorityCount, error)
	MTTRSeconds(ctx context.Context) (float64, error)
	MTTRSecondsByPriority(ctx context.Context) ([]PriorityMTTR, error)
	MTTRDailyTrend(ctx context.Context, days int) ([]DailyMTTR, error)
	OpenWorkload(ctx context.Context, departmentID string) ([]WorkloadEntry, error)
}

type incidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository instantiates the repository.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &incidentRepository{pool: pool}
}

const incidentColumns = `id, incident_key, title, description, status, priority, reporter_id,
       assignee_id, department_id, category_id, subcategory_id, problem_id, service_item_id,
       sla_breach_at, created_at, updated_at, resolved_at`

func (r *incidentRepository) CreateWithAudit(ctx context.Context, incident *domain.Incident, entry *domain.AuditLogEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO incidents (incident_key, title, description, status, priority, reporter_id,
            assignee_id, department_id, category_id, subcategory_id, problem_id, service_item_id, sla_breach_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		incident.IncidentKey,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.Priority,
		incident.ReporterID,
		incident.AssigneeID,
		incident.DepartmentID,
		incident.CategoryID,
		incident.SubcategoryID,
		incident.ProblemID,
		incident.ServiceItemID,
		incident.SLABreachAt,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt); err != nil {
		return err
	}

	if entry != nil {
		entry.IncidentID = incident.ID
		if err := insertAudit(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *incidentRepository) UpdateWithAudit(ctx context.Context, incident *domain.Incident, entries []domain.AuditLogEntry, comments []domain.Comment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE incidents SET title=$1, description=$2, status=$3, priority=$4, assignee_id=$5,
            department_id=$6, category_id=$7, subcategory_id=$8, problem_id=$9,
            resolved_at=$10, updated_at=NOW()
        WHERE id=$11`
	cmd, err := tx.Exec(ctx, query,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.Priority,
		incident.AssigneeID,
		incident.DepartmentID,
		incident.CategoryID,
		incident.SubcategoryID,
		incident.ProblemID,
		incident.ResolvedAt,
		incident.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	for i := range entries {
		entries[i].IncidentID = incident.ID
		if err := insertAudit(ctx, tx, &entries[i]); err != nil {
			return err
		}
	}
	for i := range comments {
		if err := insertComment(ctx, tx, &comments[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *incidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE id=$1`, incidentColumns)
	var incident domain.Incident
	if err := scanIncident(r.pool.QueryRow(ctx, query, id), &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

func (r *incidentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&count)
	return count, err
}

func (r *incidentRepository) SetProblem(ctx context.Context, incidentID, problemID string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE incidents SET problem_id=$1, updated_at=NOW() WHERE id=$2`, problemID, incidentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *incidentRepository) ListByProblem(ctx context.Context, problemID string) ([]domain.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE problem_id=$1 ORDER BY created_at DESC`, incidentColumns)
	rows, err := r.pool.Query(ctx, query, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncidents(rows)
}

func (r *incidentRepository) ListWithFilter(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	base := fmt.Sprintf(`SELECT %s FROM incidents`, incidentColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(incident_key) LIKE %s OR LOWER(description) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncidents(rows)
}

func (r *incidentRepository) CountsByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM incidents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (r *incidentRepository) CountsByDepartment(ctx context.Context) ([]NameCount, error) {
	const query = `
        SELECT d.name, COUNT(i.id)
        FROM incidents i JOIN departments d ON d.id = i.department_id
        GROUP BY d.name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		result = append(result, nc)
	}
	return result, rows.Err()
}

func (r *incidentRepository) CountsByPriority(ctx context.Context) ([]PriorityCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT priority, COUNT(*) FROM incidents GROUP BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriorityCount
	for rows.Next() {
		var pc PriorityCount
		if err := rows.Scan(&pc.Priority, &pc.Count); err != nil {
			return nil, err
		}
		result = append(result, pc)
	}
	return result, rows.Err()
}

func (r *incidentRepository) MTTRSeconds(ctx context.Context) (float64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (resolved_at - created_at))), 0)
        FROM incidents WHERE resolved_at IS NOT NULL`
	var avg float64
	err := r.pool.QueryRow(ctx, query).Scan(&avg)
	return avg, err
}

func (r *incidentRepository) MTTRSecondsByPriority(ctx context.Context) ([]PriorityMTTR, error) {
	const query = `
        SELECT priority, AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)))
        FROM incidents WHERE resolved_at IS NOT NULL
        GROUP BY priority`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriorityMTTR
	for rows.Next() {
		var pm PriorityMTTR
		if err := rows.Scan(&pm.Priority, &pm.AvgSeconds); err != nil {
			return nil, err
		}
		result = append(result, pm)
	}
	return result, rows.Err()
}

func (r *incidentRepository) MTTRDailyTrend(ctx context.Context, days int) ([]DailyMTTR, error) {
	if days <= 0 {
		days = 30
	}
	const query = `
        SELECT DATE_TRUNC('day', resolved_at) AS day,
               AVG(EXTRACT(EPOCH FROM (resolved_at - created_at))),
               COUNT(*)
        FROM incidents
        WHERE resolved_at IS NOT NULL AND resolved_at >= NOW() - ($1 * INTERVAL '1 day')
        GROUP BY day ORDER BY day`
	rows, err := r.pool.Query(ctx, query, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailyMTTR
	for rows.Next() {
		var dm DailyMTTR
		if err := rows.Scan(&dm.Day, &dm.AvgSeconds, &dm.Resolved); err != nil {
			return nil, err
		}
		result = append(result, dm)
	}
	return result, rows.Err()
}

func (r *incidentRepository) OpenWorkload(ctx context.Context, departmentID string) ([]WorkloadEntry, error) {
	const query = `
        SELECT u.id, COALESCE(NULLIF(u.full_name, ''), u.email), COUNT(i.id)
        FROM users u
        LEFT JOIN incidents i ON i.assignee_id = u.id AND i.status IN ('OPEN','IN_PROGRESS')
        WHERE u.department_id = $1 AND u.is_active
        GROUP BY u.id, u.full_name, u.email
        ORDER BY COUNT(i.id) DESC`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WorkloadEntry
	for rows.Next() {
		var we WorkloadEntry
		if err := rows.Scan(&we.UserID, &we.Name, &we.OpenCount); err != nil {
			return nil, err
		}
		result = append(result, we)
	}
	return result, rows.Err()
}

func scanIncident(row pgx.Row, incident *domain.Incident) error {
	return row.Scan(
		&incident.ID,
		&incident.IncidentKey,
		&incident.Title,
		&incident.Description,
		&incident.Status,
		&incident.Priority,
		&incident.ReporterID,
		&incident.AssigneeID,
		&incident.DepartmentID,
		&incident.CategoryID,
		&incident.SubcategoryID,
		&incident.ProblemID,
		&incident.ServiceItemID,
		&incident.SLABreachAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ResolvedAt,
	)
}

func scanIncidents(rows pgx.Rows) ([]domain.Incident, error) {
	var result []domain.Incident
	for rows.Next() {
		var incident domain.Incident
		if err := scanIncident(rows, &incident); err != nil {
			return nil, err
		}
		result = append(result, incident)
	}
	return result, rows.Err()
}
