package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/grievance-api/internal/grievance"
	"github.com/noah-isme/grievance-api/internal/models"
)

const (
	uniqueViolation             = "23505"
	grievanceIDUniqueConstraint = "grievances_grievance_id_key"
)

const grievanceColumns = `id, grievance_id, category, sub_category, title, description, details,
       submitted_by, status, resolution_comments, created_at, updated_at`

// GrievanceRepository persists grievances and their status history.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs the repository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

// Create inserts a new grievance. A clash on the public identifier is reported
// as grievance.ErrIdentifierTaken so the caller can draw a fresh one.
func (r *GrievanceRepository) Create(ctx context.Context, g *models.Grievance) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = models.StatusSubmitted
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	if g.Details == nil {
		g.Details = models.Details{}
	}
	const query = `INSERT INTO grievances
	(id, grievance_id, category, sub_category, title, description, details, submitted_by, status, resolution_comments, created_at, updated_at)
	VALUES (:id, :grievance_id, :category, :sub_category, :title, :description, :details, :submitted_by, :status, :resolution_comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, g); err != nil {
		if isIdentifierClash(err) {
			return grievance.ErrIdentifierTaken
		}
		return fmt.Errorf("create grievance: %w", err)
	}
	return nil
}

// GetByID fetches a grievance by its internal identifier.
func (r *GrievanceRepository) GetByID(ctx context.Context, id string) (*models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE id = $1`
	var g models.Grievance
	if err := r.db.GetContext(ctx, &g, query, id); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetByGrievanceID fetches a grievance by its public identifier.
func (r *GrievanceRepository) GetByGrievanceID(ctx context.Context, grievanceID string) (*models.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE grievance_id = $1`
	var g models.Grievance
	if err := r.db.GetContext(ctx, &g, query, grievanceID); err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns grievances matching the filter, newest first.
func (r *GrievanceRepository) List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + grievanceColumns + ` FROM grievances`)

	where, args := grievanceConditions(filter)
	builder.WriteString(where)
	builder.WriteString(" ORDER BY created_at DESC, grievance_id DESC")

	if filter.Limit > 0 {
		builder.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}
	if filter.Offset > 0 {
		builder.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
	}

	var grievances []models.Grievance
	if err := r.db.SelectContext(ctx, &grievances, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list grievances: %w", err)
	}
	return grievances, nil
}

// CountByStatus aggregates grievances per status. Status in the filter is ignored.
func (r *GrievanceRepository) CountByStatus(ctx context.Context, filter models.GrievanceFilter) ([]models.StatusCount, error) {
	filter.Status = ""
	where, args := grievanceConditions(filter)
	query := `SELECT status, COUNT(*) AS count FROM grievances` + where + ` GROUP BY status`

	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count grievances by status: %w", err)
	}
	return counts, nil
}

func grievanceConditions(filter models.GrievanceFilter) (string, []interface{}) {
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.SubmittedBy != "" {
		args = append(args, filter.SubmittedBy)
		conditions = append(conditions, fmt.Sprintf("submitted_by = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// UpdateStatusParams describes one committed status change.
type UpdateStatusParams struct {
	ID                 string
	From               models.GrievanceStatus
	To                 models.GrievanceStatus
	ResolutionComments *string
	ChangedBy          string
	ChangedAt          time.Time
}

// UpdateStatus moves a grievance from params.From to params.To and appends the
// history row in the same transaction. sql.ErrNoRows is returned when the
// stored status no longer equals params.From.
func (r *GrievanceRepository) UpdateStatus(ctx context.Context, params UpdateStatusParams) (*models.GrievanceHistory, error) {
	if params.ChangedAt.IsZero() {
		params.ChangedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin grievance status tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE grievances
	SET status = :to_status, resolution_comments = :resolution_comments, updated_at = :changed_at
	WHERE id = :id AND status = :from_status`
	result, err := tx.NamedExecContext(ctx, update, map[string]interface{}{
		"id":                  params.ID,
		"from_status":         params.From,
		"to_status":           params.To,
		"resolution_comments": params.ResolutionComments,
		"changed_at":          params.ChangedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("update grievance status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check grievance update rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return nil, err
	}

	history := &models.GrievanceHistory{
		ID:          uuid.NewString(),
		GrievanceID: params.ID,
		FromStatus:  params.From,
		ToStatus:    params.To,
		ChangedBy:   params.ChangedBy,
		ChangedAt:   params.ChangedAt,
	}
	if params.To == models.StatusResolved {
		history.Comment = params.ResolutionComments
	}
	const insert = `INSERT INTO grievance_history (id, grievance_id, from_status, to_status, changed_by, comment, changed_at)
	VALUES (:id, :grievance_id, :from_status, :to_status, :changed_by, :comment, :changed_at)`
	if _, err = tx.NamedExecContext(ctx, insert, history); err != nil {
		return nil, fmt.Errorf("insert grievance history: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit grievance status tx: %w", err)
	}
	return history, nil
}

// ListHistory returns the status changes of a grievance, oldest first.
func (r *GrievanceRepository) ListHistory(ctx context.Context, id string) ([]models.GrievanceHistory, error) {
	const query = `SELECT id, grievance_id, from_status, to_status, changed_by, comment, changed_at
	FROM grievance_history WHERE grievance_id = $1 ORDER BY changed_at ASC`
	var history []models.GrievanceHistory
	if err := r.db.SelectContext(ctx, &history, query, id); err != nil {
		return nil, fmt.Errorf("list grievance history: %w", err)
	}
	return history, nil
}

// Ping checks database connectivity for readiness probes.
func (r *GrievanceRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isIdentifierClash(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && pqErr.Constraint == grievanceIDUniqueConstraint
}
