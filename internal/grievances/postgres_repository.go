package grievances

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/grievai-platform/pkg/classify"
)

// DB is the subset of pgxpool.Pool used by PostgresRepository.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores grievances in Postgres. Tracking ids come from
// the grievance_tracking_seq default on the table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("grievances: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const grievanceColumns = "id, tracking_id, user_id, title, description, category, priority, status, " +
	"location_address, location_lat, location_lng, input_mode, ai_analysis, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrievance(row rowScanner) (*Grievance, error) {
	var g Grievance
	var category, priority, status, mode string
	var analysis []byte
	if err := row.Scan(
		&g.ID,
		&g.TrackingID,
		&g.UserID,
		&g.Title,
		&g.Description,
		&category,
		&priority,
		&status,
		&g.LocationAddress,
		&g.LocationLat,
		&g.LocationLng,
		&mode,
		&analysis,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	g.Category = classify.Category(category)
	g.Priority = classify.Priority(priority)
	g.Status = Status(status)
	g.InputMode = classify.InputMode(mode)
	if len(analysis) > 0 {
		var result classify.Result
		if err := json.Unmarshal(analysis, &result); err != nil {
			return nil, fmt.Errorf("grievances: decode ai_analysis: %w", err)
		}
		g.AIAnalysis = &result
	}
	return &g, nil
}

func encodeAnalysis(result *classify.Result) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	return json.Marshal(result)
}

// Create inserts the grievance and its first timeline entry in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateRequest) (*Grievance, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	analysis, err := encodeAnalysis(req.AIAnalysis)
	if err != nil {
		return nil, fmt.Errorf("grievances: encode ai_analysis: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("grievances: begin: %w", err)
	}

	id := uuid.New().String()
	g := &Grievance{
		ID:              id,
		UserID:          req.UserID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Priority:        req.Priority,
		Status:          StatusReceived,
		LocationAddress: req.LocationAddress,
		LocationLat:     req.LocationLat,
		LocationLng:     req.LocationLng,
		InputMode:       req.InputMode,
		AIAnalysis:      req.AIAnalysis,
	}
	query := `
		INSERT INTO grievances (id, user_id, title, description, category, priority, status,
			location_address, location_lat, location_lng, input_mode, ai_analysis)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING tracking_id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		id,
		req.UserID,
		req.Title,
		req.Description,
		string(req.Category),
		string(req.Priority),
		string(StatusReceived),
		req.LocationAddress,
		req.LocationLat,
		req.LocationLng,
		string(req.InputMode),
		analysis,
	).Scan(&g.TrackingID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("grievances: insert failed: %w", err)
	}

	if err := insertTimeline(ctx, tx, id, StatusReceived, "", req.UserID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("grievances: commit: %w", err)
	}
	return g, nil
}

func insertTimeline(ctx context.Context, tx pgx.Tx, grievanceID string, status Status, note, actorID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO grievance_timeline (id, grievance_id, status, note, actor_id)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), grievanceID, string(status), note, actorID)
	if err != nil {
		return fmt.Errorf("grievances: insert timeline failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByTrackingID(ctx context.Context, trackingID string) (*Grievance, error) {
	row := r.db.QueryRow(ctx, `SELECT `+grievanceColumns+` FROM grievances WHERE tracking_id = $1`, trackingID)
	g, err := scanGrievance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGrievanceNotFound
		}
		return nil, fmt.Errorf("grievances: select failed: %w", err)
	}
	return g, nil
}

// listWhere builds the WHERE clause shared by List and Stats.
func listWhere(filter ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		clauses = append(clauses, "user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, "(tracking_id ILIKE $"+n+" OR title ILIKE $"+n+")")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Grievance, error) {
	where, args := listWhere(filter)
	query := `SELECT ` + grievanceColumns + ` FROM grievances` + where + ` ORDER BY created_at DESC, tracking_id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("grievances: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Grievance{}
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, fmt.Errorf("grievances: scan failed: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grievances: list failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, userID string) (Stats, error) {
	where, args := listWhere(ListFilter{UserID: userID})
	query := `
		SELECT count(*),
			count(*) FILTER (WHERE status IN ('received', 'assigned')),
			count(*) FILTER (WHERE status = 'in_progress'),
			count(*) FILTER (WHERE status IN ('resolved', 'closed'))
		FROM grievances` + where
	var s Stats
	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.Total, &s.Pending, &s.InProgress, &s.Resolved); err != nil {
		return Stats{}, fmt.Errorf("grievances: stats failed: %w", err)
	}
	return s, nil
}

// UpdateStatus changes the status and appends the timeline entry atomically.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, trackingID string, update StatusUpdate) (*Grievance, error) {
	if !update.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("grievances: begin: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE grievances SET status = $2, updated_at = $3
		WHERE tracking_id = $1
		RETURNING `+grievanceColumns, trackingID, string(update.Status), time.Now().UTC())
	g, err := scanGrievance(row)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGrievanceNotFound
		}
		return nil, fmt.Errorf("grievances: update status failed: %w", err)
	}

	if err := insertTimeline(ctx, tx, g.ID, update.Status, update.Note, update.ActorID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("grievances: commit: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) Timeline(ctx context.Context, grievanceID string) ([]TimelineEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, grievance_id, status, note, actor_id, created_at
		FROM grievance_timeline
		WHERE grievance_id = $1
		ORDER BY created_at ASC
	`, grievanceID)
	if err != nil {
		return nil, fmt.Errorf("grievances: timeline failed: %w", err)
	}
	defer rows.Close()

	out := []TimelineEntry{}
	for rows.Next() {
		var (
			e      TimelineEntry
			status string
		)
		if err := rows.Scan(&e.ID, &e.GrievanceID, &status, &e.Note, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("grievances: scan timeline failed: %w", err)
		}
		e.Status = Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grievances: timeline failed: %w", err)
	}
	return out, nil
}
