package grievances

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/wolfman30/grievai-platform/pkg/classify"
)

var grievanceColumnNames = []string{
	"id", "tracking_id", "user_id", "title", "description", "category", "priority", "status",
	"location_address", "location_lat", "location_lng", "input_mode", "ai_analysis", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	req := validCreateRequest("user-1")
	req.LocationAddress = "MG Road, Bengaluru"
	req.LocationLat = floatPtr(12.97)
	req.LocationLng = floatPtr(77.59)
	req.AIAnalysis = &classify.Result{
		Category:   classify.CategoryCivicInfrastructure,
		Priority:   classify.PriorityHigh,
		Department: "Public Works Department",
		Confidence: 0.9,
		Summary:    "Pothole near bus stop",
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO grievances`).
		WithArgs(pgxmock.AnyArg(), "user-1", req.Title, req.Description, "civic_infrastructure", "high", "received",
			"MG Road, Bengaluru", req.LocationLat, req.LocationLng, "text", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"tracking_id", "created_at", "updated_at"}).
			AddRow("GRV2026000007", created, created))
	mock.ExpectExec(`INSERT INTO grievance_timeline`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "received", "", "user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	g, err := repo.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.TrackingID != "GRV2026000007" {
		t.Errorf("TrackingID = %q, want GRV2026000007", g.TrackingID)
	}
	if g.Status != StatusReceived || !g.CreatedAt.Equal(created) {
		t.Errorf("unexpected grievance: %+v", g)
	}
	if g.ID == "" {
		t.Error("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_CreateRollsBackOnTimelineFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO grievances`).
		WillReturnRows(pgxmock.NewRows([]string{"tracking_id", "created_at", "updated_at"}).AddRow("GRV2026000008", now, now))
	mock.ExpectExec(`INSERT INTO grievance_timeline`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), validCreateRequest("user-1"))
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_CreateValidatesBeforeQuerying(t *testing.T) {
	repo, mock := newMockRepo(t)
	req := validCreateRequest("user-1")
	req.Category = "unknown"

	if _, err := repo.Create(context.Background(), req); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}

func TestPostgresRepository_GetByTrackingID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	analysis := []byte(`{"category":"sanitation","priority":"medium","department":"Municipal Sanitation Department","confidence":0.82,"summary":"Garbage pile","fallback":false}`)

	mock.ExpectQuery(`SELECT .+ FROM grievances WHERE tracking_id = \$1`).
		WithArgs("GRV2026000003").
		WillReturnRows(pgxmock.NewRows(grievanceColumnNames).AddRow(
			"id-3", "GRV2026000003", "user-9", "Garbage", "Garbage pile on corner", "sanitation", "medium", "assigned",
			"", (*float64)(nil), (*float64)(nil), "voice", analysis, now, now,
		))

	g, err := repo.GetByTrackingID(context.Background(), "GRV2026000003")
	if err != nil {
		t.Fatalf("GetByTrackingID failed: %v", err)
	}
	if g.Category != classify.CategorySanitation || g.Status != StatusAssigned || g.InputMode != classify.InputModeVoice {
		t.Errorf("unexpected grievance: %+v", g)
	}
	if g.AIAnalysis == nil || g.AIAnalysis.Confidence != 0.82 {
		t.Errorf("expected decoded analysis, got %+v", g.AIAnalysis)
	}
	if g.LocationLat != nil {
		t.Errorf("expected nil latitude, got %v", *g.LocationLat)
	}
}

func TestPostgresRepository_GetByTrackingIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM grievances WHERE tracking_id = \$1`).
		WithArgs("GRV404").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByTrackingID(context.Background(), "GRV404"); !errors.Is(err, ErrGrievanceNotFound) {
		t.Fatalf("expected ErrGrievanceNotFound, got %v", err)
	}
}

func TestPostgresRepository_ListBuildsFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM grievances WHERE user_id = \$1 AND status = \$2 AND \(tracking_id ILIKE \$3 OR title ILIKE \$3\) ORDER BY created_at DESC, tracking_id DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("user-1", "received", "%pothole%", 20, 40).
		WillReturnRows(pgxmock.NewRows(grievanceColumnNames).
			AddRow("id-1", "GRV2026000001", "user-1", "Pothole", "desc", "civic_infrastructure", "high", "received",
				"", (*float64)(nil), (*float64)(nil), "text", []byte(nil), now, now))

	out, err := repo.List(context.Background(), ListFilter{
		UserID: "user-1",
		Status: StatusReceived,
		Query:  " pothole ",
		Limit:  20,
		Offset: 40,
	})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out) != 1 || out[0].TrackingID != "GRV2026000001" || out[0].AIAnalysis != nil {
		t.Fatalf("unexpected list: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_ListEmptyIsNotNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM grievances ORDER BY created_at DESC, tracking_id DESC`).
		WillReturnRows(pgxmock.NewRows(grievanceColumnNames))

	out, err := repo.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestPostgresRepository_Stats(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`(?s)SELECT count\(\*\),.+FROM grievances WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"total", "pending", "in_progress", "resolved"}).
			AddRow(int64(7), int64(3), int64(2), int64(2)))

	stats, err := repo.Stats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats != (Stats{Total: 7, Pending: 3, InProgress: 2, Resolved: 2}) {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestPostgresRepository_UpdateStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE grievances SET status = \$2`).
		WithArgs("GRV2026000001", "in_progress", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(grievanceColumnNames).
			AddRow("id-1", "GRV2026000001", "user-1", "Pothole", "desc", "civic_infrastructure", "high", "in_progress",
				"", (*float64)(nil), (*float64)(nil), "text", []byte(nil), now, now))
	mock.ExpectExec(`INSERT INTO grievance_timeline`).
		WithArgs(pgxmock.AnyArg(), "id-1", "in_progress", "crew on site", "officer-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	g, err := repo.UpdateStatus(context.Background(), "GRV2026000001", StatusUpdate{
		Status:  StatusInProgress,
		Note:    "crew on site",
		ActorID: "officer-1",
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if g.Status != StatusInProgress {
		t.Errorf("Status = %q, want in_progress", g.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateStatusNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE grievances SET status`).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), "GRV404", StatusUpdate{Status: StatusClosed})
	if !errors.Is(err, ErrGrievanceNotFound) {
		t.Fatalf("expected ErrGrievanceNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_Timeline(t *testing.T) {
	repo, mock := newMockRepo(t)
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM grievance_timeline`).
		WithArgs("id-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "grievance_id", "status", "note", "actor_id", "created_at"}).
			AddRow("t-1", "id-1", "received", "", "user-1", first).
			AddRow("t-2", "id-1", "resolved", "fixed", "officer-1", first.Add(time.Hour)))

	entries, err := repo.Timeline(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(entries) != 2 || entries[1].Status != StatusResolved || entries[1].Note != "fixed" {
		t.Fatalf("unexpected timeline: %+v", entries)
	}
}
