package grievances

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository stores grievances and their status history.
type Repository interface {
	Create(ctx context.Context, req *CreateRequest) (*Grievance, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*Grievance, error)
	List(ctx context.Context, filter ListFilter) ([]*Grievance, error)
	Stats(ctx context.Context, userID string) (Stats, error)
	UpdateStatus(ctx context.Context, trackingID string, update StatusUpdate) (*Grievance, error)
	Timeline(ctx context.Context, grievanceID string) ([]TimelineEntry, error)
}

// TrackingID formats the public reference of the seq-th grievance of a year.
func TrackingID(year int, seq int64) string {
	return fmt.Sprintf("GRV%d%06d", year, seq)
}

// InMemoryRepository keeps grievances in process memory. Used when no
// database is configured and in tests.
type InMemoryRepository struct {
	mu         sync.RWMutex
	seq        int64
	grievances map[string]*Grievance
	timeline   map[string][]TimelineEntry
	now        func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		grievances: make(map[string]*Grievance),
		timeline:   make(map[string][]TimelineEntry),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, req *CreateRequest) (*Grievance, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.seq++
	g := &Grievance{
		ID:              uuid.New().String(),
		TrackingID:      TrackingID(now.Year(), r.seq),
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
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.grievances[g.TrackingID] = g
	r.timeline[g.ID] = append(r.timeline[g.ID], TimelineEntry{
		ID:          uuid.New().String(),
		GrievanceID: g.ID,
		Status:      StatusReceived,
		ActorID:     req.UserID,
		CreatedAt:   now,
	})

	out := *g
	return &out, nil
}

func (r *InMemoryRepository) GetByTrackingID(ctx context.Context, trackingID string) (*Grievance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.grievances[trackingID]
	if !ok {
		return nil, ErrGrievanceNotFound
	}
	out := *g
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Grievance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	var out []*Grievance
	for _, g := range r.grievances {
		if filter.UserID != "" && g.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(g.TrackingID), query) && !strings.Contains(strings.ToLower(g.Title), query) {
			continue
		}
		copied := *g
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TrackingID > out[j].TrackingID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset >= len(out) {
		return []*Grievance{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) Stats(ctx context.Context, userID string) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	for _, g := range r.grievances {
		if userID == "" || g.UserID == userID {
			s.add(g.Status)
		}
	}
	return s, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, trackingID string, update StatusUpdate) (*Grievance, error) {
	if !update.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grievances[trackingID]
	if !ok {
		return nil, ErrGrievanceNotFound
	}
	now := r.now()
	g.Status = update.Status
	g.UpdatedAt = now
	r.timeline[g.ID] = append(r.timeline[g.ID], TimelineEntry{
		ID:          uuid.New().String(),
		GrievanceID: g.ID,
		Status:      update.Status,
		Note:        update.Note,
		ActorID:     update.ActorID,
		CreatedAt:   now,
	})

	out := *g
	return &out, nil
}

func (r *InMemoryRepository) Timeline(ctx context.Context, grievanceID string) ([]TimelineEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.timeline[grievanceID]
	out := make([]TimelineEntry, len(entries))
	copy(out, entries)
	return out, nil
}
