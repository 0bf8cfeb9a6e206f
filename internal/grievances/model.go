package grievances

import (
	"strings"
	"time"

	"github.com/wolfman30/grievai-platform/pkg/classify"
)

// Status is the lifecycle state of a grievance.
type Status string

const (
	StatusReceived   Status = "received"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
	StatusEscalated  Status = "escalated"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed, StatusEscalated:
		return true
	}
	return false
}

// Grievance is a citizen complaint as stored.
type Grievance struct {
	ID              string             `json:"id"`
	TrackingID      string             `json:"tracking_id"`
	UserID          string             `json:"user_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Category        classify.Category  `json:"category"`
	Priority        classify.Priority  `json:"priority"`
	Status          Status             `json:"status"`
	LocationAddress string             `json:"location_address,omitempty"`
	LocationLat     *float64           `json:"location_lat,omitempty"`
	LocationLng     *float64           `json:"location_lng,omitempty"`
	InputMode       classify.InputMode `json:"input_mode"`
	AIAnalysis      *classify.Result   `json:"ai_analysis,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// TimelineEntry records one status change.
type TimelineEntry struct {
	ID          string    `json:"id"`
	GrievanceID string    `json:"grievance_id"`
	Status      Status    `json:"status"`
	Note        string    `json:"note,omitempty"`
	ActorID     string    `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRequest is a grievance ready to persist. Category and priority are
// already resolved by the time it reaches a Repository.
type CreateRequest struct {
	UserID          string             `json:"-"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Category        classify.Category  `json:"category"`
	Priority        classify.Priority  `json:"priority"`
	LocationAddress string             `json:"location_address"`
	LocationLat     *float64           `json:"location_lat"`
	LocationLng     *float64           `json:"location_lng"`
	InputMode       classify.InputMode `json:"input_mode"`
	AIAnalysis      *classify.Result   `json:"ai_analysis"`
}

// Validate checks a create request before it is stored.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrMissingDescription
	}
	if !r.Category.Valid() {
		return ErrInvalidCategory
	}
	if !r.Priority.Valid() {
		return ErrInvalidPriority
	}
	if !r.InputMode.Valid() {
		return ErrInvalidInputMode
	}
	if r.AIAnalysis != nil && !r.AIAnalysis.Valid() {
		return ErrInvalidAnalysis
	}
	if (r.LocationLat == nil) != (r.LocationLng == nil) {
		return ErrInvalidCoordinates
	}
	if r.LocationLat != nil && (*r.LocationLat < -90 || *r.LocationLat > 90 || *r.LocationLng < -180 || *r.LocationLng > 180) {
		return ErrInvalidCoordinates
	}
	return nil
}

// StatusUpdate moves a grievance to a new status.
type StatusUpdate struct {
	Status  Status `json:"status"`
	Note    string `json:"note"`
	ActorID string `json:"-"`
}

// ListFilter narrows List results. An empty UserID lists every grievance.
type ListFilter struct {
	UserID string
	Status Status
	Query  string
	Limit  int
	Offset int
}

// Stats summarizes grievances for dashboards.
type Stats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
}

// add counts one grievance with the given status.
func (s *Stats) add(status Status) {
	s.Total++
	switch status {
	case StatusReceived, StatusAssigned:
		s.Pending++
	case StatusInProgress:
		s.InProgress++
	case StatusResolved, StatusClosed:
		s.Resolved++
	}
}
