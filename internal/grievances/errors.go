package grievances

import "errors"

var (
	// ErrGrievanceNotFound is returned when no grievance has the tracking id.
	ErrGrievanceNotFound = errors.New("grievance not found")

	// ErrForbidden is returned when a citizen accesses someone else's grievance.
	ErrForbidden = errors.New("not allowed to access this grievance")

	ErrMissingUser        = errors.New("user is required")
	ErrMissingDescription = errors.New("description is required")
	ErrInvalidCategory    = errors.New("category is not recognized")
	ErrInvalidPriority    = errors.New("priority is not recognized")
	ErrInvalidStatus      = errors.New("status is not recognized")
	ErrInvalidCoordinates = errors.New("location_lat and location_lng must be provided together and be in range")
	ErrInvalidInputMode   = errors.New("input_mode must be one of text, voice, image, location")
	ErrInvalidAnalysis    = errors.New("ai_analysis is not a valid classification")
)

var validationErrors = []error{
	ErrMissingUser,
	ErrMissingDescription,
	ErrInvalidCategory,
	ErrInvalidPriority,
	ErrInvalidStatus,
	ErrInvalidCoordinates,
	ErrInvalidInputMode,
	ErrInvalidAnalysis,
}

// IsValidation reports whether err came from request validation.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
