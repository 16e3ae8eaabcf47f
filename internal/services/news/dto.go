package news

import "langtutor/internal/models"

// HeadlinesResponse is returned by the news endpoint after category filtering.
type HeadlinesResponse struct {
	Headlines  []models.NewsHeadline `json:"headlines"`
	Total      int                   `json:"total"`
	Source     models.Source         `json:"source"`
	Debug      string                `json:"debug"`
	Categories []string              `json:"categories"`
	Category   string                `json:"category"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details *models.Failure `json:"details,omitempty"`
}

// Common error codes
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeRateLimit  = "RATE_LIMIT"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeNoAPIKey   = "NO_API_KEY"
	ErrCodeUpstream   = "UPSTREAM_ERROR"
)

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewFailureResponse wraps a client-layer failure, keeping its diagnostics.
func NewFailureResponse(f *models.Failure) *ErrorResponse {
	code := ErrCodeUpstream
	if f.Kind == models.ErrNoAPIKey {
		code = ErrCodeNoAPIKey
	}
	return &ErrorResponse{
		Error: ErrorInfo{Code: code, Message: f.Debug, Details: f},
	}
}
