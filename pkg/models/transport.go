package models

// ExtractionResponse is the payload returned for a processed upload.
type ExtractionResponse struct {
	CanonicalResult
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// EndpointRequest is the body for registering a new OCR endpoint.
type EndpointRequest struct {
	Name         string            `json:"name" binding:"required"`
	URL          string            `json:"url" binding:"required,url"`
	Timeout      int               `json:"timeout"`
	MaxRetries   int               `json:"max_retries"`
	RetryDelay   float64           `json:"retry_delay"`
	Description  string            `json:"description"`
	Headers      map[string]string `json:"headers"`
	AuthRequired bool              `json:"auth_required"`
	AuthToken    string            `json:"auth_token"`
}

// EndpointUpdateRequest carries a partial update; nil fields are untouched.
type EndpointUpdateRequest struct {
	URL          *string            `json:"url"`
	Timeout      *int               `json:"timeout"`
	MaxRetries   *int               `json:"max_retries"`
	RetryDelay   *float64           `json:"retry_delay"`
	Description  *string            `json:"description"`
	Headers      *map[string]string `json:"headers"`
	AuthRequired *bool              `json:"auth_required"`
	AuthToken    *string            `json:"auth_token"`
}

// EndpointSummary is the listing view of a registered endpoint. Auth tokens
// are deliberately omitted.
type EndpointSummary struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	Timeout      int    `json:"timeout"`
	AuthRequired bool   `json:"auth_required"`
}

// EndpointTestResult reports a connectivity probe against an endpoint.
type EndpointTestResult struct {
	Success      bool    `json:"success"`
	StatusCode   int     `json:"status_code,omitempty"`
	ResponseTime float64 `json:"response_time,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// HealthResponse is the payload of the service liveness endpoint.
type HealthResponse struct {
	Status     string  `json:"status"`
	OCRService string  `json:"ocr_service"`
	Timestamp  float64 `json:"timestamp"`
}
