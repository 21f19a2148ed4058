package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	// Reason is a machine-readable category: validation, quota_exhausted,
	// slot_conflict, forbidden, not_found, or an overlap reason code.
	Reason string `json:"reason,omitempty" example:"co_booking_limit"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Failing map[string]string `json:"failing,omitempty"`
}
