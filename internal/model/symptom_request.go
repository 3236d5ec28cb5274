package model

// SymptomRequest is the body of POST /api/analyze-symptoms. It is never
// persisted.
type SymptomRequest struct {
	Symptoms string `json:"symptoms"`
	Language string `json:"language"`
	UserID   string `json:"user_id,omitempty"`
}

// HealthInfoQuery binds the query string of GET /api/health-info/:topic.
type HealthInfoQuery struct {
	Lang string `form:"lang"`
}
