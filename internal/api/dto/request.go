package dto

// AnalyzeRequest is accepted both as the page's form post and as JSON.
// DOB is deliberately not marked required so empty input reaches the
// validator and gets its user-facing message.
type AnalyzeRequest struct {
	DOB string `form:"dob" json:"dob"`
}

type AnalyzeResponse struct {
	WorkflowID string `json:"workflow_id"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Backend   string `json:"backend"`
	Error     string `json:"error,omitempty"`
}
