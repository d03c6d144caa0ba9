package responses

// Message is the body of every error response
type Message struct {
	Type    string `json:"type"`    // "error"
	Code    string `json:"code"`    // machine-readable, e.g. "job_running"
	Message string `json:"message"` // for humans
}
