// Package responses contains HTTP response DTOs and error helpers.
// Session-specific response types are in the session subpackage.
package responses

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// MessageResponse is the plain acknowledgement used by the webhook endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// SignedURLResponse describes how a browser should reach the agent.
type SignedURLResponse struct {
	SignedURL string `json:"signed_url"`
	AgentID   string `json:"agent_id"`
	Mode      string `json:"mode"`
}

// ConnectionTestResponse reports whether the API credential and agent check
// out. Endpoint, Status and Error describe the first failed check.
type ConnectionTestResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	AgentID  string `json:"agent_id"`
	Endpoint string `json:"endpoint,omitempty"`
	Status   int    `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}
