package types

import "time"

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	// Model identifier; may be omitted when exactly one model is configured.
	// example: qwen3-embedding
	Model string `json:"model,omitempty" example:"qwen3-embedding"`
	// Preferred port; 0 uses the configured base port.
	// example: 8080
	Port int `json:"port,omitempty" example:"8080"`
}

// StartSessionResponse is returned by POST /sessions.
type StartSessionResponse struct {
	// example: qwen3-embedding_8080_41233
	SessionID string `json:"session_id" example:"qwen3-embedding_8080_41233"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []ModelDescriptor `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: session not found: m1_8080_123
	Error string `json:"error" example:"session not found: m1_8080_123"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// SessionStatus summarizes one tracked session.
//
// ProcessAlive and RemoteListening are independent signals: the local handle
// may be alive while the remote listener died, or the other way around.
type SessionStatus struct {
	// example: qwen3-embedding_8080_41233
	ID string `json:"id" example:"qwen3-embedding_8080_41233"`
	// example: qwen3-embedding
	ModelID string `json:"model_id" example:"qwen3-embedding"`
	// example: Qwen3 Embedding 0.6B
	ModelName string `json:"model_name" example:"Qwen3 Embedding 0.6B"`
	// Public address of the instance when the session was launched.
	// example: 3.91.20.11
	Address string `json:"address" example:"3.91.20.11"`
	// example: 8080
	Port int `json:"port" example:"8080"`
	// example: http://3.91.20.11:8080
	URL       string    `json:"url" example:"http://3.91.20.11:8080"`
	StartedAt time.Time `json:"started_at"`
	// example: 125
	UptimeSeconds int64 `json:"uptime_seconds" example:"125"`
	// Whether the local handle of the remote process is still running.
	ProcessAlive bool `json:"process_alive"`
	// Whether the port is currently listening on the instance; null when it could not be checked.
	RemoteListening *bool `json:"remote_listening"`
}

// StatusResponse is returned by GET /status and printed by the status command.
type StatusResponse struct {
	// example: i-1234567890abcdef0
	InstanceID string `json:"instance_id" example:"i-1234567890abcdef0"`
	// example: running
	InstanceState InstanceState `json:"instance_state" example:"running"`
	// example: 3.91.20.11
	PublicAddress string `json:"public_address,omitempty" example:"3.91.20.11"`
	// Provider error observed while querying the instance, if any.
	ProviderError string `json:"provider_error,omitempty"`
	// Listening TCP ports on the instance; omitted when the instance is unreachable.
	RemotePorts []int `json:"remote_ports,omitempty"`
	// Error observed while listing remote ports, if any.
	RemotePortsError string          `json:"remote_ports_error,omitempty"`
	Sessions         []SessionStatus `json:"sessions"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
