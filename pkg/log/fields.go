package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUsername = "username"

	// Service
	FieldService = "service"

	// Playback / chat
	FieldVideoID  = "video_id"
	FieldState    = "state"
	FieldOffset   = "offset_seconds"
	FieldPosition = "position_seconds"
	FieldDrift    = "drift_seconds"
	FieldAttempt  = "attempt"
	FieldTopic    = "topic"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
