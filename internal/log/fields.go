package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldDay        = "day"
	FieldTable      = "table"
	FieldUsername   = "username"
	FieldRole       = "role"
)

// Components defines standard component names
const (
	ComponentAPI       = "api"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentFeed      = "feed"
	ComponentWorker    = "worker"
	ComponentAuth      = "auth"
	ComponentReport    = "report"
	ComponentRateLimit = "rate_limit"
)
