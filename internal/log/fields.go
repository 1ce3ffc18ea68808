package log

// Common field names for structured logging
const (
	FieldComponent        = "component"
	FieldRequestID        = "request_id"
	FieldClientIP         = "client_ip"
	FieldMethod           = "method"
	FieldPath             = "path"
	FieldQuery            = "query"
	FieldStatusCode       = "status_code"
	FieldDuration         = "duration_ms"
	FieldSuccess          = "success"
	FieldError            = "error"
	FieldErrorType        = "error_type"
	FieldOperation        = "operation"
	FieldUserID           = "user_id"
	FieldBadgeID          = "badge_id"
	FieldResource         = "resource"
	FieldResourceID       = "resource_id"
	FieldMovementID       = "movement_id"
	FieldAmount           = "amount"
	FieldReportType       = "report_type"
	FieldPeriod           = "period"
	FieldRunID            = "run_id"
	FieldEntity           = "entity"
	FieldRemoteIndex      = "remote_index"
	FieldMissingReference = "missing_reference"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentImporter  = "importer"
	ComponentLegacy    = "legacy"
	ComponentReport    = "report"
	ComponentPayments  = "payments"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpRead        = "read"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpImport      = "import"
	OpReport      = "report"
	OpMaterialize = "materialize"
	OpPublish     = "publish"
	OpSync        = "sync"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeUpstream      = "upstream_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithIdentity adds the caller identity
func (f LogFields) WithIdentity(userID, badgeID int64) LogFields {
	f[FieldUserID] = userID
	if badgeID > 0 {
		f[FieldBadgeID] = badgeID
	}
	return f
}

// WithResource names the entity an operation touched
func (f LogFields) WithResource(resource string, id int64) LogFields {
	f[FieldResource] = resource
	if id > 0 {
		f[FieldResourceID] = id
	}
	return f
}

// WithImport adds the fields every import log line carries
func (f LogFields) WithImport(runID, entity string) LogFields {
	f[FieldRunID] = runID
	f[FieldEntity] = entity
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
