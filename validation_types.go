package chatcore

// Severity indicates how serious a validation warning is
type Severity string

const (
	SeverityInfo    Severity = "info"    // Informational (might be expected)
	SeverityWarning Severity = "warning" // Potentially problematic
	SeverityError   Severity = "error"   // Likely to cause backend failure
)

// WarningCode is a machine-readable identifier for validation warnings
type WarningCode string

const (
	// Model warnings
	WarningCodeModelUnknown   WarningCode = "MODEL_UNKNOWN"
	WarningCodeModelMissing   WarningCode = "MODEL_MISSING"
	WarningCodeBaseURLIgnored WarningCode = "BASE_URL_IGNORED"

	// Parameter warnings
	WarningCodeParamIgnored WarningCode = "PARAM_IGNORED"

	// Conversation warnings
	WarningCodeEmptyMessage   WarningCode = "EMPTY_MESSAGE"
	WarningCodeLastNotUser    WarningCode = "LAST_MESSAGE_NOT_USER"
	WarningCodeSystemNotFirst WarningCode = "SYSTEM_NOT_FIRST"
)

// ValidationWarning is a potential issue with a job. Jobs are never blocked
// because of warnings; the backend decides what it rejects.
type ValidationWarning struct {
	Code     WarningCode `json:"code"`
	Category string      `json:"category"` // model, parameter or conversation
	Field    string      `json:"field"`
	Value    any         `json:"value,omitempty"`
	Message  string      `json:"message"`
	Severity Severity    `json:"severity"`
}

// ValidationRule interface allows adding custom validation logic
type ValidationRule interface {
	// Name returns a human-readable name for this rule
	Name() string

	// Check inspects a job bound for backend and returns warnings
	Check(backend BackendID, job *Job) []ValidationWarning
}
