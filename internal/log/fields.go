package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"

	// Path / URL fields
	FieldPath      = "path"
	FieldFinalPath = "final_path"
	FieldTempPath  = "temp_path"
	FieldURL       = "url"

	// Media fields
	FieldWidth  = "width"
	FieldHeight = "height"
	FieldStep   = "step"
)
