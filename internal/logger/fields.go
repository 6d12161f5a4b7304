package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the meal-plan job ID
	FieldJobID = "job_id"

	// FieldPhase is the job phase being executed (1-5)
	FieldPhase = "phase"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldRecipeID is the recipe being generated, imaged or stored
	FieldRecipeID = "recipe_id"

	// FieldMealType is the meal slot (dinner, breakfast, dessert)
	FieldMealType = "meal_type"

	// FieldProvider is the external AI provider handling a call
	FieldProvider = "provider"
)

// Metric fields, used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
