package types

// RootResponse is returned by GET /.
type RootResponse struct {
	// Human-readable service banner.
	// example: CKD Prediction API is running.
	Message string `json:"message" example:"CKD Prediction API is running."`
	// Short usage hint.
	// example: POST to /predict with patient data.
	Usage string `json:"usage" example:"POST to /predict with patient data."`
	// Modification time of the loaded artifact (ANSI C format) or null when nothing is loaded yet.
	// example: Mon Jan  2 15:04:05 2006
	ModelLastLoaded *string `json:"model_last_loaded" example:"Mon Jan  2 15:04:05 2006"`
}

// PredictRequest is the body accepted by POST /predict. Every field is optional;
// values may be JSON numbers, numeric strings or null.
type PredictRequest map[string]any

// PredictResponse is returned by POST /predict.
type PredictResponse struct {
	// Decoded class label.
	// example: ckd
	Prediction string `json:"prediction" example:"ckd"`
	// Probability of the winning class, rounded to 4 decimals.
	// example: 0.93
	Probability float64 `json:"probability" example:"0.93"`
	// Server wall-clock time of the prediction.
	// example: 2024-01-02 15:04:05
	Timestamp string `json:"timestamp" example:"2024-01-02 15:04:05"`
	// Caller address as seen by the server.
	// example: 127.0.0.1
	Client string `json:"client" example:"127.0.0.1"`
}

// TestCaseResponse is returned by GET /test_case/{id}.
type TestCaseResponse struct {
	// Fixture identifier.
	// example: 1
	CaseID int `json:"case_id" example:"1"`
	// Fixture input record.
	Input map[string]float64 `json:"input"`
	// Decoded class label.
	// example: ckd
	Prediction string `json:"prediction" example:"ckd"`
	// Probability of the winning class, rounded to 4 decimals.
	// example: 0.93
	Probability float64 `json:"probability" example:"0.93"`
	// Server wall-clock time of the prediction.
	// example: 2024-01-02 15:04:05
	Timestamp string `json:"timestamp" example:"2024-01-02 15:04:05"`
	// Caller address as seen by the server.
	// example: 127.0.0.1
	Client string `json:"client" example:"127.0.0.1"`
}

// FieldErrorDetail describes a single rejected input field.
type FieldErrorDetail struct {
	// Field name from the input schema.
	// example: age
	Field string `json:"field" example:"age"`
	// Failure kind: out_of_range or type_invalid.
	// example: out_of_range
	Kind string `json:"kind" example:"out_of_range"`
	// Offending value when it could be read as a number.
	Value *float64 `json:"value,omitempty"`
	// Violated bound, e.g. "< 120".
	// example: < 120
	Bound string `json:"bound,omitempty" example:"< 120"`
	// Human-readable message.
	Message string `json:"message"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Per-field validation detail (422 only).
	Detail []FieldErrorDetail `json:"detail,omitempty"`
}
