package core

// Validation finding codes. Codes are part of the API contract: callers
// dispatch on them, so they never change once published.
const (
	// Schema phase
	CodeSchemaViolation = "SCHEMA_VIOLATION"

	// Cross-module phase
	CodeReferenceNotFound     = "REFERENCE_NOT_FOUND"
	CodeProductNotFound       = "PRODUCT_NOT_FOUND"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeLowStockWarning       = "LOW_STOCK_WARNING"
	CodeRuleError             = "RULE_ERROR"

	// Business-rule phase
	CodeNegativeQuantity      = "NEGATIVE_QUANTITY"
	CodeBelowMinimumStock     = "BELOW_MINIMUM_STOCK"
	CodeInvalidTotalAmount    = "INVALID_TOTAL_AMOUNT"
	CodeExcessiveDiscount     = "EXCESSIVE_DISCOUNT"
	CodeInvalidEmail          = "INVALID_EMAIL"
	CodeZeroAmountWarning     = "ZERO_AMOUNT_WARNING"
	CodeInvalidCompletionDate = "INVALID_COMPLETION_DATE"

	// Integrity phase
	CodeNegativeValueError      = "NEGATIVE_VALUE_ERROR"
	CodeNullIDWarning           = "NULL_ID_WARNING"
	CodeExcessiveLengthWarning  = "EXCESSIVE_LENGTH_WARNING"
	CodeCircularReferenceError  = "CIRCULAR_REFERENCE_ERROR"

	// Gateway / infrastructure
	CodeInvalidModule  = "INVALID_MODULE"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeSystemError    = "SYSTEM_ERROR"
)

// ValidationError is a single blocking finding. Immutable once constructed.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationWarning is a single non-blocking finding. Warnings never affect
// the verdict; they exist for caller visibility.
type ValidationWarning struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationResult is the single verdict object returned by every validation
// entry point. Invariant: IsValid == (len(Errors) == 0).
type ValidationResult struct {
	IsValid  bool                   `json:"is_valid"`
	Errors   []ValidationError      `json:"errors"`
	Warnings []ValidationWarning    `json:"warnings"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}
}

// AddError appends a blocking finding and flips the verdict.
func (r *ValidationResult) AddError(field, message, code string, value interface{}) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Code: code, Value: value})
	r.IsValid = false
}

// AddWarning appends a non-blocking finding.
func (r *ValidationResult) AddWarning(field, message, code string, value interface{}) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Code: code, Value: value})
}

// Merge appends all findings from other, preserving order. The verdict is
// recomputed from the combined error list.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.IsValid = len(r.Errors) == 0
}

// HasErrors reports whether any blocking finding has been recorded.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}
