// Package gateway implements the admission check for inbound cross-module
// calls. It is the outer perimeter: synchronous, side-effect free, and
// independent of the validation pipeline and the rule registry.
package gateway

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"veritas/core"
	"veritas/metrics"
)

// Request is an inbound cross-module call: which module is addressed, what
// action is requested, and the payload that would be handed to it.
type Request struct {
	Module string                 `json:"module" validate:"required"`
	Action string                 `json:"action" validate:"required"`
	Data   map[string]interface{} `json:"data" validate:"required"`
}

// Validator checks gateway request shape and the module allow-list.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a gateway validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateRequest returns a structured verdict for the request. It never
// consults the rule registry and performs no I/O.
func (v *Validator) ValidateRequest(req *Request) *core.ValidationResult {
	result := core.NewValidationResult()
	if req == nil {
		result.AddError("", "request is required", core.CodeInvalidRequest, nil)
		metrics.GatewayRejectsTotal.WithLabelValues("shape").Inc()
		return result
	}

	if err := v.validate.Struct(req); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range fieldErrors {
				field := strings.ToLower(fieldError.Field())
				result.AddError(field,
					fmt.Sprintf("%s is required", field),
					core.CodeInvalidRequest, nil)
			}
		} else {
			result.AddError("", "malformed gateway request", core.CodeInvalidRequest, nil)
		}
		metrics.GatewayRejectsTotal.WithLabelValues("shape").Inc()
		return result
	}

	if !core.IsKnownModule(req.Module) {
		result.AddError("module",
			fmt.Sprintf("module %q is not a known module", req.Module),
			core.CodeInvalidModule, req.Module)
		metrics.GatewayRejectsTotal.WithLabelValues("module").Inc()
	}
	return result
}
