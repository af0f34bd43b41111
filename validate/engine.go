package validate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"veritas/core"
	"veritas/metrics"
	"veritas/util/goroutine"
)

// Engine drives the validation pipeline: Schema, then Cross-Module, then
// Business Rules, then Integrity. A phase runs only if every phase before it
// produced no errors; warnings accumulate across all phases that ran. No
// fault escapes to the caller — the top-level boundary converts panics into
// a SYSTEM_ERROR verdict.
type Engine struct {
	schemas   *SchemaRegistry
	checker   *Checker
	business  *Evaluator
	integrity *IntegrityScanner
	logger    *zap.SugaredLogger
}

// NewEngine wires the four phases together.
func NewEngine(schemas *SchemaRegistry, checker *Checker, business *Evaluator, integrity *IntegrityScanner, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		schemas:   schemas,
		checker:   checker,
		business:  business,
		integrity: integrity,
		logger:    logger,
	}
}

// Schemas exposes the engine's schema registry for registration at wiring
// time.
func (e *Engine) Schemas() *SchemaRegistry {
	return e.schemas
}

// Validate runs the full pipeline for one proposed write. A nil schema
// skips the schema phase. The returned result is always structured; the
// verdict is rejected exactly when the error list is non-empty.
func (e *Engine) Validate(ctx context.Context, payload map[string]interface{}, schema *Schema, vctx core.ValidationContext) (result *core.ValidationResult) {
	defer goroutine.RecoverWith("validation pipeline", e.logger, func(v interface{}) {
		result = core.NewValidationResult()
		result.AddError("", "internal validation fault", core.CodeSystemError, nil)
		metrics.ValidationsTotal.WithLabelValues(vctx.Module, "rejected").Inc()
	})

	result = core.NewValidationResult()

	// Phase 1: schema. A failure here terminates the pipeline with only
	// schema errors in the result.
	if schema != nil {
		phase := e.timePhase("schema")
		schemaResult := ValidateSchema(payload, schema)
		phase()
		if !schemaResult.IsValid {
			e.finish(vctx, schemaResult)
			return schemaResult
		}
		result.Merge(schemaResult)
		result.Data = schemaResult.Data
	}

	// Phase 2: cross-module consistency.
	if !vctx.SkipCrossModule && e.checker != nil {
		phase := e.timePhase("cross_module")
		result.Merge(e.checker.Check(ctx, payload, vctx))
		phase()
		if result.HasErrors() {
			e.finish(vctx, result)
			return result
		}
	}

	// Phase 3: module-specific business rules.
	if !vctx.SkipBusinessRules && e.business != nil {
		phase := e.timePhase("business_rules")
		result.Merge(e.business.Evaluate(ctx, payload, vctx))
		phase()
		if result.HasErrors() {
			e.finish(vctx, result)
			return result
		}
	}

	// Phase 4: structural integrity, last and only on still-valid records.
	if e.integrity != nil {
		phase := e.timePhase("integrity")
		result.Merge(e.integrity.Scan(payload))
		phase()
	}

	if result.IsValid {
		result.Data = payload
	}
	e.finish(vctx, result)
	return result
}

// ValidateOperation resolves the schema registered for the context's module
// and operation, then runs the pipeline. Used by callers that register
// schemas up front instead of passing them inline.
func (e *Engine) ValidateOperation(ctx context.Context, payload map[string]interface{}, vctx core.ValidationContext) *core.ValidationResult {
	var schema *Schema
	if e.schemas != nil {
		if registered, ok := e.schemas.Lookup(vctx.Module, vctx.Operation); ok {
			schema = registered
		}
	}
	return e.Validate(ctx, payload, schema, vctx)
}

func (e *Engine) timePhase(phase string) func() {
	start := time.Now()
	return func() {
		metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) finish(vctx core.ValidationContext, result *core.ValidationResult) {
	verdict := "accepted"
	if !result.IsValid {
		verdict = "rejected"
	}
	metrics.ValidationsTotal.WithLabelValues(vctx.Module, verdict).Inc()
	if e.logger != nil {
		e.logger.Debugw("Validation finished",
			"module", vctx.Module,
			"operation", vctx.Operation,
			"verdict", verdict,
			"errors", len(result.Errors),
			"warnings", len(result.Warnings))
	}
}
