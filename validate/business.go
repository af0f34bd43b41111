package validate

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"veritas/core"
)

// BusinessRuleValidator holds the domain invariants of one module. Adding a
// module means registering a new validator, never branching deeper inside an
// existing one.
type BusinessRuleValidator interface {
	Module() string
	Validate(ctx context.Context, payload map[string]interface{}, vctx core.ValidationContext) *core.ValidationResult
}

// Evaluator dispatches to the validator registered for the context's module.
// Modules without a validator simply produce no findings.
type Evaluator struct {
	mu         sync.RWMutex
	validators map[string]BusinessRuleValidator
	logger     *zap.SugaredLogger
}

// NewEvaluator creates an evaluator with the built-in module validators
// registered.
func NewEvaluator(logger *zap.SugaredLogger) *Evaluator {
	e := &Evaluator{
		validators: make(map[string]BusinessRuleValidator),
		logger:     logger,
	}
	e.Register(inventoryRules{})
	e.Register(salesRules{})
	e.Register(customerRules{})
	e.Register(financeRules{})
	e.Register(productionRules{})
	return e
}

// Register installs or replaces the validator for its module.
func (e *Evaluator) Register(v BusinessRuleValidator) {
	e.mu.Lock()
	e.validators[v.Module()] = v
	e.mu.Unlock()
}

// Evaluate runs the module-specific invariants for vctx.Module.
func (e *Evaluator) Evaluate(ctx context.Context, payload map[string]interface{}, vctx core.ValidationContext) *core.ValidationResult {
	e.mu.RLock()
	v, ok := e.validators[vctx.Module]
	e.mu.RUnlock()
	if !ok {
		return core.NewValidationResult()
	}
	return v.Validate(ctx, payload, vctx)
}

// inventoryRules: stock mutations must keep quantities sane.
type inventoryRules struct{}

func (inventoryRules) Module() string { return core.ModuleInventory }

func (inventoryRules) Validate(_ context.Context, payload map[string]interface{}, _ core.ValidationContext) *core.ValidationResult {
	result := core.NewValidationResult()
	quantity, hasQuantity := numberField(payload, "quantity")
	if hasQuantity && quantity < 0 {
		result.AddError("quantity", "quantity must not be negative", core.CodeNegativeQuantity, quantity)
	}
	if minimum, ok := numberField(payload, "minimumStock"); ok && hasQuantity && quantity >= 0 && quantity < minimum {
		result.AddWarning("quantity",
			fmt.Sprintf("quantity %v is below the minimum stock level of %v", quantity, minimum),
			core.CodeBelowMinimumStock, quantity)
	}
	return result
}

// salesRules: sale totals must be positive and never out-discounted.
type salesRules struct{}

func (salesRules) Module() string { return core.ModuleSales }

func (salesRules) Validate(_ context.Context, payload map[string]interface{}, _ core.ValidationContext) *core.ValidationResult {
	result := core.NewValidationResult()
	total, hasTotal := numberField(payload, "totalAmount")
	if hasTotal && total <= 0 {
		result.AddError("totalAmount", "total amount must be greater than zero", core.CodeInvalidTotalAmount, total)
	}
	if discount, ok := numberField(payload, "discount"); ok && hasTotal && discount > total {
		result.AddError("discount",
			fmt.Sprintf("discount %v exceeds total amount %v", discount, total),
			core.CodeExcessiveDiscount, discount)
	}
	return result
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// customerRules: customer records need well-formed contact data.
type customerRules struct{}

func (customerRules) Module() string { return core.ModuleCRM }

func (customerRules) Validate(_ context.Context, payload map[string]interface{}, _ core.ValidationContext) *core.ValidationResult {
	result := core.NewValidationResult()
	if email, ok := payload["email"].(string); ok && email != "" && !emailPattern.MatchString(email) {
		result.AddError("email", fmt.Sprintf("email %q is malformed", email), core.CodeInvalidEmail, email)
	}
	return result
}

// financeRules: zero amounts are suspicious but not invalid.
type financeRules struct{}

func (financeRules) Module() string { return core.ModuleFinance }

func (financeRules) Validate(_ context.Context, payload map[string]interface{}, _ core.ValidationContext) *core.ValidationResult {
	result := core.NewValidationResult()
	if amount, ok := numberField(payload, "amount"); ok && amount == 0 {
		result.AddWarning("amount", "financial entry has a zero amount", core.CodeZeroAmountWarning, amount)
	}
	return result
}

// productionRules: a work order cannot complete before it starts.
type productionRules struct{}

func (productionRules) Module() string { return core.ModuleProduction }

func (productionRules) Validate(_ context.Context, payload map[string]interface{}, _ core.ValidationContext) *core.ValidationResult {
	result := core.NewValidationResult()
	start, okStart := dateField(payload, "startDate")
	completion, okCompletion := dateField(payload, "expectedCompletionDate")
	if okStart && okCompletion && completion.Before(start) {
		result.AddError("expectedCompletionDate",
			"expected completion date precedes the start date",
			core.CodeInvalidCompletionDate, payload["expectedCompletionDate"])
	}
	return result
}

// dateField parses a payload date given as RFC 3339 or plain YYYY-MM-DD.
func dateField(payload map[string]interface{}, key string) (time.Time, bool) {
	switch v := payload[key].(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
