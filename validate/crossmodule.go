package validate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"veritas/core"
	"veritas/metrics"
	"veritas/util/goroutine"
)

// Collaborators bundles the read-only interfaces the checker queries in
// target modules. Missing collaborators are tolerated: a rule that needs an
// absent reader fails as RULE_ERROR, not a panic.
type Collaborators struct {
	Inventory core.InventoryReader
	Customers core.CustomerReader
	// References maps target module name to its existence check.
	References map[string]core.ReferenceReader
	// Uniqueness maps field name to its uniqueness prober. Fields without a
	// prober make unique_across_modules rules fail loudly instead of
	// silently passing.
	Uniqueness map[string]core.UniquenessProber
}

// RuleHandler evaluates one cross-module rule kind against a payload.
// Returned findings are merged in rule order; a returned error is downgraded
// to a RULE_ERROR finding by the checker.
type RuleHandler interface {
	Evaluate(ctx context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error)
}

// RuleHandlerFunc adapts a function to the RuleHandler interface.
type RuleHandlerFunc func(ctx context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error)

// Evaluate implements RuleHandler.
func (f RuleHandlerFunc) Evaluate(ctx context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error) {
	return f(ctx, rule, payload)
}

// Checker runs the cross-module phase: it fetches the active rules for the
// source module and dispatches each to the handler registered for its kind.
// Independent rules for one payload are evaluated concurrently; all of them
// complete before findings are aggregated, and findings keep rule order.
type Checker struct {
	registry *core.RuleRegistry
	collab   Collaborators

	mu       sync.RWMutex
	handlers map[core.RuleKind]RuleHandler

	refCache    *expirable.LRU[string, bool]
	maxParallel int
	logger      *zap.SugaredLogger
}

// CheckerOption customizes a Checker.
type CheckerOption func(*Checker)

// WithMaxParallel bounds the number of rule evaluations in flight for one
// payload.
func WithMaxParallel(n int) CheckerOption {
	return func(c *Checker) {
		if n > 0 {
			c.maxParallel = n
		}
	}
}

// WithReferenceCache enables a small expiring cache of positive
// reference-existence answers.
func WithReferenceCache(size int, ttl time.Duration) CheckerOption {
	return func(c *Checker) {
		if size > 0 {
			c.refCache = expirable.NewLRU[string, bool](size, nil, ttl)
		}
	}
}

// NewChecker creates a cross-module checker with the built-in rule-kind
// handlers registered. Additional kinds can be added with RegisterHandler.
func NewChecker(registry *core.RuleRegistry, collab Collaborators, logger *zap.SugaredLogger, opts ...CheckerOption) *Checker {
	c := &Checker{
		registry:    registry,
		collab:      collab,
		handlers:    make(map[core.RuleKind]RuleHandler),
		maxParallel: 8,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.RegisterHandler(core.RuleReferenceExists, RuleHandlerFunc(c.evaluateReferenceExists))
	c.RegisterHandler(core.RuleUniqueAcrossModules, RuleHandlerFunc(c.evaluateUniqueAcrossModules))
	c.RegisterHandler(core.RuleInventoryAvailability, RuleHandlerFunc(c.evaluateInventoryAvailability))
	c.RegisterHandler(core.RuleCustomerConsistency, RuleHandlerFunc(c.evaluateCustomerConsistency))
	c.RegisterHandler(core.RuleFinancialConsistency, RuleHandlerFunc(c.evaluateFinancialConsistency))
	return c
}

// RegisterHandler installs or replaces the handler for a rule kind. Adding a
// new kind means registering a handler, never editing a switch.
func (c *Checker) RegisterHandler(kind core.RuleKind, handler RuleHandler) {
	c.mu.Lock()
	c.handlers[kind] = handler
	c.mu.Unlock()
}

func (c *Checker) handlerFor(kind core.RuleKind) (RuleHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	handler, ok := c.handlers[kind]
	return handler, ok
}

// Check evaluates every active rule registered for vctx.Module against the
// payload. Rule faults are isolated: a panic or infrastructure error in one
// rule becomes a RULE_ERROR finding while the remaining rules still run.
func (c *Checker) Check(ctx context.Context, payload map[string]interface{}, vctx core.ValidationContext) *core.ValidationResult {
	result := core.NewValidationResult()

	all := c.registry.RulesFor(vctx.Module)
	active := all[:0:0]
	for _, rule := range all {
		if rule.Active {
			active = append(active, rule)
		}
	}
	if len(active) == 0 {
		return result
	}

	// Fan out one evaluation per rule, bounded by maxParallel. Findings are
	// collected per index so the merged output keeps rule order regardless
	// of completion order.
	perRule := make([]*core.ValidationResult, len(active))
	sem := make(chan struct{}, c.maxParallel)
	var wg sync.WaitGroup
	for i, rule := range active {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rule core.CrossModuleValidationRule) {
			defer wg.Done()
			defer func() { <-sem }()
			perRule[i] = c.evaluateRule(ctx, rule, payload)
		}(i, rule)
	}
	wg.Wait()

	for _, findings := range perRule {
		result.Merge(findings)
	}
	return result
}

// evaluateRule is the per-rule fault boundary.
func (c *Checker) evaluateRule(ctx context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (findings *core.ValidationResult) {
	defer goroutine.RecoverWith("rule "+rule.ID, c.logger, func(v interface{}) {
		metrics.RuleFaultsTotal.Inc()
		metrics.RuleEvaluationsTotal.WithLabelValues(string(rule.Kind), "fault").Inc()
		findings = core.NewValidationResult()
		findings.AddError(rule.Field, fmt.Sprintf("rule evaluation failed: %v", v), core.CodeRuleError, nil)
	})

	handler, ok := c.handlerFor(rule.Kind)
	if !ok {
		findings = core.NewValidationResult()
		findings.AddError(rule.Field, fmt.Sprintf("no handler registered for rule kind %q", rule.Kind), core.CodeRuleError, nil)
		metrics.RuleEvaluationsTotal.WithLabelValues(string(rule.Kind), "fault").Inc()
		return findings
	}

	findings, err := handler.Evaluate(ctx, rule, payload)
	if err != nil {
		metrics.RuleFaultsTotal.Inc()
		metrics.RuleEvaluationsTotal.WithLabelValues(string(rule.Kind), "fault").Inc()
		if c.logger != nil {
			c.logger.Warnw("Rule evaluation error", "rule_id", rule.ID, "kind", rule.Kind, "error", err)
		}
		findings = core.NewValidationResult()
		findings.AddError(rule.Field, fmt.Sprintf("rule evaluation failed: %v", err), core.CodeRuleError, nil)
		return findings
	}
	if findings == nil {
		findings = core.NewValidationResult()
	}

	outcome := "ok"
	if findings.HasErrors() {
		outcome = "error"
	} else if len(findings.Warnings) > 0 {
		outcome = "warning"
	}
	metrics.RuleEvaluationsTotal.WithLabelValues(string(rule.Kind), outcome).Inc()
	return findings
}

// evaluateReferenceExists checks that the id named by rule.Field, when
// present in the payload, refers to an existing entity in the target module.
func (c *Checker) evaluateReferenceExists(ctx context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error) {
	result := core.NewValidationResult()

	raw, present := payload[rule.Field]
	if !present || raw == nil {
		return result, nil
	}
	entityID, ok := stringField(payload, rule.Field)
	if !ok {
		result.AddError(rule.Field, "referenced id is not a string or number", core.CodeReferenceNotFound, raw)
		return result, nil
	}

	cacheKey := rule.TargetModule + ":" + entityID
	if c.refCache != nil {
		if _, hit := c.refCache.Get(cacheKey); hit {
			metrics.ReferenceCacheHits.WithLabelValues("hit").Inc()
			return result, nil
		}
		metrics.ReferenceCacheHits.WithLabelValues("miss").Inc()
	}

	reader, ok := c.collab.References[rule.TargetModule]
	if !ok {
		return nil, fmt.Errorf("no reference reader wired for target module %q", rule.TargetModule)
	}
	exists, err := reader.EntityExists(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("reference lookup in %s failed: %w", rule.TargetModule, err)
	}
	if !exists {
		result.AddError(rule.Field,
			fmt.Sprintf("referenced %s entity %q does not exist", rule.TargetModule, entityID),
			core.CodeReferenceNotFound, entityID)
		return result, nil
	}

	// Only positive answers are cached: a just-created entity must become
	// visible no later than the cache TTL, a deleted one is re-checked on
	// the next miss.
	if c.refCache != nil {
		c.refCache.Add(cacheKey, true)
	}
	return result, nil
}

// evaluateUniqueAcrossModules requires an explicitly registered prober for
// the rule's field. Silent success without an implementation is forbidden.
func (c *Checker) evaluateUniqueAcrossModules(ctx context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error) {
	result := core.NewValidationResult()

	raw, present := payload[rule.Field]
	if !present || raw == nil {
		return result, nil
	}
	prober, ok := c.collab.Uniqueness[rule.Field]
	if !ok {
		return nil, fmt.Errorf("no uniqueness prober registered for field %q", rule.Field)
	}
	taken, err := prober.ValueTaken(ctx, rule.Field, raw)
	if err != nil {
		return nil, fmt.Errorf("uniqueness probe for %s failed: %w", rule.Field, err)
	}
	if taken {
		result.AddError(rule.Field,
			fmt.Sprintf("value for %s is already claimed in another module", rule.Field),
			core.CodeReferenceNotFound, raw)
	}
	return result, nil
}

// evaluateInventoryAvailability checks requested quantity against the
// inventory module's availability for the product named in the payload.
func (c *Checker) evaluateInventoryAvailability(ctx context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error) {
	result := core.NewValidationResult()

	productID, ok := stringField(payload, "productId")
	if !ok {
		return nil, fmt.Errorf("payload is missing productId required by inventory_availability")
	}
	requested, ok := numberField(payload, "quantity")
	if !ok {
		return nil, fmt.Errorf("payload is missing quantity required by inventory_availability")
	}

	if c.collab.Inventory == nil {
		return nil, fmt.Errorf("no inventory reader wired")
	}
	product, err := c.collab.Inventory.GetProductWithInventory(ctx, productID)
	if errors.Is(err, core.ErrProductNotFound) {
		result.AddError("productId",
			fmt.Sprintf("product %q does not exist in inventory", productID),
			core.CodeProductNotFound, productID)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inventory lookup for %s failed: %w", productID, err)
	}

	if product.AvailableQuantity < requested {
		result.AddError("quantity",
			fmt.Sprintf("requested %v but only %v available", requested, product.AvailableQuantity),
			core.CodeInsufficientInventory, requested)
		return result, nil
	}
	if product.AvailableQuantity-requested < product.MinimumStock {
		result.AddWarning("quantity",
			fmt.Sprintf("fulfilling %v drops stock below minimum of %v", requested, product.MinimumStock),
			core.CodeLowStockWarning, requested)
	}
	return result, nil
}

// evaluateCustomerConsistency verifies the customer id named by the rule
// against the customer-records module.
func (c *Checker) evaluateCustomerConsistency(ctx context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error) {
	result := core.NewValidationResult()

	raw, present := payload[rule.Field]
	if !present || raw == nil {
		return result, nil
	}
	customerID, ok := stringField(payload, rule.Field)
	if !ok {
		result.AddError(rule.Field, "customer id is not a string or number", core.CodeReferenceNotFound, raw)
		return result, nil
	}
	if c.collab.Customers == nil {
		return nil, fmt.Errorf("no customer reader wired")
	}
	exists, err := c.collab.Customers.CustomerExists(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("customer lookup for %s failed: %w", customerID, err)
	}
	if !exists {
		result.AddError(rule.Field,
			fmt.Sprintf("customer %q does not exist", customerID),
			core.CodeReferenceNotFound, customerID)
	}
	return result, nil
}

// evaluateFinancialConsistency cross-checks a financial total against its
// line items when both are present in the payload.
func (c *Checker) evaluateFinancialConsistency(_ context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error) {
	result := core.NewValidationResult()

	total, hasTotal := numberField(payload, rule.Field)
	lines, hasLines := payload["lineItems"].([]interface{})
	if !hasTotal || !hasLines {
		return result, nil
	}

	var sum float64
	for _, line := range lines {
		entry, ok := line.(map[string]interface{})
		if !ok {
			continue
		}
		if amount, ok := numberField(entry, "amount"); ok {
			sum += amount
		}
	}
	if sum != total {
		result.AddError(rule.Field,
			fmt.Sprintf("total %v does not reconcile with line items summing to %v", total, sum),
			core.CodeRuleError, total)
	}
	return result, nil
}

// stringField reads a payload field as a string id; numeric ids are
// formatted. JSON decoding yields float64 for all numbers.
func stringField(payload map[string]interface{}, key string) (string, bool) {
	switch v := payload[key].(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case float64:
		return fmt.Sprintf("%v", v), true
	case int:
		return fmt.Sprintf("%d", v), true
	case int64:
		return fmt.Sprintf("%d", v), true
	default:
		return "", false
	}
}

// numberField reads a payload field as float64.
func numberField(payload map[string]interface{}, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
