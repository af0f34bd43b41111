package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veritas/core"
)

type fakeInventory struct {
	products map[string]core.ProductInventory
	err      error
}

func (f *fakeInventory) GetProductWithInventory(_ context.Context, productID string) (*core.ProductInventory, error) {
	if f.err != nil {
		return nil, f.err
	}
	product, ok := f.products[productID]
	if !ok {
		return nil, core.ErrProductNotFound
	}
	return &product, nil
}

type fakeCustomers struct {
	known map[string]bool
}

func (f *fakeCustomers) CustomerExists(_ context.Context, customerID string) (bool, error) {
	return f.known[customerID], nil
}

type fakeReferences struct {
	known map[string]bool
	err   error
}

func (f *fakeReferences) EntityExists(_ context.Context, entityID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[entityID], nil
}

type panickingReferences struct{}

func (panickingReferences) EntityExists(context.Context, string) (bool, error) {
	panic("reader exploded")
}

func newTestChecker(t *testing.T, rules []core.CrossModuleValidationRule, collab Collaborators, opts ...CheckerOption) *Checker {
	t.Helper()
	registry := core.NewRuleRegistry(rules, zap.NewNop().Sugar())
	return NewChecker(registry, collab, zap.NewNop().Sugar(), opts...)
}

func salesContext() core.ValidationContext {
	return core.ValidationContext{Module: core.ModuleSales, Operation: core.OpCreate}
}

func inventoryRule(kind core.RuleKind, field string, active bool) core.CrossModuleValidationRule {
	return core.CrossModuleValidationRule{
		SourceModule: core.ModuleSales,
		TargetModule: core.ModuleInventory,
		Field:        field,
		Kind:         kind,
		Active:       active,
	}
}

func TestChecker_InventoryAvailability_CleanPass(t *testing.T) {
	checker := newTestChecker(t,
		[]core.CrossModuleValidationRule{inventoryRule(core.RuleInventoryAvailability, "productId", true)},
		Collaborators{Inventory: &fakeInventory{products: map[string]core.ProductInventory{
			"p-1": {ProductID: "p-1", AvailableQuantity: 10, MinimumStock: 2},
		}}})

	result := checker.Check(context.Background(), map[string]interface{}{
		"productId": "p-1", "quantity": 3.0,
	}, salesContext())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings, "10-3=7 stays above minimum stock of 2")
}

func TestChecker_InventoryAvailability_LowStockWarning(t *testing.T) {
	checker := newTestChecker(t,
		[]core.CrossModuleValidationRule{inventoryRule(core.RuleInventoryAvailability, "productId", true)},
		Collaborators{Inventory: &fakeInventory{products: map[string]core.ProductInventory{
			"p-1": {ProductID: "p-1", AvailableQuantity: 10, MinimumStock: 2},
		}}})

	result := checker.Check(context.Background(), map[string]interface{}{
		"productId": "p-1", "quantity": 9.0,
	}, salesContext())

	assert.True(t, result.IsValid, "warnings never block")
	assert.Empty(t, result.Errors)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.CodeLowStockWarning, result.Warnings[0].Code)
}

func TestChecker_InventoryAvailability_Insufficient(t *testing.T) {
	checker := newTestChecker(t,
		[]core.CrossModuleValidationRule{inventoryRule(core.RuleInventoryAvailability, "productId", true)},
		Collaborators{Inventory: &fakeInventory{products: map[string]core.ProductInventory{
			"p-1": {ProductID: "p-1", AvailableQuantity: 10, MinimumStock: 2},
		}}})

	result := checker.Check(context.Background(), map[string]interface{}{
		"productId": "p-1", "quantity": 15.0,
	}, salesContext())

	require.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeInsufficientInventory, result.Errors[0].Code)
	assert.Equal(t, 15.0, result.Errors[0].Value, "error echoes the requested quantity")
}

func TestChecker_InventoryAvailability_UnknownProduct(t *testing.T) {
	checker := newTestChecker(t,
		[]core.CrossModuleValidationRule{inventoryRule(core.RuleInventoryAvailability, "productId", true)},
		Collaborators{Inventory: &fakeInventory{products: map[string]core.ProductInventory{}}})

	result := checker.Check(context.Background(), map[string]interface{}{
		"productId": "ghost", "quantity": 1.0,
	}, salesContext())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeProductNotFound, result.Errors[0].Code)
	assert.Equal(t, "productId", result.Errors[0].Field)
}

func TestChecker_ReferenceExists(t *testing.T) {
	collab := Collaborators{References: map[string]core.ReferenceReader{
		core.ModuleInventory: &fakeReferences{known: map[string]bool{"p-1": true}},
	}}

	checker := newTestChecker(t,
		[]core.CrossModuleValidationRule{inventoryRule(core.RuleReferenceExists, "productId", true)},
		collab)

	result := checker.Check(context.Background(), map[string]interface{}{"productId": "p-1"}, salesContext())
	assert.True(t, result.IsValid)

	result = checker.Check(context.Background(), map[string]interface{}{"productId": "p-404"}, salesContext())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeReferenceNotFound, result.Errors[0].Code)
	assert.Equal(t, "p-404", result.Errors[0].Value)
}

func TestChecker_ReferenceExists_AbsentFieldIsNoFinding(t *testing.T) {
	checker := newTestChecker(t,
		[]core.CrossModuleValidationRule{inventoryRule(core.RuleReferenceExists, "productId", true)},
		Collaborators{References: map[string]core.ReferenceReader{
			core.ModuleInventory: &fakeReferences{},
		}})

	result := checker.Check(context.Background(), map[string]interface{}{"other": "x"}, salesContext())
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings)
}

func TestChecker_InactiveRuleNeverFires(t *testing.T) {
	checker := newTestChecker(t,
		[]core.CrossModuleValidationRule{inventoryRule(core.RuleInventoryAvailability, "productId", false)},
		Collaborators{Inventory: &fakeInventory{products: map[string]core.ProductInventory{}}})

	result := checker.Check(context.Background(), map[string]interface{}{
		"productId": "ghost", "quantity": 1000.0,
	}, salesContext())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestChecker_PerRuleFaultIsolation(t *testing.T) {
	// One rule panics, one errors at infrastructure level, one succeeds
	// with a finding. All three must surface.
	rules := []core.CrossModuleValidationRule{
		{SourceModule: core.ModuleSales, TargetModule: core.ModuleProduction, Field: "workOrderId", Kind: core.RuleReferenceExists, Active: true},
		{SourceModule: core.ModuleSales, TargetModule: core.ModuleFinance, Field: "ledgerId", Kind: core.RuleReferenceExists, Active: true},
		{SourceModule: core.ModuleSales, TargetModule: core.ModuleInventory, Field: "productId", Kind: core.RuleReferenceExists, Active: true},
	}
	collab := Collaborators{References: map[string]core.ReferenceReader{
		core.ModuleProduction: panickingReferences{},
		core.ModuleFinance:    &fakeReferences{err: errors.New("connection refused")},
		core.ModuleInventory:  &fakeReferences{known: map[string]bool{}},
	}}

	checker := newTestChecker(t, rules, collab)
	result := checker.Check(context.Background(), map[string]interface{}{
		"workOrderId": "w-1", "ledgerId": "l-1", "productId": "p-404",
	}, salesContext())

	require.Len(t, result.Errors, 3)
	assert.Equal(t, core.CodeRuleError, result.Errors[0].Code)
	assert.Equal(t, "workOrderId", result.Errors[0].Field)
	assert.Equal(t, core.CodeRuleError, result.Errors[1].Code)
	assert.Equal(t, "ledgerId", result.Errors[1].Field)
	assert.Equal(t, core.CodeReferenceNotFound, result.Errors[2].Code)
}

func TestChecker_FindingsKeepRuleOrder(t *testing.T) {
	rules := []core.CrossModuleValidationRule{
		{SourceModule: core.ModuleSales, TargetModule: core.ModuleInventory, Field: "a", Kind: core.RuleReferenceExists, Active: true},
		{SourceModule: core.ModuleSales, TargetModule: core.ModuleInventory, Field: "b", Kind: core.RuleReferenceExists, Active: true},
		{SourceModule: core.ModuleSales, TargetModule: core.ModuleInventory, Field: "c", Kind: core.RuleReferenceExists, Active: true},
	}
	checker := newTestChecker(t, rules, Collaborators{References: map[string]core.ReferenceReader{
		core.ModuleInventory: &fakeReferences{known: map[string]bool{}},
	}}, WithMaxParallel(3))

	result := checker.Check(context.Background(), map[string]interface{}{
		"a": "1", "b": "2", "c": "3",
	}, salesContext())

	require.Len(t, result.Errors, 3)
	assert.Equal(t, "a", result.Errors[0].Field)
	assert.Equal(t, "b", result.Errors[1].Field)
	assert.Equal(t, "c", result.Errors[2].Field)
}

func TestChecker_UnknownRuleKind(t *testing.T) {
	checker := newTestChecker(t, []core.CrossModuleValidationRule{
		{SourceModule: core.ModuleSales, Field: "x", Kind: core.RuleKind("carrier_pigeon"), Active: true},
	}, Collaborators{})

	result := checker.Check(context.Background(), map[string]interface{}{"x": "1"}, salesContext())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeRuleError, result.Errors[0].Code)
}

func TestChecker_UniqueWithoutProberFailsLoudly(t *testing.T) {
	checker := newTestChecker(t, []core.CrossModuleValidationRule{
		{SourceModule: core.ModuleSales, Field: "sku", Kind: core.RuleUniqueAcrossModules, Active: true},
	}, Collaborators{})

	result := checker.Check(context.Background(), map[string]interface{}{"sku": "X-1"}, salesContext())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeRuleError, result.Errors[0].Code)
	assert.Equal(t, "sku", result.Errors[0].Field)
}

func TestChecker_CustomerConsistency(t *testing.T) {
	checker := newTestChecker(t, []core.CrossModuleValidationRule{
		{SourceModule: core.ModuleSales, TargetModule: core.ModuleCRM, Field: "customerId", Kind: core.RuleCustomerConsistency, Active: true},
	}, Collaborators{Customers: &fakeCustomers{known: map[string]bool{"c-1": true}}})

	result := checker.Check(context.Background(), map[string]interface{}{"customerId": "c-1"}, salesContext())
	assert.True(t, result.IsValid)

	result = checker.Check(context.Background(), map[string]interface{}{"customerId": "c-404"}, salesContext())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeReferenceNotFound, result.Errors[0].Code)
}

func TestChecker_FinancialConsistency(t *testing.T) {
	checker := newTestChecker(t, []core.CrossModuleValidationRule{
		{SourceModule: core.ModuleFinance, TargetModule: core.ModuleSales, Field: "totalAmount", Kind: core.RuleFinancialConsistency, Active: true},
	}, Collaborators{})
	vctx := core.ValidationContext{Module: core.ModuleFinance, Operation: core.OpCreate}

	result := checker.Check(context.Background(), map[string]interface{}{
		"totalAmount": 30.0,
		"lineItems": []interface{}{
			map[string]interface{}{"amount": 10.0},
			map[string]interface{}{"amount": 20.0},
		},
	}, vctx)
	assert.True(t, result.IsValid)

	result = checker.Check(context.Background(), map[string]interface{}{
		"totalAmount": 31.0,
		"lineItems":   []interface{}{map[string]interface{}{"amount": 10.0}},
	}, vctx)
	assert.False(t, result.IsValid)
}

func TestChecker_ReferenceCacheServesRepeatLookups(t *testing.T) {
	refs := &fakeReferences{known: map[string]bool{"p-1": true}}
	checker := newTestChecker(t, []core.CrossModuleValidationRule{
		inventoryRule(core.RuleReferenceExists, "productId", true),
	}, Collaborators{References: map[string]core.ReferenceReader{core.ModuleInventory: refs}},
		WithReferenceCache(16, time.Minute))

	payload := map[string]interface{}{"productId": "p-1"}
	assert.True(t, checker.Check(context.Background(), payload, salesContext()).IsValid)

	// The entity vanishing from the store is masked by the positive cache
	// until the TTL expires.
	refs.known = map[string]bool{}
	assert.True(t, checker.Check(context.Background(), payload, salesContext()).IsValid)
}

func TestChecker_RegisterHandlerExtendsKinds(t *testing.T) {
	checker := newTestChecker(t, []core.CrossModuleValidationRule{
		{SourceModule: core.ModuleSales, Field: "region", Kind: core.RuleKind("region_supported"), Active: true},
	}, Collaborators{})

	checker.RegisterHandler(core.RuleKind("region_supported"), RuleHandlerFunc(
		func(_ context.Context, rule core.CrossModuleValidationRule, payload map[string]interface{}) (*core.ValidationResult, error) {
			result := core.NewValidationResult()
			if payload[rule.Field] == "atlantis" {
				result.AddError(rule.Field, "region is not served", core.CodeReferenceNotFound, payload[rule.Field])
			}
			return result, nil
		}))

	result := checker.Check(context.Background(), map[string]interface{}{"region": "atlantis"}, salesContext())
	assert.False(t, result.IsValid)
}
