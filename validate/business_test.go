package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veritas/core"
)

func evaluate(t *testing.T, module string, payload map[string]interface{}) *core.ValidationResult {
	t.Helper()
	evaluator := NewEvaluator(zap.NewNop().Sugar())
	return evaluator.Evaluate(context.Background(),
		payload, core.ValidationContext{Module: module, Operation: core.OpCreate})
}

func TestBusinessRules_Inventory(t *testing.T) {
	tests := []struct {
		name      string
		payload   map[string]interface{}
		wantError string
		wantWarn  string
	}{
		{
			name:      "negative quantity",
			payload:   map[string]interface{}{"quantity": -5.0},
			wantError: core.CodeNegativeQuantity,
		},
		{
			name:     "below minimum stock warns",
			payload:  map[string]interface{}{"quantity": 1.0, "minimumStock": 5.0},
			wantWarn: core.CodeBelowMinimumStock,
		},
		{
			name:    "healthy quantity",
			payload: map[string]interface{}{"quantity": 10.0, "minimumStock": 5.0},
		},
		{
			name:    "no quantity field",
			payload: map[string]interface{}{"name": "widget"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluate(t, core.ModuleInventory, tt.payload)
			if tt.wantError != "" {
				require.Len(t, result.Errors, 1)
				assert.Equal(t, tt.wantError, result.Errors[0].Code)
			} else {
				assert.True(t, result.IsValid)
			}
			if tt.wantWarn != "" {
				require.Len(t, result.Warnings, 1)
				assert.Equal(t, tt.wantWarn, result.Warnings[0].Code)
			}
		})
	}
}

func TestBusinessRules_Sales(t *testing.T) {
	result := evaluate(t, core.ModuleSales, map[string]interface{}{
		"totalAmount": 100.0, "discount": 150.0,
	})
	require.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeExcessiveDiscount, result.Errors[0].Code)
	assert.Equal(t, 150.0, result.Errors[0].Value)

	result = evaluate(t, core.ModuleSales, map[string]interface{}{"totalAmount": 0.0})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeInvalidTotalAmount, result.Errors[0].Code)

	result = evaluate(t, core.ModuleSales, map[string]interface{}{
		"totalAmount": 100.0, "discount": 20.0,
	})
	assert.True(t, result.IsValid)
}

func TestBusinessRules_CRMEmail(t *testing.T) {
	result := evaluate(t, core.ModuleCRM, map[string]interface{}{"email": "not-an-email"})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeInvalidEmail, result.Errors[0].Code)

	assert.True(t, evaluate(t, core.ModuleCRM, map[string]interface{}{"email": "a@b.co"}).IsValid)
	assert.True(t, evaluate(t, core.ModuleCRM, map[string]interface{}{"name": "no email"}).IsValid)
}

func TestBusinessRules_FinanceZeroAmount(t *testing.T) {
	result := evaluate(t, core.ModuleFinance, map[string]interface{}{"amount": 0.0})
	assert.True(t, result.IsValid, "zero amount is suspicious, not invalid")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, core.CodeZeroAmountWarning, result.Warnings[0].Code)

	assert.Empty(t, evaluate(t, core.ModuleFinance, map[string]interface{}{"amount": 12.5}).Warnings)
}

func TestBusinessRules_ProductionDates(t *testing.T) {
	result := evaluate(t, core.ModuleProduction, map[string]interface{}{
		"startDate":              "2026-09-01",
		"expectedCompletionDate": "2026-08-15",
	})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, core.CodeInvalidCompletionDate, result.Errors[0].Code)

	assert.True(t, evaluate(t, core.ModuleProduction, map[string]interface{}{
		"startDate":              "2026-09-01T08:00:00Z",
		"expectedCompletionDate": "2026-09-20T08:00:00Z",
	}).IsValid)

	// unparsable dates produce no finding; shape is the schema's business
	assert.True(t, evaluate(t, core.ModuleProduction, map[string]interface{}{
		"startDate": "whenever",
	}).IsValid)
}

func TestBusinessRules_UnregisteredModuleIsSilent(t *testing.T) {
	result := evaluate(t, core.ModuleAnalytics, map[string]interface{}{"quantity": -999.0})
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Warnings)
}

type strictSupplyChainRules struct{}

func (strictSupplyChainRules) Module() string { return core.ModuleSupplyChain }

func (strictSupplyChainRules) Validate(_ context.Context, payload map[string]interface{}, _ core.ValidationContext) *core.ValidationResult {
	result := core.NewValidationResult()
	if _, ok := payload["supplierId"]; !ok {
		result.AddError("supplierId", "supplier is required", core.CodeReferenceNotFound, nil)
	}
	return result
}

func TestBusinessRules_RegisterNewModule(t *testing.T) {
	evaluator := NewEvaluator(zap.NewNop().Sugar())
	evaluator.Register(strictSupplyChainRules{})

	result := evaluator.Evaluate(context.Background(), map[string]interface{}{},
		core.ValidationContext{Module: core.ModuleSupplyChain, Operation: core.OpCreate})
	assert.False(t, result.IsValid)
}
