package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewValidationResult_IsValid(t *testing.T) {
	result := NewValidationResult()
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidationResult_AddErrorFlipsVerdict(t *testing.T) {
	result := NewValidationResult()
	result.AddError("quantity", "must not be negative", CodeNegativeQuantity, -3)

	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "quantity", result.Errors[0].Field)
	assert.Equal(t, CodeNegativeQuantity, result.Errors[0].Code)
	assert.Equal(t, -3, result.Errors[0].Value)
}

func TestValidationResult_WarningsNeverBlock(t *testing.T) {
	result := NewValidationResult()
	result.AddWarning("quantity", "low stock", CodeLowStockWarning, 9)
	result.AddWarning("amount", "zero amount", CodeZeroAmountWarning, 0)

	assert.True(t, result.IsValid)
	assert.Len(t, result.Warnings, 2)
}

func TestValidationResult_MergePreservesOrderAndVerdict(t *testing.T) {
	first := NewValidationResult()
	first.AddWarning("a", "w1", CodeLowStockWarning, nil)

	second := NewValidationResult()
	second.AddError("b", "e1", CodeReferenceNotFound, nil)
	second.AddWarning("c", "w2", CodeNullIDWarning, nil)

	first.Merge(second)

	assert.False(t, first.IsValid)
	assert.Len(t, first.Errors, 1)
	assert.Equal(t, []string{"a", "c"}, []string{first.Warnings[0].Field, first.Warnings[1].Field})
}

func TestValidationResult_MergeNil(t *testing.T) {
	result := NewValidationResult()
	result.Merge(nil)
	assert.True(t, result.IsValid)
}

func TestValidationResult_InvariantHolds(t *testing.T) {
	result := NewValidationResult()
	assert.Equal(t, result.IsValid, len(result.Errors) == 0)

	result.AddError("x", "boom", CodeSystemError, nil)
	assert.Equal(t, result.IsValid, len(result.Errors) == 0)

	result.Merge(NewValidationResult())
	assert.Equal(t, result.IsValid, len(result.Errors) == 0)
}
