package core

import (
	"fmt"
	"time"
)

// RuleKind enumerates the cross-module check a rule performs.
type RuleKind string

const (
	RuleReferenceExists       RuleKind = "reference_exists"
	RuleUniqueAcrossModules   RuleKind = "unique_across_modules"
	RuleInventoryAvailability RuleKind = "inventory_availability"
	RuleCustomerConsistency   RuleKind = "customer_consistency"
	RuleFinancialConsistency  RuleKind = "financial_consistency"
)

// KnownRuleKinds lists the rule kinds shipped with the engine. Handlers for
// additional kinds can be registered on the checker without touching this set.
var KnownRuleKinds = []RuleKind{
	RuleReferenceExists,
	RuleUniqueAcrossModules,
	RuleInventoryAvailability,
	RuleCustomerConsistency,
	RuleFinancialConsistency,
}

// CrossModuleValidationRule declares that a field in sourceModule payloads
// must be consistent with state owned by targetModule. Rules are data: they
// are seeded at construction and managed through the registry, never
// hard-coded per caller.
type CrossModuleValidationRule struct {
	ID           string    `json:"id"`
	SourceModule string    `json:"source_module"`
	TargetModule string    `json:"target_module"`
	Field        string    `json:"field"`
	Kind         RuleKind  `json:"rule"`
	Description  string    `json:"description,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Validate checks the rule definition itself, not a payload.
func (r *CrossModuleValidationRule) Validate() error {
	if r.SourceModule == "" {
		return fmt.Errorf("%w: source_module is required", ErrInvalidRule)
	}
	if !IsKnownModule(r.SourceModule) {
		return fmt.Errorf("%w: unknown source_module %q", ErrInvalidRule, r.SourceModule)
	}
	if r.TargetModule != "" && !IsKnownModule(r.TargetModule) {
		return fmt.Errorf("%w: unknown target_module %q", ErrInvalidRule, r.TargetModule)
	}
	if r.Field == "" {
		return fmt.Errorf("%w: field is required", ErrInvalidRule)
	}
	if r.Kind == "" {
		return fmt.Errorf("%w: rule kind is required", ErrInvalidRule)
	}
	return nil
}

// RulePatch is a partial rule update. Nil fields are left untouched.
type RulePatch struct {
	TargetModule *string   `json:"target_module,omitempty"`
	Field        *string   `json:"field,omitempty"`
	Kind         *RuleKind `json:"rule,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Active       *bool     `json:"active,omitempty"`
}

// Operation is the write being validated.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ValidationContext carries per-call information about the write under
// validation. Constructed by the caller, never persisted.
type ValidationContext struct {
	Module            string    `json:"module"`
	Operation         Operation `json:"operation"`
	Actor             string    `json:"actor,omitempty"`
	SkipCrossModule   bool      `json:"skip_cross_module,omitempty"`
	SkipBusinessRules bool      `json:"skip_business_rules,omitempty"`
}
