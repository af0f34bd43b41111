package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"veritas/core"
)

// ruleFileSchema is the meta-schema every rule file must satisfy before it
// is unmarshalled. Ids are assigned by the registry and therefore not
// accepted from files.
const ruleFileSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["source_module", "field", "rule"],
		"properties": {
			"source_module": {"type": "string", "minLength": 1},
			"target_module": {"type": "string"},
			"field": {"type": "string", "minLength": 1},
			"rule": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"active": {"type": "boolean"}
		},
		"additionalProperties": false
	}
}`

var compiledRuleFileSchema = mustCompileSchema("rule_file", ruleFileSchema)

// LoadRuleFile reads cross-module rules from a JSON or YAML file. The file
// is validated against the rule meta-schema first, then each rule's own
// definition is checked. Rules default to active unless the file says
// otherwise.
func LoadRuleFile(filename string, logger *zap.SugaredLogger) ([]core.CrossModuleValidationRule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML rule file: %w", err)
		}
	}

	outcome, err := compiledRuleFileSchema.compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate rule file: %w", err)
	}
	if !outcome.Valid() {
		return nil, fmt.Errorf("rule file does not match the rule schema: %v", outcome.Errors())
	}

	var raw []struct {
		core.CrossModuleValidationRule
		Active *bool `json:"active"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}

	rules := make([]core.CrossModuleValidationRule, 0, len(raw))
	for i, entry := range raw {
		rule := entry.CrossModuleValidationRule
		rule.Active = entry.Active == nil || *entry.Active
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d in %s: %w", i, filename, err)
		}
		rules = append(rules, rule)
	}

	if logger != nil {
		logger.Infow("Loaded rule file", "file", filename, "rules", len(rules))
	}
	return rules, nil
}

// yamlToJSON re-encodes a YAML document as JSON so one schema check covers
// both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML converts map[interface{}]interface{} trees, which yaml.v3
// can still produce for non-string keys, into JSON-encodable maps.
func normalizeYAML(v interface{}) interface{} {
	switch value := v.(type) {
	case map[string]interface{}:
		for k, child := range value {
			value[k] = normalizeYAML(child)
		}
		return value
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, child := range value {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(child)
		}
		return out
	case []interface{}:
		for i, child := range value {
			value[i] = normalizeYAML(child)
		}
		return value
	default:
		return v
	}
}

// DefaultSeedRules is the cross-module rule set loaded at construction when
// no rule file is configured.
func DefaultSeedRules() []core.CrossModuleValidationRule {
	return []core.CrossModuleValidationRule{
		{
			SourceModule: core.ModuleSales,
			TargetModule: core.ModuleInventory,
			Field:        "productId",
			Kind:         core.RuleInventoryAvailability,
			Description:  "Sales quantities must be coverable by available inventory",
			Active:       true,
		},
		{
			SourceModule: core.ModuleSales,
			TargetModule: core.ModuleCRM,
			Field:        "customerId",
			Kind:         core.RuleCustomerConsistency,
			Description:  "Sales must reference an existing customer",
			Active:       true,
		},
		{
			SourceModule: core.ModuleFinance,
			TargetModule: core.ModuleSales,
			Field:        "orderId",
			Kind:         core.RuleReferenceExists,
			Description:  "Financial entries must reference an existing sales order",
			Active:       true,
		},
		{
			SourceModule: core.ModuleProduction,
			TargetModule: core.ModuleInventory,
			Field:        "productId",
			Kind:         core.RuleReferenceExists,
			Description:  "Work orders must reference an existing product",
			Active:       true,
		},
		{
			SourceModule: core.ModuleSupplyChain,
			TargetModule: core.ModuleInventory,
			Field:        "productId",
			Kind:         core.RuleReferenceExists,
			Description:  "Purchase orders must reference an existing product",
			Active:       true,
		},
		{
			SourceModule: core.ModuleEcommerce,
			TargetModule: core.ModuleInventory,
			Field:        "productId",
			Kind:         core.RuleInventoryAvailability,
			Description:  "Storefront orders must be coverable by available inventory",
			Active:       true,
		},
	}
}
