package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ruleShard holds the rules owned by one source module. Each shard carries
// its own lock so writers for one module never block readers of another.
type ruleShard struct {
	mu    sync.RWMutex
	rules []CrossModuleValidationRule
}

// RuleRegistry is the process-wide store of cross-module validation rules,
// keyed by source module. Reads happen on every validation call; writes are
// rare and administrative. Readers always receive a copied slice, so a list
// handed out is never mutated underneath the caller.
type RuleRegistry struct {
	mu     sync.RWMutex // guards the shard map itself
	shards map[string]*ruleShard
	logger *zap.SugaredLogger
}

// NewRuleRegistry creates a registry seeded with the given rules. Seed rules
// without an id get one assigned. Seed rules that fail validation are
// skipped with a log entry rather than aborting construction.
func NewRuleRegistry(seed []CrossModuleValidationRule, logger *zap.SugaredLogger) *RuleRegistry {
	r := &RuleRegistry{
		shards: make(map[string]*ruleShard),
		logger: logger,
	}
	for _, rule := range seed {
		if _, err := r.AddRule(rule); err != nil {
			if logger != nil {
				logger.Warnw("Skipping invalid seed rule", "field", rule.Field, "source_module", rule.SourceModule, "error", err)
			}
		}
	}
	return r
}

func (r *RuleRegistry) shardFor(module string, create bool) *ruleShard {
	r.mu.RLock()
	shard, ok := r.shards[module]
	r.mu.RUnlock()
	if ok || !create {
		return shard
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if shard, ok = r.shards[module]; ok {
		return shard
	}
	shard = &ruleShard{}
	r.shards[module] = shard
	return shard
}

// RulesFor returns a copy of the ordered rule list for the given source
// module. Both active and inactive rules are returned; the cross-module
// checker filters on Active.
func (r *RuleRegistry) RulesFor(sourceModule string) []CrossModuleValidationRule {
	shard := r.shardFor(sourceModule, false)
	if shard == nil {
		return nil
	}
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	out := make([]CrossModuleValidationRule, len(shard.rules))
	copy(out, shard.rules)
	return out
}

// AddRule validates and stores a new rule, generating a fresh unique id.
// The provided id, if any, is ignored.
func (r *RuleRegistry) AddRule(rule CrossModuleValidationRule) (string, error) {
	if err := rule.Validate(); err != nil {
		return "", err
	}
	rule.ID = uuid.New().String()
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	shard := r.shardFor(rule.SourceModule, true)
	shard.mu.Lock()
	shard.rules = append(shard.rules, rule)
	shard.mu.Unlock()

	if r.logger != nil {
		r.logger.Debugw("Rule added", "id", rule.ID, "source_module", rule.SourceModule, "kind", rule.Kind, "field", rule.Field)
	}
	return rule.ID, nil
}

// UpdateRule applies a partial update to the rule with the given id and
// reports whether a match was found. Toggling Active is the sanctioned way
// to disable a rule; rules are never deleted.
func (r *RuleRegistry) UpdateRule(id string, patch RulePatch) bool {
	if patch.TargetModule != nil && *patch.TargetModule != "" && !IsKnownModule(*patch.TargetModule) {
		return false
	}

	r.mu.RLock()
	shards := make([]*ruleShard, 0, len(r.shards))
	for _, shard := range r.shards {
		shards = append(shards, shard)
	}
	r.mu.RUnlock()

	for _, shard := range shards {
		shard.mu.Lock()
		for i := range shard.rules {
			if shard.rules[i].ID != id {
				continue
			}
			applyPatch(&shard.rules[i], patch)
			shard.mu.Unlock()
			if r.logger != nil {
				r.logger.Debugw("Rule updated", "id", id)
			}
			return true
		}
		shard.mu.Unlock()
	}
	return false
}

func applyPatch(rule *CrossModuleValidationRule, patch RulePatch) {
	if patch.TargetModule != nil {
		rule.TargetModule = *patch.TargetModule
	}
	if patch.Field != nil && *patch.Field != "" {
		rule.Field = *patch.Field
	}
	if patch.Kind != nil && *patch.Kind != "" {
		rule.Kind = *patch.Kind
	}
	if patch.Description != nil {
		rule.Description = *patch.Description
	}
	if patch.Active != nil {
		rule.Active = *patch.Active
	}
	rule.UpdatedAt = time.Now().UTC()
}

// AllRules returns every rule, optionally filtered by source module. Output
// is ordered by module name, then insertion order within a module.
func (r *RuleRegistry) AllRules(moduleFilter string) []CrossModuleValidationRule {
	if moduleFilter != "" {
		return r.RulesFor(moduleFilter)
	}

	r.mu.RLock()
	modules := make([]string, 0, len(r.shards))
	for name := range r.shards {
		modules = append(modules, name)
	}
	r.mu.RUnlock()
	sort.Strings(modules)

	var out []CrossModuleValidationRule
	for _, name := range modules {
		out = append(out, r.RulesFor(name)...)
	}
	return out
}

// GetRule returns the rule with the given id.
func (r *RuleRegistry) GetRule(id string) (*CrossModuleValidationRule, error) {
	for _, rule := range r.AllRules("") {
		if rule.ID == id {
			found := rule
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// Count returns the total number of registered rules.
func (r *RuleRegistry) Count() int {
	return len(r.AllRules(""))
}
