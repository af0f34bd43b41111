package validate

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"

	"veritas/core"
	"veritas/util"
)

// Integrity scanner defaults. The string ceiling and depth limit are
// configurable; the name hints are deliberately a package-level fact so the
// heuristic is visible in one place.
const (
	DefaultMaxStringLength = 10000
	DefaultMaxDepth        = 50
	DefaultPreviewLength   = 100
	DefaultParentIDField   = "parentId"
)

// numericNameHints marks field names whose numeric values must not be
// negative. Matching is by substring on the lowercased name; this is a
// heuristic inherited from the scanner's contract, not schema metadata.
var numericNameHints = []string{"quantity", "amount", "price"}

// ScannerConfig tunes the integrity scanner.
type ScannerConfig struct {
	MaxStringLength int
	MaxDepth        int
	PreviewLength   int
	// AllowedParentIDField is the one id-shaped field permitted to be null
	// without a warning (top-level parent references are legitimately
	// absent for roots).
	AllowedParentIDField string
}

// IntegrityScanner performs module-agnostic structural sanity checks on any
// record. It has no external dependencies and runs as the final phase.
type IntegrityScanner struct {
	cfg    ScannerConfig
	logger *zap.SugaredLogger
}

// NewIntegrityScanner creates a scanner, filling zero config values with
// defaults.
func NewIntegrityScanner(cfg ScannerConfig, logger *zap.SugaredLogger) *IntegrityScanner {
	if cfg.MaxStringLength <= 0 {
		cfg.MaxStringLength = DefaultMaxStringLength
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultPreviewLength
	}
	if cfg.AllowedParentIDField == "" {
		cfg.AllowedParentIDField = DefaultParentIDField
	}
	return &IntegrityScanner{cfg: cfg, logger: logger}
}

// Scan checks the record's fields for structural corruption: negative
// values behind quantity/amount/price-shaped names, null id-shaped fields,
// oversized strings, and reference cycles anywhere in the structure.
func (s *IntegrityScanner) Scan(payload map[string]interface{}) *core.ValidationResult {
	result := core.NewValidationResult()
	if payload == nil {
		return result
	}

	// Field checks are emitted in name order so results are deterministic.
	fields := make([]string, 0, len(payload))
	for name := range payload {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	for _, name := range fields {
		s.scanField(name, payload[name], result)
	}

	// Cycle detection walks the whole structure with an explicit visited
	// set; a cycle anywhere makes the record unusable and is fatal.
	if cyclic, path := detectCycle(payload, s.cfg.MaxDepth); cyclic {
		result.AddError(path, "record contains a circular reference and cannot be traversed",
			core.CodeCircularReferenceError, nil)
	}
	return result
}

func (s *IntegrityScanner) scanField(name string, value interface{}, result *core.ValidationResult) {
	lower := strings.ToLower(name)

	if number, ok := numberValue(value); ok && number < 0 && hasNumericHint(lower) {
		result.AddError(name,
			fmt.Sprintf("field %s must not be negative", name),
			core.CodeNegativeValueError, number)
	}

	if value == nil && strings.Contains(lower, "id") && name != s.cfg.AllowedParentIDField {
		result.AddWarning(name,
			fmt.Sprintf("id field %s is null", name),
			core.CodeNullIDWarning, nil)
	}

	if text, ok := value.(string); ok && len(text) > s.cfg.MaxStringLength {
		result.AddWarning(name,
			fmt.Sprintf("string of %d characters exceeds the %d character ceiling: %q",
				len(text), s.cfg.MaxStringLength, util.TruncateString(text, s.cfg.PreviewLength)),
			core.CodeExcessiveLengthWarning, nil)
	}
}

func hasNumericHint(lowerName string) bool {
	for _, hint := range numericNameHints {
		if strings.Contains(lowerName, hint) {
			return true
		}
	}
	return false
}

func numberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// detectCycle walks maps, slices, and pointers depth-first, tracking the
// containers on the current path. Revisiting a container already on the
// path is a cycle; shared substructure (a DAG) is not. Exceeding maxDepth
// is reported the same way, as the structure is equally untraversable.
func detectCycle(root interface{}, maxDepth int) (bool, string) {
	onPath := make(map[uintptr]bool)
	return walkForCycle(root, "", 0, maxDepth, onPath)
}

func walkForCycle(value interface{}, path string, depth, maxDepth int, onPath map[uintptr]bool) (bool, string) {
	if value == nil {
		return false, ""
	}
	if depth > maxDepth {
		return true, path
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return false, ""
		}
		ptr := rv.Pointer()
		if onPath[ptr] {
			return true, path
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			child := path
			if child == "" {
				child = key
			} else {
				child = child + "." + key
			}
			if cyclic, at := walkForCycle(iter.Value().Interface(), child, depth+1, maxDepth, onPath); cyclic {
				return true, at
			}
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return false, ""
		}
		if rv.Kind() == reflect.Slice && rv.Len() > 0 {
			ptr := rv.Pointer()
			if onPath[ptr] {
				return true, path
			}
			onPath[ptr] = true
			defer delete(onPath, ptr)
		}
		for i := 0; i < rv.Len(); i++ {
			child := fmt.Sprintf("%s[%d]", path, i)
			if cyclic, at := walkForCycle(rv.Index(i).Interface(), child, depth+1, maxDepth, onPath); cyclic {
				return true, at
			}
		}
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false, ""
		}
		return walkForCycle(rv.Elem().Interface(), path, depth+1, maxDepth, onPath)
	}
	return false, ""
}
