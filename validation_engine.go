package chatcore

import (
	"slices"
	"sync"
)

// ValidationEngine runs an ordered list of rules over a job. Rules can be
// added and removed while other goroutines validate.
type ValidationEngine struct {
	mu    sync.RWMutex
	rules []ValidationRule
}

var defaultEngine = sync.OnceValue(func() *ValidationEngine {
	return NewValidationEngine(DefaultValidationRules()...)
})

// NewValidationEngine returns an engine running rules in order.
func NewValidationEngine(rules ...ValidationRule) *ValidationEngine {
	return &ValidationEngine{rules: slices.Clone(rules)}
}

// GetValidationEngine returns the process-wide engine holding the built-in
// rules.
func GetValidationEngine() *ValidationEngine {
	return defaultEngine()
}

// DefaultValidationRules returns the built-in rules.
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		&ModelValidationRule{},
		&ParameterValidationRule{},
		&ConversationValidationRule{},
	}
}

// AddRule appends rule; it runs after the existing rules.
func (ve *ValidationEngine) AddRule(rule ValidationRule) {
	ve.mu.Lock()
	defer ve.mu.Unlock()
	ve.rules = append(ve.rules, rule)
}

// RemoveRule drops the first rule called name and reports whether one was found.
func (ve *ValidationEngine) RemoveRule(name string) bool {
	ve.mu.Lock()
	defer ve.mu.Unlock()

	i := slices.IndexFunc(ve.rules, func(r ValidationRule) bool { return r.Name() == name })
	if i < 0 {
		return false
	}
	ve.rules = slices.Delete(ve.rules, i, i+1)
	return true
}

// RuleNames lists the rules in the order they run.
func (ve *ValidationEngine) RuleNames() []string {
	ve.mu.RLock()
	defer ve.mu.RUnlock()

	names := make([]string, len(ve.rules))
	for i, r := range ve.rules {
		names[i] = r.Name()
	}
	return names
}

// Validate collects the warnings of every rule for a job sent to backend.
// Rules run on a snapshot, outside the lock.
func (ve *ValidationEngine) Validate(backend BackendID, job *Job) []ValidationWarning {
	if job == nil {
		return nil
	}

	ve.mu.RLock()
	rules := slices.Clone(ve.rules)
	ve.mu.RUnlock()

	var warnings []ValidationWarning
	for _, rule := range rules {
		warnings = append(warnings, rule.Check(backend, job)...)
	}
	return warnings
}

// GetValidationWarnings validates job with the process-wide engine.
// Warnings never block a generation; callers decide whether to show them.
func GetValidationWarnings(backend BackendID, job *Job) []ValidationWarning {
	return GetValidationEngine().Validate(backend, job)
}

// FilterWarningsBySeverity keeps the warnings with one of severities.
func FilterWarningsBySeverity(warnings []ValidationWarning, severities ...Severity) []ValidationWarning {
	return filterWarnings(warnings, func(w ValidationWarning) bool {
		return slices.Contains(severities, w.Severity)
	})
}

// FilterWarningsByCode keeps the warnings with one of codes.
func FilterWarningsByCode(warnings []ValidationWarning, codes ...WarningCode) []ValidationWarning {
	return filterWarnings(warnings, func(w ValidationWarning) bool {
		return slices.Contains(codes, w.Code)
	})
}

func filterWarnings(warnings []ValidationWarning, keep func(ValidationWarning) bool) []ValidationWarning {
	filtered := make([]ValidationWarning, 0, len(warnings))
	for _, w := range warnings {
		if keep(w) {
			filtered = append(filtered, w)
		}
	}
	return filtered
}
