package ruleengine

import (
	"sync"
)

// Result contains the outcome of evaluating one candidate pair.
// Use Release() to return it to the pool when done for better performance.
type Result struct {
	// Decision is the allow/deny outcome
	Decision Decision `json:"decision"`

	// MatchedRuleID is the rule whose entry decided the outcome, empty
	// when the default behavior applied
	MatchedRuleID string `json:"matchedRuleId,omitempty"`

	// MatchedEntryID is the entry that decided the outcome, empty when
	// the default behavior applied
	MatchedEntryID string `json:"matchedEntryId,omitempty"`

	// Defaulted is true when no active rule produced a decisive match
	// and the global default behavior was applied
	Defaulted bool `json:"defaulted,omitempty"`

	// Warnings contains configuration issues surfaced during evaluation
	Warnings []Issue `json:"warnings,omitempty"`

	// mu protects concurrent access to Warnings
	mu sync.Mutex
}

// resultPool holds reusable Result instances.
var resultPool = sync.Pool{
	New: func() any {
		return &Result{
			Warnings: make([]Issue, 0, 4),
		}
	},
}

// AcquireResult gets a Result from the pool.
func AcquireResult() *Result {
	r := resultPool.Get().(*Result)
	r.Reset()
	return r
}

// Release returns the Result to the pool.
// After calling Release, the Result should not be used.
func (r *Result) Release() {
	if r == nil {
		return
	}
	if cap(r.Warnings) <= 256 {
		resultPool.Put(r)
	}
}

// Reset clears the result for reuse.
func (r *Result) Reset() {
	r.Decision = ""
	r.MatchedRuleID = ""
	r.MatchedEntryID = ""
	r.Defaulted = false
	r.Warnings = r.Warnings[:0]
}

// Allowed reports whether the pairing was permitted.
func (r *Result) Allowed() bool {
	return r.Decision == DecisionAllowed
}

// AddWarning attaches a configuration issue to the result.
// This method is thread-safe.
func (r *Result) AddWarning(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, issue)
}

// AddWarnings attaches multiple issues to the result.
// This method is thread-safe.
func (r *Result) AddWarnings(issues []Issue) {
	if len(issues) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, issues...)
}

// HasWarnings returns true if any warning-severity issue was recorded.
func (r *Result) HasWarnings() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, issue := range r.Warnings {
		if issue.IsWarning() {
			return true
		}
	}
	return false
}

// WarningCount returns the number of warning-severity issues.
func (r *Result) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, issue := range r.Warnings {
		if issue.IsWarning() {
			count++
		}
	}
	return count
}

// Clone creates a copy of the result (not pooled).
func (r *Result) Clone() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := &Result{
		Decision:       r.Decision,
		MatchedRuleID:  r.MatchedRuleID,
		MatchedEntryID: r.MatchedEntryID,
		Defaulted:      r.Defaulted,
		Warnings:       make([]Issue, len(r.Warnings)),
	}
	copy(clone.Warnings, r.Warnings)
	return clone
}

// NewResult creates a new (non-pooled) result.
// Prefer AcquireResult() for better performance.
func NewResult() *Result {
	return &Result{
		Warnings: make([]Issue, 0, 4),
	}
}
