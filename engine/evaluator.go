// Package engine provides the combination rule evaluator: ordered
// rule/entry matching with default-behavior fallback, plus the
// date-effectiveness projection used by listing views.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/cache"
	"github.com/gocoa/ruleengine/match"
	"github.com/gocoa/ruleengine/service"
)

// Request is one candidate segment-code pair to evaluate.
type Request struct {
	// Date the pairing is evaluated for (day granularity)
	Date time.Time `json:"date"`

	SegmentAID string `json:"segmentAId"`
	CodeA      string `json:"codeA"`
	SegmentBID string `json:"segmentBId"`
	CodeB      string `json:"codeB"`
}

// Evaluator applies ordered active rules to candidate pairs. It holds
// no mutable evaluation state; all data comes from the snapshot stores
// it was constructed over, so concurrent calls need no locking.
type Evaluator struct {
	options *ruleengine.Options
	metrics *ruleengine.Metrics

	rules     service.RuleSource
	catalog   service.CodeCatalog
	hierarchy service.HierarchyLookup
	matcher   *match.Matcher

	decisions *cache.LRU[string, cachedDecision]

	// Worker pool for batch evaluation
	batchSlots     chan struct{}
	batchSlotsOnce sync.Once
}

// cachedDecision is a memoized evaluation outcome. Warnings are kept so
// a cache hit reports the same configuration problems as the original.
type cachedDecision struct {
	decision  ruleengine.Decision
	ruleID    string
	entryID   string
	defaulted bool
	warnings  []ruleengine.Issue
}

// New creates an Evaluator over one consistent snapshot. A
// catalog.Snapshot or store.SQLite implements all three collaborator
// interfaces, so the same value is typically passed three times.
func New(rules service.RuleSource, catalog service.CodeCatalog, hierarchy service.HierarchyLookup, opts ...ruleengine.Option) *Evaluator {
	options := ruleengine.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	e := &Evaluator{
		options:   options,
		metrics:   ruleengine.NewMetrics(),
		rules:     rules,
		catalog:   catalog,
		hierarchy: hierarchy,
		matcher:   match.NewMatcher(catalog, hierarchy),
	}
	if options.Memoize {
		e.decisions = cache.NewLRU[string, cachedDecision](options.DecisionCacheSize)
	}
	return e
}

// Evaluate decides whether the candidate pairing is permitted on the
// request date. It is deterministic and total: same inputs always
// yield the same decision, and no combination of well-typed inputs
// raises an error. Release() the result when done.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) *ruleengine.Result {
	start := time.Now()
	result := ruleengine.AcquireResult()

	if e.decisions != nil {
		key := e.decisionKey(req)
		if dec, ok := e.decisions.Get(key); ok {
			e.metrics.RecordCacheHit()
			e.applyDecision(result, dec)
			e.metrics.RecordEvaluation(time.Since(start), result.Decision, result.Defaulted)
			return result
		}
		e.metrics.RecordCacheMiss()
	}

	e.evaluateRules(ctx, req, result)

	if e.decisions != nil {
		e.decisions.Set(e.decisionKey(req), cachedDecision{
			decision:  result.Decision,
			ruleID:    result.MatchedRuleID,
			entryID:   result.MatchedEntryID,
			defaulted: result.Defaulted,
			warnings:  append([]ruleengine.Issue(nil), result.Warnings...),
		})
	}

	e.metrics.RecordWarnings(result.WarningCount())
	e.metrics.RecordEvaluation(time.Since(start), result.Decision, result.Defaulted)
	return result
}

// evaluateRules scans applicable rules in stored order and their
// entries in authored order. The first entry where both criteria match
// is decisive and short-circuits the entire evaluation.
func (e *Evaluator) evaluateRules(ctx context.Context, req Request, result *ruleengine.Result) {
	rules := e.rules.ActiveRulesFor(req.SegmentAID, req.SegmentBID)

	for _, rule := range rules {
		select {
		case <-ctx.Done():
			result.AddWarning(ruleengine.Warning(ruleengine.IssueCancelled).
				Diagnostics("evaluation stopped early: " + ctx.Err().Error()).
				Rule(rule.ID).
				Build())
			e.applyDefault(result)
			return
		default:
		}

		// Defensive re-check: a rule source is expected to filter, but a
		// rule set handed in directly may not be.
		if !rule.IsActive() || !rule.AppliesTo(req.SegmentAID, req.SegmentBID) {
			continue
		}
		if issue, ok := e.checkRuleSegments(rule); !ok {
			result.AddWarning(issue)
			continue
		}

		for _, entry := range rule.Entries {
			outcomeA, issuesA := e.matcher.Match(entry.SegmentA, req.SegmentAID, req.CodeA)
			e.collectIssues(result, rule.ID, entry.ID, issuesA)
			if outcomeA != match.Matched {
				continue
			}

			outcomeB, issuesB := e.matcher.Match(entry.SegmentB, req.SegmentBID, req.CodeB)
			e.collectIssues(result, rule.ID, entry.ID, issuesB)
			if outcomeB != match.Matched {
				continue
			}

			if entry.Behavior == ruleengine.EntryExclude {
				result.Decision = ruleengine.DecisionDenied
			} else {
				result.Decision = ruleengine.DecisionAllowed
			}
			result.MatchedRuleID = rule.ID
			result.MatchedEntryID = entry.ID
			return
		}
	}

	e.applyDefault(result)
}

// checkRuleSegments flags rules referencing segments that are missing
// or inactive; such rules are excluded from matching for this call.
func (e *Evaluator) checkRuleSegments(rule *ruleengine.CombinationRule) (ruleengine.Issue, bool) {
	if e.catalog == nil {
		return ruleengine.Issue{}, true
	}
	for _, segID := range []string{rule.SegmentAID, rule.SegmentBID} {
		seg, ok := e.catalog.Segment(segID)
		if !ok || seg == nil || !seg.Active {
			issue := ruleengine.Warning(ruleengine.IssueUnknownSegment).
				Diagnostics("rule references a missing or inactive segment").
				Rule(rule.ID).
				Segment(segID).
				Build()
			return issue, false
		}
	}
	return ruleengine.Issue{}, true
}

func (e *Evaluator) applyDefault(result *ruleengine.Result) {
	result.Decision = e.rules.DefaultBehavior().Decision()
	result.Defaulted = true
}

func (e *Evaluator) applyDecision(result *ruleengine.Result, dec cachedDecision) {
	result.Decision = dec.decision
	result.MatchedRuleID = dec.ruleID
	result.MatchedEntryID = dec.entryID
	result.Defaulted = dec.defaulted
	result.AddWarnings(dec.warnings)
}

// collectIssues attaches matcher issues to the result, tagging them
// with the rule and entry under evaluation. Informational notes are
// dropped unless the options ask for them.
func (e *Evaluator) collectIssues(result *ruleengine.Result, ruleID, entryID string, issues []ruleengine.Issue) {
	for _, issue := range issues {
		if !issue.IsWarning() && !e.options.CollectInfo {
			continue
		}
		if issue.RuleID == "" {
			issue.RuleID = ruleID
		}
		if issue.EntryID == "" {
			issue.EntryID = entryID
		}
		result.AddWarning(issue)
	}
}

// decisionKey builds the memoization key from everything the decision
// depends on: snapshot version, calendar day and the candidate pair.
func (e *Evaluator) decisionKey(req Request) string {
	var b strings.Builder
	b.WriteString(e.rules.Version())
	b.WriteByte('|')
	b.WriteString(req.Date.Format("2006-01-02"))
	b.WriteByte('|')
	b.WriteString(req.SegmentAID)
	b.WriteByte('=')
	b.WriteString(req.CodeA)
	b.WriteByte('|')
	b.WriteString(req.SegmentBID)
	b.WriteByte('=')
	b.WriteString(req.CodeB)
	return b.String()
}

// EvaluateBatch evaluates multiple candidates in parallel, preserving
// input order in the returned slice.
func (e *Evaluator) EvaluateBatch(ctx context.Context, reqs []Request) []*ruleengine.Result {
	results := make([]*ruleengine.Result, len(reqs))

	e.batchSlotsOnce.Do(func() {
		workers := e.options.BatchWorkers
		if workers <= 0 {
			workers = 4
		}
		e.batchSlots = make(chan struct{}, workers)
	})

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, r Request) {
			defer wg.Done()

			e.batchSlots <- struct{}{}
			defer func() { <-e.batchSlots }()

			results[idx] = e.Evaluate(ctx, r)
		}(i, req)
	}

	wg.Wait()
	return results
}

// Metrics returns the evaluator's metrics.
func (e *Evaluator) Metrics() *ruleengine.Metrics {
	return e.metrics
}

// Options returns the evaluator's options.
func (e *Evaluator) Options() *ruleengine.Options {
	return e.options
}
