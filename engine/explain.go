package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/match"
)

// Explanation is a human-auditable account of one evaluation: the
// decision, the rule and entry that produced it, and a rendered reason.
type Explanation struct {
	Request        Request             `json:"request"`
	Decision       ruleengine.Decision `json:"decision"`
	MatchedRuleID  string              `json:"matchedRuleId,omitempty"`
	MatchedEntryID string              `json:"matchedEntryId,omitempty"`
	Defaulted      bool                `json:"defaulted"`
	Reason         string              `json:"reason"`
	Warnings       []ruleengine.Issue  `json:"warnings,omitempty"`
}

// Explain evaluates the candidate and wraps the result with audit
// detail. Unlike Evaluate, the returned value is not pooled.
func (e *Evaluator) Explain(ctx context.Context, req Request) Explanation {
	result := e.Evaluate(ctx, req)
	defer result.Release()

	exp := Explanation{
		Request:        req,
		Decision:       result.Decision,
		MatchedRuleID:  result.MatchedRuleID,
		MatchedEntryID: result.MatchedEntryID,
		Defaulted:      result.Defaulted,
		Warnings:       append([]ruleengine.Issue(nil), result.Warnings...),
	}

	switch {
	case result.Defaulted:
		exp.Reason = fmt.Sprintf("no active rule matched (%s=%s, %s=%s); default behavior %q applied",
			req.SegmentAID, req.CodeA, req.SegmentBID, req.CodeB, e.rules.DefaultBehavior())
	case result.Decision == ruleengine.DecisionDenied:
		exp.Reason = fmt.Sprintf("excluded by entry %s of rule %s", result.MatchedEntryID, result.MatchedRuleID)
	default:
		exp.Reason = fmt.Sprintf("included by entry %s of rule %s", result.MatchedEntryID, result.MatchedRuleID)
	}
	return exp
}

// EntryEffectiveness classifies one Include entry of an active rule for
// a target date. It answers "what combinations are currently
// sanctioned"; Exclude entries are deliberately omitted.
type EntryEffectiveness struct {
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName,omitempty"`
	EntryID  string `json:"entryId"`

	SegmentAID string `json:"segmentAId"`
	CriterionA string `json:"criterionA"`
	SegmentBID string `json:"segmentBId"`
	CriterionB string `json:"criterionB"`

	Status ruleengine.EffectiveStatus `json:"status"`
}

// ProjectEffectiveEntries classifies every Include entry of every
// active rule against the target date, independent of any candidate.
// Range and hierarchy criteria are not resolved to a single code's
// validity window, so their entries report Unknown; an Unknown
// determination always wins over any inactive/effective one.
func (e *Evaluator) ProjectEffectiveEntries(ctx context.Context, on time.Time) []EntryEffectiveness {
	defer e.metrics.RecordProjection()

	var out []EntryEffectiveness
	for _, rule := range e.rules.ActiveRules() {
		select {
		case <-ctx.Done():
			return out
		default:
		}

		for _, entry := range rule.Entries {
			if entry.Behavior != ruleengine.EntryInclude {
				continue
			}
			out = append(out, EntryEffectiveness{
				RuleID:     rule.ID,
				RuleName:   rule.Name,
				EntryID:    entry.ID,
				SegmentAID: rule.SegmentAID,
				CriterionA: entry.SegmentA.String(),
				SegmentBID: rule.SegmentBID,
				CriterionB: entry.SegmentB.String(),
				Status:     e.entryStatus(rule, entry, on),
			})
		}
	}
	return out
}

// entryStatus resolves both sides of an Include entry to their codes'
// validity on the target date.
func (e *Evaluator) entryStatus(rule *ruleengine.CombinationRule, entry ruleengine.MappingEntry, on time.Time) ruleengine.EffectiveStatus {
	// Only exact-code criteria resolve to a single validity window.
	if entry.SegmentA.Type != ruleengine.CriterionCode || entry.SegmentB.Type != ruleengine.CriterionCode {
		return ruleengine.StatusUnknown
	}
	if e.catalog == nil {
		return ruleengine.StatusUnknown
	}

	codeA, okA := e.catalog.SegmentCode(rule.SegmentAID, entry.SegmentA.CodeValue)
	codeB, okB := e.catalog.SegmentCode(rule.SegmentBID, entry.SegmentB.CodeValue)
	if !okA || !okB {
		return ruleengine.StatusUnknown
	}

	validA := match.IsValidOn(codeA, on)
	validB := match.IsValidOn(codeB, on)
	switch {
	case !validA && !validB:
		return ruleengine.StatusBothCodesInactive
	case !validA:
		return ruleengine.StatusSegmentACodeInactive
	case !validB:
		return ruleengine.StatusSegmentBCodeInactive
	default:
		return ruleengine.StatusEffective
	}
}
