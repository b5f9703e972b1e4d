// Package match implements the leaf matching logic of the combination
// rule engine: temporal code validity, the project-wide code ordering,
// and the three criterion shapes (exact code, inclusive range,
// hierarchy-subtree membership).
package match

import (
	"fmt"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/service"
)

// Outcome is the tri-state result of matching one criterion against one
// code value. Unknown is distinct from NoMatch so upstream callers can
// report "Unknown" instead of a silent false.
type Outcome int

const (
	// NoMatch means the code does not satisfy the criterion.
	NoMatch Outcome = iota
	// Matched means the code satisfies the criterion.
	Matched
	// Unknown means the code could not be resolved against the catalog
	// or hierarchy, so the criterion is undecidable for it.
	Unknown
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Unknown:
		return "unknown"
	default:
		return "no-match"
	}
}

// Matcher decides whether a code value satisfies one criterion, using
// the code catalog and hierarchy lookup when the criterion requires
// them. Matching never fails: unresolvable input yields Unknown and
// configuration problems yield NoMatch plus a reportable issue.
type Matcher struct {
	catalog   service.CodeCatalog
	hierarchy service.HierarchyLookup
}

// NewMatcher creates a Matcher over the given stores. Either store may
// be nil; criteria needing a missing store resolve to Unknown.
func NewMatcher(catalog service.CodeCatalog, hierarchy service.HierarchyLookup) *Matcher {
	return &Matcher{catalog: catalog, hierarchy: hierarchy}
}

// Match reports whether codeValue within segmentID satisfies the
// criterion. Returned issues are configuration warnings or notes for
// the caller to attach to its result; they never abort matching.
func (m *Matcher) Match(criterion ruleengine.Criterion, segmentID, codeValue string) (Outcome, []ruleengine.Issue) {
	if err := criterion.Validate(); err != nil {
		issue := ruleengine.Warning(ruleengine.IssueInvalidCriterion).
			Diagnostics(err.Error()).
			Segment(segmentID).
			Build()
		return NoMatch, []ruleengine.Issue{issue}
	}

	// A code absent from the segment's catalog is explicitly unknown,
	// not false: the caller decides how to report it.
	if m.catalog != nil {
		if _, ok := m.catalog.SegmentCode(segmentID, codeValue); !ok {
			issue := ruleengine.Info(ruleengine.IssueUnknownCode).
				Diagnostics(fmt.Sprintf("code %q is not in the catalog of segment %q", codeValue, segmentID)).
				Segment(segmentID).
				Build()
			return Unknown, []ruleengine.Issue{issue}
		}
	}

	switch criterion.Type {
	case ruleengine.CriterionCode:
		if codeValue == criterion.CodeValue {
			return Matched, nil
		}
		return NoMatch, nil

	case ruleengine.CriterionRange:
		if InRange(codeValue, criterion.RangeStart, criterion.RangeEnd) {
			return Matched, nil
		}
		return NoMatch, nil

	case ruleengine.CriterionHierarchyNode:
		return m.matchHierarchy(criterion, segmentID, codeValue)

	default:
		return NoMatch, nil
	}
}

// matchHierarchy resolves the candidate's node and checks identity or
// subtree membership against the criterion's target node.
func (m *Matcher) matchHierarchy(criterion ruleengine.Criterion, segmentID, codeValue string) (Outcome, []ruleengine.Issue) {
	if m.hierarchy == nil {
		return Unknown, nil
	}

	node, ok := m.hierarchy.NodeForCode(segmentID, codeValue)
	if !ok || node == nil {
		issue := ruleengine.Info(ruleengine.IssueUnknownNode).
			Diagnostics(fmt.Sprintf("code %q has no hierarchy node in segment %q", codeValue, segmentID)).
			Segment(segmentID).
			Build()
		return Unknown, []ruleengine.Issue{issue}
	}

	if node.ID == criterion.HierarchyNodeID {
		return Matched, nil
	}
	if !criterion.IncludeChildren {
		return NoMatch, nil
	}

	descendants, cycle := m.hierarchy.Descendants(criterion.HierarchyNodeID)
	if cycle {
		// A cyclic hierarchy is a configuration defect; the subtree is
		// not trustworthy, so the criterion does not match.
		issue := ruleengine.Warning(ruleengine.IssueHierarchyCycle).
			Diagnostics(fmt.Sprintf("hierarchy below node %q contains a cycle", criterion.HierarchyNodeID)).
			Segment(segmentID).
			Build()
		return NoMatch, []ruleengine.Issue{issue}
	}

	for _, id := range descendants {
		if id == node.ID {
			return Matched, nil
		}
	}
	return NoMatch, nil
}
