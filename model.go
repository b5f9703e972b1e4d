package ruleengine

import "time"

// Decision is the outcome of evaluating a candidate segment-code pair.
type Decision string

const (
	// DecisionAllowed indicates the pairing is permitted.
	DecisionAllowed Decision = "allowed"
	// DecisionDenied indicates the pairing is forbidden.
	DecisionDenied Decision = "denied"
)

// DefaultBehavior is the global fallback applied when no active rule
// decisively matches a candidate pair.
type DefaultBehavior string

const (
	// DefaultAllowed permits pairings not covered by any rule.
	DefaultAllowed DefaultBehavior = "allowed"
	// DefaultNotAllowed forbids pairings not covered by any rule.
	DefaultNotAllowed DefaultBehavior = "not-allowed"
)

// Decision translates the fallback setting into an evaluation decision.
// Anything other than DefaultAllowed denies, so an unset or malformed
// setting fails closed.
func (b DefaultBehavior) Decision() Decision {
	if b == DefaultAllowed {
		return DecisionAllowed
	}
	return DecisionDenied
}

// RuleStatus is the lifecycle state of a combination rule.
type RuleStatus string

const (
	// RuleStatusActive marks a rule that participates in evaluation.
	RuleStatusActive RuleStatus = "active"
	// RuleStatusInactive marks a rule that is ignored by evaluation.
	RuleStatusInactive RuleStatus = "inactive"
)

// EntryBehavior is the effect of a mapping entry when both of its
// criteria match.
type EntryBehavior string

const (
	// EntryInclude allows the matched pairing.
	EntryInclude EntryBehavior = "include"
	// EntryExclude denies the matched pairing.
	EntryExclude EntryBehavior = "exclude"
)

// EffectiveStatus is the date-qualified classification of an Include
// entry's referenced codes, used by listing and reporting views.
type EffectiveStatus string

const (
	// StatusEffective indicates both referenced codes are valid on the target date.
	StatusEffective EffectiveStatus = "effective"
	// StatusSegmentACodeInactive indicates only the segment A code is invalid.
	StatusSegmentACodeInactive EffectiveStatus = "segment-a-code-inactive"
	// StatusSegmentBCodeInactive indicates only the segment B code is invalid.
	StatusSegmentBCodeInactive EffectiveStatus = "segment-b-code-inactive"
	// StatusBothCodesInactive indicates both referenced codes are invalid.
	StatusBothCodesInactive EffectiveStatus = "both-codes-inactive"
	// StatusUnknown indicates the entry cannot be resolved to a pair of
	// code validity windows (non-CODE criterion or missing code).
	StatusUnknown EffectiveStatus = "unknown"
)

// Segment is one coding dimension of an account string (Fund, Object,
// Department, ...). The ID is immutable once referenced by any rule or
// hierarchy.
type Segment struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Type              string     `json:"type,omitempty"`
	Active            bool       `json:"active"`
	Core              bool       `json:"core,omitempty"`
	Mandatory         bool       `json:"mandatory,omitempty"`
	Separator         string     `json:"separator,omitempty"`
	ValidationPattern string     `json:"validationPattern,omitempty"`
	DefaultCode       string     `json:"defaultCode,omitempty"`
	ValidFrom         *time.Time `json:"validFrom,omitempty"`
	ValidTo           *time.Time `json:"validTo,omitempty"`
}

// SegmentCode is a concrete value within a segment, with its own
// active flag and validity window. A nil ValidTo means open-ended.
type SegmentCode struct {
	SegmentID   string     `json:"segmentId"`
	Value       string     `json:"value"`
	Description string     `json:"description,omitempty"`
	Active      bool       `json:"active"`
	ValidFrom   time.Time  `json:"validFrom"`
	ValidTo     *time.Time `json:"validTo,omitempty"`
}

// HierarchyNode groups segment codes into a tree for rollups and
// subtree-based rule criteria. A node with an empty CodeValue is a pure
// grouping node. The parent/child graph is expected to be a forest, but
// consumers must defend against cycles rather than assume them away.
type HierarchyNode struct {
	ID          string `json:"id"`
	HierarchyID string `json:"hierarchyId,omitempty"`
	SegmentID   string `json:"segmentId"`
	CodeValue   string `json:"codeValue,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
}

// MappingEntry is one Include/Exclude rule line pairing a criterion per
// segment. Entry order within a rule is authored and load-bearing.
type MappingEntry struct {
	ID       string        `json:"id"`
	Behavior EntryBehavior `json:"behavior"`
	SegmentA Criterion     `json:"segmentA"`
	SegmentB Criterion     `json:"segmentB"`
}

// CombinationRule is a named, ordered set of mapping entries governing
// valid pairings between two segments. Rules are evaluated positionally:
// a rule authored for (Fund, Object) checks Fund against segment A and
// Object against segment B, never the swap.
type CombinationRule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     RuleStatus     `json:"status"`
	SegmentAID string         `json:"segmentAId"`
	SegmentBID string         `json:"segmentBId"`
	Entries    []MappingEntry `json:"entries"`
	ModifiedBy string         `json:"modifiedBy,omitempty"`
	ModifiedAt time.Time      `json:"modifiedAt,omitempty"`
}

// IsActive reports whether the rule participates in evaluation.
func (r *CombinationRule) IsActive() bool {
	return r != nil && r.Status == RuleStatusActive
}

// AppliesTo reports whether the rule governs the given segment pair in
// its authored orientation.
func (r *CombinationRule) AppliesTo(segmentAID, segmentBID string) bool {
	return r != nil && r.SegmentAID == segmentAID && r.SegmentBID == segmentBID
}
