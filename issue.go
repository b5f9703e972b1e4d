package ruleengine

// IssueSeverity represents the severity of an evaluation issue.
type IssueSeverity string

const (
	// SeverityWarning indicates a configuration problem the caller should
	// surface to an administrator (the evaluation still completed).
	SeverityWarning IssueSeverity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation IssueSeverity = "information"
)

// IssueCode identifies the kind of evaluation issue.
type IssueCode string

const (
	// IssueUnknownCode indicates a candidate code was not found in the
	// segment's code catalog.
	IssueUnknownCode IssueCode = "unknown-code"
	// IssueUnknownNode indicates a code could not be resolved to a
	// hierarchy node.
	IssueUnknownNode IssueCode = "unknown-node"
	// IssueHierarchyCycle indicates a cycle was detected while walking a
	// hierarchy subtree.
	IssueHierarchyCycle IssueCode = "hierarchy-cycle"
	// IssueUnknownSegment indicates a rule references a segment that does
	// not exist or is inactive.
	IssueUnknownSegment IssueCode = "unknown-segment"
	// IssueInvalidCriterion indicates a criterion is missing a field
	// required by its type.
	IssueInvalidCriterion IssueCode = "invalid-criterion"
	// IssueCancelled indicates evaluation stopped early because the
	// caller's context was cancelled.
	IssueCancelled IssueCode = "cancelled"
)

// Issue represents a single configuration warning or informational note
// produced during evaluation. Issues never fail an evaluation; they are
// attached to the result for audit display.
type Issue struct {
	// Severity of the issue
	Severity IssueSeverity `json:"severity"`

	// Code identifying the kind of issue
	Code IssueCode `json:"code"`

	// Diagnostics contains human-readable details
	Diagnostics string `json:"diagnostics,omitempty"`

	// RuleID is the combination rule the issue relates to, if any
	RuleID string `json:"ruleId,omitempty"`

	// EntryID is the mapping entry the issue relates to, if any
	EntryID string `json:"entryId,omitempty"`

	// SegmentID is the segment the issue relates to, if any
	SegmentID string `json:"segmentId,omitempty"`
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	s := string(i.Severity) + ": " + i.Diagnostics
	if i.RuleID != "" {
		s += " (rule " + i.RuleID + ")"
	}
	return s
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity IssueSeverity, code IssueCode) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Warning creates a warning issue.
func Warning(code IssueCode) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Info creates an informational issue.
func Info(code IssueCode) *IssueBuilder {
	return NewIssue(SeverityInformation, code)
}

// Diagnostics sets the diagnostic message.
func (b *IssueBuilder) Diagnostics(msg string) *IssueBuilder {
	b.issue.Diagnostics = msg
	return b
}

// Rule sets the related combination rule.
func (b *IssueBuilder) Rule(id string) *IssueBuilder {
	b.issue.RuleID = id
	return b
}

// Entry sets the related mapping entry.
func (b *IssueBuilder) Entry(id string) *IssueBuilder {
	b.issue.EntryID = id
	return b
}

// Segment sets the related segment.
func (b *IssueBuilder) Segment(id string) *IssueBuilder {
	b.issue.SegmentID = id
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
