package ruleengine

import (
	"errors"
	"fmt"
)

// CriterionType identifies which shape of criterion is active.
type CriterionType string

const (
	// CriterionCode matches a single code value exactly.
	CriterionCode CriterionType = "code"
	// CriterionRange matches code values within inclusive bounds.
	CriterionRange CriterionType = "range"
	// CriterionHierarchyNode matches codes belonging to a hierarchy
	// subtree.
	CriterionHierarchyNode CriterionType = "hierarchy-node"
)

// Criterion is a tagged variant with exactly one active shape. Use the
// New*Criterion constructors so a criterion is validated when it is
// built rather than when it is matched.
type Criterion struct {
	Type CriterionType `json:"type"`

	// CODE fields
	CodeValue string `json:"codeValue,omitempty"`

	// RANGE fields (inclusive bounds)
	RangeStart string `json:"rangeStartValue,omitempty"`
	RangeEnd   string `json:"rangeEndValue,omitempty"`

	// HIERARCHY_NODE fields
	HierarchyNodeID string `json:"hierarchyNodeId,omitempty"`
	IncludeChildren bool   `json:"includeChildren,omitempty"`
}

// NewCodeCriterion builds an exact-match criterion.
func NewCodeCriterion(codeValue string) (Criterion, error) {
	c := Criterion{Type: CriterionCode, CodeValue: codeValue}
	if err := c.Validate(); err != nil {
		return Criterion{}, err
	}
	return c, nil
}

// NewRangeCriterion builds an inclusive-range criterion.
func NewRangeCriterion(start, end string) (Criterion, error) {
	c := Criterion{Type: CriterionRange, RangeStart: start, RangeEnd: end}
	if err := c.Validate(); err != nil {
		return Criterion{}, err
	}
	return c, nil
}

// NewHierarchyCriterion builds a subtree-membership criterion.
func NewHierarchyCriterion(nodeID string, includeChildren bool) (Criterion, error) {
	c := Criterion{Type: CriterionHierarchyNode, HierarchyNodeID: nodeID, IncludeChildren: includeChildren}
	if err := c.Validate(); err != nil {
		return Criterion{}, err
	}
	return c, nil
}

// ErrMalformedCriterion is returned when a criterion is missing a field
// required by its type.
var ErrMalformedCriterion = errors.New("malformed criterion")

// Validate checks that the fields required by the criterion's type are
// present. A criterion that fails validation is treated as a non-match
// during evaluation, never as a crash.
func (c Criterion) Validate() error {
	switch c.Type {
	case CriterionCode:
		if c.CodeValue == "" {
			return fmt.Errorf("%w: code criterion requires codeValue", ErrMalformedCriterion)
		}
	case CriterionRange:
		if c.RangeStart == "" || c.RangeEnd == "" {
			return fmt.Errorf("%w: range criterion requires both bounds", ErrMalformedCriterion)
		}
	case CriterionHierarchyNode:
		if c.HierarchyNodeID == "" {
			return fmt.Errorf("%w: hierarchy criterion requires hierarchyNodeId", ErrMalformedCriterion)
		}
	default:
		return fmt.Errorf("%w: unknown criterion type %q", ErrMalformedCriterion, c.Type)
	}
	return nil
}

// String renders the criterion for audit display.
func (c Criterion) String() string {
	switch c.Type {
	case CriterionCode:
		return c.CodeValue
	case CriterionRange:
		return c.RangeStart + ".." + c.RangeEnd
	case CriterionHierarchyNode:
		if c.IncludeChildren {
			return "node:" + c.HierarchyNodeID + "+children"
		}
		return "node:" + c.HierarchyNodeID
	default:
		return "invalid"
	}
}
