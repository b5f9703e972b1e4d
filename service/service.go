// Package service defines small, composable interfaces for the external
// stores the evaluation engine reads from. Following Go's philosophy of
// small interfaces, each interface has 1-3 methods.
//
// Implementations must behave as consistent snapshots for the duration
// of one evaluation call: the engine never writes through these
// interfaces, and writers are expected to publish a new snapshot rather
// than mutate one in place.
package service

import (
	"github.com/gocoa/ruleengine"
)

// CodeCatalog resolves segment code values to their catalog records.
type CodeCatalog interface {
	// SegmentCode returns the code record for a value within a segment.
	// The second return is false when the code is not in the catalog;
	// that is a distinguishable non-match outcome, not an error.
	SegmentCode(segmentID, codeValue string) (*ruleengine.SegmentCode, bool)

	// Segment returns the segment record for an id.
	Segment(segmentID string) (*ruleengine.Segment, bool)
}

// HierarchyLookup resolves codes to hierarchy nodes and walks subtrees.
type HierarchyLookup interface {
	// NodeForCode returns the hierarchy node referencing a code value
	// within a segment. The second return is false when the code has no
	// resolvable node.
	NodeForCode(segmentID, codeValue string) (*ruleengine.HierarchyNode, bool)

	// Descendants returns the ids of every node below nodeID. It must
	// terminate even on a malformed cyclic graph; the second return is
	// true when a cycle was detected during traversal.
	Descendants(nodeID string) ([]string, bool)
}

// RuleSource supplies the combination rules and the global fallback for
// one consistent rule-set snapshot.
type RuleSource interface {
	// ActiveRulesFor returns the active rules governing the given
	// segment pair, positionally matched, in their stored order.
	ActiveRulesFor(segmentAID, segmentBID string) []*ruleengine.CombinationRule

	// ActiveRules returns every active rule in stored order, for
	// rule-set wide projections.
	ActiveRules() []*ruleengine.CombinationRule

	// DefaultBehavior returns the global fallback decision.
	DefaultBehavior() ruleengine.DefaultBehavior

	// Version identifies the snapshot; memoized decisions are keyed by
	// it so a new snapshot never serves stale answers.
	Version() string
}

// SnapshotSource combines all engine collaborators. In-memory and
// SQLite-backed stores implement the whole thing; tests frequently
// implement only the slice they need.
type SnapshotSource interface {
	CodeCatalog
	HierarchyLookup
	RuleSource
}
