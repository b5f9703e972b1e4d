// Package catalog provides the in-memory snapshot store the engine
// evaluates against. A Snapshot holds segments, codes, hierarchy nodes
// and combination rules for one consistent rule-set version; writers
// build a fresh Snapshot and swap it in rather than mutating one that
// readers may be evaluating against.
package catalog

import (
	"fmt"
	"sync"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/service"
)

// Snapshot implements the service collaborator interfaces over
// in-memory maps. Loading and reading are both safe for concurrent
// use, but the intended lifecycle is load-then-read-only.
type Snapshot struct {
	mu sync.RWMutex

	version         string
	defaultBehavior ruleengine.DefaultBehavior

	segments map[string]*ruleengine.Segment
	codes    map[string]map[string]*ruleengine.SegmentCode // segmentID -> value -> code
	nodes    map[string]*ruleengine.HierarchyNode          // nodeID -> node
	byCode   map[string]map[string]*ruleengine.HierarchyNode
	children map[string][]string // nodeID -> child node ids, insertion order

	rules []*ruleengine.CombinationRule // stored order is authored order
}

// NewSnapshot creates an empty snapshot for the given version tag.
// The default behavior starts as Not Allowed so an unconfigured
// snapshot fails closed.
func NewSnapshot(version string) *Snapshot {
	return &Snapshot{
		version:         version,
		defaultBehavior: ruleengine.DefaultNotAllowed,
		segments:        make(map[string]*ruleengine.Segment),
		codes:           make(map[string]map[string]*ruleengine.SegmentCode),
		nodes:           make(map[string]*ruleengine.HierarchyNode),
		byCode:          make(map[string]map[string]*ruleengine.HierarchyNode),
		children:        make(map[string][]string),
	}
}

// SetDefaultBehavior sets the global fallback decision.
func (s *Snapshot) SetDefaultBehavior(b ruleengine.DefaultBehavior) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultBehavior = b
}

// AddSegment registers a segment.
func (s *Snapshot) AddSegment(seg *ruleengine.Segment) error {
	if seg == nil || seg.ID == "" {
		return fmt.Errorf("segment is nil or has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[seg.ID] = seg
	return nil
}

// AddCode registers a segment code. The code's segment does not have to
// be registered first; rules may reference catalogs loaded in any order.
func (s *Snapshot) AddCode(code *ruleengine.SegmentCode) error {
	if code == nil || code.SegmentID == "" || code.Value == "" {
		return fmt.Errorf("segment code is nil or missing segment id or value")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes[code.SegmentID] == nil {
		s.codes[code.SegmentID] = make(map[string]*ruleengine.SegmentCode)
	}
	s.codes[code.SegmentID][code.Value] = code
	return nil
}

// AddNode registers a hierarchy node and indexes it by parent and by
// referenced code. Cycles introduced by bad parent ids are tolerated
// here and detected during traversal.
func (s *Snapshot) AddNode(node *ruleengine.HierarchyNode) error {
	if node == nil || node.ID == "" || node.SegmentID == "" {
		return fmt.Errorf("hierarchy node is nil or missing id or segment id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node.ID] = node
	if node.ParentID != "" {
		s.children[node.ParentID] = append(s.children[node.ParentID], node.ID)
	}
	if node.CodeValue != "" {
		if s.byCode[node.SegmentID] == nil {
			s.byCode[node.SegmentID] = make(map[string]*ruleengine.HierarchyNode)
		}
		s.byCode[node.SegmentID][node.CodeValue] = node
	}
	return nil
}

// AddRule appends a combination rule, preserving authored order.
func (s *Snapshot) AddRule(rule *ruleengine.CombinationRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("rule is nil or has no id")
	}
	if rule.SegmentAID == "" || rule.SegmentBID == "" {
		return fmt.Errorf("rule %q does not name both segments", rule.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule)
	return nil
}

// --- service.CodeCatalog ---

// SegmentCode returns the code record for a value within a segment.
func (s *Snapshot) SegmentCode(segmentID, codeValue string) (*ruleengine.SegmentCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.codes[segmentID][codeValue]
	return code, ok
}

// Segment returns the segment record for an id.
func (s *Snapshot) Segment(segmentID string) (*ruleengine.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[segmentID]
	return seg, ok
}

// --- service.HierarchyLookup ---

// NodeForCode returns the hierarchy node referencing a code value.
func (s *Snapshot) NodeForCode(segmentID, codeValue string) (*ruleengine.HierarchyNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.byCode[segmentID][codeValue]
	return node, ok
}

// Descendants returns the ids of all nodes below nodeID, found by
// downward traversal. A revisited node id means the parent/child graph
// is not the forest it is supposed to be; traversal skips the repeat
// and reports the cycle instead of looping.
func (s *Snapshot) Descendants(nodeID string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[string]bool{nodeID: true}
	var out []string
	cycle := false

	stack := append([]string(nil), s.children[nodeID]...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			cycle = true
			continue
		}
		visited[id] = true
		out = append(out, id)
		stack = append(stack, s.children[id]...)
	}
	return out, cycle
}

// --- service.RuleSource ---

// ActiveRulesFor returns the active rules positionally governing the
// given segment pair, in stored order.
func (s *Snapshot) ActiveRulesFor(segmentAID, segmentBID string) []*ruleengine.CombinationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ruleengine.CombinationRule
	for _, rule := range s.rules {
		if rule.IsActive() && rule.AppliesTo(segmentAID, segmentBID) {
			out = append(out, rule)
		}
	}
	return out
}

// ActiveRules returns every active rule in stored order.
func (s *Snapshot) ActiveRules() []*ruleengine.CombinationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ruleengine.CombinationRule
	for _, rule := range s.rules {
		if rule.IsActive() {
			out = append(out, rule)
		}
	}
	return out
}

// DefaultBehavior returns the global fallback decision.
func (s *Snapshot) DefaultBehavior() ruleengine.DefaultBehavior {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultBehavior
}

// Version returns the snapshot's version tag.
func (s *Snapshot) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// --- Introspection ---

// Segments returns every registered segment, in no particular order.
func (s *Snapshot) Segments() []*ruleengine.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ruleengine.Segment, 0, len(s.segments))
	for _, seg := range s.segments {
		out = append(out, seg)
	}
	return out
}

// Codes returns every registered code, in no particular order.
func (s *Snapshot) Codes() []*ruleengine.SegmentCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ruleengine.SegmentCode
	for _, byValue := range s.codes {
		for _, code := range byValue {
			out = append(out, code)
		}
	}
	return out
}

// Nodes returns every registered hierarchy node, in no particular order.
func (s *Snapshot) Nodes() []*ruleengine.HierarchyNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ruleengine.HierarchyNode, 0, len(s.nodes))
	for _, node := range s.nodes {
		out = append(out, node)
	}
	return out
}

// Rules returns every registered rule in stored order, active or not.
func (s *Snapshot) Rules() []*ruleengine.CombinationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*ruleengine.CombinationRule(nil), s.rules...)
}

// CountSegments returns the number of registered segments.
func (s *Snapshot) CountSegments() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// CountCodes returns the number of registered codes across all segments.
func (s *Snapshot) CountCodes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, byValue := range s.codes {
		n += len(byValue)
	}
	return n
}

// CountRules returns the number of registered rules, active or not.
func (s *Snapshot) CountRules() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Verify interface compliance
var _ service.SnapshotSource = (*Snapshot)(nil)
