package catalog

import (
	"testing"
	"time"

	"github.com/gocoa/ruleengine"
)

func TestSnapshot_CodeLookup(t *testing.T) {
	snap := NewSnapshot("v1")
	if err := snap.AddCode(&ruleengine.SegmentCode{SegmentID: "fund", Value: "101", Active: true}); err != nil {
		t.Fatalf("AddCode: %v", err)
	}

	if code, ok := snap.SegmentCode("fund", "101"); !ok || code.Value != "101" {
		t.Error("registered code should be found")
	}
	if _, ok := snap.SegmentCode("fund", "999"); ok {
		t.Error("unregistered code should not be found")
	}
	if _, ok := snap.SegmentCode("object", "101"); ok {
		t.Error("lookup is scoped per segment")
	}
}

func TestSnapshot_RejectsIncompleteRecords(t *testing.T) {
	snap := NewSnapshot("v1")

	if err := snap.AddSegment(&ruleengine.Segment{}); err == nil {
		t.Error("segment without id should be rejected")
	}
	if err := snap.AddCode(&ruleengine.SegmentCode{Value: "101"}); err == nil {
		t.Error("code without segment id should be rejected")
	}
	if err := snap.AddNode(&ruleengine.HierarchyNode{ID: "n1"}); err == nil {
		t.Error("node without segment id should be rejected")
	}
	if err := snap.AddRule(&ruleengine.CombinationRule{ID: "r1", SegmentAID: "fund"}); err == nil {
		t.Error("rule naming only one segment should be rejected")
	}
}

func TestSnapshot_NodeForCode(t *testing.T) {
	snap := NewSnapshot("v1")
	snap.AddNode(&ruleengine.HierarchyNode{ID: "FIN", SegmentID: "object"})
	snap.AddNode(&ruleengine.HierarchyNode{ID: "FIN-AP-1", SegmentID: "object", CodeValue: "6050", ParentID: "FIN"})

	node, ok := snap.NodeForCode("object", "6050")
	if !ok || node.ID != "FIN-AP-1" {
		t.Error("code-bearing node should resolve by its code value")
	}
	// Grouping nodes carry no code and are not indexed by code.
	if _, ok := snap.NodeForCode("object", ""); ok {
		t.Error("empty code value should not resolve")
	}
}

func TestSnapshot_Descendants(t *testing.T) {
	snap := NewSnapshot("v1")
	snap.AddNode(&ruleengine.HierarchyNode{ID: "FIN", SegmentID: "object"})
	snap.AddNode(&ruleengine.HierarchyNode{ID: "FIN-AP", SegmentID: "object", ParentID: "FIN"})
	snap.AddNode(&ruleengine.HierarchyNode{ID: "FIN-AP-1", SegmentID: "object", CodeValue: "6050", ParentID: "FIN-AP"})
	snap.AddNode(&ruleengine.HierarchyNode{ID: "FIN-GL", SegmentID: "object", ParentID: "FIN"})

	ids, cycle := snap.Descendants("FIN")
	if cycle {
		t.Error("forest hierarchy reported a cycle")
	}
	want := map[string]bool{"FIN-AP": true, "FIN-AP-1": true, "FIN-GL": true}
	if len(ids) != len(want) {
		t.Fatalf("got %d descendants %v; want %d", len(ids), ids, len(want))
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected descendant %s", id)
		}
	}

	if ids, _ := snap.Descendants("FIN-AP-1"); len(ids) != 0 {
		t.Errorf("leaf node reported descendants %v", ids)
	}
}

func TestSnapshot_DescendantsCycle(t *testing.T) {
	snap := NewSnapshot("v1")
	// A parents B, B parents A. Traversal must terminate and flag it.
	snap.AddNode(&ruleengine.HierarchyNode{ID: "A", SegmentID: "object", ParentID: "B"})
	snap.AddNode(&ruleengine.HierarchyNode{ID: "B", SegmentID: "object", ParentID: "A"})

	ids, cycle := snap.Descendants("A")
	if !cycle {
		t.Error("cyclic hierarchy should be flagged")
	}
	for _, id := range ids {
		if id == "A" {
			t.Error("the start node must not appear among its own descendants")
		}
	}
}

func TestSnapshot_ActiveRulesFor(t *testing.T) {
	snap := NewSnapshot("v1")
	rules := []*ruleengine.CombinationRule{
		{ID: "r1", Status: ruleengine.RuleStatusActive, SegmentAID: "fund", SegmentBID: "object"},
		{ID: "r2", Status: ruleengine.RuleStatusInactive, SegmentAID: "fund", SegmentBID: "object"},
		{ID: "r3", Status: ruleengine.RuleStatusActive, SegmentAID: "fund", SegmentBID: "dept"},
		{ID: "r4", Status: ruleengine.RuleStatusActive, SegmentAID: "fund", SegmentBID: "object"},
	}
	for _, r := range rules {
		if err := snap.AddRule(r); err != nil {
			t.Fatalf("AddRule: %v", err)
		}
	}

	got := snap.ActiveRulesFor("fund", "object")
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r4" {
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		t.Errorf("ActiveRulesFor = %v; want [r1 r4] in stored order", ids)
	}

	// Orientation matters: the reversed pair selects nothing.
	if got := snap.ActiveRulesFor("object", "fund"); len(got) != 0 {
		t.Errorf("reversed pair selected %d rules", len(got))
	}

	if got := snap.ActiveRules(); len(got) != 3 {
		t.Errorf("ActiveRules returned %d rules; want 3", len(got))
	}
}

func TestSnapshot_DefaultsFailClosed(t *testing.T) {
	snap := NewSnapshot("v1")
	if snap.DefaultBehavior() != ruleengine.DefaultNotAllowed {
		t.Error("a fresh snapshot should default to not-allowed")
	}
	snap.SetDefaultBehavior(ruleengine.DefaultAllowed)
	if snap.DefaultBehavior() != ruleengine.DefaultAllowed {
		t.Error("SetDefaultBehavior did not take effect")
	}
}

func TestSnapshot_Counts(t *testing.T) {
	snap := NewSnapshot("v1")
	snap.AddSegment(&ruleengine.Segment{ID: "fund", Active: true})
	snap.AddSegment(&ruleengine.Segment{ID: "object", Active: true})
	now := time.Now()
	snap.AddCode(&ruleengine.SegmentCode{SegmentID: "fund", Value: "101", Active: true, ValidFrom: now})
	snap.AddCode(&ruleengine.SegmentCode{SegmentID: "object", Value: "6050", Active: true, ValidFrom: now})
	snap.AddCode(&ruleengine.SegmentCode{SegmentID: "object", Value: "6100", Active: true, ValidFrom: now})
	snap.AddRule(&ruleengine.CombinationRule{ID: "r1", SegmentAID: "fund", SegmentBID: "object"})

	if got := snap.CountSegments(); got != 2 {
		t.Errorf("CountSegments = %d; want 2", got)
	}
	if got := snap.CountCodes(); got != 3 {
		t.Errorf("CountCodes = %d; want 3", got)
	}
	if got := snap.CountRules(); got != 1 {
		t.Errorf("CountRules = %d; want 1", got)
	}
	if snap.Version() != "v1" {
		t.Errorf("Version = %q; want v1", snap.Version())
	}
}
