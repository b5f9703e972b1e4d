package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/engine"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "rules.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSQLite_SegmentRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.PutSegment(&ruleengine.Segment{
		ID: "fund", Name: "Fund", Active: true, Mandatory: true,
		ValidationPattern: "^[0-9]{3}$",
	}); err != nil {
		t.Fatalf("PutSegment: %v", err)
	}

	seg, ok := s.Segment("fund")
	if !ok {
		t.Fatal("segment not found after put")
	}
	if seg.Name != "Fund" || !seg.Active || !seg.Mandatory || seg.ValidationPattern != "^[0-9]{3}$" {
		t.Errorf("segment round trip lost fields: %+v", seg)
	}
	if _, ok := s.Segment("missing"); ok {
		t.Error("unknown segment reported found")
	}
}

func TestSQLite_CodeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	to := date("2024-12-31")

	if err := s.PutCode(&ruleengine.SegmentCode{
		SegmentID: "fund", Value: "101", Active: true,
		ValidFrom: date("2020-01-01"), ValidTo: &to,
	}); err != nil {
		t.Fatalf("PutCode: %v", err)
	}

	code, ok := s.SegmentCode("fund", "101")
	if !ok {
		t.Fatal("code not found after put")
	}
	if !code.ValidFrom.Equal(date("2020-01-01")) {
		t.Errorf("ValidFrom = %v", code.ValidFrom)
	}
	if code.ValidTo == nil || !code.ValidTo.Equal(to) {
		t.Errorf("ValidTo = %v; want %v", code.ValidTo, to)
	}

	// Open-ended window stores a NULL valid_to.
	s.PutCode(&ruleengine.SegmentCode{
		SegmentID: "fund", Value: "202", Active: true, ValidFrom: date("2020-01-01"),
	})
	open, _ := s.SegmentCode("fund", "202")
	if open.ValidTo != nil {
		t.Errorf("open-ended code got ValidTo %v", open.ValidTo)
	}
}

func TestSQLite_RuleRoundTrip(t *testing.T) {
	s := openTestStore(t)

	code, _ := ruleengine.NewCodeCriterion("101")
	rng, _ := ruleengine.NewRangeCriterion("6000", "6199")
	node, _ := ruleengine.NewHierarchyCriterion("FIN", true)

	rule := &ruleengine.CombinationRule{
		ID: "r1", Name: "Fund 101", Status: ruleengine.RuleStatusActive,
		SegmentAID: "fund", SegmentBID: "object",
		Entries: []ruleengine.MappingEntry{
			{ID: "e1", Behavior: ruleengine.EntryInclude, SegmentA: code, SegmentB: rng},
			{ID: "e2", Behavior: ruleengine.EntryExclude, SegmentA: code, SegmentB: node},
		},
	}
	if err := s.PutRule(rule, 0); err != nil {
		t.Fatalf("PutRule: %v", err)
	}

	rules := s.ActiveRulesFor("fund", "object")
	if len(rules) != 1 {
		t.Fatalf("got %d rules; want 1", len(rules))
	}
	got := rules[0]
	if got.Name != "Fund 101" || len(got.Entries) != 2 {
		t.Fatalf("rule round trip lost fields: %+v", got)
	}
	if got.Entries[0].ID != "e1" || got.Entries[1].ID != "e2" {
		t.Error("entry order not preserved")
	}
	if got.Entries[0].SegmentB != rng {
		t.Errorf("range criterion round trip: %+v", got.Entries[0].SegmentB)
	}
	if got.Entries[1].SegmentB != node {
		t.Errorf("hierarchy criterion round trip: %+v", got.Entries[1].SegmentB)
	}

	// Re-putting the rule replaces its entries rather than appending.
	rule.Entries = rule.Entries[:1]
	if err := s.PutRule(rule, 0); err != nil {
		t.Fatalf("PutRule again: %v", err)
	}
	if got := s.ActiveRulesFor("fund", "object"); len(got[0].Entries) != 1 {
		t.Errorf("entries after replace = %d; want 1", len(got[0].Entries))
	}
}

func TestSQLite_RuleOrdering(t *testing.T) {
	s := openTestStore(t)
	code, _ := ruleengine.NewCodeCriterion("101")
	entry := ruleengine.MappingEntry{ID: "e", Behavior: ruleengine.EntryInclude, SegmentA: code, SegmentB: code}

	// Inserted out of position order; reads must follow position.
	for _, r := range []struct {
		id  string
		pos int
	}{{"later", 2}, {"first", 0}, {"middle", 1}} {
		err := s.PutRule(&ruleengine.CombinationRule{
			ID: r.id, Status: ruleengine.RuleStatusActive,
			SegmentAID: "fund", SegmentBID: "object",
			Entries: []ruleengine.MappingEntry{entry},
		}, r.pos)
		if err != nil {
			t.Fatalf("PutRule(%s): %v", r.id, err)
		}
	}

	rules := s.ActiveRules()
	if len(rules) != 3 {
		t.Fatalf("got %d rules; want 3", len(rules))
	}
	for i, want := range []string{"first", "middle", "later"} {
		if rules[i].ID != want {
			t.Errorf("rules[%d] = %s; want %s", i, rules[i].ID, want)
		}
	}
}

func TestSQLite_InactiveRulesFiltered(t *testing.T) {
	s := openTestStore(t)
	code, _ := ruleengine.NewCodeCriterion("101")
	entry := ruleengine.MappingEntry{ID: "e", Behavior: ruleengine.EntryInclude, SegmentA: code, SegmentB: code}

	s.PutRule(&ruleengine.CombinationRule{
		ID: "off", Status: ruleengine.RuleStatusInactive,
		SegmentAID: "fund", SegmentBID: "object",
		Entries: []ruleengine.MappingEntry{entry},
	}, 0)

	if got := s.ActiveRulesFor("fund", "object"); len(got) != 0 {
		t.Errorf("inactive rule surfaced: %d", len(got))
	}
}

func TestSQLite_Hierarchy(t *testing.T) {
	s := openTestStore(t)
	for _, n := range []*ruleengine.HierarchyNode{
		{ID: "FIN", SegmentID: "object"},
		{ID: "FIN-AP", SegmentID: "object", ParentID: "FIN"},
		{ID: "FIN-AP-1", SegmentID: "object", CodeValue: "6050", ParentID: "FIN-AP"},
	} {
		if err := s.PutNode(n); err != nil {
			t.Fatalf("PutNode: %v", err)
		}
	}

	node, ok := s.NodeForCode("object", "6050")
	if !ok || node.ID != "FIN-AP-1" {
		t.Error("code-bearing node should resolve")
	}

	ids, cycle := s.Descendants("FIN")
	if cycle {
		t.Error("forest reported a cycle")
	}
	if len(ids) != 2 {
		t.Errorf("descendants of FIN = %v; want two", ids)
	}
}

func TestSQLite_HierarchyCycle(t *testing.T) {
	s := openTestStore(t)
	s.PutNode(&ruleengine.HierarchyNode{ID: "A", SegmentID: "object", ParentID: "B"})
	s.PutNode(&ruleengine.HierarchyNode{ID: "B", SegmentID: "object", ParentID: "A"})

	if _, cycle := s.Descendants("A"); !cycle {
		t.Error("cyclic graph should be flagged")
	}
}

func TestSQLite_Settings(t *testing.T) {
	s := openTestStore(t)

	if got := s.DefaultBehavior(); got != ruleengine.DefaultNotAllowed {
		t.Errorf("unset default behavior = %q; want fail-closed not-allowed", got)
	}
	if err := s.SetDefaultBehavior(ruleengine.DefaultAllowed); err != nil {
		t.Fatalf("SetDefaultBehavior: %v", err)
	}
	if got := s.DefaultBehavior(); got != ruleengine.DefaultAllowed {
		t.Errorf("default behavior = %q; want allowed", got)
	}

	if s.Version() != "" {
		t.Error("unset version should be empty")
	}
	if err := s.SetVersion("v7"); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	if got := s.Version(); got != "v7" {
		t.Errorf("version = %q; want v7", got)
	}
}

func TestSQLite_BacksEvaluator(t *testing.T) {
	s := openTestStore(t)

	s.PutSegment(&ruleengine.Segment{ID: "fund", Active: true})
	s.PutSegment(&ruleengine.Segment{ID: "object", Active: true})
	s.PutCode(&ruleengine.SegmentCode{SegmentID: "fund", Value: "101", Active: true, ValidFrom: date("2020-01-01")})
	s.PutCode(&ruleengine.SegmentCode{SegmentID: "object", Value: "6050", Active: true, ValidFrom: date("2020-01-01")})

	funds, _ := ruleengine.NewCodeCriterion("101")
	objects, _ := ruleengine.NewRangeCriterion("6000", "6199")
	if err := s.PutRule(&ruleengine.CombinationRule{
		ID: "r1", Status: ruleengine.RuleStatusActive,
		SegmentAID: "fund", SegmentBID: "object",
		Entries: []ruleengine.MappingEntry{
			{ID: "e1", Behavior: ruleengine.EntryInclude, SegmentA: funds, SegmentB: objects},
		},
	}, 0); err != nil {
		t.Fatalf("PutRule: %v", err)
	}

	ev := engine.New(s, s, s)
	result := ev.Evaluate(context.Background(), engine.Request{
		Date:       date("2025-01-01"),
		SegmentAID: "fund", CodeA: "101",
		SegmentBID: "object", CodeB: "6050",
	})
	defer result.Release()

	if !result.Allowed() || result.MatchedEntryID != "e1" {
		t.Errorf("got %s via %s; want allowed via e1", result.Decision, result.MatchedEntryID)
	}
}
