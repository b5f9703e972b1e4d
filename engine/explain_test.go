package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/catalog"
)

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

func TestExplain_MatchedEntry(t *testing.T) {
	snap := testSnapshot(t)
	ev := New(snap, snap, snap)

	exp := ev.Explain(context.Background(), request("101", "6050"))

	if exp.Decision != ruleengine.DecisionAllowed {
		t.Fatalf("decision = %s; want allowed", exp.Decision)
	}
	if !strings.Contains(exp.Reason, "r1e1") || !strings.Contains(exp.Reason, "r1") {
		t.Errorf("reason should name the deciding rule and entry, got %q", exp.Reason)
	}
}

func TestExplain_Defaulted(t *testing.T) {
	snap := testSnapshot(t)
	ev := New(snap, snap, snap)

	exp := ev.Explain(context.Background(), request("101", "7000"))

	if !exp.Defaulted {
		t.Fatal("expected a defaulted explanation")
	}
	if !strings.Contains(exp.Reason, "default behavior") {
		t.Errorf("reason should mention the default behavior, got %q", exp.Reason)
	}
	if !strings.Contains(exp.Reason, "fund=101") || !strings.Contains(exp.Reason, "object=7000") {
		t.Errorf("reason should echo the candidate pair, got %q", exp.Reason)
	}
}

// projectionSnapshot covers every effectiveness status: an entry whose
// codes are both valid, entries with one or both codes out of window,
// and entries that cannot be resolved to code windows at all.
func projectionSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snap := catalog.NewSnapshot("v1")
	snap.AddSegment(&ruleengine.Segment{ID: "fund", Active: true})
	snap.AddSegment(&ruleengine.Segment{ID: "object", Active: true})

	for _, code := range []*ruleengine.SegmentCode{
		{SegmentID: "fund", Value: "101", Active: true, ValidFrom: date("2020-01-01")},
		{SegmentID: "fund", Value: "150", Active: true, ValidFrom: date("2020-01-01"), ValidTo: datePtr("2023-12-31")},
		{SegmentID: "object", Value: "6050", Active: true, ValidFrom: date("2020-01-01")},
		{SegmentID: "object", Value: "6090", Active: true, ValidFrom: date("2020-01-01"), ValidTo: datePtr("2023-06-30")},
	} {
		if err := snap.AddCode(code); err != nil {
			t.Fatalf("adding code: %v", err)
		}
	}

	code := func(v string) ruleengine.Criterion {
		c, err := ruleengine.NewCodeCriterion(v)
		if err != nil {
			t.Fatalf("code criterion: %v", err)
		}
		return c
	}
	rng, err := ruleengine.NewRangeCriterion("6000", "6199")
	if err != nil {
		t.Fatalf("range criterion: %v", err)
	}

	snap.AddRule(&ruleengine.CombinationRule{
		ID: "r1", Name: "projection fixture", Status: ruleengine.RuleStatusActive,
		SegmentAID: "fund", SegmentBID: "object",
		Entries: []ruleengine.MappingEntry{
			{ID: "both-valid", Behavior: ruleengine.EntryInclude, SegmentA: code("101"), SegmentB: code("6050")},
			{ID: "a-expired", Behavior: ruleengine.EntryInclude, SegmentA: code("150"), SegmentB: code("6050")},
			{ID: "b-expired", Behavior: ruleengine.EntryInclude, SegmentA: code("101"), SegmentB: code("6090")},
			{ID: "both-expired", Behavior: ruleengine.EntryInclude, SegmentA: code("150"), SegmentB: code("6090")},
			{ID: "range-side", Behavior: ruleengine.EntryInclude, SegmentA: code("101"), SegmentB: rng},
			{ID: "missing-code", Behavior: ruleengine.EntryInclude, SegmentA: code("999"), SegmentB: code("6050")},
			{ID: "carve-out", Behavior: ruleengine.EntryExclude, SegmentA: code("101"), SegmentB: code("6050")},
		},
	})
	return snap
}

func TestProjectEffectiveEntries(t *testing.T) {
	snap := projectionSnapshot(t)
	ev := New(snap, snap, snap)

	entries := ev.ProjectEffectiveEntries(context.Background(), date("2025-01-01"))

	byID := make(map[string]EntryEffectiveness, len(entries))
	for _, e := range entries {
		byID[e.EntryID] = e
	}

	tests := []struct {
		entryID string
		want    ruleengine.EffectiveStatus
	}{
		{"both-valid", ruleengine.StatusEffective},
		{"a-expired", ruleengine.StatusSegmentACodeInactive},
		{"b-expired", ruleengine.StatusSegmentBCodeInactive},
		{"both-expired", ruleengine.StatusBothCodesInactive},
		{"range-side", ruleengine.StatusUnknown},
		{"missing-code", ruleengine.StatusUnknown},
	}
	if len(entries) != len(tests) {
		t.Errorf("got %d entries; want %d (Exclude entries are omitted)", len(entries), len(tests))
	}
	for _, tt := range tests {
		e, ok := byID[tt.entryID]
		if !ok {
			t.Errorf("entry %s missing from projection", tt.entryID)
			continue
		}
		if e.Status != tt.want {
			t.Errorf("entry %s status = %s; want %s", tt.entryID, e.Status, tt.want)
		}
	}
	if _, ok := byID["carve-out"]; ok {
		t.Error("Exclude entries must not appear in the projection")
	}
}

func TestProjectEffectiveEntries_RendersCriteria(t *testing.T) {
	snap := projectionSnapshot(t)
	ev := New(snap, snap, snap)

	entries := ev.ProjectEffectiveEntries(context.Background(), date("2025-01-01"))
	for _, e := range entries {
		if e.EntryID == "range-side" {
			if e.CriterionB != "6000..6199" {
				t.Errorf("CriterionB = %q; want rendered range bounds", e.CriterionB)
			}
			return
		}
	}
	t.Fatal("range-side entry not found")
}

func TestProjectEffectiveEntries_DateSensitive(t *testing.T) {
	snap := projectionSnapshot(t)
	ev := New(snap, snap, snap)

	// In 2022 every fixed-code window is still open.
	entries := ev.ProjectEffectiveEntries(context.Background(), date("2022-06-01"))
	for _, e := range entries {
		switch e.EntryID {
		case "a-expired", "b-expired", "both-expired":
			if e.Status != ruleengine.StatusEffective {
				t.Errorf("entry %s on 2022-06-01 = %s; want effective", e.EntryID, e.Status)
			}
		}
	}
}

func TestProjectEffectiveEntries_SkipsInactiveRules(t *testing.T) {
	snap := projectionSnapshot(t)
	snap.Rules()[0].Status = ruleengine.RuleStatusInactive
	ev := New(snap, snap, snap)

	if entries := ev.ProjectEffectiveEntries(context.Background(), date("2025-01-01")); len(entries) != 0 {
		t.Errorf("inactive rules should contribute no entries, got %d", len(entries))
	}
}
