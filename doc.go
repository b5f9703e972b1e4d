// Package ruleengine evaluates chart-of-accounts combination rules:
// given a date and a candidate pair of segment code values, it decides
// whether the pairing is permitted and explains why.
//
// The engine is purely functional: all inputs (segments, codes,
// hierarchies, rules) arrive as read-only snapshots, evaluation owns no
// mutable state, and the same inputs always yield the same decision.
// Concurrent readers need no locking; writers publish a new snapshot
// atomically instead of mutating rule lists in place.
//
// # Quick Start
//
//	import (
//	    re "github.com/gocoa/ruleengine"
//	    "github.com/gocoa/ruleengine/catalog"
//	    "github.com/gocoa/ruleengine/engine"
//	)
//
//	snap := catalog.NewSnapshot("v1")
//	// ... load segments, codes, hierarchy nodes and rules ...
//
//	ev := engine.New(snap, snap, snap)
//	result := ev.Evaluate(ctx, engine.Request{
//	    Date:       date,
//	    SegmentAID: "fund", CodeA: "101",
//	    SegmentBID: "object", CodeB: "6050",
//	})
//	if result.Allowed() {
//	    // pairing is permitted
//	}
//	result.Release() // return to pool
//
// # Evaluation semantics
//
// Active rules governing the candidate's segment pair are scanned in
// stored order; within each rule, entries are scanned in authored
// order. The first entry whose criteria match both codes is decisive:
// Include allows, Exclude denies, and evaluation short-circuits. When
// no rule decides, the global default behavior applies.
//
// Criteria come in three shapes: exact code, inclusive range (numeric
// comparison when all values parse as numbers, byte-wise otherwise),
// and hierarchy-subtree membership with cycle-safe traversal.
//
// Unresolvable input never raises an error. Unknown codes, missing
// hierarchy nodes and malformed criteria degrade to non-match, and
// configuration problems (hierarchy cycles, rules naming unknown
// segments) surface as warnings attached to the result.
//
// # Functional Options
//
//	ev := engine.New(snap, snap, snap,
//	    re.WithMemoization(true),
//	    re.WithDecisionCacheSize(8192),
//	    re.WithBatchWorkers(8),
//	)
package ruleengine
