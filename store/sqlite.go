// Package store provides a SQLite-backed snapshot store implementing
// the engine's collaborator interfaces. It suits a single-node portal
// deployment where the rule set is edited rarely and read often.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/service"
)

//go:embed schema.sql
var schema string

const dateLayout = "2006-01-02"

// SQLite reads and writes rule-set snapshots in a SQLite database.
// Reads behave as a consistent snapshot as long as writers bump the
// version key after publishing changes.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and initializes, if needed) the database at path.
func Open(path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLite{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// --- Write helpers (administration side) ---

// PutSegment inserts or replaces a segment.
func (s *SQLite) PutSegment(seg *ruleengine.Segment) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO segments
		 (id, name, type, active, core, mandatory, separator, validation_pattern, default_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.ID, seg.Name, seg.Type, seg.Active, seg.Core, seg.Mandatory,
		seg.Separator, seg.ValidationPattern, seg.DefaultCode,
	)
	if err != nil {
		return fmt.Errorf("put segment: %w", err)
	}
	return nil
}

// PutCode inserts or replaces a segment code.
func (s *SQLite) PutCode(code *ruleengine.SegmentCode) error {
	var validTo any
	if code.ValidTo != nil {
		validTo = code.ValidTo.Format(dateLayout)
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO segment_codes
		 (segment_id, value, description, active, valid_from, valid_to)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		code.SegmentID, code.Value, code.Description, code.Active,
		code.ValidFrom.Format(dateLayout), validTo,
	)
	if err != nil {
		return fmt.Errorf("put code: %w", err)
	}
	return nil
}

// PutNode inserts or replaces a hierarchy node.
func (s *SQLite) PutNode(node *ruleengine.HierarchyNode) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO hierarchy_nodes
		 (id, hierarchy_id, segment_id, code_value, parent_id)
		 VALUES (?, ?, ?, ?, ?)`,
		node.ID, node.HierarchyID, node.SegmentID, node.CodeValue, node.ParentID,
	)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	return nil
}

// PutRule inserts a rule and its entries at the given position in the
// rule order. Entry order follows the slice order, which is the
// authored order.
func (s *SQLite) PutRule(rule *ruleengine.CombinationRule, position int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put rule: %w", err)
	}
	defer tx.Rollback()

	ruleID := rule.ID
	if ruleID == "" {
		ruleID = uuid.New().String()
	}
	_, err = tx.Exec(
		`INSERT OR REPLACE INTO combination_rules
		 (id, name, status, segment_a_id, segment_b_id, position, modified_by, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ruleID, rule.Name, string(rule.Status), rule.SegmentAID, rule.SegmentBID,
		position, rule.ModifiedBy, rule.ModifiedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM mapping_entries WHERE rule_id = ?`, ruleID); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	for i, entry := range rule.Entries {
		entryID := entry.ID
		if entryID == "" {
			entryID = uuid.New().String()
		}
		_, err = tx.Exec(
			`INSERT INTO mapping_entries
			 (id, rule_id, position, behavior,
			  a_type, a_code, a_range_start, a_range_end, a_node_id, a_with_children,
			  b_type, b_code, b_range_start, b_range_end, b_node_id, b_with_children)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entryID, ruleID, i, string(entry.Behavior),
			string(entry.SegmentA.Type), entry.SegmentA.CodeValue,
			entry.SegmentA.RangeStart, entry.SegmentA.RangeEnd,
			entry.SegmentA.HierarchyNodeID, entry.SegmentA.IncludeChildren,
			string(entry.SegmentB.Type), entry.SegmentB.CodeValue,
			entry.SegmentB.RangeStart, entry.SegmentB.RangeEnd,
			entry.SegmentB.HierarchyNodeID, entry.SegmentB.IncludeChildren,
		)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	return tx.Commit()
}

// SetDefaultBehavior persists the global fallback decision.
func (s *SQLite) SetDefaultBehavior(b ruleengine.DefaultBehavior) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO settings (key, value) VALUES ('default_behavior', ?)`,
		string(b),
	)
	if err != nil {
		return fmt.Errorf("set default behavior: %w", err)
	}
	return nil
}

// SetVersion persists the snapshot version tag. Writers should bump it
// after publishing a batch of rule edits so memoized decisions expire.
func (s *SQLite) SetVersion(version string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO settings (key, value) VALUES ('version', ?)`,
		version,
	)
	if err != nil {
		return fmt.Errorf("set version: %w", err)
	}
	return nil
}

// --- service.CodeCatalog ---

// SegmentCode returns the code record for a value within a segment.
// Database errors degrade to not-found after logging; evaluation stays
// total.
func (s *SQLite) SegmentCode(segmentID, codeValue string) (*ruleengine.SegmentCode, bool) {
	var (
		code      ruleengine.SegmentCode
		active    int
		validFrom string
		validTo   sql.NullString
	)
	err := s.db.QueryRow(
		`SELECT segment_id, value, description, active, valid_from, valid_to
		 FROM segment_codes WHERE segment_id = ? AND value = ?`,
		segmentID, codeValue,
	).Scan(&code.SegmentID, &code.Value, &code.Description, &active, &validFrom, &validTo)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("segment code lookup failed", zap.Error(err))
		return nil, false
	}

	code.Active = active != 0
	from, err := time.Parse(dateLayout, validFrom)
	if err != nil {
		s.logger.Warn("bad valid_from in store",
			zap.String("segment", segmentID), zap.String("code", codeValue))
		return nil, false
	}
	code.ValidFrom = from
	if validTo.Valid && validTo.String != "" {
		to, err := time.Parse(dateLayout, validTo.String)
		if err == nil {
			code.ValidTo = &to
		}
	}
	return &code, true
}

// Segment returns the segment record for an id.
func (s *SQLite) Segment(segmentID string) (*ruleengine.Segment, bool) {
	var (
		seg                     ruleengine.Segment
		active, core, mandatory int
	)
	err := s.db.QueryRow(
		`SELECT id, name, type, active, core, mandatory, separator, validation_pattern, default_code
		 FROM segments WHERE id = ?`,
		segmentID,
	).Scan(&seg.ID, &seg.Name, &seg.Type, &active, &core, &mandatory,
		&seg.Separator, &seg.ValidationPattern, &seg.DefaultCode)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("segment lookup failed", zap.Error(err))
		return nil, false
	}
	seg.Active = active != 0
	seg.Core = core != 0
	seg.Mandatory = mandatory != 0
	return &seg, true
}

// --- service.HierarchyLookup ---

// NodeForCode returns the hierarchy node referencing a code value.
func (s *SQLite) NodeForCode(segmentID, codeValue string) (*ruleengine.HierarchyNode, bool) {
	var node ruleengine.HierarchyNode
	err := s.db.QueryRow(
		`SELECT id, hierarchy_id, segment_id, code_value, parent_id
		 FROM hierarchy_nodes WHERE segment_id = ? AND code_value = ?`,
		segmentID, codeValue,
	).Scan(&node.ID, &node.HierarchyID, &node.SegmentID, &node.CodeValue, &node.ParentID)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("node lookup failed", zap.Error(err))
		return nil, false
	}
	return &node, true
}

// Descendants walks the subtree below nodeID level by level in Go,
// tracking visited ids so a malformed cyclic graph terminates and is
// reported rather than looping.
func (s *SQLite) Descendants(nodeID string) ([]string, bool) {
	visited := map[string]bool{nodeID: true}
	var out []string
	cycle := false

	frontier := []string{nodeID}
	for len(frontier) > 0 {
		next := make([]string, 0, len(frontier))
		for _, parent := range frontier {
			children, err := s.childIDs(parent)
			if err != nil {
				s.logger.Warn("descendant query failed", zap.Error(err))
				return out, cycle
			}
			for _, id := range children {
				if visited[id] {
					cycle = true
					continue
				}
				visited[id] = true
				out = append(out, id)
				next = append(next, id)
			}
		}
		frontier = next
	}
	return out, cycle
}

func (s *SQLite) childIDs(parentID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM hierarchy_nodes WHERE parent_id = ? ORDER BY id`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- service.RuleSource ---

// ActiveRulesFor returns active rules positionally governing the pair,
// ordered by stored position.
func (s *SQLite) ActiveRulesFor(segmentAID, segmentBID string) []*ruleengine.CombinationRule {
	return s.queryRules(
		`SELECT id, name, status, segment_a_id, segment_b_id
		 FROM combination_rules
		 WHERE status = 'active' AND segment_a_id = ? AND segment_b_id = ?
		 ORDER BY position`,
		segmentAID, segmentBID,
	)
}

// ActiveRules returns every active rule ordered by stored position.
func (s *SQLite) ActiveRules() []*ruleengine.CombinationRule {
	return s.queryRules(
		`SELECT id, name, status, segment_a_id, segment_b_id
		 FROM combination_rules
		 WHERE status = 'active'
		 ORDER BY position`,
	)
}

func (s *SQLite) queryRules(query string, args ...any) []*ruleengine.CombinationRule {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.logger.Warn("rule query failed", zap.Error(err))
		return nil
	}
	defer rows.Close()

	var rules []*ruleengine.CombinationRule
	for rows.Next() {
		var rule ruleengine.CombinationRule
		var status string
		if err := rows.Scan(&rule.ID, &rule.Name, &status, &rule.SegmentAID, &rule.SegmentBID); err != nil {
			s.logger.Warn("rule scan failed", zap.Error(err))
			return rules
		}
		rule.Status = ruleengine.RuleStatus(status)
		rules = append(rules, &rule)
	}
	for _, rule := range rules {
		entries, err := s.ruleEntries(rule.ID)
		if err != nil {
			s.logger.Warn("entry query failed", zap.String("rule", rule.ID), zap.Error(err))
			continue
		}
		rule.Entries = entries
	}
	return rules
}

func (s *SQLite) ruleEntries(ruleID string) ([]ruleengine.MappingEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, behavior,
		        a_type, a_code, a_range_start, a_range_end, a_node_id, a_with_children,
		        b_type, b_code, b_range_start, b_range_end, b_node_id, b_with_children
		 FROM mapping_entries WHERE rule_id = ? ORDER BY position`,
		ruleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []ruleengine.MappingEntry
	for rows.Next() {
		var (
			entry                ruleengine.MappingEntry
			behavior             string
			aType, bType         string
			aChildren, bChildren int
		)
		err := rows.Scan(&entry.ID, &behavior,
			&aType, &entry.SegmentA.CodeValue, &entry.SegmentA.RangeStart,
			&entry.SegmentA.RangeEnd, &entry.SegmentA.HierarchyNodeID, &aChildren,
			&bType, &entry.SegmentB.CodeValue, &entry.SegmentB.RangeStart,
			&entry.SegmentB.RangeEnd, &entry.SegmentB.HierarchyNodeID, &bChildren)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Behavior = ruleengine.EntryBehavior(behavior)
		entry.SegmentA.Type = ruleengine.CriterionType(aType)
		entry.SegmentA.IncludeChildren = aChildren != 0
		entry.SegmentB.Type = ruleengine.CriterionType(bType)
		entry.SegmentB.IncludeChildren = bChildren != 0
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DefaultBehavior returns the persisted fallback, failing closed when
// unset.
func (s *SQLite) DefaultBehavior() ruleengine.DefaultBehavior {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = 'default_behavior'`).Scan(&value)
	if err != nil {
		return ruleengine.DefaultNotAllowed
	}
	return ruleengine.DefaultBehavior(value)
}

// Version returns the persisted snapshot version tag.
func (s *SQLite) Version() string {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = 'version'`).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// Verify interface compliance
var _ service.SnapshotSource = (*SQLite)(nil)
