// Package loader reads rule-set snapshot files (YAML or JSON) and
// builds the in-memory catalog the engine evaluates against.
package loader

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gocoa/ruleengine"
	"github.com/gocoa/ruleengine/catalog"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// File is the on-disk snapshot format. YAML is the canonical encoding;
// JSON files parse through the same path since YAML is a superset.
type File struct {
	Version         string       `yaml:"version" json:"version"`
	DefaultBehavior string       `yaml:"default_behavior" json:"default_behavior" validate:"omitempty,oneof=allowed not-allowed"`
	Segments        []SegmentDef `yaml:"segments" json:"segments" validate:"dive"`
	Codes           []CodeDef    `yaml:"codes" json:"codes" validate:"dive"`
	Hierarchy       []NodeDef    `yaml:"hierarchy" json:"hierarchy" validate:"dive"`
	Rules           []RuleDef    `yaml:"rules" json:"rules" validate:"dive"`
}

// SegmentDef declares one coding segment.
type SegmentDef struct {
	ID                string `yaml:"id" json:"id" validate:"required"`
	Name              string `yaml:"name" json:"name"`
	Type              string `yaml:"type" json:"type"`
	Active            *bool  `yaml:"active" json:"active"`
	Core              bool   `yaml:"core" json:"core"`
	Mandatory         bool   `yaml:"mandatory" json:"mandatory"`
	Separator         string `yaml:"separator" json:"separator"`
	ValidationPattern string `yaml:"validation_pattern" json:"validation_pattern"`
	DefaultCode       string `yaml:"default_code" json:"default_code"`
}

// CodeDef declares one segment code with its validity window.
type CodeDef struct {
	SegmentID   string `yaml:"segment_id" json:"segment_id" validate:"required"`
	Value       string `yaml:"value" json:"value" validate:"required"`
	Description string `yaml:"description" json:"description"`
	Active      *bool  `yaml:"active" json:"active"`
	ValidFrom   string `yaml:"valid_from" json:"valid_from" validate:"required"`
	ValidTo     string `yaml:"valid_to" json:"valid_to"`
}

// NodeDef declares one hierarchy node. An empty code marks a pure
// grouping node.
type NodeDef struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	HierarchyID string `yaml:"hierarchy_id" json:"hierarchy_id"`
	SegmentID   string `yaml:"segment_id" json:"segment_id" validate:"required"`
	Code        string `yaml:"code" json:"code"`
	ParentID    string `yaml:"parent_id" json:"parent_id"`
}

// RuleDef declares one combination rule. Entry order in the file is the
// authored order and is preserved.
type RuleDef struct {
	ID       string     `yaml:"id" json:"id"`
	Name     string     `yaml:"name" json:"name"`
	Status   string     `yaml:"status" json:"status" validate:"omitempty,oneof=active inactive"`
	SegmentA string     `yaml:"segment_a" json:"segment_a" validate:"required"`
	SegmentB string     `yaml:"segment_b" json:"segment_b" validate:"required"`
	Entries  []EntryDef `yaml:"entries" json:"entries" validate:"min=1,dive"`
}

// EntryDef declares one mapping entry.
type EntryDef struct {
	ID       string       `yaml:"id" json:"id"`
	Behavior string       `yaml:"behavior" json:"behavior" validate:"required,oneof=include exclude"`
	A        CriterionDef `yaml:"a" json:"a"`
	B        CriterionDef `yaml:"b" json:"b"`
}

// CriterionDef declares one criterion; exactly one shape must be set.
type CriterionDef struct {
	Code  *string     `yaml:"code" json:"code"`
	Range *RangeDef   `yaml:"range" json:"range"`
	Node  *NodeRefDef `yaml:"node" json:"node"`
}

// RangeDef declares inclusive range bounds.
type RangeDef struct {
	Start string `yaml:"start" json:"start" validate:"required"`
	End   string `yaml:"end" json:"end" validate:"required"`
}

// NodeRefDef points a criterion at a hierarchy subtree.
type NodeRefDef struct {
	ID              string `yaml:"id" json:"id" validate:"required"`
	IncludeChildren bool   `yaml:"include_children" json:"include_children"`
}

// Loader parses and validates snapshot files.
type Loader struct {
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates a Loader. A nil logger disables load-time warnings.
func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Load reads and builds a snapshot from a file path.
func (l *Loader) Load(path string) (*catalog.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return l.Parse(data)
}

// Parse builds a snapshot from raw YAML or JSON bytes.
func (l *Loader) Parse(data []byte) (*catalog.Snapshot, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := l.validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("validate snapshot: %w", err)
	}

	version := file.Version
	if version == "" {
		version = uuid.New().String()
	}
	snap := catalog.NewSnapshot(version)
	if file.DefaultBehavior != "" {
		snap.SetDefaultBehavior(ruleengine.DefaultBehavior(file.DefaultBehavior))
	}

	patterns := make(map[string]*regexp.Regexp)
	for _, def := range file.Segments {
		seg := &ruleengine.Segment{
			ID:                def.ID,
			Name:              def.Name,
			Type:              def.Type,
			Active:            def.Active == nil || *def.Active,
			Core:              def.Core,
			Mandatory:         def.Mandatory,
			Separator:         def.Separator,
			ValidationPattern: def.ValidationPattern,
			DefaultCode:       def.DefaultCode,
		}
		if err := snap.AddSegment(seg); err != nil {
			return nil, err
		}
		if def.ValidationPattern != "" {
			re, err := regexp.Compile(def.ValidationPattern)
			if err != nil {
				l.logger.Warn("invalid segment validation pattern",
					zap.String("segment", def.ID),
					zap.Error(err))
				continue
			}
			patterns[def.ID] = re
		}
	}

	for _, def := range file.Codes {
		code, err := l.buildCode(def)
		if err != nil {
			return nil, err
		}
		if re, ok := patterns[def.SegmentID]; ok && !re.MatchString(def.Value) {
			l.logger.Warn("code does not match segment validation pattern",
				zap.String("segment", def.SegmentID),
				zap.String("code", def.Value))
		}
		if err := snap.AddCode(code); err != nil {
			return nil, err
		}
	}

	for _, def := range file.Hierarchy {
		node := &ruleengine.HierarchyNode{
			ID:          def.ID,
			HierarchyID: def.HierarchyID,
			SegmentID:   def.SegmentID,
			CodeValue:   def.Code,
			ParentID:    def.ParentID,
		}
		if err := snap.AddNode(node); err != nil {
			return nil, err
		}
	}

	for _, def := range file.Rules {
		rule, err := l.buildRule(def)
		if err != nil {
			return nil, err
		}
		if err := snap.AddRule(rule); err != nil {
			return nil, err
		}
	}

	l.logger.Info("snapshot loaded",
		zap.String("version", version),
		zap.Int("segments", snap.CountSegments()),
		zap.Int("codes", snap.CountCodes()),
		zap.Int("rules", snap.CountRules()))
	return snap, nil
}

func (l *Loader) buildCode(def CodeDef) (*ruleengine.SegmentCode, error) {
	from, err := time.Parse(dateLayout, def.ValidFrom)
	if err != nil {
		return nil, fmt.Errorf("code %s/%s: bad valid_from: %w", def.SegmentID, def.Value, err)
	}
	code := &ruleengine.SegmentCode{
		SegmentID:   def.SegmentID,
		Value:       def.Value,
		Description: def.Description,
		Active:      def.Active == nil || *def.Active,
		ValidFrom:   from,
	}
	if def.ValidTo != "" {
		to, err := time.Parse(dateLayout, def.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("code %s/%s: bad valid_to: %w", def.SegmentID, def.Value, err)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("code %s/%s: valid_to precedes valid_from", def.SegmentID, def.Value)
		}
		code.ValidTo = &to
	}
	return code, nil
}

func (l *Loader) buildRule(def RuleDef) (*ruleengine.CombinationRule, error) {
	rule := &ruleengine.CombinationRule{
		ID:         def.ID,
		Name:       def.Name,
		Status:     ruleengine.RuleStatusActive,
		SegmentAID: def.SegmentA,
		SegmentBID: def.SegmentB,
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if def.Status != "" {
		rule.Status = ruleengine.RuleStatus(def.Status)
	}

	for i, entryDef := range def.Entries {
		entry, err := l.buildEntry(entryDef)
		if err != nil {
			return nil, fmt.Errorf("rule %s entry %d: %w", rule.ID, i, err)
		}
		rule.Entries = append(rule.Entries, entry)
	}
	return rule, nil
}

func (l *Loader) buildEntry(def EntryDef) (ruleengine.MappingEntry, error) {
	entry := ruleengine.MappingEntry{
		ID:       def.ID,
		Behavior: ruleengine.EntryBehavior(def.Behavior),
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	a, err := buildCriterion(def.A)
	if err != nil {
		return ruleengine.MappingEntry{}, fmt.Errorf("segment A criterion: %w", err)
	}
	b, err := buildCriterion(def.B)
	if err != nil {
		return ruleengine.MappingEntry{}, fmt.Errorf("segment B criterion: %w", err)
	}
	entry.SegmentA = a
	entry.SegmentB = b
	return entry, nil
}

// buildCriterion enforces the tagged-variant rule: exactly one shape.
func buildCriterion(def CriterionDef) (ruleengine.Criterion, error) {
	set := 0
	if def.Code != nil {
		set++
	}
	if def.Range != nil {
		set++
	}
	if def.Node != nil {
		set++
	}
	if set != 1 {
		return ruleengine.Criterion{}, fmt.Errorf("exactly one of code, range or node must be set (got %d)", set)
	}

	switch {
	case def.Code != nil:
		return ruleengine.NewCodeCriterion(*def.Code)
	case def.Range != nil:
		return ruleengine.NewRangeCriterion(def.Range.Start, def.Range.End)
	default:
		return ruleengine.NewHierarchyCriterion(def.Node.ID, def.Node.IncludeChildren)
	}
}
