// Command coa-rules evaluates chart-of-accounts combination rules from
// the command line and serves them over HTTP for the configuration
// portal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gocoa/ruleengine/catalog"
	"github.com/gocoa/ruleengine/engine"
	"github.com/gocoa/ruleengine/loader"
	"github.com/gocoa/ruleengine/service"
	"github.com/gocoa/ruleengine/store"
)

const dateLayout = "2006-01-02"

var (
	snapshotPath string
	dbPath       string
	logLevel     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coa-rules",
		Short: "Combination rule evaluation for chart-of-accounts coding",
	}

	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "", "rule-set snapshot file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite snapshot database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(effectiveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds a zap logger for the CLI and HTTP layers. The engine
// itself never logs; it reports through warnings on results.
func newLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	config := zap.NewProductionConfig()
	config.Level = level
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}

// openSource opens the configured snapshot source: a YAML/JSON file or
// a SQLite database. The returned close function may be nil.
func openSource(logger *zap.Logger) (service.SnapshotSource, func() error, error) {
	switch {
	case snapshotPath != "":
		snap, err := loader.New(logger).Load(snapshotPath)
		if err != nil {
			return nil, nil, err
		}
		return snap, nil, nil
	case dbPath != "":
		db, err := store.Open(dbPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("either --snapshot or --db is required")
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

func evaluateCmd() *cobra.Command {
	var (
		date     string
		segmentA string
		codeA    string
		segmentB string
		codeB    string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Decide whether a segment-code pairing is permitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			source, closeFn, err := openSource(logger)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}

			on, err := parseDate(date)
			if err != nil {
				return err
			}

			ev := engine.New(source, source, source)
			exp := ev.Explain(context.Background(), engine.Request{
				Date:       on,
				SegmentAID: segmentA, CodeA: codeA,
				SegmentBID: segmentB, CodeB: codeB,
			})

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(exp)
			}
			fmt.Printf("%s: %s\n", exp.Decision, exp.Reason)
			for _, w := range exp.Warnings {
				fmt.Printf("  %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "evaluation date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&segmentA, "segment-a", "", "segment A id")
	cmd.Flags().StringVar(&codeA, "code-a", "", "segment A code value")
	cmd.Flags().StringVar(&segmentB, "segment-b", "", "segment B id")
	cmd.Flags().StringVar(&codeB, "code-b", "", "segment B code value")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	cmd.MarkFlagRequired("segment-a")
	cmd.MarkFlagRequired("code-a")
	cmd.MarkFlagRequired("segment-b")
	cmd.MarkFlagRequired("code-b")
	return cmd
}

func effectiveCmd() *cobra.Command {
	var (
		date   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "effective",
		Short: "List currently-effective Include entries across active rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			source, closeFn, err := openSource(logger)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}

			on, err := parseDate(date)
			if err != nil {
				return err
			}

			ev := engine.New(source, source, source)
			entries := ev.ProjectEffectiveEntries(context.Background(), on)

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}
			for _, e := range entries {
				fmt.Printf("%-24s %s=%s  %s=%s  %s\n",
					e.RuleName, e.SegmentAID, e.CriterionA, e.SegmentBID, e.CriterionB, e.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "target date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

// importCmd loads a snapshot file into a SQLite database so the portal
// can serve from it.
func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a snapshot file into a SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshotPath == "" || dbPath == "" {
				return fmt.Errorf("import requires both --snapshot and --db")
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			snap, err := loader.New(logger).Load(snapshotPath)
			if err != nil {
				return err
			}
			db, err := store.Open(dbPath, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := importSnapshot(snap, db); err != nil {
				return err
			}
			logger.Info("snapshot imported",
				zap.String("db", dbPath),
				zap.Int("rules", snap.CountRules()))
			return nil
		},
	}
	return cmd
}

func importSnapshot(snap *catalog.Snapshot, db *store.SQLite) error {
	if err := db.SetVersion(snap.Version()); err != nil {
		return err
	}
	if err := db.SetDefaultBehavior(snap.DefaultBehavior()); err != nil {
		return err
	}
	for _, seg := range snap.Segments() {
		if err := db.PutSegment(seg); err != nil {
			return err
		}
	}
	for _, code := range snap.Codes() {
		if err := db.PutCode(code); err != nil {
			return err
		}
	}
	for _, node := range snap.Nodes() {
		if err := db.PutNode(node); err != nil {
			return err
		}
	}
	for i, rule := range snap.Rules() {
		if err := db.PutRule(rule, i); err != nil {
			return err
		}
	}
	return nil
}
