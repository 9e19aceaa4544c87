package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/koba/dbsync/internal/config"
	"github.com/koba/dbsync/internal/database"
	"github.com/koba/dbsync/internal/diff"
	"github.com/koba/dbsync/internal/generator"
	"github.com/koba/dbsync/internal/loader"
	"github.com/koba/dbsync/internal/logger"
	"github.com/koba/dbsync/internal/migration"
	"github.com/koba/dbsync/internal/schema"
	"github.com/koba/dbsync/internal/snapshot"
	"github.com/koba/dbsync/internal/tableparser"
)

var (
	configPath    string
	debug         bool
	schemaPaths   []string
	separateAlter bool
	noDropColumn  bool
	dryRun        bool
	snapshotPath  string
	tables        []string
	outputDir     string
	jsonOutput    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dbsync",
	Short: "Declarative schema reconciliation tool",
	Long:  `Compares declared table schemas with a live database and applies the DDL needed to converge them.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(os.Stderr, debug)
	},
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply declared schemas to the database",
	Long: `Create missing tables, alter existing ones and add missing foreign keys.
Schemas are processed in file name order, parents before children.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between the database and declared schemas",
	Args:  cobra.NoArgs,
	RunE:  runDiff,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <table>",
	Short: "Print the discovered schema of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [name]",
	Short: "Store the database catalog in a snapshot file",
	Long:  `Capture table metadata so diff can run later without a connection.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .dbsync.yaml in ., $HOME or $HOME/.config/dbsync)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	migrateCmd.Flags().StringSliceVar(&schemaPaths, "schema", nil, "Schema files or directories (default: schema_paths from config)")
	migrateCmd.Flags().BoolVar(&separateAlter, "separate-alter", false, "Issue one ALTER TABLE statement per column change")
	migrateCmd.Flags().BoolVar(&noDropColumn, "no-drop-column", false, "Never drop columns missing from the declared schema")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print statements instead of executing them")

	diffCmd.Flags().StringSliceVar(&schemaPaths, "schema", nil, "Schema files or directories (default: schema_paths from config)")
	diffCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Compare against a snapshot file instead of the live database")

	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the schema as JSON")

	snapshotCmd.Flags().StringSliceVar(&tables, "tables", nil, "Comma-separated list of tables to snapshot (default: all tables)")
	snapshotCmd.Flags().StringVar(&outputDir, "output-dir", "./snapshots", "Output directory for snapshots")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(afero.NewOsFs(), configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func connect(ctx context.Context, cfg *config.Config) (database.Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func loadSchemas(cfg *config.Config) (*loader.Loader, []*schema.Schema, *schema.Registry, error) {
	paths := schemaPaths
	if len(paths) == 0 {
		paths = cfg.SchemaPaths
	}

	l := loader.New(afero.NewOsFs())
	schemas, err := l.Load(paths...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load schemas: %w", err)
	}
	registry, err := schema.NewRegistry(schemas...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load schemas: %w", err)
	}
	return l, schemas, registry, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, schemas, registry, err := loadSchemas(cfg)
	if err != nil {
		return err
	}

	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	builder, err := generator.NewBuilder(db.Dialect(), generator.WithResolver(registry))
	if err != nil {
		return err
	}

	var exec migration.Executor = db
	if dryRun {
		fmt.Printf("-- Migration SQL for %s (%s)\n", cfg.Database.Database, db.Dialect())
		fmt.Printf("-- Generated at: %s\n\n", time.Now().Format(time.RFC3339))
		exec = migration.NewWriterExecutor(os.Stdout)
	}

	opts := migration.Options{
		SeparateAlter: separateAlter || cfg.SeparateAlter,
		NoDropColumn:  noDropColumn || cfg.NoDropColumn,
	}
	engine := migration.NewEngine(tableparser.New(db), builder, exec, registry, opts)

	report, err := engine.Run(ctx, schemas)
	if report != nil && !dryRun {
		printReport(report)
	}
	return err
}

func printReport(report *migration.Report) {
	for _, t := range report.Tables {
		switch t.Action {
		case migration.Created:
			color.Green("created  %s", t.Table)
		case migration.Altered:
			color.Yellow("altered  %s (%d statements)", t.Table, len(t.Statements))
		default:
			fmt.Printf("ok       %s\n", t.Table)
		}
	}
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, schemas, _, err := loadSchemas(cfg)
	if err != nil {
		return err
	}

	var catalog database.Catalog
	var dialect string
	source := "database " + cfg.Database.Database
	if snapshotPath != "" {
		snap, err := snapshot.Open(ctx, snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		catalog = snap
		dialect = snap.Dialect()
		source = "snapshot " + filepath.Base(snapshotPath)
	} else {
		db, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		catalog = db
		dialect = db.Dialect()
	}

	if dialect == "" {
		dialect = cfg.Database.Type
	}
	builder, err := generator.NewBuilder(dialect)
	if err != nil {
		return err
	}

	parser := tableparser.New(catalog)
	existing, err := parser.ListTables(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(existing))
	for _, t := range existing {
		present[t] = true
	}

	printer := diff.NewPrinter(os.Stdout, !color.NoColor)
	for _, s := range schemas {
		if !present[s.Table()] {
			printer.PrintNewTable(s, l.Source(s.ID()))
			continue
		}
		before, err := parser.ReverseTableSchema(ctx, s.Table())
		if err != nil {
			return err
		}
		printer.PrintTable(s.Table(), source, l.Source(s.ID()), diff.CompareWith(before, s, builder.CanonicalColumn))
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	table := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	parser := tableparser.New(db)
	s, err := parser.ReverseTableSchema(ctx, table)
	if err != nil {
		return err
	}
	refs, _, err := parser.QueryReferences(ctx, table)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"table":       s.Table(),
			"columns":     s.Columns(),
			"constraints": refs,
		})
	}

	fmt.Printf("Table: %s\n", s.Table())
	for _, col := range s.Columns() {
		line := fmt.Sprintf("  %-20s %s", col.Name, diff.ColumnAttrs(&col))
		if ref, ok := refs[col.Name]; ok && ref.Name != database.PrimaryConstraint {
			line += fmt.Sprintf(" -> %s.%s (%s)", ref.ReferencedTable, ref.ReferencedColumn, ref.Name)
		}
		fmt.Println(line)
	}
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Generate snapshot filename
	var filename string
	if len(args) > 0 {
		filename = args[0]
		if !strings.HasSuffix(filename, ".db") {
			filename += ".db"
		}
	} else {
		timestamp := time.Now().Format("2006-01-02-15-04-05")
		filename = fmt.Sprintf("%s-%s.db", filepath.Base(cfg.Database.Database), timestamp)
	}
	outputPath := filepath.Join(outputDir, filename)

	fmt.Printf("Creating snapshot: %s\n", outputPath)
	if err := snapshot.Create(ctx, db, tables, outputPath); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	fmt.Printf("Snapshot created successfully: %s\n", outputPath)
	return nil
}
