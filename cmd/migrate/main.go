// Command migrate manages the feedline schema.
//
//	migrate up                 apply pending SQL migrations
//	migrate auto               run GORM automigrate against the models
//	migrate status [-json]     list every migration with its state
//	migrate down [-steps N]    revert the newest N applied migrations
//	migrate down -version V    revert one specific migration
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"text/tabwriter"

	"feedline/internal/config"
	"feedline/internal/database"
	"feedline/internal/middleware"

	"gorm.io/gorm"
)

const usageText = "usage: migrate <up|auto|status|down> [flags]"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	middleware.Logger = middleware.NewLogger(cfg.Env)

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		middleware.Logger.Error("connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(context.Background(), db, cfg, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		middleware.Logger.Error("migrate failed", slog.String("command", os.Args[1]), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, db *gorm.DB, cfg *config.Config, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return err
		}
		middleware.Logger.Info("sql migrations applied", slog.Int("registered", len(database.GetMigrations())))
		return nil

	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return err
		}
		middleware.Logger.Info("automigrate applied")
		return nil

	case "status":
		fs := flag.NewFlagSet("status", flag.ContinueOnError)
		asJSON := fs.Bool("json", false, "Print machine readable output")
		if err := fs.Parse(args); err != nil {
			return err
		}
		policy, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return err
		}
		applied, err := database.NewMigrationStore(db).GetAppliedMigrations(ctx)
		if err != nil {
			return err
		}
		report := statusReport{
			Mode:        policy.Mode,
			Environment: policy.Environment,
			RunSQL:      policy.WillRunSQL,
			RunAuto:     policy.WillRunAutoMigrate,
			Migrations:  migrationRows(database.GetMigrations(), applied),
		}
		if *asJSON {
			return json.NewEncoder(out).Encode(report)
		}
		return writeTable(out, report)

	case "down":
		fs := flag.NewFlagSet("down", flag.ContinueOnError)
		steps := fs.Int("steps", 1, "Number of newest applied migrations to revert")
		version := fs.Int("version", 0, "Revert exactly this migration version")
		if err := fs.Parse(args); err != nil {
			return err
		}
		targets := []int{*version}
		if *version == 0 {
			applied, err := database.NewMigrationStore(db).GetAppliedMigrations(ctx)
			if err != nil {
				return err
			}
			targets = rollbackTargets(applied, *steps)
			if len(targets) == 0 {
				middleware.Logger.Info("nothing to roll back")
				return nil
			}
		}
		for _, v := range targets {
			if err := database.RollbackMigration(ctx, db, v); err != nil {
				return fmt.Errorf("rollback %d: %w", v, err)
			}
			middleware.Logger.Info("rolled back migration", slog.Int("version", v))
		}
		return nil
	}
	return errors.New(usageText)
}

// statusReport is what `migrate status` prints.
type statusReport struct {
	Mode        string         `json:"mode"`
	Environment string         `json:"environment"`
	RunSQL      bool           `json:"run_sql"`
	RunAuto     bool           `json:"run_automigrate"`
	Migrations  []migrationRow `json:"migrations"`
}

// migrationRow is one line of status output.
type migrationRow struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

func migrationRows(registered []database.Migration, applied []int) []migrationRow {
	rows := make([]migrationRow, 0, len(registered))
	for _, m := range registered {
		rows = append(rows, migrationRow{
			Version: m.Version,
			Name:    m.Name,
			Applied: slices.Contains(applied, m.Version),
		})
	}
	return rows
}

func writeTable(out io.Writer, report statusReport) error {
	fmt.Fprintf(out, "schema mode %s (env %s, sql=%t, automigrate=%t)\n\n",
		report.Mode, report.Environment, report.RunSQL, report.RunAuto)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATE")
	for _, r := range report.Migrations {
		state := "pending"
		if r.Applied {
			state = "applied"
		}
		fmt.Fprintf(tw, "%06d\t%s\t%s\n", r.Version, r.Name, state)
	}
	return tw.Flush()
}

// rollbackTargets picks the newest steps versions from applied, newest first.
func rollbackTargets(applied []int, steps int) []int {
	if steps <= 0 || len(applied) == 0 {
		return nil
	}
	sorted := slices.Clone(applied)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	if steps > len(sorted) {
		steps = len(sorted)
	}
	return sorted[:steps]
}
