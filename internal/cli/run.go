package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/exec"
	"github.com/roach88/nestq/internal/queryset"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Dialect   string
	Mode      string
	MaxDepth  int
	QuoteChar string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name    string           `json:"name"`
	Mode    string           `json:"mode"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query-set>",
		Short: "Resolve a query set and execute it",
		Long: `Resolve a query set and execute it against a database, printing the rows.

The database is a SQLite path (dialect sqlite, the default) or a Postgres
connection string (dialect postgres). It can also come from NESTQ_DB or the
db key of the config file.

Example:
  nestq run --db ./app.db ./report.yaml
  nestq run --dialect postgres --db postgres://localhost/app --mode temp ./report.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuerySet(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database path or connection string")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "database dialect (sqlite|postgres)")
	addResolutionFlags(cmd, &opts.Mode, &opts.MaxDepth, &opts.QuoteChar)
	return cmd
}

func runQuerySet(opts *RunOptions, path string, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if s.cfg.DB == "" {
		return s.formatter.Fail(ExitCommandError, ErrCodeDatabase, "no database", fmt.Errorf("set --db, NESTQ_DB or db in the config file"))
	}
	set, err := s.loadSet(path, cmd)
	if err != nil {
		return err
	}

	logger := opts.logger()
	dialect := s.cfg.DialectPreset()
	logger.Info("opening database", "dialect", dialect.Name, "db", s.cfg.DB)
	db, err := exec.Open(dialect, s.cfg.DB)
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := exec.NewRunner(db, dialect, logger)
	r := s.resolver(set, opts.RootOptions)
	root, queries := set.Triples()

	var res *exec.Result
	switch set.ResolvedMode() {
	case queryset.ModeTemp:
		tt, terr := r.BuildTempTriple(root, queries)
		if terr != nil {
			return s.formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to resolve query set", terr)
		}
		res, err = runner.RunTemp(ctx, tt)
	default:
		res, err = runner.RunCTE(ctx, r, root, queries)
	}
	if err != nil {
		return s.formatter.Fail(ExitFailure, ErrCodeDatabase, "failed to run query set", err)
	}

	return outputRows(s.formatter, set, res)
}

func outputRows(f *OutputFormatter, set *queryset.Set, res *exec.Result) error {
	if f.Format == "json" {
		rows := make([]map[string]any, len(res.Rows))
		for i, r := range res.Rows {
			rows[i] = r
		}
		return f.Success(RunResult{Name: set.Name, Mode: set.ResolvedMode(), Columns: res.Columns, Rows: rows})
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	for i, c := range res.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, row := range res.Rows {
		for i, c := range res.Columns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, formatValue(row[c]))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(f.Writer, "(%d rows)\n", len(res.Rows))
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
