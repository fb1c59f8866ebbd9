package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/queryset"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Mode      string
	MaxDepth  int
	QuoteChar string
}

// ResolveResult is the JSON payload of the resolve command. CTE mode fills
// SQL; temp mode fills Open, Load and Close.
type ResolveResult struct {
	Name   string   `json:"name"`
	Mode   string   `json:"mode"`
	SQL    string   `json:"sql,omitempty"`
	Open   []string `json:"open,omitempty"`
	Load   string   `json:"load,omitempty"`
	Close  []string `json:"close,omitempty"`
	Params []string `json:"params,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <query-set>",
		Short: "Print the SQL a query set resolves to",
		Long: `Resolve the root template of a query set into executable SQL.

In cte mode the output is a single WITH statement. In temp mode it is the
CREATE TEMP TABLE statements to run first, the load query, and the DROP
statements to run after the rows have been read.

Example:
  nestq resolve ./report.yaml
  nestq resolve --mode temp --format json ./report.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	addResolutionFlags(cmd, &opts.Mode, &opts.MaxDepth, &opts.QuoteChar)
	return cmd
}

// addResolutionFlags registers the flags that override query set settings.
func addResolutionFlags(cmd *cobra.Command, mode *string, maxDepth *int, quoteChar *string) {
	cmd.Flags().StringVar(mode, "mode", "", "resolution mode (cte|temp), overrides the query set")
	cmd.Flags().IntVar(maxDepth, "max-depth", 0, "maximum nesting depth, overrides the query set")
	cmd.Flags().StringVar(quoteChar, "quote-char", "", "identifier quote character, overrides the query set")
}

func runResolve(opts *ResolveOptions, path string, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	set, err := s.loadSet(path, cmd)
	if err != nil {
		return err
	}

	result, err := resolveSet(s, set, opts.RootOptions)
	if err != nil {
		return err
	}

	f := s.formatter
	if f.Format == "json" {
		return f.Success(result)
	}
	if result.Mode == queryset.ModeCTE {
		fmt.Fprintln(f.Writer, result.SQL)
		return nil
	}
	f.Header("open")
	for _, stmt := range result.Open {
		fmt.Fprintln(f.Writer, stmt+";")
	}
	f.Header("load")
	fmt.Fprintln(f.Writer, result.Load+";")
	f.Header("close")
	for _, stmt := range result.Close {
		fmt.Fprintln(f.Writer, stmt+";")
	}
	return nil
}

func resolveSet(s *session, set *queryset.Set, opts *RootOptions) (*ResolveResult, error) {
	r := s.resolver(set, opts)
	root, queries := set.Triples()
	result := &ResolveResult{Name: set.Name, Mode: set.ResolvedMode()}

	if result.Mode == queryset.ModeTemp {
		tt, err := r.BuildTempTriple(root, queries)
		if err != nil {
			return nil, s.formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to resolve query set", err)
		}
		result.Open, result.Load, result.Close = tt.Queries.Open, tt.Queries.Load, tt.Queries.Close
		result.Params = tt.Params.Keys()
		return result, nil
	}

	t, err := r.BuildCTETriple(root, queries)
	if err != nil {
		return nil, s.formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to resolve query set", err)
	}
	result.SQL = t.SQL
	result.Params = t.Params.Keys()
	return result, nil
}
