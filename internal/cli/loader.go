package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/nested"
	"github.com/roach88/nestq/internal/queryset"
)

// session is the state every command builds before doing its work.
type session struct {
	cfg       *Config
	formatter *OutputFormatter
}

func newSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	cfg, err := LoadConfig(opts.ConfigFile, cmd.Flags())
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	return &session{cfg: cfg, formatter: formatter}, nil
}

// loadSet reads and validates a query set, then applies configuration:
// an explicitly set flag overrides the file, and the file overrides
// environment and config file values.
func (s *session) loadSet(path string, cmd *cobra.Command) (*queryset.Set, error) {
	set, err := queryset.Read(path)
	if err != nil {
		return nil, s.formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load query set", err)
	}

	flags := cmd.Flags()
	if set.Mode == "" || flags.Changed("mode") {
		set.Mode = s.cfg.Mode
	}
	if set.MaxDepth == 0 || flags.Changed("max-depth") {
		set.MaxDepth = s.cfg.MaxDepth
	}
	if set.QuoteChar == "" || flags.Changed("quote-char") {
		set.QuoteChar = s.cfg.QuoteChar
	}

	if err := set.Validate(); err != nil {
		return nil, s.formatter.Fail(ExitFailure, ErrCodeGeneric, "invalid query set", err)
	}
	s.formatter.VerboseLog("Loaded query set %s (%d queries, mode %s)", set.Name, len(set.Queries), set.ResolvedMode())
	return set, nil
}

// resolver builds the resolver a query set asks for.
func (s *session) resolver(set *queryset.Set, opts *RootOptions) *nested.Resolver {
	ro := append(set.Options(), nested.WithLogger(opts.logger()))
	if opts.Namer != nil {
		ro = append(ro, nested.WithNamer(opts.Namer))
	}
	return nested.NewResolver(ro...)
}
