package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq/internal/nested"
	"github.com/roach88/nestq/internal/qerr"
	"github.com/roach88/nestq/internal/queryset"
)

// ValidationError is one problem found in a query set.
type ValidationError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Name    string   `json:"name,omitempty"`
	Path    []string `json:"path,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query-set>",
		Short: "Check a query set without resolving it",
		Long: `Check a query set for missing fields, malformed markers, references
to unknown queries and reference cycles.

Unlike resolve, which stops at the first problem, validate reports every
cycle in the set, including among queries the root never reaches.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	s, err := newSession(opts, cmd)
	if err != nil {
		return err
	}
	f := s.formatter

	set, err := queryset.Read(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load query set", err)
	}
	f.VerboseLog("Validating query set %s (%d queries)", set.Name, len(set.Queries))

	errs := validateSet(set)
	if len(errs) > 0 {
		return outputValidationErrors(f, errs)
	}

	if f.Format == "json" {
		return f.Success(ValidationResult{Valid: true})
	}
	f.OK("Query set %s is valid", set.Name)
	return nil
}

// validateSet collects every cycle, then the first structural problem.
func validateSet(set *queryset.Set) []ValidationError {
	var errs []ValidationError

	cycles, err := nested.Cycles(set.Queries)
	if err != nil {
		return []ValidationError{toValidationError(err)}
	}
	for _, c := range cycles {
		errs = append(errs, ValidationError{
			Code:    string(qerr.CodeCycleDetected),
			Message: c.Message,
			Name:    c.Path[0],
			Path:    c.Path,
		})
	}
	if len(errs) > 0 {
		return errs
	}

	if err := set.Validate(); err != nil {
		return []ValidationError{toValidationError(err)}
	}
	if _, err := nested.Order(set.Root, set.Queries, set.MaxDepth); err != nil {
		return []ValidationError{toValidationError(err)}
	}
	return nil
}

func toValidationError(err error) ValidationError {
	var qe *qerr.Error
	if errors.As(err, &qe) {
		return ValidationError{Code: string(qe.Code), Message: qe.Message, Name: qe.Name, Path: qe.Path}
	}
	return ValidationError{Code: ErrCodeGeneric, Message: err.Error()}
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(f *OutputFormatter, errs []ValidationError) error {
	if f.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(f.Writer, errorColor.Sprint("✗ Validation failed"))
	fmt.Fprintln(f.Writer)
	for _, err := range errs {
		fmt.Fprintf(f.Writer, "  %s: %s", err.Code, err.Message)
		if err.Name != "" {
			fmt.Fprintf(f.Writer, " (%s)", err.Name)
		}
		fmt.Fprintln(f.Writer)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
