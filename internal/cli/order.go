package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// OrderNode is one entry of the order command's output.
type OrderNode struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Sign     string   `json:"sign,omitempty"`
	Depth    int      `json:"depth"`
	Children []string `json:"children"`
}

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	*RootOptions
	MaxDepth int
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "order <query-set>",
		Short: "Print the dependency graph of a query set, deepest first",
		Long: `Print every query the root of a query set reaches, with its depth
(longest distance from the root) and the references it makes.

Queries are listed in build order: each one after everything it reads.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "maximum nesting depth, overrides the query set")
	return cmd
}

func runOrder(opts *OrderOptions, path string, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	set, err := s.loadSet(path, cmd)
	if err != nil {
		return err
	}

	g, err := s.resolver(set, opts.RootOptions).Order(set.Root, set.Queries)
	if err != nil {
		return s.formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to order query set", err)
	}

	nodes := []OrderNode{}
	for _, n := range g.Sorted() {
		nodes = append(nodes, OrderNode{
			Key:      n.Key,
			Name:     n.Name,
			Sign:     n.Sign.String(),
			Depth:    n.Depth,
			Children: append([]string{}, n.Children...),
		})
	}

	f := s.formatter
	if f.Format == "json" {
		return f.Success(nodes)
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tDEPTH\tCHILDREN")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", n.Key, n.Depth, strings.Join(n.Children, ", "))
	}
	fmt.Fprintf(tw, "<root>\t0\t%s\n", strings.Join(g.RootChildren(), ", "))
	return tw.Flush()
}
