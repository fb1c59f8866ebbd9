// Package queryset loads named query templates from YAML or CUE files.
//
// A query set names a root template and the templates it may reference:
//
//	name: active_users
//	root: select * from :<active>: a
//	mode: cte
//	queries:
//	  active: select * from users where active = :on
//	params:
//	  on: 1
package queryset

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nestq/internal/nested"
	"github.com/roach88/nestq/internal/qerr"
	"github.com/roach88/nestq/internal/query"
)

// Resolution modes.
const (
	ModeCTE  = "cte"
	ModeTemp = "temp"
)

// Set is a root template with the named templates it references.
type Set struct {
	// Name identifies the set in output and errors.
	Name string `yaml:"name" json:"name"`

	// Root is the template to resolve.
	Root string `yaml:"root" json:"root"`

	// Queries maps a name to its template.
	Queries map[string]string `yaml:"queries" json:"queries"`

	// Mode is "cte" (default) or "temp".
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// MaxDepth bounds nesting. Zero means nested.DefaultMaxDepth.
	MaxDepth int `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`

	// QuoteChar quotes generated names and :|...|: markers. Default '"'.
	QuoteChar string `yaml:"quote_char,omitempty" json:"quote_char,omitempty"`

	// Params are bound to every placeholder of the resolved SQL.
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Load reads a query set from a .yaml, .yml or .cue file and validates it.
func Load(path string) (*Set, error) {
	s, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query set %s: %w", path, err)
	}
	return s, nil
}

// Read parses a query set without validating it.
func Read(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query set: %w", err)
	}

	var s *Set
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		s, err = parseYAML(data)
	case ".cue":
		s, err = parseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported query set extension %q (expected .yaml, .yml or .cue)", ext)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseYAML(data []byte) (*Set, error) {
	var s Set
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

func parseCUE(path string, data []byte) (*Set, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating CUE value: %w", err)
	}

	var s Set
	if err := v.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding CUE value: %w", err)
	}
	return &s, nil
}

// Validate checks required fields and rejects reference cycles.
func (s *Set) Validate() error {
	if s.Name == "" {
		return qerr.NewInvalidArgument("name", "is required")
	}
	if s.Root == "" {
		return qerr.NewInvalidArgument("root", "is required")
	}
	switch s.Mode {
	case "", ModeCTE, ModeTemp:
	default:
		return qerr.NewInvalidArgument("mode", fmt.Sprintf("must be %q or %q, got %q", ModeCTE, ModeTemp, s.Mode))
	}
	if s.MaxDepth < 0 {
		return qerr.NewInvalidArgument("max_depth", "must not be negative")
	}

	cycles, err := nested.Cycles(s.Queries)
	if err != nil {
		return err
	}
	if len(cycles) > 0 {
		return qerr.NewCycle(cycles[0].Path)
	}
	return nil
}

// ResolvedMode returns Mode, defaulting to ModeCTE.
func (s *Set) ResolvedMode() string {
	if s.Mode == "" {
		return ModeCTE
	}
	return s.Mode
}

// Options returns the resolver options the set configures.
func (s *Set) Options() []nested.Option {
	var opts []nested.Option
	if s.QuoteChar != "" {
		opts = append(opts, nested.WithQuoteChar(s.QuoteChar))
	}
	if s.MaxDepth > 0 {
		opts = append(opts, nested.WithMaxDepth(s.MaxDepth))
	}
	return opts
}

// Triples returns the root and named queries as triples. The set's params
// are attached to the root.
func (s *Set) Triples() (query.Triple, map[string]query.Triple) {
	params := query.NewParams()
	for _, k := range slices.Sorted(maps.Keys(s.Params)) {
		params.Set(k, s.Params[k])
	}
	root := query.New(s.Root).WithParams(params)

	queries := make(map[string]query.Triple, len(s.Queries))
	for name, sql := range s.Queries {
		queries[name] = query.New(sql)
	}
	return root, queries
}
