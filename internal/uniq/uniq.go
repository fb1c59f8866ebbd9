// Package uniq generates the synthetic names used for CTE aliases, temp
// tables, derived-table aliases and placeholder ids.
//
// A name is a prefix, a value from a monotonically increasing Counter and a
// process-unique suffix derived from a UUID. Generators are explicit values:
// tests inject deterministic ones and independent pipelines may use their own.
package uniq

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Counter is a monotonic sequence.
//
// Thread-safety: Counter is safe for concurrent use (atomic operations).
type Counter struct {
	seq atomic.Int64
}

// NewCounter creates a counter whose first Next returns 1.
func NewCounter() *Counter {
	return &Counter{}
}

// NewCounterAt creates a counter whose first Next returns start+1.
func NewCounterAt(start int64) *Counter {
	c := &Counter{}
	c.seq.Store(start)
	return c
}

// Next returns the next value and increments the counter.
func (c *Counter) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Counter) Current() int64 {
	return c.seq.Load()
}

var processSuffix = strings.ReplaceAll(uuid.NewString(), "-", "_")

// ProcessSuffix returns the suffix shared by all default generators of this
// process. It is a UUID with '-' replaced by '_' so it is a valid identifier tail.
func ProcessSuffix() string {
	return processSuffix
}

// Namer produces unique names of the form prefix_<n>_<suffix>.
type Namer struct {
	counter *Counter
	suffix  string
	sep     string
}

// NewNamer creates a namer over counter. An empty suffix is omitted from names.
func NewNamer(counter *Counter, suffix string) *Namer {
	if counter == nil {
		counter = NewCounter()
	}
	return &Namer{counter: counter, suffix: suffix, sep: "_"}
}

var defaultNamer = NewNamer(NewCounter(), processSuffix)

// Default returns the process-wide namer. Its counter is shared, so names
// never collide between resolutions running in the same process.
func Default() *Namer {
	return defaultNamer
}

// Next returns a fresh name for prefix.
func (n *Namer) Next(prefix string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString(n.sep)
	}
	b.WriteString(strconv.FormatInt(n.counter.Next(), 10))
	if n.suffix != "" {
		b.WriteString(n.sep)
		b.WriteString(n.suffix)
	}
	return b.String()
}

// ID returns the next bare counter value as a string.
// Used for derived-table aliases such as _q_<id>.
func (n *Namer) ID() string {
	return strconv.FormatInt(n.counter.Next(), 10)
}

// Suffix returns the suffix appended to names.
func (n *Namer) Suffix() string {
	return n.suffix
}
