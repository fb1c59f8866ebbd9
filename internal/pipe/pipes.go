// Package pipe implements the pipe algebra: pure functions that rewrite a
// query triple by wrapping it as a derived table.
//
// Every pipe returns SELECT ... FROM (<input>) AS _q ..., so pipes compose
// without parsing SQL. Pipes never modify their input: parameters are
// cloned before new values are bound and the transform is replaced, not
// edited.
//
//	out, err := pipe.Concat(query.New("select * from users"),
//		pipe.Func(func(t query.Triple) (query.Triple, error) {
//			return p.FilterEquals(t, query.Pairs("active", true))
//		}),
//		pipe.Func(func(t query.Triple) (query.Triple, error) {
//			return p.OrderBy(t, []string{"name"}, nil)
//		}),
//	)
package pipe

import (
	"github.com/roach88/nestq/internal/bind"
	"github.com/roach88/nestq/internal/query"
)

// Pipes holds the binder the pipes bind values and quote identifiers with.
type Pipes struct {
	binder *bind.Binder
}

// New creates the pipe set for binder.
func New(binder *bind.Binder) *Pipes {
	return &Pipes{binder: binder}
}

// Binder returns the binder.
func (p *Pipes) Binder() *bind.Binder {
	return p.binder
}

type options struct {
	op      string
	quote   *bool
	cteName string
}

// Option adjusts a single pipe call.
type Option func(*options)

// Op overrides the comparison or set operator of a pipe.
func Op(op string) Option {
	return func(o *options) { o.op = op }
}

// Quote forces identifier quoting on or off.
func Quote(quote bool) Option {
	return func(o *options) { o.quote = &quote }
}

// CTEName names the CTE that Any and All wrap their input in.
func CTEName(name string) Option {
	return func(o *options) { o.cteName = name }
}

func collect(defaultOp string, defaultQuote bool, opts []Option) options {
	o := options{op: defaultOp}
	for _, opt := range opts {
		opt(&o)
	}
	if o.quote == nil {
		o.quote = &defaultQuote
	}
	return o
}

func (o options) quoted() bool {
	return *o.quote
}

func split(t query.Triple) query.Triple {
	if t.Params == nil {
		t.Params = query.NewParams()
	}
	return t
}

func wrapped(sql string) string {
	return "(" + sql + ") AS _q"
}
