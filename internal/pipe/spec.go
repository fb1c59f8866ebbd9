package pipe

import (
	"fmt"

	"github.com/roach88/nestq/internal/qerr"
	"github.com/roach88/nestq/internal/query"
)

// Pipe rewrites one triple into another.
type Pipe func(query.Triple) (query.Triple, error)

// Args are the named arguments of a Bound pipe.
type Args map[string]any

// BoundFunc is a pipe that takes its arguments at application time.
type BoundFunc func(query.Triple, Args) (query.Triple, error)

// Spec is a pipe invocation. It is one of Call, Bound, Literal or Chain.
type Spec interface {
	isSpec()
}

// Call applies Fn to the input triple.
type Call struct {
	Fn Pipe
}

// Bound applies Fn to the input triple with Args.
type Bound struct {
	Fn   BoundFunc
	Args Args
}

// Literal ignores the input and yields an already resolved triple.
type Literal struct {
	Triple query.Triple
}

// Chain applies each spec in order, feeding each output to the next.
type Chain []Spec

func (Call) isSpec()    {}
func (Bound) isSpec()   {}
func (Literal) isSpec() {}
func (Chain) isSpec()   {}

// Func wraps fn as a Spec.
func Func(fn Pipe) Spec {
	return Call{Fn: fn}
}

// Apply resolves s against t.
func Apply(t query.Triple, s Spec) (query.Triple, error) {
	switch s := s.(type) {
	case Call:
		if s.Fn == nil {
			return query.Triple{}, qerr.NewPipeComposition("call spec has no function")
		}
		return s.Fn(t)
	case Bound:
		if s.Fn == nil {
			return query.Triple{}, qerr.NewPipeComposition("bound spec has no function")
		}
		return s.Fn(t, s.Args)
	case Literal:
		return query.Split(s.Triple)
	case Chain:
		var err error
		for i, sub := range s {
			if t, err = Apply(t, sub); err != nil {
				return query.Triple{}, fmt.Errorf("chain step %d: %w", i, err)
			}
		}
		return t, nil
	case nil:
		return query.Triple{}, qerr.NewPipeComposition("nil pipe spec")
	default:
		return query.Triple{}, qerr.NewPipeComposition(fmt.Sprintf("unsupported pipe spec %T", s))
	}
}

// Concat folds t through specs in order.
func Concat(t query.Triple, specs ...Spec) (query.Triple, error) {
	t, err := query.Split(t)
	if err != nil {
		return query.Triple{}, err
	}
	return Apply(t, Chain(specs))
}
