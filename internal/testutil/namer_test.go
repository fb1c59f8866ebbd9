package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/nestq/internal/bind"
	"github.com/roach88/nestq/internal/query"
)

func TestNewNamer_StartsAtZero(t *testing.T) {
	n := NewNamer()
	assert.Equal(t, "q_0", n.Next("q"))
	assert.Equal(t, "q_1", n.Next("q"))
}

// TestNewNamer_Independent tests that sequences do not share state.
func TestNewNamer_Independent(t *testing.T) {
	a := NewNamer()
	b := NewNamer()
	a.Next("x")

	assert.Equal(t, "x_0", b.Next("x"))
}

func TestNewBinder_Deterministic(t *testing.T) {
	b := NewBinder(bind.SQLite)
	assert.Equal(t, ":v_0", b.Bind(query.NewParams(), 1, "v"))
}

func TestStripSpace(t *testing.T) {
	assert.Equal(t, "select*from`t`", StripSpace("select *\n\tfrom `t` "))
}
