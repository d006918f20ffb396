package errors

import (
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"parse", NewParseError("bad input"), "bad input"},
		{"missing", NewMissingArg("optimizer.lr"), "missing required argument: optimizer.lr"},
		{"unknown flag", NewUnknownFlag("--nmae"), "unknown flag: --nmae"},
		{"unknown subcommand", NewUnknownSubcommand("comit", "commit"), `unknown subcommand: comit (did you mean "commit"?)`},
		{"unknown subcommand no suggestion", NewUnknownSubcommand("zzz", ""), "unknown subcommand: zzz"},
		{"arity", NewArity("window", 2, 1), "argument window: expected 2 value(s), got 1"},
		{"unsupported", NewUnsupportedType("x", "chan int", "channels cannot be parsed"), "unsupported type at x: chan int (channels cannot be parsed)"},
		{"unsupported at root", NewUnsupportedType("", "chan int", ""), "unsupported type at (root): chan int"},
		{"marker conflict", NewMarkerConflict("x", "Suppress", "Positional"), "conflicting markers at x: Suppress and Positional"},
		{"cycle", NewCycle("root.next", "recNode"), "recursive type at root.next: recNode refers to itself"},
		{"instantiation", NewInstantiation("db", fmt.Errorf("boom")), "constructing db: boom"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestParseValueError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("strconv failure")
	err := NewParseValue("port", "eighty", cause)
	assert.Equal(t, `argument port: invalid value "eighty": strconv failure`, err.Error())
	assert.True(t, stderrs.Is(err, cause))
}

func TestInstantiationError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("lo exceeds hi")
	err := NewInstantiation("ports", cause)
	assert.True(t, stderrs.Is(err, cause))
}
