package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clierr "github.com/chriso345/strut/errors"
)

func synthesizeFor(t *testing.T, target any) *CommandSpec {
	t.Helper()
	tree := buildTree(t, target)
	spec, err := Synthesize(tree, "app")
	require.NoError(t, err)
	return spec
}

func TestTokenize_FlagForms(t *testing.T) {
	args := struct {
		Name string
		Port int `short:"p" default:"80"`
	}{}
	spec := synthesizeFor(t, &args)

	tests := []struct {
		name string
		argv []string
		want map[string][]string
	}{
		{"separate value", []string{"--name", "a"}, map[string][]string{"name": {"a"}}},
		{"inline value", []string{"--name=a"}, map[string][]string{"name": {"a"}}},
		{"short flag", []string{"--name", "a", "-p", "90"}, map[string][]string{"name": {"a"}, "port": {"90"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Tokenize(spec, tc.argv)
			require.NoError(t, err)
			assert.Equal(t, tc.want, b.Values)
		})
	}
}

func TestTokenize_VariableArityStopsAtFlag(t *testing.T) {
	args := struct {
		Seeds []int
		Name  string `default:"n"`
	}{}
	spec := synthesizeFor(t, &args)

	b, err := Tokenize(spec, []string{"--seeds", "1", "2", "--name", "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, b.Values["seeds"])
	assert.Equal(t, []string{"x"}, b.Values["name"])
}

func TestTokenize_EmptyVariableArity(t *testing.T) {
	args := struct {
		Seeds []int
	}{}
	spec := synthesizeFor(t, &args)

	b, err := Tokenize(spec, []string{"--seeds"})
	require.NoError(t, err)
	vals, ok := b.Values["seeds"]
	assert.True(t, ok, "an explicitly passed flag binds even with zero tokens")
	assert.Empty(t, vals)
}

func TestTokenize_FixedArityShortfall(t *testing.T) {
	args := struct {
		Window [3]int
	}{}
	spec := synthesizeFor(t, &args)

	_, err := Tokenize(spec, []string{"--window", "1", "2"})
	var arity clierr.ArityError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, 3, arity.Want)
	assert.Equal(t, 2, arity.Got)
}

func TestTokenize_PositionalOrder(t *testing.T) {
	args := struct {
		Src string `strut:"positional"`
		Dst string `strut:"positional"`
	}{}
	spec := synthesizeFor(t, &args)

	b, err := Tokenize(spec, []string{"a.txt", "b.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, b.Values["src"])
	assert.Equal(t, []string{"b.txt"}, b.Values["dst"])
}

func TestTokenize_UnexpectedPositional(t *testing.T) {
	args := struct {
		Name string `default:"x"`
	}{}
	spec := synthesizeFor(t, &args)

	_, err := Tokenize(spec, []string{"stray"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected argument")
}

func TestTokenize_SubcommandRest(t *testing.T) {
	args := struct {
		Cmd gitCmd
	}{}
	scope := mustScope(t)
	tree, err := NewBuilder(gitRegistries(t).Resolver(), scope).Build(&args)
	require.NoError(t, err)
	spec, err := Synthesize(tree, "app")
	require.NoError(t, err)

	b, err := Tokenize(spec, []string{"commit-cmd", "--cmd.message", "wip"})
	require.NoError(t, err)
	assert.Equal(t, "commit-cmd", b.Selected["cmd"])
	assert.Equal(t, []string{"wip"}, b.Values["cmd.message"])
}

func TestClosestMatch(t *testing.T) {
	candidates := []string{"commit", "checkout", "status"}

	tests := []struct {
		in   string
		want string
	}{
		{"comit", "commit"},
		{"comimt", "commit"},
		{"stauts", "status"},
		{"chekout", "checkout"},
		{"com", "commit"},
		{"zzzzzz", ""},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, closestMatch(tc.in, candidates), "input %q", tc.in)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, levenshtein(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestIsTransposition(t *testing.T) {
	assert.True(t, isTransposition("comimt", "commit"))
	assert.False(t, isTransposition("commit", "commit"))
	assert.False(t, isTransposition("comit", "commit"))
}

func TestLooksLikeFlag(t *testing.T) {
	assert.True(t, looksLikeFlag("--name"))
	assert.True(t, looksLikeFlag("-n"))
	assert.False(t, looksLikeFlag("--"))
	assert.False(t, looksLikeFlag("-3"))
	assert.False(t, looksLikeFlag("-1.5"))
	assert.False(t, looksLikeFlag("value"))
}
