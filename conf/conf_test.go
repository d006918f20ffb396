package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clierr "github.com/chriso345/strut/errors"
)

func TestSet_With(t *testing.T) {
	s, err := Set{}.With(Suppress, Name("file"), HelpText("the input"))
	require.NoError(t, err)
	assert.True(t, s.Suppressed())
	assert.Equal(t, "file", s.Name())
	assert.Equal(t, "the input", s.Help())
	assert.False(t, s.IsFixed())
}

func TestSet_ConflictPairs(t *testing.T) {
	tests := []struct {
		name string
		ms   []Marker
	}{
		{"suppress and positional", []Marker{Suppress, Positional}},
		{"fixed and positional", []Marker{Fixed, Positional}},
		{"suppress and positional-required", []Marker{Suppress, PositionalRequired}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Set{}.With(tc.ms...)
			var conflict clierr.MarkerConflictError
			require.ErrorAs(t, err, &conflict)
		})
	}
}

func TestSet_DuplicateNameConflicts(t *testing.T) {
	_, err := Set{}.With(Name("a"), Name("b"))
	var conflict clierr.MarkerConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestSet_SameMarkerTwiceIsFine(t *testing.T) {
	s, err := Set{}.With(Suppress, Suppress)
	require.NoError(t, err)
	assert.True(t, s.Suppressed())
}

func TestSet_Merge(t *testing.T) {
	a, err := Set{}.With(Suppress)
	require.NoError(t, err)
	b, err := Set{}.With(FixDefaulted, Name("x"))
	require.NoError(t, err)

	m, err := a.Merge(b)
	require.NoError(t, err)
	assert.True(t, m.Suppressed())
	assert.True(t, m.FixesDefaulted())
	assert.Equal(t, "x", m.Name())
}

func TestSet_InheritedDropsPerFieldBits(t *testing.T) {
	s, err := Set{}.With(Suppress, Fixed, Positional, FixDefaulted, OmitPrefixes)
	require.NoError(t, err)

	inherited := s.Inherited()
	assert.False(t, inherited.Suppressed())
	assert.False(t, inherited.IsFixed())
	assert.False(t, inherited.IsPositional())
	assert.True(t, inherited.FixesDefaulted(), "policy bits propagate")
}

func TestSet_Fingerprint(t *testing.T) {
	a, err := Set{}.With(Suppress, Choices("x", "y"))
	require.NoError(t, err)
	b, err := Set{}.With(Choices("x", "y"), Suppress)
	require.NoError(t, err)
	c, err := Set{}.With(Suppress)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "order-insensitive")
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestScope_AtPath(t *testing.T) {
	sc, err := NewScope(FixDefaulted, At("optimizer.lr", Suppress), Prog("train"), Version("1.2.3"))
	require.NoError(t, err)

	assert.True(t, sc.Root().FixesDefaulted())
	assert.Equal(t, "train", sc.Prog())
	assert.Equal(t, "1.2.3", sc.VersionTag())

	scoped, ok := sc.AtPath("optimizer.lr")
	require.True(t, ok)
	assert.True(t, scoped.Suppressed())

	_, ok = sc.AtPath("optimizer")
	assert.False(t, ok)
}

func TestScope_ConflictInsideAt(t *testing.T) {
	_, err := NewScope(At("x", Suppress, Positional))
	var conflict clierr.MarkerConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "x", conflict.Path)
}

func TestVariantList(t *testing.T) {
	type a struct{}
	type b struct{}
	s, err := Set{}.With(Variants(a{}, b{}))
	require.NoError(t, err)
	assert.Len(t, s.VariantList(), 2)
}
