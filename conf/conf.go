// Package conf holds the configuration markers understood by strut.
//
// Markers annotate fields or whole subtrees of the field tree and alter how
// strut resolves, names, or hides them. They can be attached in two ways:
// through `strut:"..."` struct tags on fields, or ambiently by passing them
// to the entry points, optionally scoped to a dotted path with At.
//
// The vocabulary is closed; unknown tag tokens are ignored so that struct
// definitions written against a newer strut keep working with an older one.
package conf

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/chriso345/strut/errors"
)

// Marker is one configuration directive. Values are created from the
// exported variables and constructors in this package.
type Marker interface {
	isMarker()
}

type simple uint32

func (simple) isMarker() {}

const (
	bitSuppress uint32 = 1 << iota
	bitFixed
	bitSuppressFixed
	bitPositional
	bitPositionalRequired
	bitFlagConversionOff
	bitAvoidSubcommands
	bitConsolidateArgs
	bitOmitPrefixes
	bitFixDefaulted
	bitHelpOff
)

var bitNames = map[uint32]string{
	bitSuppress:           "Suppress",
	bitFixed:              "Fixed",
	bitSuppressFixed:      "SuppressFixed",
	bitPositional:         "Positional",
	bitPositionalRequired: "PositionalRequired",
	bitFlagConversionOff:  "FlagConversionOff",
	bitAvoidSubcommands:   "AvoidSubcommands",
	bitConsolidateArgs:    "ConsolidateArgs",
	bitOmitPrefixes:       "OmitPrefixes",
	bitFixDefaulted:       "FixDefaulted",
	bitHelpOff:            "HelpOff",
}

var (
	// Suppress hides a field from the CLI entirely; it keeps its default and
	// never appears in helptext. A suppressed field must have a default.
	Suppress Marker = simple(bitSuppress)

	// Fixed prevents a field from being parsed; its default is used
	// directly. Unlike Suppress it still shows up in helptext.
	Fixed Marker = simple(bitFixed)

	// SuppressFixed hides fields that are fixed, whether marked so
	// explicitly or frozen by the FixDefaulted policy.
	SuppressFixed Marker = simple(bitSuppressFixed)

	// Positional parses the field as a positional argument instead of a
	// flag.
	Positional Marker = simple(bitPositional)

	// PositionalRequired makes every required field (no default) positional.
	PositionalRequired Marker = simple(bitPositionalRequired)

	// FlagConversionOff disables --flag/--no-flag conversion for defaulted
	// booleans; they expect an explicit true or false token instead.
	FlagConversionOff Marker = simple(bitFlagConversionOff)

	// AvoidSubcommands collapses a union with a default to the default's
	// alternative instead of generating subcommands.
	AvoidSubcommands Marker = simple(bitAvoidSubcommands)

	// ConsolidateArgs pushes subcommand arguments to the end of the command
	// line, after all subcommand selectors.
	ConsolidateArgs Marker = simple(bitConsolidateArgs)

	// OmitPrefixes drops the dotted-path prefix from nested field flags, so
	// --cmd.arg becomes --arg. Colliding names fall back to the full path.
	OmitPrefixes Marker = simple(bitOmitPrefixes)

	// FixDefaulted freezes every field that has a default, exposing only
	// required fields on the CLI.
	FixDefaulted Marker = simple(bitFixDefaulted)

	// HelpOff drops help text derived from struct tags.
	HelpOff Marker = simple(bitHelpOff)
)

type nameMarker string

func (nameMarker) isMarker() {}

// Name overrides the CLI-facing name of a field.
func Name(s string) Marker { return nameMarker(s) }

type metavarMarker string

func (metavarMarker) isMarker() {}

// Metavar overrides the placeholder shown for a field's value in helptext.
func Metavar(s string) Marker { return metavarMarker(s) }

type helpMarker string

func (helpMarker) isMarker() {}

// HelpText attaches help text to a field, overriding any `help` tag.
func HelpText(s string) Marker { return helpMarker(s) }

type choicesMarker []string

func (choicesMarker) isMarker() {}

// Choices restricts a field's value to an enumerated set.
func Choices(vals ...string) Marker { return choicesMarker(vals) }

type constructorMarker struct{ fn any }

func (constructorMarker) isMarker() {}

// UseConstructor attaches a custom constructor to a field. A function of
// shape func(string) (T, error) claims the field as a primitive; a function
// of shape func(Cfg) (T, error), with Cfg a struct, claims it as a struct
// whose fields come from Cfg.
func UseConstructor(fn any) Marker { return constructorMarker{fn: fn} }

type variantsMarker []any

func (variantsMarker) isMarker() {}

// Variants lists the concrete alternatives of an interface-typed field.
// Each alternative becomes one subcommand. Values may be instances or
// reflect.Type values.
func Variants(alts ...any) Marker { return variantsMarker(alts) }

type atMarker struct {
	path    string
	markers []Marker
}

func (atMarker) isMarker() {}

// At scopes markers to the subtree rooted at the given dotted path.
func At(path string, ms ...Marker) Marker { return atMarker{path: path, markers: ms} }

type progMarker string

func (progMarker) isMarker() {}

// Prog sets the program name shown in usage and help output.
func Prog(name string) Marker { return progMarker(name) }

type versionMarker string

func (versionMarker) isMarker() {}

// Version sets the version string reported by --version.
func Version(v string) Marker { return versionMarker(v) }

// Set is the canonical, merged form of the markers in scope for one field.
// Sets are immutable values; With returns a new Set.
type Set struct {
	bits        uint32
	name        string
	metavar     string
	help        string
	choices     []string
	constructor any
	variants    []any
}

// With folds markers into the set, reporting mutually exclusive pairs.
// The returned MarkerConflictError carries no path; callers annotate it.
func (s Set) With(ms ...Marker) (Set, error) {
	for _, m := range ms {
		switch v := m.(type) {
		case simple:
			bit := uint32(v)
			if conflict, ok := conflictsWith(s.bits, bit); ok {
				return s, errors.NewMarkerConflict("", bitNames[conflict], bitNames[bit])
			}
			s.bits |= bit
		case nameMarker:
			if s.name != "" && s.name != string(v) {
				return s, errors.NewMarkerConflict("", "Name("+s.name+")", "Name("+string(v)+")")
			}
			s.name = string(v)
		case metavarMarker:
			s.metavar = string(v)
		case helpMarker:
			s.help = string(v)
		case choicesMarker:
			s.choices = append([]string(nil), v...)
		case constructorMarker:
			if s.constructor != nil && !sameFunc(s.constructor, v.fn) {
				return s, errors.NewMarkerConflict("", "UseConstructor", "UseConstructor")
			}
			s.constructor = v.fn
		case variantsMarker:
			s.variants = append([]any(nil), v...)
		case atMarker, progMarker, versionMarker:
			// Scope and program metadata are consumed by NewScope, not by
			// field-level sets.
		default:
			// Forward compatibility: unknown directives are no-ops.
		}
	}
	return s, nil
}

// mutually exclusive marker pairs
var conflictPairs = [][2]uint32{
	{bitSuppress, bitPositional},
	{bitFixed, bitPositional},
	{bitSuppress, bitPositionalRequired},
}

func conflictsWith(bits, bit uint32) (uint32, bool) {
	for _, p := range conflictPairs {
		if (bit == p[0] && bits&p[1] != 0) || (bit == p[1] && bits&p[0] != 0) {
			other := p[0]
			if bit == p[0] {
				other = p[1]
			}
			return other, true
		}
	}
	return 0, false
}

func sameFunc(a, b any) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// Merge folds another set into this one, with the same conflict rules as
// With. Used when a field inherits ambient markers from an enclosing scope.
func (s Set) Merge(o Set) (Set, error) {
	for bit, name := range bitNames {
		if o.bits&bit == 0 {
			continue
		}
		if conflict, ok := conflictsWith(s.bits, bit); ok {
			return s, errors.NewMarkerConflict("", bitNames[conflict], name)
		}
		s.bits |= bit
	}
	var err error
	if o.name != "" {
		if s, err = s.With(nameMarker(o.name)); err != nil {
			return s, err
		}
	}
	if o.metavar != "" {
		s.metavar = o.metavar
	}
	if o.help != "" {
		s.help = o.help
	}
	if len(o.choices) > 0 {
		s.choices = append([]string(nil), o.choices...)
	}
	if o.constructor != nil {
		if s.constructor != nil && !sameFunc(s.constructor, o.constructor) {
			return s, errors.NewMarkerConflict("", "UseConstructor", "UseConstructor")
		}
		s.constructor = o.constructor
	}
	if len(o.variants) > 0 {
		s.variants = append([]any(nil), o.variants...)
	}
	return s, nil
}

// Inherited returns the subset of the markers that propagate recursively
// into nested fields. Per-field metadata (names, help, choices, custom
// constructors, variants) does not inherit.
func (s Set) Inherited() Set {
	return Set{bits: s.bits &^ (bitSuppress | bitFixed | bitPositional)}
}

func (s Set) has(bit uint32) bool { return s.bits&bit != 0 }

func (s Set) Suppressed() bool         { return s.has(bitSuppress) }
func (s Set) IsFixed() bool            { return s.has(bitFixed) }
func (s Set) SuppressesFixed() bool    { return s.has(bitSuppressFixed) }
func (s Set) IsPositional() bool       { return s.has(bitPositional) }
func (s Set) PositionalRequired() bool { return s.has(bitPositionalRequired) }
func (s Set) FlagConversionOff() bool  { return s.has(bitFlagConversionOff) }
func (s Set) AvoidsSubcommands() bool  { return s.has(bitAvoidSubcommands) }
func (s Set) ConsolidatesArgs() bool   { return s.has(bitConsolidateArgs) }
func (s Set) OmitsPrefixes() bool      { return s.has(bitOmitPrefixes) }
func (s Set) FixesDefaulted() bool     { return s.has(bitFixDefaulted) }
func (s Set) HelpOff() bool            { return s.has(bitHelpOff) }

func (s Set) Name() string       { return s.name }
func (s Set) MetavarSet() string { return s.metavar }
func (s Set) Help() string       { return s.help }
func (s Set) ChoiceList() []string {
	return append([]string(nil), s.choices...)
}
func (s Set) Constructor() any { return s.constructor }
func (s Set) VariantList() []any {
	return append([]any(nil), s.variants...)
}

// Fingerprint returns a deterministic key component for memoization. Two
// sets with the same fingerprint behave identically during resolution.
func (s Set) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%08x|%s|%s|%s", s.bits, s.name, s.metavar, s.help)
	if len(s.choices) > 0 {
		cs := append([]string(nil), s.choices...)
		sort.Strings(cs)
		b.WriteString("|c:" + strings.Join(cs, ","))
	}
	if s.constructor != nil {
		fmt.Fprintf(&b, "|f:%x", reflect.ValueOf(s.constructor).Pointer())
	}
	for _, v := range s.variants {
		fmt.Fprintf(&b, "|v:%v", reflect.TypeOf(v))
	}
	return b.String()
}

// Scope is the ambient marker environment for one entry-point invocation:
// the root marker set plus path-scoped overrides, and program metadata.
type Scope struct {
	root    Set
	byPath  map[string]Set
	prog    string
	version string
}

// NewScope builds a Scope from entry-point markers, detecting root-level
// conflicts up front.
func NewScope(ms ...Marker) (*Scope, error) {
	sc := &Scope{byPath: map[string]Set{}}
	for _, m := range ms {
		switch v := m.(type) {
		case progMarker:
			sc.prog = string(v)
		case versionMarker:
			sc.version = string(v)
		case atMarker:
			cur := sc.byPath[v.path]
			next, err := cur.With(v.markers...)
			if err != nil {
				return nil, annotatePath(err, v.path)
			}
			sc.byPath[v.path] = next
		default:
			var err error
			if sc.root, err = sc.root.With(m); err != nil {
				return nil, err
			}
		}
	}
	return sc, nil
}

// Root returns the markers applied to the whole tree.
func (sc *Scope) Root() Set { return sc.root }

// AtPath returns the markers scoped to exactly the given dotted path.
func (sc *Scope) AtPath(path string) (Set, bool) {
	s, ok := sc.byPath[path]
	return s, ok
}

func (sc *Scope) Prog() string       { return sc.prog }
func (sc *Scope) VersionTag() string { return sc.version }

func annotatePath(err error, path string) error {
	if mc, ok := err.(errors.MarkerConflictError); ok {
		mc.Path = path
		return mc
	}
	return err
}
