package strut

import "github.com/chriso345/strut/conf"

// Marker is a configuration annotation applied either ambiently through
// Parse options or to a subtree through At.
type Marker = conf.Marker

// Re-exported policy markers. Each applies to the field it is attached to
// and, where it expresses a policy rather than a per-field override,
// propagates to the field's subtree.
var (
	// Suppress hides a field from the CLI entirely. It keeps its default
	// and never appears in helptext; a suppressed field must have one.
	Suppress = conf.Suppress

	// Fixed prevents a field from being parsed; its default is used
	// directly. Unlike Suppress it still shows up in helptext.
	Fixed = conf.Fixed

	// SuppressFixed hides fields that are fixed, whether marked so
	// explicitly or frozen by FixDefaulted.
	SuppressFixed = conf.SuppressFixed

	// Positional parses the field as a positional argument instead of a
	// flag.
	Positional = conf.Positional

	// PositionalRequired makes every required field positional.
	PositionalRequired = conf.PositionalRequired

	// FlagConversionOff disables the --flag/--no-flag form for defaulted
	// booleans; they expect an explicit true or false token instead.
	FlagConversionOff = conf.FlagConversionOff

	// AvoidSubcommands collapses a union with a default to the default's
	// alternative instead of generating subcommands.
	AvoidSubcommands = conf.AvoidSubcommands

	// ConsolidateArgs pushes subcommand arguments to the end of the
	// command line, after all subcommand selectors.
	ConsolidateArgs = conf.ConsolidateArgs

	// OmitPrefixes drops the dotted-path prefix from nested field flags,
	// so --opt.lr becomes --lr. Colliding names fall back to the full
	// path.
	OmitPrefixes = conf.OmitPrefixes

	// FixDefaulted freezes every field that has a default, exposing only
	// required fields on the CLI.
	FixDefaulted = conf.FixDefaulted

	// HelpOff drops help text derived from struct tags.
	HelpOff = conf.HelpOff
)

// Parameterized markers.
var (
	// Name overrides the argument name derived from the field name.
	Name = conf.Name

	// Metavar overrides the value placeholder shown in helptext.
	Metavar = conf.Metavar

	// HelpText attaches or overrides a field's help string.
	HelpText = conf.HelpText

	// Choices restricts a string-like field to a fixed set of values.
	Choices = conf.Choices

	// UseConstructor overrides how the annotated field is built: pass
	// func(string) (T, error) for a single-token parse or
	// func(Cfg) (T, error) to expose Cfg's fields instead of T's.
	UseConstructor = conf.UseConstructor

	// Variants declares a union's alternatives inline, scoped to one
	// field rather than registered globally.
	Variants = conf.Variants

	// At applies markers to the subtree rooted at a dotted path.
	At = conf.At

	// Prog overrides the program name shown in usage lines.
	Prog = conf.Prog

	// Version sets the version string reported by --version; absent, the
	// main module's build metadata is consulted.
	Version = conf.Version
)
