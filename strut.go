package strut

import (
	"fmt"
	"os"
	"reflect"

	"github.com/chriso345/strut/conf"
	"github.com/chriso345/strut/core"
	"github.com/chriso345/strut/display"
	"github.com/chriso345/strut/errors"
)

// osExit is swapped out in tests.
var osExit = os.Exit

// defaultRegistries backs the package-level API. Registration calls mutate
// it at startup; parsing only reads it.
var defaultRegistries = core.NewRegistries()

// Registries exposes the package-level registries for callers that need
// lower-level access than the Register helpers give.
func Registries() *core.Registries { return defaultRegistries }

// Parse parses os.Args[1:] into the provided target struct.
//
// The target must be a pointer to a struct. Each exported field becomes a
// CLI argument named after its kebab-cased dotted path; nested structs
// contribute their fields under a dotted prefix, and interface-typed fields
// with registered variants become subcommands. The pointed-to instance
// supplies the defaults: zero fields are required, pre-filled fields are
// optional.
//
// If the arguments request help (-h, --help, or the help pseudo-subcommand)
// or --version, Parse prints the corresponding text and exits.
//
// Usage:
//
//	args := struct {
//		Input   string `strut:"positional" help:"Input file path"`
//		Verbose bool   `short:"v" help:"Enable verbose output"`
//		Optimizer struct {
//			Lr    float64 `default:"1e-3"`
//			Decay float64
//		}
//	}{}
//
//	err := strut.Parse(&args)
//	if err != nil {
//		log.Fatal(err)
//	}
func Parse(target any, ms ...conf.Marker) error {
	return ParseArgs(target, os.Args[1:], ms...)
}

// ParseArgs is Parse with an explicit argument vector.
func ParseArgs(target any, argv []string, ms ...conf.Marker) error {
	cmd, err := core.NewCommand(target, defaultRegistries, ms...)
	if err != nil {
		return err
	}
	if out, ok := builtinOutput(cmd, argv); ok {
		fmt.Println(out)
		osExit(0)
		return nil
	}

	binding, err := core.Tokenize(cmd.Spec, argv)
	if err != nil {
		return err
	}
	v, err := core.Instantiate(cmd.Tree, binding)
	if err != nil {
		return err
	}
	reflect.ValueOf(target).Elem().Set(v)
	return nil
}

// MustParse is Parse for program entry points: on failure it prints the
// error followed by the helptext to stderr and exits.
func MustParse(target any, ms ...conf.Marker) {
	if err := Parse(target, ms...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if cmd, cmdErr := core.NewCommand(target, defaultRegistries, ms...); cmdErr == nil {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, display.BuildHelp(cmd.Spec))
		}
		osExit(2)
	}
}

// Call builds the config struct parameter of fn from argv and invokes it.
// Accepted shapes: func(Cfg), func(Cfg) error, func(Cfg) (R, error), with
// Cfg a struct. Help and version requests are handled the same way as in
// Parse, before fn runs.
func Call(fn any, argv []string, ms ...conf.Marker) (any, error) {
	ct, err := core.FuncConfigType(fn)
	if err != nil {
		return nil, err
	}
	cfg := reflect.New(ct)
	if err := ParseArgs(cfg.Interface(), argv, ms...); err != nil {
		return nil, err
	}
	return core.InvokeFunc(fn, cfg.Elem())
}

// RegisterVariants declares the concrete struct alternatives of an
// interface type, turning fields of that type into subcommands. Pass the
// interface as a nil pointer and the alternatives as values:
//
//	strut.RegisterVariants((*Command)(nil), Commit{}, Checkout{})
func RegisterVariants(iface any, variants ...any) error {
	it := reflect.TypeOf(iface)
	if it == nil || it.Kind() != reflect.Pointer || it.Elem().Kind() != reflect.Interface {
		return errors.NewParseError("pass the union as a nil interface pointer, e.g. (*Command)(nil)")
	}
	ts := make([]reflect.Type, 0, len(variants))
	for _, v := range variants {
		t := reflect.TypeOf(v)
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == nil || t.Kind() != reflect.Struct {
			return errors.NewParseError("union alternatives must be struct values")
		}
		ts = append(ts, t)
	}
	return defaultRegistries.Structs.RegisterUnion(it.Elem(), ts...)
}

// RegisterConstructor installs a constructor of shape func(Cfg) (T, error)
// with Cfg a struct; fields of type T are then built by exposing Cfg's
// fields on the CLI and calling the function with the filled config.
func RegisterConstructor(fn any) error {
	return defaultRegistries.Structs.RegisterConstructor(fn)
}

// RegisterParser installs a single-token parser of shape
// func(string) (T, error); fields of type T then consume one CLI token
// through it.
func RegisterParser(fn any) error {
	return defaultRegistries.Primitives.RegisterParser(fn)
}

// builtinOutput scans argv for a help or version request, following the
// subcommand selector chain so `app cmd --help` shows cmd's helptext. A
// bare `--` ends the scan; everything after it is user data.
func builtinOutput(cmd *core.Command, argv []string) (string, bool) {
	root := cmd.Spec
	if len(argv) > 0 && argv[0] == "help" {
		return display.BuildHelp(descend(root, argv[1:])), true
	}

	spec := root
	for _, tok := range argv {
		switch tok {
		case "--":
			return "", false
		case "-h", "--help":
			return display.BuildHelp(spec), true
		case "--version":
			return display.BuildVersion(root.Prog, cmd.Scope.VersionTag()), true
		default:
			if spec.Group != nil {
				if alt, ok := spec.Group.Alternative(tok); ok {
					spec = alt.Spec
				}
			}
		}
	}
	return "", false
}

// descend follows subcommand names as far as they match.
func descend(spec *core.CommandSpec, names []string) *core.CommandSpec {
	for _, name := range names {
		if spec.Group == nil {
			return spec
		}
		alt, ok := spec.Group.Alternative(name)
		if !ok {
			return spec
		}
		spec = alt.Spec
	}
	return spec
}
