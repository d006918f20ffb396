package core

import (
	"fmt"
	"reflect"

	"github.com/chriso345/strut/errors"
	"github.com/chriso345/strut/internal/common"
)

// ArgumentSpec is one synthesized CLI flag, created from exactly one Leaf
// node. Specs are regenerated on every invocation and never persisted.
type ArgumentSpec struct {
	Path       string // dotted path, the join key with parsed values
	Flag       string // display form, e.g. "--optimizer.lr"; empty if positional
	NegFlag    string // "--no-..." form for nullary booleans
	Short      string // "-s" alias, if configured
	Positional bool
	Nullary    bool // boolean flag form: presence means true
	Fixed      bool // display-only; the tokenizer never matches it
	Arity      int
	Required   bool
	Default    reflect.Value
	DefaultText string
	HasDefault bool
	Help       string
	Choices    []string
	Metavar    string
	Leaf       *FieldTreeNode
}

// CommandSpec is the ordered flag set for one command level, plus at most
// one subcommand group.
type CommandSpec struct {
	Prog        string
	Path        string
	Args        []*ArgumentSpec
	Group       *SubcommandGroup
	Consolidate bool

	names map[string]bool
}

// SubcommandGroup is the synthesized form of one union-of-structs node.
type SubcommandGroup struct {
	Path         string
	Required     bool
	DefaultAlt   string
	Help         string
	Alternatives []*AlternativeSpec
}

// AlternativeSpec pairs an alternative's name with its own command level.
type AlternativeSpec struct {
	Name string
	Help string
	Spec *CommandSpec
}

// Alternative looks up one alternative by name.
func (g *SubcommandGroup) Alternative(name string) (*AlternativeSpec, bool) {
	for _, a := range g.Alternatives {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Names lists the alternative names in declaration order.
func (g *SubcommandGroup) Names() []string {
	out := make([]string, 0, len(g.Alternatives))
	for _, a := range g.Alternatives {
		out = append(out, a.Name)
	}
	return out
}

// Synthesize walks the field tree depth-first in declaration order and
// emits one ArgumentSpec per leaf plus one group per subcommand node.
// Declaration order is the contract for positional ordering.
func Synthesize(root *FieldTreeNode, prog string) (*CommandSpec, error) {
	spec := &CommandSpec{Prog: prog, Path: root.Path, names: map[string]bool{}}
	if err := collectArgs(root, spec, "", false); err != nil {
		return nil, err
	}
	return spec, nil
}

func collectArgs(node *FieldTreeNode, spec *CommandSpec, display string, optional bool) error {
	switch node.Kind {
	case NodeFixed:
		ms := node.Def.Markers
		if ms.Suppressed() || ms.SuppressesFixed() {
			return nil
		}
		name := common.JoinPath(display, node.Def.External)
		if ms.OmitsPrefixes() {
			name = node.Def.External
		}
		spec.Args = append(spec.Args, &ArgumentSpec{
			Path:        node.Path,
			Flag:        "--" + name,
			Fixed:       true,
			Default:     node.FixedValue,
			DefaultText: fmt.Sprintf("%v", node.FixedValue.Interface()),
			HasDefault:  true,
			Help:        node.Def.Help,
			Metavar:     common.Metavar(node.Def.External),
			Leaf:        node,
		})
		return nil

	case NodeLeaf:
		return appendLeaf(node, spec, display, optional)

	case NodeStruct:
		childDisplay := common.JoinPath(display, node.Def.External)
		if node.Def.Markers.OmitsPrefixes() {
			childDisplay = ""
		}
		childOptional := optional || node.OptionalNil
		for _, child := range node.Children {
			if err := collectArgs(child, spec, childDisplay, childOptional); err != nil {
				return err
			}
		}
		return nil

	case NodeSubcommand:
		if spec.Group != nil {
			return errors.NewUnsupportedType(node.Path, common.TypeName(node.Def.DeclType),
				"only one subcommand group is allowed per command level")
		}
		group := &SubcommandGroup{
			Path:       node.Path,
			Required:   node.Required,
			DefaultAlt: node.DefaultAlt,
			Help:       node.Def.Help,
		}
		childDisplay := common.JoinPath(display, node.Def.External)
		if node.Def.Markers.OmitsPrefixes() {
			childDisplay = ""
		}
		for _, alt := range node.Alternatives {
			altSpec := &CommandSpec{
				Prog:        spec.Prog + " " + alt.Name,
				Path:        node.Path,
				Consolidate: node.Consolidate,
				names:       map[string]bool{},
			}
			if err := collectArgs(alt.Node, altSpec, childDisplay, optional); err != nil {
				return err
			}
			group.Alternatives = append(group.Alternatives, &AlternativeSpec{
				Name: alt.Name,
				Help: alt.Help,
				Spec: altSpec,
			})
		}
		spec.Group = group
		spec.Consolidate = spec.Consolidate || node.Consolidate
		return nil
	}
	return errors.NewParseError(fmt.Sprintf("internal: unknown node kind %d at %s", node.Kind, node.Path))
}

func appendLeaf(node *FieldTreeNode, spec *CommandSpec, display string, optional bool) error {
	def := node.Def
	ms := def.Markers

	name := common.JoinPath(display, def.External)
	if ms.OmitsPrefixes() {
		name = def.External
	}
	// Sibling leaves can never share a dotted path; this is guaranteed
	// structurally, so a collision here is an internal invariant violation.
	if spec.names[name] {
		name = node.Path
		if spec.names[name] {
			return errors.NewParseError(fmt.Sprintf("internal: argument name collision at %s", node.Path))
		}
	}
	spec.names[name] = true

	arg := &ArgumentSpec{
		Path:       node.Path,
		Arity:      node.Prim.Arity,
		Required:   node.Required && !optional,
		Default:    def.Default,
		HasDefault: def.HasDefault,
		Help:       def.Help,
		Choices:    node.Prim.Choices,
		Metavar:    node.Prim.Metavar,
		Leaf:       node,
	}
	if def.Default.IsValid() {
		arg.DefaultText = fmt.Sprintf("%v", def.Default.Interface())
	}

	positional := ms.IsPositional() || (ms.PositionalRequired() && node.Required)
	if positional {
		arg.Positional = true
		// Positionals are labeled by the field, not by the value type.
		arg.Metavar = common.Metavar(def.External)
	} else {
		arg.Flag = "--" + name
		if def.Short != "" {
			arg.Short = "-" + def.Short
		}
		if underlyingKind(def.DeclType) == reflect.Bool && def.HasDefault && !ms.FlagConversionOff() {
			arg.Nullary = true
			arg.NegFlag = "--no-" + name
		}
	}
	if mv := ms.MetavarSet(); mv != "" {
		arg.Metavar = mv
	}

	spec.Args = append(spec.Args, arg)
	return nil
}
