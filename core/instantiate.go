package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/chriso345/strut/errors"
)

// Instantiate rebuilds a value from parsed leaf tokens, walking the tree
// post-order. Leaves parse their bound tokens, fixed nodes return their
// frozen value, structs construct from their children, and subcommands
// construct only the selected alternative; untaken alternatives are never
// constructed, so their side effects and validation never fire.
func Instantiate(node *FieldTreeNode, b *Binding) (reflect.Value, error) {
	switch node.Kind {
	case NodeFixed:
		return node.FixedValue, nil

	case NodeLeaf:
		tokens, ok := b.Values[node.Path]
		if !ok {
			if node.Def.Default.IsValid() {
				return node.Def.Default, nil
			}
			return reflect.Value{}, errors.NewMissingArg(node.Path)
		}
		v, err := node.Prim.Parse(tokens)
		if err != nil {
			if pv, isPV := err.(errors.ParseValueError); isPV {
				return reflect.Value{}, pv
			}
			return reflect.Value{}, errors.NewParseValue(node.Path, strings.Join(tokens, " "), err)
		}
		return v, nil

	case NodeStruct:
		if node.OptionalNil && !anyLeafBound(node, b) {
			return reflect.Zero(node.Def.DeclType), nil
		}
		values := make(map[string]reflect.Value, len(node.Children))
		for _, child := range node.Children {
			v, err := Instantiate(child, b)
			if err != nil {
				return reflect.Value{}, err
			}
			values[child.Def.Name] = v
		}
		v, err := node.Spec.Construct(values)
		if err != nil {
			return reflect.Value{}, errors.NewInstantiation(node.Path, err)
		}
		return v, nil

	case NodeSubcommand:
		name := b.Selected[node.Path]
		if name == "" {
			name = node.DefaultAlt
		}
		if name == "" {
			return reflect.Value{}, errors.NewMissingArg(node.Path)
		}
		alt, ok := node.alternative(name)
		if !ok {
			return reflect.Value{}, errors.NewParseError(
				fmt.Sprintf("internal: selected unknown alternative %q at %s", name, node.Path))
		}
		return Instantiate(alt.Node, b)
	}
	return reflect.Value{}, errors.NewParseError(fmt.Sprintf("internal: unknown node kind %d", node.Kind))
}

// anyLeafBound reports whether the tokenizer bound any leaf in the subtree;
// an optional struct with no bound leaves stays nil.
func anyLeafBound(node *FieldTreeNode, b *Binding) bool {
	switch node.Kind {
	case NodeLeaf:
		_, ok := b.Values[node.Path]
		return ok
	case NodeStruct:
		for _, child := range node.Children {
			if anyLeafBound(child, b) {
				return true
			}
		}
	case NodeSubcommand:
		if _, ok := b.Selected[node.Path]; ok {
			return true
		}
	}
	return false
}
