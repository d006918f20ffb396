package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/chriso345/strut/conf"
	"github.com/chriso345/strut/errors"
	"github.com/chriso345/strut/internal/common"
)

// NodeKind discriminates the field tree variants.
type NodeKind uint8

const (
	NodeLeaf       NodeKind = iota + 1 // one primitive argument
	NodeFixed                          // statically known, CLI-unreachable value
	NodeStruct                         // nested struct with child nodes
	NodeSubcommand                     // union of struct alternatives
)

// FieldTreeNode is one node of the recursive structure built from a root
// target. Its dotted Path uniquely identifies the node and is the join key
// between synthesized flags and parsed values.
type FieldTreeNode struct {
	Kind     NodeKind
	Def      FieldDefinition
	Path     string
	Required bool

	// leaf
	Prim *PrimitiveSpec

	// fixed
	FixedValue reflect.Value

	// struct
	Spec        *StructSpec
	Children    []*FieldTreeNode
	OptionalNil bool // pointer-typed struct with no default; stays nil when untouched

	// subcommand
	Alternatives []Alternative
	DefaultAlt   string
	Consolidate  bool
}

// Alternative is one named member of a subcommand node.
type Alternative struct {
	Name string
	Help string
	Node *FieldTreeNode
}

// maxDepth bounds recursion defensively; cycles are supposed to be caught
// structurally before the bound is hit.
const maxDepth = 64

// Builder turns a root target into a field tree, invoking the resolver and
// both registries per field. The visiting set holds the struct types whose
// expansion is in progress; re-entering one means the type contains itself.
type Builder struct {
	res      *Resolver
	scope    *conf.Scope
	visiting map[reflect.Type]bool
}

func NewBuilder(res *Resolver, scope *conf.Scope) *Builder {
	return &Builder{
		res:      res,
		scope:    scope,
		visiting: map[reflect.Type]bool{},
	}
}

// Build constructs the field tree for a pointer-to-struct target. The
// pointed-to instance supplies the defaults: zero fields have none,
// pre-filled fields keep their values.
func (b *Builder) Build(target any) (*FieldTreeNode, error) {
	if !common.IsStructPtr(target) {
		return nil, errors.NewParseError("invalid type: must pass pointer to struct")
	}
	t := common.GetStructType(target)
	dv := reflect.ValueOf(target).Elem()

	root := FieldDefinition{
		Name:     "",
		External: "",
		DeclType: t,
		Index:    -1,
		Default:  dv,
	}
	return b.buildField("", root, b.scope.Root(), 0)
}

// BuildType constructs the tree for a bare struct type with no default
// instance; used for the callable flavor where only the config type is
// known.
func (b *Builder) BuildType(t reflect.Type) (*FieldTreeNode, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.NewParseError("invalid type: must pass a struct type")
	}
	root := FieldDefinition{DeclType: t, Index: -1}
	return b.buildField("", root, b.scope.Root(), 0)
}

func (b *Builder) buildField(path string, def FieldDefinition, inherited conf.Set, depth int) (*FieldTreeNode, error) {
	if depth > maxDepth {
		return nil, errors.NewCycle(path, def.DeclType.String())
	}

	ms, err := def.Markers.Merge(inherited)
	if err != nil {
		return nil, annotateFieldPath(err, path)
	}
	if scoped, ok := b.scope.AtPath(path); ok {
		if ms, err = ms.Merge(scoped); err != nil {
			return nil, annotateFieldPath(err, path)
		}
	}
	if h := ms.Help(); h != "" {
		def.Help = h
	}
	if ms.HelpOff() {
		def.Help = ""
	}
	def.Markers = ms

	resolved, err := b.res.Resolve(path, def.DeclType, ms, def.Default)
	if err != nil {
		if elem, cyclic := b.cycleThrough(def.DeclType); cyclic {
			return nil, errors.NewCycle(path, common.TypeName(elem))
		}
		return nil, err
	}

	switch resolved.Kind {
	case KindUnion:
		return b.buildSubcommand(path, def, resolved, depth)
	case KindStruct:
		return b.buildStruct(path, def, resolved, depth)
	default:
		return b.buildLeaf(path, def, resolved)
	}
}

// cycleThrough unwraps container layers (pointer, slice, array, map value)
// and reports the struct type the chain re-enters, if its expansion is
// still in progress. A container of a type under construction is a cycle,
// not merely an unsupported type.
func (b *Builder) cycleThrough(t reflect.Type) (reflect.Type, bool) {
	for range maxDepth {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		case reflect.Struct:
			return t, b.visiting[t]
		default:
			return nil, false
		}
	}
	return nil, false
}

func (b *Builder) buildLeaf(path string, def FieldDefinition, resolved ResolvedType) (*FieldTreeNode, error) {
	ms := def.Markers
	prim, err := b.res.Primitives().Specify(path, resolved.Origin, ms)
	if err != nil {
		return nil, err
	}
	if prim == nil {
		return nil, errors.NewUnsupportedType(path, resolved.Origin.String(), "")
	}

	// A declared `default:"..."` tag is parsed through the same rule as CLI
	// tokens, so a malformed default fails at build time rather than at the
	// first parse without an override.
	if !def.Default.IsValid() && def.HasDefault {
		tokens := []string{def.DefaultText}
		if prim.Arity != 1 {
			tokens = strings.Fields(def.DefaultText)
		}
		v, err := prim.Parse(tokens)
		if err != nil {
			return nil, errors.NewParseValue(path, def.DefaultText, err)
		}
		def.Default = v
	}
	if def.Default.IsValid() {
		def.HasDefault = true
	}
	// An optional (pointer-declared) primitive with no other default stays
	// nil when not supplied.
	if !def.HasDefault && resolved.Optional {
		def.Default = reflect.Zero(def.DeclType)
		def.HasDefault = true
	}

	if frozen(ms, def.HasDefault) {
		if !def.HasDefault {
			return nil, errors.NewUnsupportedType(path, resolved.Origin.String(),
				"a suppressed or fixed field must have a default")
		}
		return &FieldTreeNode{Kind: NodeFixed, Def: def, Path: path, FixedValue: def.Default}, nil
	}

	return &FieldTreeNode{
		Kind:     NodeLeaf,
		Def:      def,
		Path:     path,
		Prim:     prim,
		Required: !def.HasDefault,
	}, nil
}

func (b *Builder) buildStruct(path string, def FieldDefinition, resolved ResolvedType, depth int) (*FieldTreeNode, error) {
	ms := def.Markers
	t := resolved.Origin

	// Explicit suppression or fixing freezes the subtree outright; the
	// FixDefaulted policy is weaker and only acts once the children are
	// known, so a partially defaulted struct keeps its required leaves.
	// The root is never frozen.
	if path != "" && (ms.Suppressed() || ms.IsFixed()) {
		if !def.Default.IsValid() {
			return nil, errors.NewUnsupportedType(path, t.String(),
				"a suppressed or fixed field must have a default")
		}
		return &FieldTreeNode{Kind: NodeFixed, Def: def, Path: path, FixedValue: def.Default}, nil
	}

	if b.visiting[t] {
		return nil, errors.NewCycle(path, common.TypeName(t))
	}
	b.visiting[t] = true
	defer delete(b.visiting, t)

	// The declared default may sit behind a pointer or interface; the
	// flavors work on the concrete value.
	declared := def.Default
	dflt := def.Default
	for dflt.IsValid() && (dflt.Kind() == reflect.Pointer || dflt.Kind() == reflect.Interface) {
		if dflt.IsNil() {
			dflt = reflect.Value{}
			break
		}
		dflt = dflt.Elem()
	}
	def.Default = dflt

	spec, err := b.res.Structs().Specify(path, t, ms, dflt)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, errors.NewUnsupportedType(path, t.String(), "")
	}

	node := &FieldTreeNode{Kind: NodeStruct, Def: def, Path: path, Spec: spec}
	node.OptionalNil = resolved.Optional && !def.Default.IsValid()
	for _, fd := range spec.Fields {
		childPath := common.JoinPath(path, fd.External)
		child, err := b.buildField(childPath, fd, ms.Inherited(), depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
		if child.Required {
			node.Required = true
		}
	}
	// An optional struct with no default is satisfiable by omission; its
	// leaves become required as a group only once any of them is supplied.
	if node.OptionalNil {
		node.Required = false
	}
	if path != "" && ms.FixesDefaulted() && !node.Required && declared.IsValid() {
		return &FieldTreeNode{Kind: NodeFixed, Def: def, Path: path, FixedValue: declared}, nil
	}
	return node, nil
}

// buildSubcommand expands a union into one alternative per member. The
// alternative's arguments share the union field's path prefix; only one
// alternative is ever active, so their flags cannot collide.
func (b *Builder) buildSubcommand(path string, def FieldDefinition, resolved ResolvedType, depth int) (*FieldTreeNode, error) {
	ms := def.Markers

	if path != "" && (ms.Suppressed() || ms.IsFixed()) {
		if !def.Default.IsValid() || def.Default.IsZero() {
			return nil, errors.NewUnsupportedType(path, common.TypeName(def.DeclType),
				"a suppressed or fixed field must have a default")
		}
		return &FieldTreeNode{Kind: NodeFixed, Def: def, Path: path, FixedValue: def.Default}, nil
	}

	node := &FieldTreeNode{
		Kind:        NodeSubcommand,
		Def:         def,
		Path:        path,
		Consolidate: ms.ConsolidatesArgs(),
	}

	seen := map[string]int{}
	for _, member := range resolved.Args {
		name := common.ExternalName(common.TypeName(member.Origin))
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s-%d", name, n+1)
		} else {
			seen[name] = 1
		}

		memberDefault := concreteDefault(def.Default, member.Origin)
		altDef := FieldDefinition{
			Name:     name,
			External: "",
			DeclType: member.Origin,
			Index:    -1,
			Default:  memberDefault,
		}
		altNode, err := b.buildField(path, altDef, ms.Inherited(), depth+1)
		if err != nil {
			return nil, err
		}
		node.Alternatives = append(node.Alternatives, Alternative{
			Name: name,
			Help: altHelp(member.Origin),
			Node: altNode,
		})
		if memberDefault.IsValid() {
			node.DefaultAlt = name
		}
	}

	if node.DefaultAlt == "" {
		node.Required = true
	} else if alt, ok := node.alternative(node.DefaultAlt); ok && alt.Node.Required {
		node.Required = true
	}
	if path != "" && ms.FixesDefaulted() && !node.Required && def.Default.IsValid() && !def.Default.IsZero() {
		return &FieldTreeNode{Kind: NodeFixed, Def: def, Path: path, FixedValue: def.Default}, nil
	}
	return node, nil
}

func (n *FieldTreeNode) alternative(name string) (Alternative, bool) {
	for _, a := range n.Alternatives {
		if a.Name == name {
			return a, true
		}
	}
	return Alternative{}, false
}

// frozen reports whether a field never reaches the CLI: explicitly
// suppressed or fixed, or defaulted under the FixDefaulted policy.
func frozen(ms conf.Set, hasDefault bool) bool {
	if ms.Suppressed() || ms.IsFixed() {
		return true
	}
	return ms.FixesDefaulted() && hasDefault
}

// altHelp extracts help for an alternative from a CommandHelp method if the
// variant type declares one. Absence is a valid answer.
func altHelp(t reflect.Type) string {
	if m, ok := t.MethodByName("CommandHelp"); ok &&
		m.Type.NumIn() == 1 && m.Type.NumOut() == 1 && m.Type.Out(0) == stringType {
		out := reflect.New(t).Elem().Method(m.Index).Call(nil)
		return out[0].String()
	}
	return ""
}
