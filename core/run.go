package core

import (
	"os"
	"path/filepath"
	"reflect"

	"github.com/chriso345/strut/conf"
	"github.com/chriso345/strut/errors"
)

// Registries bundles the extensible rule sets with the resolver that reads
// them. The intended lifecycle: populate at startup, read-only during a Run,
// safely shared across concurrent invocations.
type Registries struct {
	Primitives *PrimitiveRegistry
	Structs    *StructRegistry
	resolver   *Resolver
}

func NewRegistries() *Registries {
	p := NewPrimitiveRegistry()
	s := NewStructRegistry()
	return &Registries{Primitives: p, Structs: s, resolver: NewResolver(p, s)}
}

func (r *Registries) Resolver() *Resolver { return r.resolver }

// Command ties one target to its built field tree and synthesized spec.
type Command struct {
	Tree  *FieldTreeNode
	Spec  *CommandSpec
	Scope *conf.Scope
}

// NewCommand runs the build and synthesize stages for a target.
func NewCommand(target any, regs *Registries, ms ...conf.Marker) (*Command, error) {
	scope, err := conf.NewScope(ms...)
	if err != nil {
		return nil, err
	}
	tree, err := NewBuilder(regs.resolver, scope).Build(target)
	if err != nil {
		return nil, err
	}
	spec, err := Synthesize(tree, progName(scope))
	if err != nil {
		return nil, err
	}
	return &Command{Tree: tree, Spec: spec, Scope: scope}, nil
}

// Run executes the whole pipeline for one invocation: build tree,
// synthesize arguments, tokenize argv, instantiate, and write the
// constructed value back through the target pointer. The stages are
// strictly sequential; a failure in an earlier stage prevents later ones
// from running.
func Run(target any, argv []string, regs *Registries, ms ...conf.Marker) error {
	cmd, err := NewCommand(target, regs, ms...)
	if err != nil {
		return err
	}
	binding, err := Tokenize(cmd.Spec, argv)
	if err != nil {
		return err
	}
	v, err := Instantiate(cmd.Tree, binding)
	if err != nil {
		return err
	}
	reflect.ValueOf(target).Elem().Set(v)
	return nil
}

// FuncConfigType validates a callable's shape and returns its config
// struct type. Accepted shapes: func(C), func(C) error, func(C) (R, error),
// with C a struct.
func FuncConfigType(fn any) (reflect.Type, error) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func || ft.NumIn() != 1 || ft.In(0).Kind() != reflect.Struct {
		return nil, errors.NewParseError("callable must have shape func(Cfg), func(Cfg) error, or func(Cfg) (R, error)")
	}
	if ft.NumOut() > 2 || (ft.NumOut() == 2 && ft.Out(1) != errorType) {
		return nil, errors.NewParseError("callable must return nothing, an error, or a value and an error")
	}
	return ft.In(0), nil
}

// CallFunc builds the config struct parameter of fn from argv and invokes
// it.
func CallFunc(fn any, argv []string, regs *Registries, ms ...conf.Marker) (any, error) {
	ct, err := FuncConfigType(fn)
	if err != nil {
		return nil, err
	}

	cfg := reflect.New(ct)
	if err := Run(cfg.Interface(), argv, regs, ms...); err != nil {
		return nil, err
	}
	return InvokeFunc(fn, cfg.Elem())
}

// InvokeFunc calls a validated callable with its config value and
// normalizes the outputs to (result, error).
func InvokeFunc(fn any, cfg reflect.Value) (any, error) {
	ft := reflect.TypeOf(fn)
	out := reflect.ValueOf(fn).Call([]reflect.Value{cfg})
	switch ft.NumOut() {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			if !out[0].IsNil() {
				return nil, out[0].Interface().(error)
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	default:
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
}

func progName(scope *conf.Scope) string {
	if p := scope.Prog(); p != "" {
		return p
	}
	if len(os.Args) > 0 {
		return filepath.Base(os.Args[0])
	}
	return "cli"
}
