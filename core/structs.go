package core

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/chriso345/strut/conf"
	"github.com/chriso345/strut/errors"
	"github.com/chriso345/strut/internal/common"
)

// FieldDefinition is one named, typed slot belonging to a struct. It is
// created once per struct expansion, owned by exactly one tree node, and
// immutable afterwards.
type FieldDefinition struct {
	Name        string // Go-internal name
	External    string // CLI-facing name; empty for flattened embeds
	DeclType    reflect.Type
	Index       int           // struct field index; -1 for non-field slots
	Default     reflect.Value // invalid means no default
	DefaultText string        // raw `default` tag value, parsed by the builder
	HasDefault  bool
	Help        string
	Short       string
	Markers     conf.Set
}

// StructSpec is the construction rule for one struct flavor: its ordered
// fields and a constructor over field values keyed by internal name.
type StructSpec struct {
	Flavor    string
	Type      reflect.Type
	Fields    []FieldDefinition
	Construct func(values map[string]reflect.Value) (reflect.Value, error)
}

// StructFlavor is one case in the flavor chain. Specify declines with
// (nil, nil) when the flavor does not claim the type.
type StructFlavor interface {
	Name() string
	Specify(path string, t reflect.Type, ms conf.Set, dflt reflect.Value) (*StructSpec, error)
}

// Validator is the cross-field validation hook. When a constructed struct's
// pointer implements it, Validate runs after field assignment; an error
// surfaces as an InstantiationError at the struct's dotted path.
type Validator interface {
	Validate() error
}

// StructRegistry maps resolved struct types to construction rules, probing
// a priority-ordered chain of flavors. Exactly one flavor claims a type, or
// the type is not a struct.
type StructRegistry struct {
	mu      sync.RWMutex
	custom  []StructFlavor
	builtin []StructFlavor
	ctors   map[reflect.Type]any
	unions  map[reflect.Type][]reflect.Type
}

func NewStructRegistry() *StructRegistry {
	r := &StructRegistry{
		ctors:  map[reflect.Type]any{},
		unions: map[reflect.Type][]reflect.Type{},
	}
	r.builtin = []StructFlavor{
		constructorFlavor{reg: r},
		plainStructFlavor{},
		mapFlavor{},
	}
	return r
}

// RegisterFlavor installs a custom flavor, probed before the builtins.
func (r *StructRegistry) RegisterFlavor(f StructFlavor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom = append(r.custom, f)
}

// RegisterConstructor installs a constructor function of shape
// func(Cfg) (T, error) with Cfg a struct; fields of type T are then built
// by filling Cfg from the CLI and calling the function.
func (r *StructRegistry) RegisterConstructor(fn any) error {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func ||
		ft.NumIn() != 1 || ft.In(0).Kind() != reflect.Struct ||
		ft.NumOut() != 2 || ft.Out(1) != errorType {
		return errors.NewParseError("constructor must have shape func(Cfg) (T, error) with Cfg a struct")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[ft.Out(0)] = fn
	return nil
}

// ConstructorFor returns the registered constructor producing t, if any.
func (r *StructRegistry) ConstructorFor(t reflect.Type) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctors[t]
}

// RegisterUnion declares the concrete alternatives of an interface type.
func (r *StructRegistry) RegisterUnion(iface reflect.Type, variants ...reflect.Type) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return errors.NewParseError("union target must be an interface type")
	}
	for _, v := range variants {
		if !v.Implements(iface) && !reflect.PointerTo(v).Implements(iface) {
			return errors.NewParseError(fmt.Sprintf("variant %s does not implement %s", v, iface))
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unions[iface] = append([]reflect.Type(nil), variants...)
	return nil
}

// UnionOf returns the registered alternatives for an interface type.
func (r *StructRegistry) UnionOf(t reflect.Type) []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unions[t]
}

// Specify resolves a type to its struct construction rule, or declines with
// (nil, nil) when no flavor claims it.
func (r *StructRegistry) Specify(path string, t reflect.Type, ms conf.Set, dflt reflect.Value) (*StructSpec, error) {
	r.mu.RLock()
	flavors := append(append([]StructFlavor(nil), r.custom...), r.builtin...)
	r.mu.RUnlock()
	for _, f := range flavors {
		spec, err := f.Specify(path, t, ms, dflt)
		if spec != nil || err != nil {
			return spec, err
		}
	}
	return nil, nil
}

// enumerateFields lists a struct's exported fields in declaration order,
// reading per-field tags and defaults from the supplied default instance.
// The zero value of a field means "no default"; a deliberate zero default
// needs a `default:"..."` tag. Booleans are the exception and default to
// false, which keeps bare flags ergonomic.
func enumerateFields(path string, t reflect.Type, dflt reflect.Value) ([]FieldDefinition, error) {
	var defs []FieldDefinition
	seen := map[string]bool{}

	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		ft, err := parseFieldTag(sf)
		if err != nil {
			return nil, annotateFieldPath(err, common.JoinPath(path, common.ExternalName(sf.Name)))
		}

		def := FieldDefinition{
			Name:        sf.Name,
			DeclType:    sf.Type,
			Index:       i,
			DefaultText: ft.defaultText,
			HasDefault:  ft.hasDefault,
			Short:       ft.short,
			Markers:     ft.markers,
			Help:        ft.markers.Help(),
		}

		switch {
		case sf.Anonymous && underlyingKind(sf.Type) == reflect.Struct:
			// Embedded structs flatten: their fields join the parent's
			// namespace without a path segment.
			def.External = ""
		case ft.markers.Name() != "":
			def.External = ft.markers.Name()
		default:
			def.External = common.ExternalName(sf.Name)
		}

		if dflt.IsValid() {
			fv := dflt.Field(i)
			if !fv.IsZero() {
				def.Default = fv
				def.HasDefault = true
			}
		}
		if !def.HasDefault && underlyingKind(sf.Type) == reflect.Bool {
			def.Default = reflect.Zero(sf.Type)
			def.HasDefault = true
		}

		if def.External != "" {
			if seen[def.External] {
				return nil, errors.NewParseError(fmt.Sprintf(
					"duplicate argument name %q in %s", def.External, common.TypeName(t)))
			}
			seen[def.External] = true
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func underlyingKind(t reflect.Type) reflect.Kind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind()
}

func annotateFieldPath(err error, path string) error {
	if mc, ok := err.(errors.MarkerConflictError); ok {
		mc.Path = path
		return mc
	}
	return err
}

// plainStructFlavor claims ordinary structs: exported fields in declaration
// order, instances built with reflect and validated through the Validator
// hook.
type plainStructFlavor struct{}

func (plainStructFlavor) Name() string { return "struct" }

func (plainStructFlavor) Specify(path string, t reflect.Type, ms conf.Set, dflt reflect.Value) (*StructSpec, error) {
	if t.Kind() != reflect.Struct {
		return nil, nil
	}
	fields, err := enumerateFields(path, t, dflt)
	if err != nil {
		return nil, err
	}
	return &StructSpec{
		Flavor: "struct",
		Type:   t,
		Fields: fields,
		Construct: func(values map[string]reflect.Value) (reflect.Value, error) {
			v := reflect.New(t)
			elem := v.Elem()
			for _, fd := range fields {
				val, ok := values[fd.Name]
				if !ok {
					continue
				}
				av, err := convertAssign(val, t.Field(fd.Index).Type)
				if err != nil {
					return reflect.Value{}, err
				}
				elem.Field(fd.Index).Set(av)
			}
			if validator, ok := v.Interface().(Validator); ok {
				if err := validator.Validate(); err != nil {
					return reflect.Value{}, err
				}
			}
			return elem, nil
		},
	}, nil
}

// constructorFlavor claims types with a registered or marker-attached
// constructor func(Cfg) (T, error); fields come from Cfg and construction
// calls the function.
type constructorFlavor struct{ reg *StructRegistry }

func (constructorFlavor) Name() string { return "constructor" }

func (f constructorFlavor) Specify(path string, t reflect.Type, ms conf.Set, dflt reflect.Value) (*StructSpec, error) {
	fn := ms.Constructor()
	if fn == nil {
		fn = f.reg.ConstructorFor(t)
	}
	if fn == nil {
		return nil, nil
	}
	ft := reflect.TypeOf(fn)
	if ft.Kind() != reflect.Func || ft.NumIn() != 1 || ft.In(0).Kind() != reflect.Struct ||
		ft.NumOut() != 2 || ft.Out(1) != errorType {
		// A string-shaped constructor is a primitive concern; decline.
		return nil, nil
	}
	cfgType := ft.In(0)
	fields, err := enumerateFields(path, cfgType, reflect.Value{})
	if err != nil {
		return nil, err
	}
	fv := reflect.ValueOf(fn)
	return &StructSpec{
		Flavor: "constructor",
		Type:   t,
		Fields: fields,
		Construct: func(values map[string]reflect.Value) (reflect.Value, error) {
			cfg := reflect.New(cfgType).Elem()
			for _, fd := range fields {
				val, ok := values[fd.Name]
				if !ok {
					continue
				}
				av, err := convertAssign(val, cfgType.Field(fd.Index).Type)
				if err != nil {
					return reflect.Value{}, err
				}
				cfg.Field(fd.Index).Set(av)
			}
			out := fv.Call([]reflect.Value{cfg})
			if !out[1].IsNil() {
				return reflect.Value{}, out[1].Interface().(error)
			}
			return out[0], nil
		},
	}, nil
}

// mapFlavor claims string-keyed maps whose default supplies a fixed key
// set; each key becomes one always-defaulted field. Maps without a default
// stay in primitive territory (KEY=VALUE tokens).
type mapFlavor struct{}

func (mapFlavor) Name() string { return "map" }

func (mapFlavor) Specify(path string, t reflect.Type, ms conf.Set, dflt reflect.Value) (*StructSpec, error) {
	if t.Kind() != reflect.Map || t.Key().Kind() != reflect.String {
		return nil, nil
	}
	if !dflt.IsValid() || dflt.Kind() != reflect.Map || dflt.Len() == 0 {
		return nil, nil
	}

	keys := make([]string, 0, dflt.Len())
	for _, k := range dflt.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	fields := make([]FieldDefinition, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, FieldDefinition{
			Name:       k,
			External:   common.ExternalName(k),
			DeclType:   t.Elem(),
			Index:      -1,
			Default:    dflt.MapIndex(reflect.ValueOf(k).Convert(t.Key())),
			HasDefault: true,
		})
	}
	return &StructSpec{
		Flavor: "map",
		Type:   t,
		Fields: fields,
		Construct: func(values map[string]reflect.Value) (reflect.Value, error) {
			out := reflect.MakeMapWithSize(t, len(fields))
			for _, fd := range fields {
				val, ok := values[fd.Name]
				if !ok {
					continue
				}
				av, err := convertAssign(val, t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(reflect.ValueOf(fd.Name).Convert(t.Key()), av)
			}
			return out, nil
		},
	}, nil
}

// convertAssign adapts a constructed value to a declared type: direct
// assignment, pointer wrapping for optional fields, interface satisfaction
// (through a pointer when needed), then conversion.
func convertAssign(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(to), nil
	}
	if v.Type().AssignableTo(to) {
		return v, nil
	}
	if to.Kind() == reflect.Pointer && v.Type().AssignableTo(to.Elem()) {
		p := reflect.New(to.Elem())
		p.Elem().Set(v)
		return p, nil
	}
	if to.Kind() == reflect.Interface && reflect.PointerTo(v.Type()).AssignableTo(to) {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p, nil
	}
	if v.Type().ConvertibleTo(to) {
		return v.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", v.Type(), to)
}
