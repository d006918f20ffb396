package core

import (
	"reflect"
	"sync"

	"github.com/chriso345/strut/conf"
	"github.com/chriso345/strut/errors"
	"github.com/chriso345/strut/internal/common"
)

// TypeKind classifies a resolved type.
type TypeKind uint8

const (
	KindPrimitive TypeKind = iota + 1 // one CLI token group maps to one value
	KindStruct                        // fields correspond to sub-arguments
	KindUnion                         // alternatives become subcommands
)

// ResolvedType is the canonical description of a type after normalization:
// pointers unwrapped, markers folded in, interfaces narrowed or expanded.
// Origin is nil only for unions, whose members live in Args.
type ResolvedType struct {
	Origin   reflect.Type
	Kind     TypeKind
	Args     []ResolvedType
	Markers  conf.Set
	Optional bool
}

// Resolver normalizes raw types into ResolvedType values. It is stateless
// apart from a read-through memoization cache; entries are immutable once
// written, so computing one twice under a race is wasted work, not an error.
type Resolver struct {
	mu      sync.RWMutex
	cache   map[cacheKey]ResolvedType
	prims   *PrimitiveRegistry
	structs *StructRegistry
}

type cacheKey struct {
	t  reflect.Type
	fp string
}

func NewResolver(prims *PrimitiveRegistry, structs *StructRegistry) *Resolver {
	return &Resolver{
		cache:   map[cacheKey]ResolvedType{},
		prims:   prims,
		structs: structs,
	}
}

func (r *Resolver) Primitives() *PrimitiveRegistry { return r.prims }
func (r *Resolver) Structs() *StructRegistry       { return r.structs }

// Resolve normalizes one annotation: unwrap, narrow, expand unions,
// classify. The default value participates only in narrowing and in
// fixed-key map detection; results that depend on it are not memoized.
func (r *Resolver) Resolve(path string, t reflect.Type, ms conf.Set, dflt reflect.Value) (ResolvedType, error) {
	optional := false
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		optional = true
		if dflt.IsValid() {
			if dflt.Kind() == reflect.Pointer && !dflt.IsNil() {
				dflt = dflt.Elem()
			} else {
				dflt = reflect.Value{}
			}
		}
	}

	if t.Kind() == reflect.Interface {
		return r.resolveInterface(path, t, ms, dflt, optional)
	}

	// Fixed-key mapping: a string-keyed map with a concrete default is a
	// struct whose fields are the default's keys. Without a default it
	// parses as KEY=VALUE tokens and stays primitive.
	mapWithDefault := t.Kind() == reflect.Map &&
		dflt.IsValid() && dflt.Kind() == reflect.Map && dflt.Len() > 0
	cacheable := !mapWithDefault

	key := cacheKey{t: t, fp: ms.Fingerprint()}
	if cacheable {
		r.mu.RLock()
		cached, ok := r.cache[key]
		r.mu.RUnlock()
		if ok {
			cached.Optional = optional
			return cached, nil
		}
	}

	rt := ResolvedType{Origin: t, Markers: ms, Optional: optional}

	if mapWithDefault {
		spec, err := r.structs.Specify(path, t, ms, dflt)
		if err != nil {
			return ResolvedType{}, err
		}
		if spec != nil {
			rt.Kind = KindStruct
			return rt, nil
		}
	}

	pspec, err := r.prims.Specify(path, t, ms)
	if err != nil {
		return ResolvedType{}, err
	}
	if pspec != nil {
		rt.Kind = KindPrimitive
	} else {
		sspec, err := r.structs.Specify(path, t, ms, dflt)
		if err != nil {
			return ResolvedType{}, err
		}
		if sspec == nil {
			return ResolvedType{}, errors.NewUnsupportedType(path, t.String(),
				"no primitive rule or struct flavor claims this type")
		}
		rt.Kind = KindStruct
	}

	if cacheable {
		r.mu.Lock()
		r.cache[key] = rt
		r.mu.Unlock()
	}
	return rt, nil
}

// resolveInterface handles the ambiguous cases: an interface with
// registered variants expands into a union; one with only a concrete
// default narrows to the default's runtime type. Narrowing re-derives the
// concrete type from the default at every field, never sharing across
// fields.
func (r *Resolver) resolveInterface(path string, t reflect.Type, ms conf.Set, dflt reflect.Value, optional bool) (ResolvedType, error) {
	variants, err := variantTypes(path, t, ms, r.structs)
	if err != nil {
		return ResolvedType{}, err
	}

	hasDefault := dflt.IsValid() && !dflt.IsZero()

	if len(variants) > 0 {
		if len(variants) == 1 || (ms.AvoidsSubcommands() && hasDefault) {
			// A one-member union, or a defaulted union under
			// AvoidSubcommands, collapses to a single alternative.
			concrete := variants[0]
			cd := reflect.Value{}
			if hasDefault {
				elem := dflt.Elem()
				for elem.Kind() == reflect.Pointer && !elem.IsNil() {
					elem = elem.Elem()
				}
				concrete = elem.Type()
				cd = elem
			}
			return r.Resolve(path, concrete, ms, cd)
		}
		out := ResolvedType{Kind: KindUnion, Markers: ms, Optional: optional}
		for _, vt := range variants {
			member, err := r.Resolve(path, vt, ms.Inherited(), concreteDefault(dflt, vt))
			if err != nil {
				return ResolvedType{}, err
			}
			if member.Kind != KindStruct {
				return ResolvedType{}, errors.NewUnsupportedType(path, vt.String(),
					"union alternatives must be struct-like")
			}
			out.Args = append(out.Args, member)
		}
		return out, nil
	}

	if hasDefault {
		concrete := dflt.Elem().Type()
		resolved, err := r.Resolve(path, concrete, ms, dflt.Elem())
		if err != nil {
			return ResolvedType{}, err
		}
		resolved.Optional = resolved.Optional || optional
		return resolved, nil
	}

	return ResolvedType{}, errors.NewUnsupportedType(path, common.TypeName(t),
		"interface type with no registered variants and no concrete default")
}

// variantTypes collects union alternatives from the Variants marker or the
// struct registry, normalizing instances to their types.
func variantTypes(path string, t reflect.Type, ms conf.Set, reg *StructRegistry) ([]reflect.Type, error) {
	raw := ms.VariantList()
	if len(raw) == 0 {
		return reg.UnionOf(t), nil
	}
	out := make([]reflect.Type, 0, len(raw))
	for _, v := range raw {
		var vt reflect.Type
		if rt, ok := v.(reflect.Type); ok {
			vt = rt
		} else {
			vt = reflect.TypeOf(v)
		}
		if vt == nil {
			return nil, errors.NewUnsupportedType(path, common.TypeName(t), "nil union variant")
		}
		for vt.Kind() == reflect.Pointer {
			vt = vt.Elem()
		}
		if !vt.Implements(t) && !reflect.PointerTo(vt).Implements(t) {
			return nil, errors.NewUnsupportedType(path, vt.String(),
				"variant does not implement "+common.TypeName(t))
		}
		out = append(out, vt)
	}
	return out, nil
}

// concreteDefault returns the default value for one union member: the
// supplied interface default when its runtime type matches, nothing
// otherwise.
func concreteDefault(dflt reflect.Value, member reflect.Type) reflect.Value {
	if !dflt.IsValid() || dflt.IsZero() || dflt.Kind() != reflect.Interface {
		return reflect.Value{}
	}
	elem := dflt.Elem()
	for elem.Kind() == reflect.Pointer && !elem.IsNil() {
		elem = elem.Elem()
	}
	if elem.Type() == member {
		return elem
	}
	return reflect.Value{}
}
