package core

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chriso345/strut/conf"
	"github.com/chriso345/strut/errors"
	"github.com/chriso345/strut/internal/common"
)

// ArityVariable marks a primitive that consumes a variable number of tokens.
// Variable arity is only legal at the outermost layer of a field's type; the
// resolver rejects nesting.
const ArityVariable = -1

// PrimitiveSpec is the construction rule for one primitive type: how many
// CLI tokens it consumes and how to turn them into a value.
type PrimitiveSpec struct {
	Arity   int
	Metavar string
	Choices []string
	Parse   func(tokens []string) (reflect.Value, error)
}

// PrimitiveRule inspects a type and either claims it with a spec, declines
// with (nil, nil), or fails when the type is claimed but unrepresentable.
type PrimitiveRule func(t reflect.Type, ms conf.Set) (*PrimitiveSpec, error)

// PrimitiveRegistry maps resolved primitive types to construction rules.
// The priority chain is fixed: a custom constructor marker on the field, a
// rule registered for the exact type, structural rules, then the builtins.
//
// Registries are populated at startup and read-only during parsing, so they
// may be shared across concurrent invocations.
type PrimitiveRegistry struct {
	mu         sync.RWMutex
	exact      map[reflect.Type]PrimitiveRule
	structural []PrimitiveRule
}

func NewPrimitiveRegistry() *PrimitiveRegistry {
	return &PrimitiveRegistry{exact: map[reflect.Type]PrimitiveRule{}}
}

// Register installs a rule for one exact type, taking priority over the
// structural and builtin rules.
func (r *PrimitiveRegistry) Register(t reflect.Type, rule PrimitiveRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[t] = rule
}

// RegisterStructural installs a rule probed for any type the exact rules do
// not claim.
func (r *PrimitiveRegistry) RegisterStructural(rule PrimitiveRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.structural = append(r.structural, rule)
}

// RegisterParser installs a single-token parser of shape
// func(string) (T, error), keyed by its return type T.
func (r *PrimitiveRegistry) RegisterParser(fn any) error {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func ||
		ft.NumIn() != 1 || ft.In(0) != stringType ||
		ft.NumOut() != 2 || ft.Out(1) != errorType {
		return errors.NewParseError("parser must have shape func(string) (T, error)")
	}
	r.Register(ft.Out(0), func(t reflect.Type, ms conf.Set) (*PrimitiveSpec, error) {
		spec, _ := constructorSpec(t, fn)
		return spec, nil
	})
	return nil
}

// Specify resolves a type to a primitive construction rule, or declines
// with (nil, nil) when the type is not primitive.
func (r *PrimitiveRegistry) Specify(path string, t reflect.Type, ms conf.Set) (*PrimitiveSpec, error) {
	spec, err := r.specify(path, t, ms)
	if spec == nil || err != nil {
		return spec, err
	}
	return applyChoices(spec, ms), nil
}

func (r *PrimitiveRegistry) specify(path string, t reflect.Type, ms conf.Set) (*PrimitiveSpec, error) {
	// 1. custom constructor attached to this field
	if fn := ms.Constructor(); fn != nil {
		if spec, ok := constructorSpec(t, fn); ok {
			return spec, nil
		}
		// A struct-shaped constructor belongs to the struct registry.
	}

	// 2. exact-type rules
	r.mu.RLock()
	rule, ok := r.exact[t]
	structural := r.structural
	r.mu.RUnlock()
	if ok {
		if spec, err := rule(t, ms); spec != nil || err != nil {
			return spec, err
		}
	}

	// 3. structural rules
	for _, rule := range structural {
		if spec, err := rule(t, ms); spec != nil || err != nil {
			return spec, err
		}
	}

	// 4. builtins
	return r.builtin(path, t, ms)
}

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	errorType           = reflect.TypeOf((*error)(nil)).Elem()
	stringType          = reflect.TypeOf("")
)

func (r *PrimitiveRegistry) builtin(path string, t reflect.Type, ms conf.Set) (*PrimitiveSpec, error) {
	if t == durationType {
		return &PrimitiveSpec{
			Arity:   1,
			Metavar: "DURATION",
			Parse: scalarParse(func(tok string) (reflect.Value, error) {
				d, err := time.ParseDuration(tok)
				return reflect.ValueOf(d), err
			}),
		}, nil
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return &PrimitiveSpec{
			Arity:   1,
			Metavar: common.Metavar(common.TypeName(t)),
			Parse: scalarParse(func(tok string) (reflect.Value, error) {
				v := reflect.New(t)
				err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(tok))
				return v.Elem(), err
			}),
		}, nil
	}

	if parse, metavar, ok := scalarRule(t); ok {
		return &PrimitiveSpec{Arity: 1, Metavar: metavar, Parse: scalarParse(parse)}, nil
	}

	switch t.Kind() {
	case reflect.Array:
		return r.arraySpec(path, t, ms)
	case reflect.Slice:
		return r.sliceSpec(path, t, ms)
	case reflect.Map:
		return r.mapSpec(path, t, ms)
	}
	return nil, nil
}

// arraySpec handles fixed-size arrays: arity is the element count times the
// element arity, and remains fixed.
func (r *PrimitiveRegistry) arraySpec(path string, t reflect.Type, ms conf.Set) (*PrimitiveSpec, error) {
	elem, err := r.specify(path, t.Elem(), conf.Set{})
	if elem == nil || err != nil {
		return nil, err
	}
	if elem.Arity == ArityVariable {
		return nil, errors.NewUnsupportedType(path, t.String(),
			"variable-length element inside a fixed-size array")
	}
	n := t.Len()
	per := elem.Arity
	return &PrimitiveSpec{
		Arity:   n * per,
		Metavar: elem.Metavar,
		Parse: func(tokens []string) (reflect.Value, error) {
			if len(tokens) != n*per {
				return reflect.Value{}, fmt.Errorf("expected %d values, got %d", n*per, len(tokens))
			}
			out := reflect.New(t).Elem()
			for i := range n {
				v, err := elem.Parse(tokens[i*per : (i+1)*per])
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(v)
			}
			return out, nil
		},
	}, nil
}

// sliceSpec handles variable-length sequences, the only place variable arity
// originates. Nesting another variable-length container is ambiguous and
// rejected.
func (r *PrimitiveRegistry) sliceSpec(path string, t reflect.Type, ms conf.Set) (*PrimitiveSpec, error) {
	elem, err := r.specify(path, t.Elem(), conf.Set{})
	if err != nil {
		return nil, err
	}
	if elem == nil {
		return nil, nil
	}
	if elem.Arity == ArityVariable {
		return nil, errors.NewUnsupportedType(path, t.String(),
			"variable-length container nested inside another variable-length container")
	}
	per := elem.Arity
	return &PrimitiveSpec{
		Arity:   ArityVariable,
		Metavar: elem.Metavar,
		Parse: func(tokens []string) (reflect.Value, error) {
			if len(tokens)%per != 0 {
				return reflect.Value{}, fmt.Errorf("expected a multiple of %d values, got %d", per, len(tokens))
			}
			n := len(tokens) / per
			out := reflect.MakeSlice(t, n, n)
			for i := range n {
				v, err := elem.Parse(tokens[i*per : (i+1)*per])
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(v)
			}
			return out, nil
		},
	}, nil
}

// mapSpec handles maps with scalar keys and values via KEY=VALUE tokens.
func (r *PrimitiveRegistry) mapSpec(path string, t reflect.Type, ms conf.Set) (*PrimitiveSpec, error) {
	key, err := r.specify(path, t.Key(), conf.Set{})
	if key == nil || err != nil {
		return nil, err
	}
	val, err := r.specify(path, t.Elem(), conf.Set{})
	if val == nil || err != nil {
		return nil, err
	}
	if key.Arity != 1 || val.Arity != 1 {
		return nil, errors.NewUnsupportedType(path, t.String(),
			"map keys and values must be single-token primitives")
	}
	return &PrimitiveSpec{
		Arity:   ArityVariable,
		Metavar: "KEY=VALUE",
		Parse: func(tokens []string) (reflect.Value, error) {
			out := reflect.MakeMapWithSize(t, len(tokens))
			for _, tok := range tokens {
				k, v, found := strings.Cut(tok, "=")
				if !found {
					return reflect.Value{}, fmt.Errorf("expected KEY=VALUE, got %q", tok)
				}
				kv, err := key.Parse([]string{k})
				if err != nil {
					return reflect.Value{}, err
				}
				vv, err := val.Parse([]string{v})
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(kv, vv)
			}
			return out, nil
		},
	}, nil
}

// scalarRule maps reflect kinds to token parsers. Results are converted to
// the declared type, so named scalar types round-trip correctly.
func scalarRule(t reflect.Type) (func(string) (reflect.Value, error), string, bool) {
	switch t.Kind() {
	case reflect.String:
		return func(tok string) (reflect.Value, error) {
			return reflect.ValueOf(tok).Convert(t), nil
		}, "STR", true
	case reflect.Bool:
		return func(tok string) (reflect.Value, error) {
			b, err := strconv.ParseBool(tok)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(b).Convert(t), nil
		}, "BOOL", true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := t.Bits()
		return func(tok string) (reflect.Value, error) {
			n, err := strconv.ParseInt(tok, 10, bits)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(n).Convert(t), nil
		}, "INT", true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits := t.Bits()
		return func(tok string) (reflect.Value, error) {
			n, err := strconv.ParseUint(tok, 10, bits)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(n).Convert(t), nil
		}, "UINT", true
	case reflect.Float32, reflect.Float64:
		bits := t.Bits()
		return func(tok string) (reflect.Value, error) {
			f, err := strconv.ParseFloat(tok, bits)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(f).Convert(t), nil
		}, "FLOAT", true
	}
	return nil, "", false
}

// scalarParse adapts a single-token parser to the tokens signature.
func scalarParse(parse func(string) (reflect.Value, error)) func([]string) (reflect.Value, error) {
	return func(tokens []string) (reflect.Value, error) {
		if len(tokens) != 1 {
			return reflect.Value{}, fmt.Errorf("expected 1 value, got %d", len(tokens))
		}
		return parse(tokens[0])
	}
}

// constructorSpec adapts a user function of shape func(string) (T, error)
// into a primitive spec for fields of type T. Errors raised by the function
// surface through the same ParseValueError kind as builtin parse failures.
func constructorSpec(t reflect.Type, fn any) (*PrimitiveSpec, bool) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func {
		return nil, false
	}
	if ft.NumIn() != 1 || ft.In(0) != stringType {
		return nil, false
	}
	if ft.NumOut() != 2 || ft.Out(1) != errorType {
		return nil, false
	}
	if !ft.Out(0).AssignableTo(t) && !ft.Out(0).ConvertibleTo(t) {
		return nil, false
	}
	fv := reflect.ValueOf(fn)
	return &PrimitiveSpec{
		Arity:   1,
		Metavar: common.Metavar(common.TypeName(t)),
		Parse: scalarParse(func(tok string) (reflect.Value, error) {
			out := fv.Call([]reflect.Value{reflect.ValueOf(tok)})
			if !out[1].IsNil() {
				return reflect.Value{}, out[1].Interface().(error)
			}
			v := out[0]
			if v.Type() != t && v.Type().ConvertibleTo(t) {
				v = v.Convert(t)
			}
			return v, nil
		}),
	}, true
}

// applyChoices restricts a spec's tokens to an enumerated set.
func applyChoices(spec *PrimitiveSpec, ms conf.Set) *PrimitiveSpec {
	choices := ms.ChoiceList()
	if len(choices) == 0 {
		return spec
	}
	inner := spec.Parse
	wrapped := *spec
	wrapped.Choices = choices
	wrapped.Parse = func(tokens []string) (reflect.Value, error) {
		for _, tok := range tokens {
			if !slices.Contains(choices, tok) {
				return reflect.Value{}, fmt.Errorf("invalid choice %q (choose from %s)", tok, strings.Join(choices, ", "))
			}
		}
		return inner(tokens)
	}
	return &wrapped
}
