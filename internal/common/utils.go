package common

import (
	"reflect"
	"strings"

	"github.com/huandu/xstrings"
)

// IsStructPtr checks if the provided value is a pointer to a struct.
func IsStructPtr(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}

// GetStructType returns the reflect.Type of the underlying struct pointer.
func GetStructType(v any) reflect.Type {
	return reflect.TypeOf(v).Elem()
}

// ExternalName converts a Go identifier to its CLI-facing form (kebab-case).
func ExternalName(name string) string {
	return xstrings.ToKebabCase(name)
}

// Metavar derives a value placeholder from a field name (UPPER_SNAKE).
func Metavar(name string) string {
	return strings.ToUpper(xstrings.ToSnakeCase(name))
}

// JoinPath concatenates dotted path segments, skipping empty ones.
func JoinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}

// TypeName returns a readable name for a type, falling back to its string
// form for unnamed types.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
