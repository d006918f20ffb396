// Package strut is a CLI argument parsing library for Go that builds a
// complete command-line interface from an ordinary struct definition using
// reflection.
//
// A target struct is decomposed into a tree of primitive leaves and nested
// subtrees; each leaf becomes a flag named after its kebab-cased dotted
// path, interface-typed fields with registered variants become subcommands,
// and parsing reconstructs the full value bottom-up. Defaults come from the
// target instance itself, help and version output are generated, and the
// primitive and struct construction rules are extensible through
// registries.
package strut

//go:generate gomarkdoc ./ -o docs/strut.md
