package errors

import "fmt"

// ParseError represents a generic parsing error produced by the CLI parser.
// It is intended for user-facing messages.
type ParseError struct{ Msg string }

func (e ParseError) Error() string { return e.Msg }

// MissingArgError indicates a required flag, positional, or subcommand
// selection was not provided. Path is the dotted path of the missing field.
type MissingArgError struct{ Path string }

func (e MissingArgError) Error() string {
	return fmt.Sprintf("missing required argument: %s", e.Path)
}

// UnknownFlagError indicates an argument that looks like a flag but matches
// no synthesized argument.
type UnknownFlagError struct{ Flag string }

func (e UnknownFlagError) Error() string {
	return fmt.Sprintf("unknown flag: %s", e.Flag)
}

// UnknownSubcommandError indicates the user selected a subcommand alternative
// that does not exist. Suggestion, if present, is a close match the user may
// have intended.
type UnknownSubcommandError struct{ Name, Suggestion string }

func (e UnknownSubcommandError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown subcommand: %s (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown subcommand: %s", e.Name)
}

// ArityError indicates a flag received the wrong number of value tokens.
type ArityError struct {
	Path string
	Want int
	Got  int
}

func (e ArityError) Error() string {
	return fmt.Sprintf("argument %s: expected %d value(s), got %d", e.Path, e.Want, e.Got)
}

// UnsupportedTypeError indicates a type that no primitive rule and no struct
// flavor can claim, or a type shape that cannot be expressed on the command
// line (for example a variable-length container nested inside another).
type UnsupportedTypeError struct{ Path, Type, Reason string }

func (e UnsupportedTypeError) Error() string {
	msg := fmt.Sprintf("unsupported type at %s: %s", pathOrRoot(e.Path), e.Type)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// MarkerConflictError indicates two mutually exclusive configuration markers
// were applied to the same field.
type MarkerConflictError struct{ Path, First, Second string }

func (e MarkerConflictError) Error() string {
	return fmt.Sprintf("conflicting markers at %s: %s and %s", pathOrRoot(e.Path), e.First, e.Second)
}

// CycleError indicates a type's expansion recursed into itself.
type CycleError struct{ Path, Type string }

func (e CycleError) Error() string {
	return fmt.Sprintf("recursive type at %s: %s refers to itself", pathOrRoot(e.Path), e.Type)
}

// ParseValueError indicates raw CLI token(s) could not be converted to a
// leaf's value. Err, if non-nil, is the underlying conversion failure.
type ParseValueError struct {
	Path  string
	Token string
	Err   error
}

func (e ParseValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("argument %s: invalid value %q: %v", e.Path, e.Token, e.Err)
	}
	return fmt.Sprintf("argument %s: invalid value %q", e.Path, e.Token)
}

func (e ParseValueError) Unwrap() error { return e.Err }

// InstantiationError indicates a struct's own constructor rejected the
// already-parsed field values. Path points at the struct, not a leaf.
type InstantiationError struct {
	Path string
	Err  error
}

func (e InstantiationError) Error() string {
	return fmt.Sprintf("constructing %s: %v", pathOrRoot(e.Path), e.Err)
}

func (e InstantiationError) Unwrap() error { return e.Err }

func pathOrRoot(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

// Helper constructors
func NewParseError(msg string) error  { return ParseError{Msg: msg} }
func NewMissingArg(path string) error { return MissingArgError{Path: path} }
func NewUnknownFlag(flag string) error {
	return UnknownFlagError{Flag: flag}
}
func NewUnknownSubcommand(name, suggestion string) error {
	return UnknownSubcommandError{Name: name, Suggestion: suggestion}
}
func NewArity(path string, want, got int) error {
	return ArityError{Path: path, Want: want, Got: got}
}
func NewUnsupportedType(path, typ, reason string) error {
	return UnsupportedTypeError{Path: path, Type: typ, Reason: reason}
}
func NewMarkerConflict(path, first, second string) error {
	return MarkerConflictError{Path: path, First: first, Second: second}
}
func NewCycle(path, typ string) error {
	return CycleError{Path: path, Type: typ}
}
func NewParseValue(path, token string, err error) error {
	return ParseValueError{Path: path, Token: token, Err: err}
}
func NewInstantiation(path string, err error) error {
	return InstantiationError{Path: path, Err: err}
}
