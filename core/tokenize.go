package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chriso345/strut/errors"
)

// Binding is the tokenizer's output: raw token(s) per dotted path, plus the
// selected alternative per subcommand group. The instantiation engine joins
// on these keys.
type Binding struct {
	Values   map[string][]string
	Selected map[string]string
}

// Tokenize parses an argument vector against a synthesized command spec.
// It consumes `--flag value`, `--flag=value`, `-s value`, bare boolean
// flags with their `--no-` negations, positionals in declaration order,
// the `--` separator, and subcommand dispatch by first positional.
func Tokenize(spec *CommandSpec, args []string) (*Binding, error) {
	b := &Binding{Values: map[string][]string{}, Selected: map[string]string{}}
	if err := tokenizeLevel(spec, args, b); err != nil {
		return nil, err
	}
	return b, nil
}

type flagEntry struct {
	arg     *ArgumentSpec
	negated bool
}

func flagTable(args []*ArgumentSpec) map[string]flagEntry {
	table := map[string]flagEntry{}
	for _, a := range args {
		if a.Positional || a.Fixed {
			continue
		}
		table[a.Flag] = flagEntry{arg: a}
		if a.Short != "" {
			table[a.Short] = flagEntry{arg: a}
		}
		if a.Nullary && a.NegFlag != "" {
			table[a.NegFlag] = flagEntry{arg: a, negated: true}
		}
	}
	return table
}

func positionalQueue(args []*ArgumentSpec) []*ArgumentSpec {
	var q []*ArgumentSpec
	for _, a := range args {
		if a.Positional {
			q = append(q, a)
		}
	}
	return q
}

func tokenizeLevel(spec *CommandSpec, args []string, b *Binding) error {
	if spec.Consolidate && spec.Group != nil {
		return tokenizeConsolidated(spec, args, b)
	}

	table := flagTable(spec.Args)
	posQ := positionalQueue(spec.Args)
	var posPartial []string

	restPositional := false
	selected := ""
	var rest []string

	for i := 0; i < len(args); i++ {
		tok := args[i]
		if !restPositional && tok == "--" {
			restPositional = true
			continue
		}

		if !restPositional && looksLikeFlag(tok) {
			name, inline, hasInline := strings.Cut(tok, "=")
			e, ok := table[name]
			if !ok {
				return errors.NewUnknownFlag(name)
			}
			a := e.arg

			switch {
			case e.negated:
				b.Values[a.Path] = []string{"false"}
			case a.Nullary:
				if hasInline {
					b.Values[a.Path] = []string{inline}
				} else {
					b.Values[a.Path] = []string{"true"}
				}
			case hasInline:
				b.Values[a.Path] = []string{inline}
			case a.Arity == ArityVariable:
				var vals []string
				for i+1 < len(args) && args[i+1] != "--" && !looksLikeFlag(args[i+1]) {
					// Stop at a subcommand selector so variable-length
					// flags stay usable in front of one.
					if spec.Group != nil {
						if _, isAlt := spec.Group.Alternative(args[i+1]); isAlt && len(posQ) == 0 {
							break
						}
					}
					i++
					vals = append(vals, args[i])
				}
				b.Values[a.Path] = vals
			default:
				if i+1+a.Arity > len(args) {
					return errors.NewArity(a.Path, a.Arity, len(args)-i-1)
				}
				b.Values[a.Path] = args[i+1 : i+1+a.Arity]
				i += a.Arity
			}
			continue
		}

		// positional token
		if len(posQ) > 0 {
			cur := posQ[0]
			posPartial = append(posPartial, tok)
			if cur.Arity != ArityVariable && len(posPartial) == cur.Arity {
				b.Values[cur.Path] = posPartial
				posPartial = nil
				posQ = posQ[1:]
			}
			continue
		}

		if spec.Group != nil && selected == "" {
			alt, ok := spec.Group.Alternative(tok)
			if !ok {
				return errors.NewUnknownSubcommand(tok, closestMatch(tok, spec.Group.Names()))
			}
			selected = alt.Name
			rest = args[i+1:]
			break
		}

		return errors.NewParseError(fmt.Sprintf("unexpected argument: %q", tok))
	}

	// flush an in-flight positional
	if len(posPartial) > 0 {
		cur := posQ[0]
		if cur.Arity != ArityVariable {
			return errors.NewArity(cur.Path, cur.Arity, len(posPartial))
		}
		b.Values[cur.Path] = posPartial
		posQ = posQ[1:]
	}

	for _, a := range spec.Args {
		if a.Required {
			if _, ok := b.Values[a.Path]; !ok {
				return errors.NewMissingArg(a.Path)
			}
		}
	}

	if selected != "" {
		alt, _ := spec.Group.Alternative(selected)
		b.Selected[spec.Group.Path] = selected
		return tokenizeLevel(alt.Spec, rest, b)
	}
	if spec.Group != nil {
		if spec.Group.DefaultAlt != "" {
			alt, _ := spec.Group.Alternative(spec.Group.DefaultAlt)
			b.Selected[spec.Group.Path] = spec.Group.DefaultAlt
			return tokenizeLevel(alt.Spec, nil, b)
		}
		if spec.Group.Required {
			return errors.NewMissingArg(spec.Group.Path)
		}
	}
	return nil
}

// tokenizeConsolidated handles the ConsolidateArgs layout: subcommand
// selectors lead, and every level's flags are parsed together at the end.
func tokenizeConsolidated(spec *CommandSpec, args []string, b *Binding) error {
	merged := append([]*ArgumentSpec(nil), spec.Args...)
	level := spec
	i := 0
	for level.Group != nil {
		group := level.Group
		var name string
		if i < len(args) && !looksLikeFlag(args[i]) && args[i] != "--" {
			tok := args[i]
			alt, ok := group.Alternative(tok)
			if !ok {
				if group.DefaultAlt == "" {
					return errors.NewUnknownSubcommand(tok, closestMatch(tok, group.Names()))
				}
				name = group.DefaultAlt
			} else {
				name = alt.Name
				i++
			}
		} else {
			if group.DefaultAlt == "" {
				return errors.NewMissingArg(group.Path)
			}
			name = group.DefaultAlt
		}
		b.Selected[group.Path] = name
		alt, _ := group.Alternative(name)
		level = alt.Spec
		merged = append(merged, level.Args...)
	}

	flat := &CommandSpec{Prog: spec.Prog, Path: spec.Path, Args: merged}
	return tokenizeLevel(flat, args[i:], b)
}

// looksLikeFlag distinguishes flags from values; negative numbers count as
// values.
func looksLikeFlag(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' || tok == "--" {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return true
}

// closestMatch returns the candidate with the smallest edit distance to
// target, or empty string if none are within a reasonable threshold.
func closestMatch(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}
	low := strings.ToLower(target)
	// Prefer prefix matches (case-insensitive)
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), low) {
			return c
		}
	}

	best := ""
	bestDist := -1
	for _, c := range candidates {
		lc := strings.ToLower(c)
		// Quick length check to avoid large distances
		if abs(len(lc)-len(low)) > 3 {
			continue
		}
		// Treat single transposition as distance 1
		if isTransposition(low, lc) {
			return c
		}
		d := levenshtein(low, lc)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	// Only suggest if distance is small (adaptive threshold)
	if bestDist >= 0 && bestDist <= max(2, len(low)/3) {
		return best
	}
	return ""
}

// isTransposition checks for one-character transposition (Damerau case)
func isTransposition(a, b string) bool {
	if len(a) != len(b) || len(a) < 2 {
		return false
	}
	var diff []int
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			diff = append(diff, i)
			if len(diff) > 2 {
				return false
			}
		}
	}
	if len(diff) != 2 {
		return false
	}
	return a[diff[0]] == b[diff[1]] && a[diff[1]] == b[diff[0]]
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// levenshtein computes the Levenshtein edit distance between a and b.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	la := len(a)
	lb := len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	// Two rows are enough for the distance matrix
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		ai := a[i-1]
		for j := 1; j <= lb; j++ {
			cost := 0
			if ai != b[j-1] {
				cost = 1
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		copy(prev, curr)
	}
	return prev[lb]
}
