package display

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/chriso345/strut/core"
)

var (
	heading = color.New(color.Bold, color.Underline).SprintFunc()
	strong  = color.New(color.Bold).SprintFunc()
)

// BuildHelp renders the helptext for one command level. Alternatives carry
// their own CommandSpec, so the same function serves nested subcommand help;
// the Prog field already contains the selector chain.
func BuildHelp(spec *core.CommandSpec) string {
	var builder strings.Builder
	builder.WriteString(heading("Usage:") + " ")
	builder.WriteString(strong(spec.Prog))

	for _, arg := range spec.Args {
		if arg.Positional {
			builder.WriteString(" " + positionalHint(arg))
		}
	}
	// --help is always synthesized, so every level has options.
	builder.WriteString(" [OPTIONS]")
	if spec.Group != nil {
		if spec.Group.Required {
			builder.WriteString(" <COMMAND>")
		} else {
			builder.WriteString(" [COMMAND]")
		}
	}
	builder.WriteString("\n")

	if spec.Group != nil {
		builder.WriteString("\n" + heading("Subcommands:") + "\n")
		builder.WriteString(subcommandsHelp(spec.Group))
	}

	if hasPositionals(spec) {
		builder.WriteString("\n" + heading("Arguments:") + "\n")
		builder.WriteString(argsHelp(spec))
	}

	builder.WriteString("\n" + heading("Options:") + "\n")
	builder.WriteString(optionsHelp(spec))

	return builder.String()
}

// subcommandsHelp returns the formatted alternative lines for one group.
func subcommandsHelp(group *core.SubcommandGroup) string {
	var lines []string
	maxLen := 0

	for _, alt := range group.Alternatives {
		name := "  " + alt.Name
		desc := alt.Help
		if alt.Name == group.DefaultAlt {
			desc = appendAnnotation(desc, "default")
		}
		if len(name) > maxLen {
			maxLen = len(name)
		}
		lines = append(lines, fmt.Sprintf("%s||%s", name, desc))
	}

	var builder strings.Builder
	for _, line := range lines {
		parts := strings.SplitN(line, "||", 2)
		padding := strings.Repeat(" ", maxLen-len(parts[0]))
		builder.WriteString(fmt.Sprintf("%s%s  %s\n", parts[0], padding, parts[1]))
	}
	return builder.String()
}

// === HELPERS ===

// argsHelp generates help text for the positional arguments of one level.
func argsHelp(spec *core.CommandSpec) string {
	var lines []string
	maxLen := 0

	for _, arg := range spec.Args {
		if !arg.Positional {
			continue
		}
		line := "  " + positionalHint(arg)
		if len(line) > maxLen {
			maxLen = len(line)
		}
		lines = append(lines, fmt.Sprintf("%s||%s", line, describe(arg)))
	}

	var builder strings.Builder
	for _, line := range lines {
		parts := strings.SplitN(line, "||", 2)
		padding := strings.Repeat(" ", maxLen-len(parts[0])+1)
		builder.WriteString(fmt.Sprintf("%s%s %s\n", parts[0], padding, parts[1]))
	}
	return builder.String()
}

// optionsHelp generates help text for the flags of one level, plus the
// built-in --help and --version entries.
func optionsHelp(spec *core.CommandSpec) string {
	var lines []string
	maxLen := 0
	add := func(flag, desc string) {
		if len(flag) > maxLen {
			maxLen = len(flag)
		}
		lines = append(lines, fmt.Sprintf("%s||%s", flag, desc))
	}

	for _, arg := range spec.Args {
		if arg.Positional {
			continue
		}
		var flag string
		switch {
		case arg.Nullary && arg.NegFlag != "":
			flag = fmt.Sprintf("  %s, %s", arg.Flag, arg.NegFlag)
		case arg.Short != "":
			flag = fmt.Sprintf("  %s, %s %s", arg.Short, arg.Flag, metavarHint(arg))
		default:
			flag = fmt.Sprintf("  %s %s", arg.Flag, metavarHint(arg))
		}
		add(strings.TrimRight(flag, " "), describe(arg))
	}
	add("  -h, --help", "Show this help message")
	add("  --version", "Show version information")

	var builder strings.Builder
	for _, line := range lines {
		parts := strings.SplitN(line, "||", 2)
		padding := strings.Repeat(" ", maxLen-len(parts[0]))
		builder.WriteString(fmt.Sprintf("%s%s  %s\n", parts[0], padding, parts[1]))
	}
	return builder.String()
}

// describe combines an argument's help text with its default, choices, and
// required annotations.
func describe(arg *core.ArgumentSpec) string {
	desc := arg.Help
	if len(arg.Choices) > 0 {
		desc = appendAnnotation(desc, "one of: "+strings.Join(arg.Choices, ", "))
	}
	switch {
	case arg.Fixed:
		desc = appendAnnotation(desc, "fixed: "+arg.DefaultText)
	case arg.Required:
		desc = appendAnnotation(desc, "required")
	case arg.HasDefault && arg.DefaultText != "":
		desc = appendAnnotation(desc, "default: "+arg.DefaultText)
	}
	return desc
}

func appendAnnotation(desc, note string) string {
	if desc == "" {
		return "(" + note + ")"
	}
	return desc + " (" + note + ")"
}

func positionalHint(arg *core.ArgumentSpec) string {
	if arg.Required {
		return "<" + arg.Metavar + ">"
	}
	return "[" + arg.Metavar + "]"
}

func metavarHint(arg *core.ArgumentSpec) string {
	if arg.Nullary {
		return ""
	}
	if arg.Arity == core.ArityVariable {
		return "[" + arg.Metavar + "...]"
	}
	if arg.Arity > 1 {
		return strings.TrimSpace(strings.Repeat(arg.Metavar+" ", arg.Arity))
	}
	return arg.Metavar
}

func hasPositionals(spec *core.CommandSpec) bool {
	for _, arg := range spec.Args {
		if arg.Positional {
			return true
		}
	}
	return false
}
