package display

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriso345/strut/conf"
	"github.com/chriso345/strut/core"
)

func init() {
	color.NoColor = true
}

func commandFor(t *testing.T, target any, ms ...conf.Marker) *core.Command {
	t.Helper()
	cmd, err := core.NewCommand(target, core.NewRegistries(), ms...)
	require.NoError(t, err)
	return cmd
}

func TestBuildHelp_Basic(t *testing.T) {
	args := struct {
		Input   string `strut:"positional" help:"Input file path"`
		Verbose bool   `short:"v" help:"Enable verbose output"`
	}{}
	cmd := commandFor(t, &args, conf.Prog("testapp"))

	help := BuildHelp(cmd.Spec)
	assert.Contains(t, help, "Usage: testapp <INPUT> [OPTIONS]")
	assert.Contains(t, help, "Arguments:")
	assert.Contains(t, help, "<INPUT>")
	assert.Contains(t, help, "Input file path")
	assert.Contains(t, help, "--verbose, --no-verbose")
	assert.Contains(t, help, "Enable verbose output")
	assert.Contains(t, help, "-h, --help")
	assert.Contains(t, help, "--version")
}

func TestBuildHelp_DefaultAndRequiredAnnotations(t *testing.T) {
	args := struct {
		Lr   float64 `default:"0.001" help:"Learning rate"`
		Name string  `help:"Experiment name"`
	}{}
	cmd := commandFor(t, &args, conf.Prog("train"))

	help := BuildHelp(cmd.Spec)
	assert.Contains(t, help, "Learning rate (default: 0.001)")
	assert.Contains(t, help, "Experiment name (required)")
}

func TestBuildHelp_Choices(t *testing.T) {
	args := struct {
		Mode string `choices:"fast|slow" default:"fast"`
	}{}
	cmd := commandFor(t, &args, conf.Prog("app"))

	help := BuildHelp(cmd.Spec)
	assert.Contains(t, help, "one of: fast, slow")
}

func TestBuildHelp_FixedAnnotation(t *testing.T) {
	args := struct {
		Seed   int `strut:"fixed" default:"42" help:"RNG seed"`
		Hidden int `strut:"suppress-fixed,fixed" default:"7"`
	}{}
	cmd := commandFor(t, &args, conf.Prog("app"))

	help := BuildHelp(cmd.Spec)
	assert.Contains(t, help, "--seed")
	assert.Contains(t, help, "RNG seed (fixed: 42)")
	assert.NotContains(t, help, "--hidden")
}

func TestBuildHelp_NestedFlagPaths(t *testing.T) {
	args := struct {
		Optimizer struct {
			Lr float64 `default:"1e-3"`
		}
	}{}
	cmd := commandFor(t, &args, conf.Prog("app"))

	help := BuildHelp(cmd.Spec)
	assert.Contains(t, help, "--optimizer.lr FLOAT")
}

type helpCmd interface{ isHelpCmd() }

type serveCmd struct {
	Port int `default:"8080"`
}

func (serveCmd) isHelpCmd() {}

func (serveCmd) CommandHelp() string { return "Start the server" }

type migrateCmd struct {
	Steps int `default:"1"`
}

func (migrateCmd) isHelpCmd() {}

func TestBuildHelp_Subcommands(t *testing.T) {
	args := struct {
		Cmd helpCmd
	}{}
	cmd := commandFor(t, &args, conf.Prog("app"),
		conf.At("cmd", conf.Variants(serveCmd{}, migrateCmd{})))

	help := BuildHelp(cmd.Spec)
	assert.Contains(t, help, "<COMMAND>")
	assert.Contains(t, help, "Subcommands:")
	assert.Contains(t, help, "serve-cmd")
	assert.Contains(t, help, "Start the server")
	assert.Contains(t, help, "migrate-cmd")
}

func TestBuildHelp_SubcommandLevel(t *testing.T) {
	args := struct {
		Cmd helpCmd
	}{}
	cmd := commandFor(t, &args, conf.Prog("app"),
		conf.At("cmd", conf.Variants(serveCmd{}, migrateCmd{})))

	alt, ok := cmd.Spec.Group.Alternative("serve-cmd")
	require.True(t, ok)
	help := BuildHelp(alt.Spec)
	assert.Contains(t, help, "Usage: app serve-cmd")
	assert.Contains(t, help, "--cmd.port INT")
}

func TestBuildHelp_DefaultAlternativeAnnotated(t *testing.T) {
	args := struct {
		Cmd helpCmd
	}{Cmd: serveCmd{Port: 9000}}
	cmd := commandFor(t, &args, conf.Prog("app"),
		conf.At("cmd", conf.Variants(serveCmd{}, migrateCmd{})))

	help := BuildHelp(cmd.Spec)
	assert.Contains(t, help, "[COMMAND]")
	assert.Contains(t, help, "(default)")
}

func TestBuildVersion(t *testing.T) {
	assert.Equal(t, "mycli v2.3.4", BuildVersion("mycli", "2.3.4"))
	assert.Equal(t, "v2.3.4", BuildVersion("", "2.3.4"))
}

func TestBuildVersion_NoTag(t *testing.T) {
	// Test binaries have no main module version; the fallback message is
	// the contract.
	out := BuildVersion("mycli", "")
	assert.Equal(t, "No version specified", out)
}
