package display

import (
	"fmt"
	"runtime/debug"

	"github.com/chriso345/strut/errors"
)

// BuildVersion returns the version line for a program. An explicitly
// configured tag wins; otherwise the main module's version is read from
// build metadata.
func BuildVersion(prog, tag string) string {
	version := tag
	if version == "" {
		inferred, err := inferVersion()
		if err != nil {
			return "No version specified"
		}
		version = inferred
	}

	if prog != "" {
		prog = prog + " "
	}
	return fmt.Sprintf("%sv%s", prog, version)
}

// inferVersion attempts to infer the user's module version from build info.
func inferVersion() (string, error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", errors.NewParseError("unable to read build info")
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version, nil
	}

	return "", errors.NewParseError("no version info found in build metadata")
}
