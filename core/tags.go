package core

import (
	"reflect"
	"strings"

	"github.com/chriso345/strut/conf"
	"github.com/chriso345/strut/errors"
)

// Struct tags are the per-field channel for configuration markers. The
// `strut` key holds a comma-separated list of marker tokens; the remaining
// keys carry field metadata:
//
//	Field string `strut:"positional" help:"input file" default:"in.txt"`
//	Mode  string `choices:"fast|slow" name:"run-mode" short:"m"`
//
// Unknown tokens inside the `strut` key are ignored for forward
// compatibility.

var tagMarkers = map[string]conf.Marker{
	"suppress":            conf.Suppress,
	"-":                   conf.Suppress,
	"fixed":               conf.Fixed,
	"suppress-fixed":      conf.SuppressFixed,
	"positional":          conf.Positional,
	"positional-required": conf.PositionalRequired,
	"flag-off":            conf.FlagConversionOff,
	"avoid-subcommands":   conf.AvoidSubcommands,
	"consolidate":         conf.ConsolidateArgs,
	"omit-prefixes":       conf.OmitPrefixes,
	"fix-defaulted":       conf.FixDefaulted,
	"help-off":            conf.HelpOff,
}

type fieldTag struct {
	markers     conf.Set
	short       string
	defaultText string
	hasDefault  bool
}

// parseFieldTag reads a struct field's tags into a marker set plus the
// metadata that does not participate in resolution caching.
func parseFieldTag(sf reflect.StructField) (fieldTag, error) {
	var ft fieldTag
	var ms []conf.Marker

	if raw, ok := sf.Tag.Lookup("strut"); ok {
		for _, tok := range strings.Split(raw, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if m, known := tagMarkers[tok]; known {
				ms = append(ms, m)
			}
		}
	}
	if v, ok := sf.Tag.Lookup("name"); ok && v != "" {
		ms = append(ms, conf.Name(v))
	}
	if v, ok := sf.Tag.Lookup("help"); ok && v != "" {
		ms = append(ms, conf.HelpText(v))
	}
	if v, ok := sf.Tag.Lookup("metavar"); ok && v != "" {
		ms = append(ms, conf.Metavar(v))
	}
	if v, ok := sf.Tag.Lookup("choices"); ok && v != "" {
		ms = append(ms, conf.Choices(strings.Split(v, "|")...))
	}
	if v, ok := sf.Tag.Lookup("short"); ok && v != "" {
		ft.short = v
	}
	if v, ok := sf.Tag.Lookup("default"); ok {
		ft.defaultText = v
		ft.hasDefault = true
	}

	set, err := conf.Set{}.With(ms...)
	if err != nil {
		if mc, ok := err.(errors.MarkerConflictError); ok {
			mc.Path = sf.Name
			return ft, mc
		}
		return ft, err
	}
	ft.markers = set
	return ft, nil
}
