// Package sysutil holds process-level helpers used at startup.
package sysutil

import (
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level from a config string. Empty
// input means info; "warning" is accepted as an alias for warn; anything
// unparseable falls back to info rather than failing startup.
func SetLogLevel(lvl string) {
	s := strings.ToLower(strings.TrimSpace(lvl))
	switch s {
	case "":
		s = "info"
	case "warning":
		s = "warn"
	}
	if parsed, err := zerolog.ParseLevel(s); err == nil && parsed != zerolog.NoLevel {
		zerolog.SetGlobalLevel(parsed)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
