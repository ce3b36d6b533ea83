package logging

import (
	"log/slog"
	"strings"
)

// LevelFromString parses names like "warn" or "INFO+2", case insensitive.
// Missing or unknown values give slog.LevelInfo.
func LevelFromString(str *string) slog.Level {
	if str == nil {
		return slog.LevelInfo
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(*str))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
