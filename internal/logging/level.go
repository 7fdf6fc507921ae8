package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// Level is one of the pipeline log levels. Anything unrecognised is Unknown.
type Level int

const (
	Unknown Level = iota
	Debug
	Info
	Warn
	Error
	Critical
)

var levelNames = map[Level]string{
	Unknown:  "UNKNOWN",
	Debug:    "DEBUG",
	Info:     "INFO",
	Warn:     "WARN",
	Error:    "ERROR",
	Critical: "CRITICAL",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return levelNames[Unknown]
}

// Notifies reports whether records at this level are forwarded to the notifier.
func (l Level) Notifies() bool {
	return l == Warn || l == Error || l == Critical
}

// ParseLevel maps a level name to a Level. It never fails: unknown names
// become Unknown so the line is still logged.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return Debug
	case "INFO":
		return Info
	case "WARN", "WARNING":
		return Warn
	case "ERROR":
		return Error
	case "CRITICAL":
		return Critical
	default:
		return Unknown
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Info:
		return zerolog.InfoLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	case Critical:
		// emitted through WithLevel, which never exits
		return zerolog.FatalLevel
	default:
		return zerolog.NoLevel
	}
}

// formatLevel renders the zerolog level field back into the pipeline's tag.
func formatLevel(i interface{}) string {
	s, _ := i.(string)
	switch s {
	case zerolog.LevelDebugValue:
		return "[" + Debug.String() + "]"
	case zerolog.LevelInfoValue:
		return "[" + Info.String() + "]"
	case zerolog.LevelWarnValue:
		return "[" + Warn.String() + "]"
	case zerolog.LevelErrorValue:
		return "[" + Error.String() + "]"
	case zerolog.LevelFatalValue:
		return "[" + Critical.String() + "]"
	default:
		return "[" + Unknown.String() + "]"
	}
}
