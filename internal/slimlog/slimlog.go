// Package slimlog is the structured-logging facade used by every SlimChain
// subsystem. It redirects to luxfi/log, the same logging library the
// execution client this prototype grew out of uses, so that log lines from
// storage nodes, miners and the consensus adapters share one format.
package slimlog

import (
	"log/slog"

	luxlog "github.com/luxfi/log"
)

// Logger is the interface every component logs through. Subsystems take one
// as a constructor argument instead of calling a package-level logger, so
// tests can install a discarding logger and production code can install one
// bound to the node's role and address.
type Logger = luxlog.Logger

const (
	LevelTrace slog.Level = -8
	LevelDebug            = slog.LevelDebug
	LevelInfo             = slog.LevelInfo
	LevelWarn             = slog.LevelWarn
	LevelError            = slog.LevelError
	LevelCrit  slog.Level = 12
)

// New returns a logger tagged with the given component name, e.g.
// "trie", "pipeline/pool", "consensus/pow".
func New(component string) Logger {
	return luxlog.Root().With("component", component)
}

// Discard returns a logger that drops everything; used by tests that
// instantiate a NodeContext without caring about its log output.
func Discard() Logger {
	return luxlog.Root().With("silent", true)
}
