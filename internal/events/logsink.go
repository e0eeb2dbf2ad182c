package events

import "log"

// LogSink writes one line per event via an injected *log.Logger. It is
// the ambient "logging" implementation of Sink: deliberately built on
// the standard library logger rather than a structured-logging
// dependency, since nothing in the reference corpus imports one
// directly for this kind of terse, line-oriented CLI output (see
// DESIGN.md).
type LogSink struct {
	Logger *log.Logger
}

// NewLogSink wraps logger, falling back to log.Default() if nil.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{Logger: logger}
}

func (s *LogSink) PartialParsingEnabled(e Enabled) {
	s.Logger.Printf("partial parsing: %d added, %d changed, %d deleted", len(e.Added), len(e.Changed), len(e.Deleted))
}

func (s *LogSink) PartialParsingFile(f File) {
	s.Logger.Printf("partial parsing: %s %s", f.Operation, f.FileID)
}
