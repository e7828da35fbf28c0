package notify

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ecsgraph/pkg/ecs"
)

// LogSink writes one line per committed batch.
type LogSink struct {
	logger *log.Logger
	level  log.Level
}

// NewLogSink creates a sink logging at info level. A nil logger uses
// log.Default().
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger, level: log.InfoLevel}
}

// WithLevel returns a copy of the sink logging at level.
func (s *LogSink) WithLevel(level log.Level) *LogSink {
	return &LogSink{logger: s.logger, level: level}
}

// Notify implements [ecs.Listener].
func (s *LogSink) Notify(_ context.Context, b ecs.Batch) {
	summary := Summary(b)
	kv := []any{"scope", b.ScopeID, "events", len(b.Events)}
	for _, kind := range slices.Sorted(maps.Keys(summary)) {
		c := summary[kind]
		kv = append(kv, kind, fmt.Sprintf("+%d ~%d -%d", c.Created, c.Updated, c.Deleted))
	}
	s.logger.Log(s.level, "commit", kv...)
}

var _ ecs.Listener = (*LogSink)(nil)
