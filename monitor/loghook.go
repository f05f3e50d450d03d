package monitor

import (
	"context"

	"dbchain/logging"
)

// LogHook writes query events to the structured logger.
type LogHook struct {
	logger logging.Logger
}

// NewLogHook builds a log hook; a nil logger falls back to the global one.
func NewLogHook(logger logging.Logger) *LogHook {
	if logger == nil {
		logger = logging.GetLogger().WithFields(logging.String("component", "db.monitor"))
	}
	return &LogHook{logger: logger}
}

func (h *LogHook) OnQuery(ctx context.Context, event *QueryEvent) {
	fields := []logging.Field{
		logging.String("query_id", event.ID),
		logging.String("op", string(event.Op)),
		logging.String("table", event.Table),
		logging.String("sql", event.SQL),
		logging.Duration("elapsed", event.Duration),
		logging.Bool("cached", event.Cached),
	}
	if event.Error != "" {
		h.logger.Error(ctx, "query failed", append(fields, logging.String("error", event.Error))...)
		return
	}
	h.logger.Debug(ctx, "query executed", fields...)
}
