package events

import (
	"github.com/tphakala/rfscan-go/internal/logger"
)

// LogConsumer writes scan events and errors to the structured log.
type LogConsumer struct {
	log logger.Logger
}

// NewLogConsumer creates a LogConsumer. A nil logger uses the package logger.
func NewLogConsumer(log logger.Logger) *LogConsumer {
	if log == nil {
		log = GetLogger()
	}
	return &LogConsumer{log: log}
}

func (c *LogConsumer) Name() string { return "log" }

func (c *LogConsumer) ProcessEvent(event ErrorEvent) error {
	c.log.Warn("error reported",
		logger.String("component", event.GetComponent()),
		logger.String("category", event.GetCategory()),
		logger.String("error", event.GetMessage()))
	return nil
}

func (c *LogConsumer) ProcessScanEvent(event *ScanEvent) error {
	fields := []logger.Field{logger.String("event", string(event.Type))}
	if event.SessionID != "" {
		fields = append(fields, logger.String("session_id", event.SessionID))
	}
	if event.Scanner != "" {
		fields = append(fields, logger.String("scanner", event.Scanner))
	}

	switch {
	case event.IsFailure():
		c.log.Warn(event.Message(), fields...)
	case event.Type == NewEntity || event.Type == IRKResolved:
		c.log.Debug(event.Message(), fields...)
	default:
		c.log.Info(event.Message(), fields...)
	}
	return nil
}
