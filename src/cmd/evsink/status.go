// FILE: evsink/src/cmd/evsink/status.go
package main

import (
	"time"
)

// statusReporter periodically logs source, queue and sink progress
func statusReporter(app *App, interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			logStatus(app)
		}
	}
}

func logStatus(app *App) {
	statusFields := []any{
		"msg", "Status report",
		"component", "status_reporter",
	}

	if app.source != nil {
		src := app.source.GetStats()
		statusFields = append(statusFields,
			"source_lines", src.TotalLines,
			"source_events", src.TotalEvents,
			"source_parse_errors", src.ParseErrors)
	}

	events := app.events.Stats()
	statusFields = append(statusFields,
		"queue_depth", events["depth"],
		"queue_high_water", events["high_water"],
		"uptime_ms", events["uptime_ms"])

	stats := app.reporter.GetStats()
	if delivered, ok := stats["total_delivered"].(uint64); ok {
		statusFields = append(statusFields, "delivered", delivered)
	}
	if filtered, ok := stats["total_filtered"].(uint64); ok {
		statusFields = append(statusFields, "filtered", filtered)
	}
	if sinkErrors, ok := stats["sink_errors"].(uint64); ok && sinkErrors > 0 {
		statusFields = append(statusFields, "sink_errors", sinkErrors)
	}

	logger.Debug(statusFields...)
}
