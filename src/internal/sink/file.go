// FILE: evsink/src/internal/sink/file.go
package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"evsink/src/internal/config"
	"evsink/src/internal/core"
	"evsink/src/internal/format"

	"github.com/lixenwraith/log"
)

// FileSink writes entries to rotating files through a dedicated log writer
type FileSink struct {
	name      string
	opts      *config.FileSinkOptions
	writer    *log.Logger // Internal logger instance for file writing
	formatter format.Formatter
	logger    *log.Logger // Application logger
	startTime time.Time

	// Statistics
	totalWritten atomic.Uint64
	totalBatches atomic.Uint64
	formatErrors atomic.Uint64
	lastWritten  atomic.Value // time.Time
}

// NewFileSink creates and starts a file sink
func NewFileSink(name string, opts *config.FileSinkOptions, formatter format.Formatter, logger *log.Logger) (*FileSink, error) {
	if opts == nil {
		return nil, fmt.Errorf("file sink options cannot be nil")
	}

	// Create configuration for the internal log writer
	writerConfig := log.DefaultConfig()
	writerConfig.Directory = opts.Directory
	writerConfig.Name = opts.Name
	writerConfig.EnableConsole = false // File only
	writerConfig.ShowTimestamp = false // Entries carry their own timestamps
	writerConfig.ShowLevel = false

	if opts.MaxSizeMB > 0 {
		writerConfig.MaxSizeKB = opts.MaxSizeMB * 1000
	}
	if opts.MaxTotalSizeMB > 0 {
		writerConfig.MaxTotalSizeKB = opts.MaxTotalSizeMB * 1000
	}
	if opts.RetentionHours > 0 {
		writerConfig.RetentionPeriodHrs = float64(opts.RetentionHours)
	}
	if opts.MinDiskFreeMB > 0 {
		writerConfig.MinDiskFreeKB = opts.MinDiskFreeMB * 1000
	}

	writer := log.NewLogger()
	if err := writer.ApplyConfig(writerConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize file writer: %w", err)
	}
	if err := writer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start file writer: %w", err)
	}

	fs := &FileSink{
		name:      name,
		opts:      opts,
		writer:    writer,
		formatter: formatter,
		logger:    logger,
		startTime: time.Now(),
	}
	fs.lastWritten.Store(time.Time{})

	logger.Info("msg", "File sink started",
		"component", "file_sink",
		"name", name,
		"directory", opts.Directory,
		"file", opts.Name,
		"format", formatter.Name())
	return fs, nil
}

func (fs *FileSink) Name() string {
	return fs.name
}

func (fs *FileSink) Write(ctx context.Context, entries []core.Entry) error {
	fs.totalBatches.Add(1)

	var written, skipped int
	var firstErr error
	for _, entry := range entries {
		formatted, err := fs.formatter.Format(entry)
		if err != nil {
			fs.formatErrors.Add(1)
			fs.logger.Error("msg", "Failed to format entry",
				"component", "file_sink",
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			skipped++
			continue
		}

		// Strip new line, writer adds it. Passed as string to avoid hex encoding of []byte.
		fs.writer.Message(string(bytes.TrimSuffix(formatted, []byte{'\n'})))
		fs.totalWritten.Add(1)
		written++
	}

	fs.lastWritten.Store(time.Now())
	return partialResult(written, skipped, firstErr)
}

func (fs *FileSink) Close() error {
	if err := fs.writer.Shutdown(2 * time.Second); err != nil {
		fs.logger.Error("msg", "Error shutting down file writer",
			"component", "file_sink",
			"error", err)
		return err
	}

	fs.logger.Info("msg", "File sink stopped",
		"component", "file_sink",
		"name", fs.name,
		"total_written", fs.totalWritten.Load())
	return nil
}

func (fs *FileSink) GetStats() SinkStats {
	lastWritten, _ := fs.lastWritten.Load().(time.Time)

	return SinkStats{
		Type:         "file",
		TotalWritten: fs.totalWritten.Load(),
		TotalBatches: fs.totalBatches.Load(),
		StartTime:    fs.startTime,
		LastWritten:  lastWritten,
		Details: map[string]any{
			"directory":     fs.opts.Directory,
			"name":          fs.opts.Name,
			"format":        fs.formatter.Name(),
			"format_errors": fs.formatErrors.Load(),
		},
	}
}
