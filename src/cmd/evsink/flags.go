// FILE: evsink/src/cmd/evsink/flags.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lixenwraith/log"
)

// FlagConfig holds parsed command-line flags. Remaining arguments after "--"
// are handed to the config loader as key overrides.
type FlagConfig struct {
	ConfigFile  string
	ShowVersion bool
	Quiet       bool
	WriteConfig string
	Input       string

	// Logging overrides
	LogOutput  string
	LogLevel   string
	LogConsole string

	ConfigArgs []string
}

func newFlagSet(fc *FlagConfig, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("evsink", flag.ContinueOnError)
	fs.SetOutput(out)

	// General flags
	fs.StringVar(&fc.ConfigFile, "config", "", "Config file path")
	fs.BoolVar(&fc.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&fc.Quiet, "quiet", false, "Suppress all evsink output except exported entries")
	fs.StringVar(&fc.WriteConfig, "write-config", "", "Write the effective configuration to this path and exit")
	fs.StringVar(&fc.Input, "input", "", "Read nix internal-json from this path, - for stdin (overrides config)")

	// Logging flags
	fs.StringVar(&fc.LogOutput, "log-output", "", "Log output: file, stdout, stderr, both, none (overrides config)")
	fs.StringVar(&fc.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&fc.LogConsole, "log-console", "", "Console target: stdout, stderr, split (overrides config)")

	fs.Usage = func() { customUsage(fs, out) }
	return fs
}

func customUsage(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintf(out, "evsink - build engine telemetry sink\n\n")
	fmt.Fprintf(out, "Usage: %s [options] [-- key=value ...]\n\n", os.Args[0])
	fmt.Fprintf(out, "Options:\n")
	fs.PrintDefaults()

	fmt.Fprintf(out, "\nExamples:\n")
	fmt.Fprintf(out, "  # Pretty-print a build's event stream\n")
	fmt.Fprintf(out, "  nix build --log-format internal-json 2>&1 | %s\n\n", os.Args[0])

	fmt.Fprintf(out, "  # Ship events to an HTTP collector using a config file\n")
	fmt.Fprintf(out, "  %s --config /etc/evsink.toml --input build.log\n\n", os.Args[0])

	fmt.Fprintf(out, "  # Override config keys from the command line\n")
	fmt.Fprintf(out, "  %s -- --reporter.batch_size=100 --metrics.enabled=true\n\n", os.Args[0])

	fmt.Fprintf(out, "Environment Variables:\n")
	fmt.Fprintf(out, "  EVSINK_CONFIG_FILE               Config file path\n")
	fmt.Fprintf(out, "  EVSINK_CONFIG_DIR                Config directory\n")
	fmt.Fprintf(out, "  EVSINK_DISABLE_STATUS_REPORTER   Disable periodic status reports (set to 1)\n")
	fmt.Fprintf(out, "  EVSINK_<SECTION>_<KEY>           Any config key, e.g. EVSINK_REPORTER_BATCH_SIZE\n")
}

// ParseFlags parses and validates args (without the program name)
func ParseFlags(args []string, out io.Writer) (*FlagConfig, error) {
	fc := &FlagConfig{}
	fs := newFlagSet(fc, out)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fc.ConfigArgs = fs.Args()

	// Validate log-output flag if provided
	if fc.LogOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"both": true, "none": true,
		}
		if !validOutputs[fc.LogOutput] {
			return nil, fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, both, none)", fc.LogOutput)
		}
	}

	// Validate log-level flag if provided
	if fc.LogLevel != "" {
		if _, err := parseLogLevel(fc.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", fc.LogLevel)
		}
	}

	// Validate log-console flag if provided
	if fc.LogConsole != "" {
		validTargets := map[string]bool{
			"stdout": true, "stderr": true, "split": true,
		}
		if !validTargets[fc.LogConsole] {
			return nil, fmt.Errorf("invalid log-console: %s (valid: stdout, stderr, split)", fc.LogConsole)
		}
	}

	return fc, nil
}

func parseLogLevel(level string) (int64, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int64(log.LevelDebug), nil
	case "info":
		return int64(log.LevelInfo), nil
	case "warn", "warning":
		return int64(log.LevelWarn), nil
	case "error":
		return int64(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
