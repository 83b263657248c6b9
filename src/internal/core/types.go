// FILE: evsink/src/internal/core/types.go
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Verbosity mirrors the engine's log levels, most severe first
type Verbosity uint8

const (
	VerbosityError Verbosity = iota
	VerbosityWarn
	VerbosityNotice
	VerbosityInfo
	VerbosityTalkative
	VerbosityChatty
	VerbosityDebug
	VerbosityVomit
)

var verbosityNames = [...]string{"error", "warn", "notice", "info", "talkative", "chatty", "debug", "vomit"}

func (v Verbosity) String() string {
	if int(v) < len(verbosityNames) {
		return verbosityNames[v]
	}
	return fmt.Sprintf("level(%d)", uint8(v))
}

// ParseVerbosity accepts a level name or its ordinal
func ParseVerbosity(s string) (Verbosity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	for i, n := range verbosityNames {
		if n == name {
			return Verbosity(i), nil
		}
	}
	if n, err := strconv.ParseUint(name, 10, 8); err == nil && int(n) < len(verbosityNames) {
		return Verbosity(n), nil
	}
	return 0, fmt.Errorf("unknown verbosity: %s", s)
}

// ActivityType categorizes a started activity
type ActivityType uint64

const (
	ActivityUnknown       ActivityType = 0
	ActivityCopyPath      ActivityType = 100
	ActivityFileTransfer  ActivityType = 101
	ActivityRealise       ActivityType = 102
	ActivityCopyPaths     ActivityType = 103
	ActivityBuilds        ActivityType = 104
	ActivityBuild         ActivityType = 105
	ActivityOptimiseStore ActivityType = 106
	ActivityVerifyPaths   ActivityType = 107
	ActivitySubstitute    ActivityType = 108
	ActivityQueryPathInfo ActivityType = 109
	ActivityPostBuildHook ActivityType = 110
	ActivityBuildWaiting  ActivityType = 111
	ActivityFetchTree     ActivityType = 112
)

var activityNames = map[ActivityType]string{
	ActivityUnknown:       "unknown",
	ActivityCopyPath:      "copy_path",
	ActivityFileTransfer:  "file_transfer",
	ActivityRealise:       "realise",
	ActivityCopyPaths:     "copy_paths",
	ActivityBuilds:        "builds",
	ActivityBuild:         "build",
	ActivityOptimiseStore: "optimise_store",
	ActivityVerifyPaths:   "verify_paths",
	ActivitySubstitute:    "substitute",
	ActivityQueryPathInfo: "query_path_info",
	ActivityPostBuildHook: "post_build_hook",
	ActivityBuildWaiting:  "build_waiting",
	ActivityFetchTree:     "fetch_tree",
}

func (t ActivityType) String() string {
	if n, ok := activityNames[t]; ok {
		return n
	}
	return fmt.Sprintf("activity(%d)", uint64(t))
}

// ResultType tags the payload of an activity result
type ResultType uint64

const (
	ResultFileLinked       ResultType = 100
	ResultBuildLogLine     ResultType = 101
	ResultUntrustedPath    ResultType = 102
	ResultCorruptedPath    ResultType = 103
	ResultSetPhase         ResultType = 104
	ResultProgress         ResultType = 105
	ResultSetExpected      ResultType = 106
	ResultPostBuildLogLine ResultType = 107
	ResultFetchStatus      ResultType = 108
)

var resultNames = map[ResultType]string{
	ResultFileLinked:       "file_linked",
	ResultBuildLogLine:     "build_log_line",
	ResultUntrustedPath:    "untrusted_path",
	ResultCorruptedPath:    "corrupted_path",
	ResultSetPhase:         "set_phase",
	ResultProgress:         "progress",
	ResultSetExpected:      "set_expected",
	ResultPostBuildLogLine: "post_build_log_line",
	ResultFetchStatus:      "fetch_status",
}

func (t ResultType) String() string {
	if n, ok := resultNames[t]; ok {
		return n
	}
	return fmt.Sprintf("result(%d)", uint64(t))
}
