// FILE: evsink/src/internal/filter/filter_test.go
package filter

import (
	"testing"

	"evsink/src/internal/config"
	"evsink/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func message(level core.Verbosity, text string) core.Entry {
	return core.Entry{Kind: core.KindMessage, Level: level, Text: text}
}

func TestNewFilter(t *testing.T) {
	logger := newTestLogger()

	t.Run("Defaults", func(t *testing.T) {
		f, err := NewFilter(config.FilterConfig{}, logger)
		require.NoError(t, err)
		assert.Equal(t, config.FilterTypeInclude, f.config.Type)
		assert.Equal(t, config.FilterLogicOr, f.config.Logic)
		assert.False(t, f.hasLevel)
	})

	t.Run("InvalidRegex", func(t *testing.T) {
		_, err := NewFilter(config.FilterConfig{Patterns: []string{"ok", "[bad"}}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pattern[1]")
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := NewFilter(config.FilterConfig{MinLevel: "shouty"}, logger)
		require.Error(t, err)
	})
}

func TestFilter_Apply(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name   string
		cfg    config.FilterConfig
		entry  core.Entry
		expect bool
	}{
		{
			name:   "NoPatterns",
			cfg:    config.FilterConfig{},
			entry:  message(core.VerbosityVomit, "anything"),
			expect: true,
		},
		{
			name:   "IncludeOR_MatchOne",
			cfg:    config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"error", "warning"}},
			entry:  message(core.VerbosityInfo, "builder error: exit 1"),
			expect: true,
		},
		{
			name:   "IncludeOR_NoMatch",
			cfg:    config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"error", "warning"}},
			entry:  message(core.VerbosityInfo, "copying path"),
			expect: false,
		},
		{
			name:   "IncludeAND_MatchAll",
			cfg:    config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicAnd, Patterns: []string{"^building", "drv$"}},
			entry:  message(core.VerbosityInfo, "building /nix/store/abc-hello.drv"),
			expect: true,
		},
		{
			name:   "IncludeAND_MatchOne",
			cfg:    config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicAnd, Patterns: []string{"^building", "drv$"}},
			entry:  message(core.VerbosityInfo, "building hello"),
			expect: false,
		},
		{
			name:   "ExcludeOR_Match",
			cfg:    config.FilterConfig{Type: config.FilterTypeExclude, Logic: config.FilterLogicOr, Patterns: []string{"^evaluating"}},
			entry:  message(core.VerbosityInfo, "evaluating file"),
			expect: false,
		},
		{
			name:   "ExcludeOR_NoMatch",
			cfg:    config.FilterConfig{Type: config.FilterTypeExclude, Logic: config.FilterLogicOr, Patterns: []string{"^evaluating"}},
			entry:  message(core.VerbosityInfo, "building"),
			expect: true,
		},
		{
			name:   "MinLevel_MoreSevere",
			cfg:    config.FilterConfig{MinLevel: "info"},
			entry:  message(core.VerbosityWarn, "disk nearly full"),
			expect: true,
		},
		{
			name:   "MinLevel_LessSevere",
			cfg:    config.FilterConfig{MinLevel: "info"},
			entry:  message(core.VerbosityDebug, "querying substituter"),
			expect: false,
		},
		{
			name:   "StopWithoutStartPasses",
			cfg:    config.FilterConfig{MinLevel: "error", Patterns: []string{"nothing"}},
			entry:  core.Entry{Kind: core.KindStop, ActivityID: 42},
			expect: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFilter(tc.cfg, logger)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, f.Apply(tc.entry))
		})
	}
}

func TestFilter_SuppressesWholeActivity(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{MinLevel: "info"}, newTestLogger())
	require.NoError(t, err)

	entries := []struct {
		entry  core.Entry
		expect bool
	}{
		{core.Entry{Kind: core.KindStart, ActivityID: 1, Level: core.VerbosityInfo, Type: uint64(core.ActivityBuilds)}, true},
		{core.Entry{Kind: core.KindStart, ActivityID: 2, Level: core.VerbosityDebug, Type: uint64(core.ActivityQueryPathInfo), Parent: 1}, false},
		{core.Entry{Kind: core.KindStart, ActivityID: 3, Level: core.VerbosityInfo, Type: uint64(core.ActivityFileTransfer), Parent: 2}, false},
		{core.Entry{Kind: core.KindResult, ActivityID: 2, Type: uint64(core.ResultProgress)}, false},
		{core.Entry{Kind: core.KindResult, ActivityID: 1, Type: uint64(core.ResultProgress)}, true},
		{core.Entry{Kind: core.KindStop, ActivityID: 3}, false},
		{core.Entry{Kind: core.KindStop, ActivityID: 2}, false},
		{core.Entry{Kind: core.KindStop, ActivityID: 1}, true},
	}

	for i, tc := range entries {
		assert.Equal(t, tc.expect, f.Apply(tc.entry), "entry %d (%s #%d)", i, tc.entry.Kind, tc.entry.ActivityID)
	}

	stats := f.GetStats()
	assert.Equal(t, 0, stats["suppressed_activities"])
	assert.Equal(t, uint64(8), stats["total_processed"])
	assert.Equal(t, uint64(5), stats["total_dropped"])
}

func TestFilter_SuppressedSetBounded(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{MinLevel: "info"}, newTestLogger())
	require.NoError(t, err)
	f.maxSuppressed = 4

	// Debug starts that never stop
	for id := core.ActivityID(1); id <= 10; id++ {
		assert.False(t, f.Apply(core.Entry{Kind: core.KindStart, ActivityID: id, Level: core.VerbosityDebug}))
	}

	stats := f.GetStats()
	assert.Equal(t, 4, stats["suppressed_activities"])
	assert.Equal(t, uint64(6), stats["total_evicted"])

	// The newest activities are still suppressed, evicted ones pass through
	assert.False(t, f.Apply(core.Entry{Kind: core.KindResult, ActivityID: 10}))
	assert.False(t, f.Apply(core.Entry{Kind: core.KindStop, ActivityID: 7}))
	assert.True(t, f.Apply(core.Entry{Kind: core.KindStop, ActivityID: 1}))

	// Churn through stopped activities keeps the order slice compact
	for id := core.ActivityID(100); id < 200; id++ {
		f.Apply(core.Entry{Kind: core.KindStart, ActivityID: id, Level: core.VerbosityDebug})
		f.Apply(core.Entry{Kind: core.KindStop, ActivityID: id})
	}
	assert.LessOrEqual(t, len(f.suppressedOrder), 2*f.maxSuppressed+1)
	assert.LessOrEqual(t, len(f.suppressed), f.maxSuppressed)
}

func TestFilter_UpdatePatterns(t *testing.T) {
	f, err := NewFilter(config.FilterConfig{Patterns: []string{"^old"}}, newTestLogger())
	require.NoError(t, err)

	assert.True(t, f.Apply(message(core.VerbosityInfo, "old message")))
	assert.False(t, f.Apply(message(core.VerbosityInfo, "new message")))

	require.NoError(t, f.UpdatePatterns([]string{"^new"}))
	assert.False(t, f.Apply(message(core.VerbosityInfo, "old message")))
	assert.True(t, f.Apply(message(core.VerbosityInfo, "new message")))

	err = f.UpdatePatterns([]string{"("})
	require.Error(t, err)
	assert.True(t, f.Apply(message(core.VerbosityInfo, "new message")), "failed update must keep previous patterns")
}
