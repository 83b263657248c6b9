// FILE: evsink/src/internal/filter/filter.go
package filter

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"evsink/src/internal/config"
	"evsink/src/internal/core"

	"github.com/lixenwraith/log"
)

// Filter drops text-bearing entries (messages and activity starts) by
// verbosity and regex. When a start is dropped, the activity's results, its
// stop and any child activities are dropped with it so consumers never see
// half an activity.
type Filter struct {
	config   config.FilterConfig
	minLevel core.Verbosity
	hasLevel bool
	patterns []*regexp.Regexp
	mu       sync.RWMutex
	logger   *log.Logger

	// Activities whose start was dropped, oldest first in suppressedOrder.
	// Bounded by maxSuppressed; activities that never stop are evicted oldest first.
	suppressed      map[core.ActivityID]struct{}
	suppressedOrder []core.ActivityID
	maxSuppressed   int
	suppressedMu    sync.Mutex

	// Statistics
	totalProcessed atomic.Uint64
	totalMatched   atomic.Uint64
	totalDropped   atomic.Uint64
	totalEvicted   atomic.Uint64
}

// NewFilter creates a new filter from configuration
func NewFilter(cfg config.FilterConfig, logger *log.Logger) (*Filter, error) {
	if cfg.Type == "" {
		cfg.Type = config.FilterTypeInclude
	}
	if cfg.Logic == "" {
		cfg.Logic = config.FilterLogicOr
	}

	f := &Filter{
		config:     cfg,
		patterns:   make([]*regexp.Regexp, 0, len(cfg.Patterns)),
		suppressed:    make(map[core.ActivityID]struct{}),
		maxSuppressed: core.MaxSuppressedActivities,
		logger:        logger,
	}

	if cfg.MinLevel != "" {
		lvl, err := core.ParseVerbosity(cfg.MinLevel)
		if err != nil {
			return nil, err
		}
		f.minLevel = lvl
		f.hasLevel = true
	}

	for i, pattern := range cfg.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		f.patterns = append(f.patterns, re)
	}

	logger.Debug("msg", "Filter created",
		"component", "filter",
		"type", cfg.Type,
		"logic", cfg.Logic,
		"min_level", cfg.MinLevel,
		"pattern_count", len(cfg.Patterns))

	return f, nil
}

// Apply checks if an entry should be passed through
func (f *Filter) Apply(entry core.Entry) bool {
	f.totalProcessed.Add(1)

	var pass bool
	switch entry.Kind {
	case core.KindMessage:
		pass = f.passText(entry)
	case core.KindStart:
		pass = !f.isSuppressed(entry.Parent, false) && f.passText(entry)
		if !pass {
			f.suppress(entry.ActivityID)
		}
	case core.KindResult:
		pass = !f.isSuppressed(entry.ActivityID, false)
	case core.KindStop:
		pass = !f.isSuppressed(entry.ActivityID, true)
	default:
		pass = true
	}

	if !pass {
		f.totalDropped.Add(1)
	}
	return pass
}

func (f *Filter) passText(entry core.Entry) bool {
	if f.hasLevel && entry.Level > f.minLevel {
		return false
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	// No patterns means pass everything
	if len(f.patterns) == 0 {
		return true
	}

	matched := f.matches(entry.Text)
	if matched {
		f.totalMatched.Add(1)
	}

	switch f.config.Type {
	case config.FilterTypeExclude:
		return !matched
	default:
		return matched
	}
}

// matches checks if text matches the patterns according to the logic
func (f *Filter) matches(text string) bool {
	switch f.config.Logic {
	case config.FilterLogicOr:
		for _, re := range f.patterns {
			if re.MatchString(text) {
				return true
			}
		}
		return false

	case config.FilterLogicAnd:
		for _, re := range f.patterns {
			if !re.MatchString(text) {
				return false
			}
		}
		return true

	default:
		f.logger.Warn("msg", "Unknown filter logic",
			"component", "filter",
			"logic", f.config.Logic)
		return false
	}
}

func (f *Filter) suppress(id core.ActivityID) {
	if id == 0 {
		return
	}
	f.suppressedMu.Lock()
	defer f.suppressedMu.Unlock()

	if _, ok := f.suppressed[id]; ok {
		return
	}

	evicted := 0
	for len(f.suppressed) >= f.maxSuppressed && len(f.suppressedOrder) > 0 {
		oldest := f.suppressedOrder[0]
		f.suppressedOrder = f.suppressedOrder[1:]
		if _, ok := f.suppressed[oldest]; ok {
			delete(f.suppressed, oldest)
			evicted++
		}
	}
	if evicted > 0 {
		f.totalEvicted.Add(uint64(evicted))
		f.logger.Warn("msg", "Suppressed activity set full, forgetting oldest activities",
			"component", "filter",
			"evicted", evicted,
			"limit", f.maxSuppressed)
	}

	f.suppressed[id] = struct{}{}
	f.suppressedOrder = append(f.suppressedOrder, id)

	// Released ids stay in the order slice until compacted
	if len(f.suppressedOrder) > 2*f.maxSuppressed {
		live := make([]core.ActivityID, 0, len(f.suppressed))
		for _, sid := range f.suppressedOrder {
			if _, ok := f.suppressed[sid]; ok {
				live = append(live, sid)
			}
		}
		f.suppressedOrder = live
	}
}

// isSuppressed reports whether id belongs to a dropped activity, forgetting it when release is set
func (f *Filter) isSuppressed(id core.ActivityID, release bool) bool {
	if id == 0 {
		return false
	}
	f.suppressedMu.Lock()
	defer f.suppressedMu.Unlock()

	_, ok := f.suppressed[id]
	if ok && release {
		delete(f.suppressed, id)
	}
	return ok
}

// GetStats returns filter statistics
func (f *Filter) GetStats() map[string]any {
	f.suppressedMu.Lock()
	suppressed := len(f.suppressed)
	f.suppressedMu.Unlock()

	return map[string]any{
		"type":                  f.config.Type,
		"logic":                 f.config.Logic,
		"min_level":             f.config.MinLevel,
		"pattern_count":         len(f.patterns),
		"suppressed_activities": suppressed,
		"total_processed":       f.totalProcessed.Load(),
		"total_matched":         f.totalMatched.Load(),
		"total_dropped":         f.totalDropped.Load(),
		"total_evicted":         f.totalEvicted.Load(),
	}
}

// UpdatePatterns allows dynamic pattern updates
func (f *Filter) UpdatePatterns(patterns []string) error {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for i, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		compiled = append(compiled, re)
	}

	f.mu.Lock()
	f.patterns = compiled
	f.config.Patterns = patterns
	f.mu.Unlock()

	f.logger.Info("msg", "Filter patterns updated",
		"component", "filter",
		"pattern_count", len(patterns))
	return nil
}
