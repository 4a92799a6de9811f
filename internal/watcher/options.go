package watcher

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Options configures the file watcher behavior.
type Options struct {
	// Extensions limits events to these lower-case extensions ("" allows all).
	Extensions     []string
	IgnorePatterns []string
	SettleDelay    time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 250 * time.Millisecond
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{"*.tmp", "*.part", "*.done", "*.failed"}
	}
}

// shouldIgnore reports whether path is hidden, matches an ignore pattern
// or has an extension outside Extensions.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	if len(o.Extensions) > 0 && !slices.Contains(o.Extensions, strings.ToLower(filepath.Ext(base))) {
		return true
	}
	return false
}
