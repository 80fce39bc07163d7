package watcher

import "time"

// Options configures the file watcher behavior.
type Options struct {
	// SettleDelay is how long a file must stay quiet before a change is
	// reported. Every write restarts the delay.
	SettleDelay time.Duration

	// Companions are suffixes of sibling files whose changes count as changes
	// of the watched file, such as SQLite's write-ahead log.
	Companions []string
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	// nil means defaults; an explicit empty slice disables companions.
	if o.Companions == nil {
		o.Companions = []string{"-wal", "-journal"}
	}
}
