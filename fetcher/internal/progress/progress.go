package progress

import (
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/go-logr/logr"
)

// Reporter creates a progress tracker per transferred file.
type Reporter interface {
	// Start is called once before the first byte of a file is transferred.
	// A total of zero means the size is unknown.
	Start(name string, total int64) Tracker
}

// Tracker tracks the transferred bytes of a single file.
type Tracker interface {
	Add(n int)
	Done()
}

// Nop is a reporter that discards progress.
type Nop struct{}

// Start implements Reporter.
func (Nop) Start(string, int64) Tracker { return nopTracker{} }

type nopTracker struct{}

func (nopTracker) Add(int) {}
func (nopTracker) Done()   {}

// NewLogReporter returns a reporter that writes progress to the logger. Progress lines
// of a file are written at most once per interval.
func NewLogReporter(logger logr.Logger, interval time.Duration) *LogReporter {
	return &LogReporter{
		logger:   logger.WithName("progress"),
		interval: interval,
		now:      time.Now,
	}
}

// LogReporter is a Reporter that logs progress.
type LogReporter struct {
	logger   logr.Logger
	interval time.Duration
	now      func() time.Time
}

// Start implements Reporter.
func (r *LogReporter) Start(name string, total int64) Tracker {
	t := &logTracker{
		r:       r,
		name:    name,
		total:   total,
		started: r.now(),
	}
	t.lastReported = t.started
	r.logger.Info("Downloading", "file", name, "size", formatTotal(total))
	return t
}

type logTracker struct {
	r     *LogReporter
	name  string
	total int64

	mu           sync.Mutex
	current      int64
	started      time.Time
	lastReported time.Time
}

func (t *logTracker) Add(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current += int64(n)
	now := t.r.now()
	if now.Sub(t.lastReported) < t.r.interval {
		return
	}
	t.lastReported = now

	kvs := []any{"file", t.name, "downloaded", units.HumanSize(float64(t.current)), "size", formatTotal(t.total)}
	if p, ok := Percent(t.current, t.total); ok {
		kvs = append(kvs, "percent", p)
	}
	t.r.logger.Info("Download progress", kvs...)
}

func (t *logTracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := t.r.now().Sub(t.started)
	kvs := []any{"file", t.name, "downloaded", units.HumanSize(float64(t.current)), "elapsed", units.HumanDuration(elapsed)}
	if s := elapsed.Seconds(); s > 0 {
		kvs = append(kvs, "rate", units.HumanSize(float64(t.current)/s)+"/s")
	}
	t.r.logger.Info("Downloaded", kvs...)
}

// Percent returns the completed percentage. It returns false when the total is unknown.
func Percent(current, total int64) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	p := int(current * 100 / total)
	if p > 100 {
		p = 100
	}
	return p, true
}

func formatTotal(total int64) string {
	if total <= 0 {
		return "unknown"
	}
	return units.HumanSize(float64(total))
}
