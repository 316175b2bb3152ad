// Package schedule runs recurring maintenance tasks inside a long-lived
// process.
//
//	s := schedule.New()
//	s.Every(time.Minute).Name("cache:sweep").Run(sweep)
//	s.Cron("*/15 * * * *").Name("queue:retry").WithoutOverlapping().Run(retry)
//	go s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/ordersvc/pkg/logger"
)

type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	cronExpr  string
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler holds the registered entries. The zero value is not usable;
// call New.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
	tick    time.Duration
}

func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Builder configures one entry until Run registers it.
type Builder struct {
	s *Scheduler
	e *entry
}

func (s *Scheduler) Every(d time.Duration) *Builder {
	return &Builder{s: s, e: &entry{interval: d}}
}

// Cron schedules on a 5-field expression (minute hour dom month dow). Each
// field is *, a number, */step, a range a-b or a comma list of those.
func (s *Scheduler) Cron(expr string) *Builder {
	return &Builder{s: s, e: &entry{cronExpr: expr}}
}

func (b *Builder) Name(id string) *Builder {
	b.e.id = id
	return b
}

// WithoutOverlapping skips a run while the previous one is still going.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

func (b *Builder) Run(task Task) error {
	if b.e.cronExpr != "" {
		if err := validCron(b.e.cronExpr); err != nil {
			return err
		}
	} else if b.e.interval <= 0 {
		return fmt.Errorf("schedule: interval must be positive, got %s", b.e.interval)
	}
	b.e.task = task

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
	return nil
}

// Start dispatches due tasks once per tick until ctx is done, then waits
// for running tasks to return.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("schedule: started", "tasks", len(s.List()))
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("schedule: stopped")
			return
		case now := <-ticker.C:
			s.runDue(ctx, now)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	for _, e := range current {
		if e.due(now) {
			s.dispatch(ctx, e, now)
		}
	}
}

func (e *entry) due(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cronExpr != "" {
		// once per matching minute
		if !e.lastRun.IsZero() && e.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			return false
		}
		return matchCron(e.cronExpr, now)
	}
	if e.lastRun.IsZero() {
		return true
	}
	return now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", r)
			}
		}()

		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "id", e.id, "error", err)
		}
	}()
}

func validCron(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return fmt.Errorf("schedule: cron %q: want 5 fields, got %d", expr, len(fields))
	}
	for _, f := range fields {
		for _, part := range strings.Split(f, ",") {
			if _, err := parsePart(part); err != nil {
				return fmt.Errorf("schedule: cron %q: %w", expr, err)
			}
		}
	}
	return nil
}

func matchCron(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	values := []int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		if !matchField(f, values[i]) {
			return false
		}
	}
	return true
}

func matchField(field string, val int) bool {
	for _, part := range strings.Split(field, ",") {
		m, err := parsePart(part)
		if err == nil && m(val) {
			return true
		}
	}
	return false
}

func parsePart(part string) (func(int) bool, error) {
	switch {
	case part == "*":
		return func(int) bool { return true }, nil
	case strings.HasPrefix(part, "*/"):
		step, err := strconv.Atoi(part[2:])
		if err != nil || step <= 0 {
			return nil, fmt.Errorf("bad step %q", part)
		}
		return func(v int) bool { return v%step == 0 }, nil
	case strings.Contains(part, "-"):
		lo, hi, ok := strings.Cut(part, "-")
		a, errA := strconv.Atoi(lo)
		b, errB := strconv.Atoi(hi)
		if !ok || errA != nil || errB != nil || a > b {
			return nil, fmt.Errorf("bad range %q", part)
		}
		return func(v int) bool { return v >= a && v <= b }, nil
	default:
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", part)
		}
		return func(v int) bool { return v == n }, nil
	}
}

// List describes every entry, for the CLI.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.cronExpr
		if freq == "" {
			freq = "every " + e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, freq))
	}
	return out
}
