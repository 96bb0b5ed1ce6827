package profiling

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	timer    *Timer
}

func (s *span) Stop() {
	s.timer.end(s, time.Since(s.start))
}

// Timer records nested timing spans for one command invocation. Spans
// started while another is open become its children.
type Timer struct {
	mu    sync.Mutex
	root  *span
	stack []*span
	now   func() time.Time
}

// NewTimer starts a timer whose root span covers everything recorded.
func NewTimer() *Timer {
	t := &Timer{now: time.Now}
	t.root = &span{name: "root", start: t.now(), timer: t}
	t.stack = []*span{t.root}
	return t
}

// Start opens a span named name under the innermost open span.
func (t *Timer) Start(name string) Stopper {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent := t.stack[len(t.stack)-1]
	s := &span{name: name, start: t.now(), timer: t}
	parent.children = append(parent.children, s)
	t.stack = append(t.stack, s)
	return s
}

func (t *Timer) end(s *span, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s.duration = d
	// Spans may be stopped out of order; pop s wherever it sits.
	for i := len(t.stack) - 1; i > 0; i-- {
		if t.stack[i] == s {
			t.stack = append(t.stack[:i], t.stack[i+1:]...)
			return
		}
	}
}

// Summarize writes the span tree with each span's share of the total.
func (t *Timer) Summarize(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := time.Since(t.root.start)
	fmt.Fprintln(w, "\n--- Timing Profile ---")
	for _, child := range sortedChildren(t.root) {
		printSpan(w, child, 0, total)
	}
	fmt.Fprintln(w, "----------------------")
}

func sortedChildren(s *span) []*span {
	children := append([]*span(nil), s.children...)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].start.Before(children[j].start)
	})
	return children
}

func printSpan(w io.Writer, s *span, depth int, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s- %s (%v, %.1f%%)\n", strings.Repeat("  ", depth), s.name, s.duration.Round(100*time.Microsecond), pct)
	for _, child := range sortedChildren(s) {
		printSpan(w, child, depth+1, total)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}

type timerKey struct{}

// WithTimer returns a context carrying t.
func WithTimer(ctx context.Context, t *Timer) context.Context {
	return context.WithValue(ctx, timerKey{}, t)
}

// Start opens a span on the context's timer. Without one it does nothing.
func Start(ctx context.Context, name string) Stopper {
	if ctx == nil {
		return noopStopper{}
	}
	if t, ok := ctx.Value(timerKey{}).(*Timer); ok {
		return t.Start(name)
	}
	return noopStopper{}
}
