package crscope

import (
	"sync"
	"time"
)

// UncaughtHandler receives failures that have nowhere else to go: errors
// from a Shared Flow subscriber, a failed child of a Supervisor Job, or a
// failed fire-and-forget Launch. ctx is the optional contextual hint
// the failing component attached (may be nil).
type UncaughtHandler func(ctx any, err error)

type handlerEntry struct {
	id int
	fn UncaughtHandler
}

var (
	uncaughtMu       sync.Mutex
	uncaughtHandlers []handlerEntry
	uncaughtNextID   int
)

// SetUncaughtHandler installs h as the sole ambient uncaught-exception
// handler, replacing any previously installed handler. Passing nil clears
// it.
func SetUncaughtHandler(h UncaughtHandler) {
	uncaughtMu.Lock()
	defer uncaughtMu.Unlock()
	if h == nil {
		uncaughtHandlers = nil
		return
	}
	uncaughtNextID++
	uncaughtHandlers = []handlerEntry{{id: uncaughtNextID, fn: h}}
}

// AddUncaughtHandler appends h to the ambient chain instead of replacing it.
// Returns a function that removes h again.
func AddUncaughtHandler(h UncaughtHandler) (remove func()) {
	uncaughtMu.Lock()
	uncaughtNextID++
	id := uncaughtNextID
	uncaughtHandlers = append(uncaughtHandlers, handlerEntry{id: id, fn: h})
	uncaughtMu.Unlock()
	return func() {
		uncaughtMu.Lock()
		defer uncaughtMu.Unlock()
		for i, e := range uncaughtHandlers {
			if e.id == id {
				uncaughtHandlers = append(uncaughtHandlers[:i], uncaughtHandlers[i+1:]...)
				return
			}
		}
	}
}

// ReportUncaught runs every installed handler with err. Handler panics and
// errors are swallowed so one misbehaving handler can't block the rest.
func ReportUncaught(ctx any, err error) {
	if err == nil {
		return
	}
	uncaughtMu.Lock()
	handlers := make([]UncaughtHandler, len(uncaughtHandlers))
	for i, e := range uncaughtHandlers {
		handlers[i] = e.fn
	}
	uncaughtMu.Unlock()
	for _, h := range handlers {
		callHandler(h, ctx, err)
	}
}

func callHandler(h UncaughtHandler, ctx any, err error) {
	defer func() { recover() }()
	h(ctx, err)
}

// Timer is the minimal handle a TimeSource hands back for a deferred
// action; Stop prevents a pending fire and reports whether the timer was
// still pending (false once it has fired or been stopped).
type Timer interface {
	Stop() bool
	C() <-chan time.Time
}

// TimeSource abstracts the clock so the virtual-time harness (vtime) can
// substitute a deterministic one for tests. The default is backed by the
// real monotonic clock.
type TimeSource interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTimer(d time.Duration) Timer
}

type realTimeSource struct{}

func (realTimeSource) Now() time.Time { return time.Now() }

func (realTimeSource) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realTimeSource) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool          { return r.t.Stop() }
func (r realTimer) C() <-chan time.Time { return r.t.C }

var (
	timeSourceMu sync.RWMutex
	timeSource   TimeSource = realTimeSource{}
)

// Time returns the ambient time source currently installed.
func Time() TimeSource {
	timeSourceMu.RLock()
	defer timeSourceMu.RUnlock()
	return timeSource
}

// SetTimeSource installs ts as the ambient time source and returns a
// function that restores whatever was installed before. vtime uses this to
// swap in the virtual clock for the lifetime of a test scope.
func SetTimeSource(ts TimeSource) (restore func()) {
	timeSourceMu.Lock()
	previous := timeSource
	timeSource = ts
	timeSourceMu.Unlock()
	return func() {
		timeSourceMu.Lock()
		timeSource = previous
		timeSourceMu.Unlock()
	}
}
