package vtime

import (
	"sort"
	"sync"
	"time"

	"github.com/NetPo4ki/crscope"
)

type entry struct {
	when   time.Time
	seq    int64
	action func()
}

// Clock is a virtual-time controller: a now cursor plus a priority queue of
// (when, action) pairs ordered by when with insertion-order tie-break (pop
// the least-ordered entry; ties broken by arrival order). All operations
// are serialized under a single mutex, so scheduling and advancing never
// race each other.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	queue   []entry
	nextSeq int64
}

// NewClock creates a Clock with now initialized to the Unix epoch.
func NewClock() *Clock {
	return &Clock{now: time.Unix(0, 0)}
}

// Now returns the current virtual time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Schedule inserts action to run once the clock reaches when.
func (c *Clock) Schedule(when time.Time, action func()) {
	c.mu.Lock()
	c.nextSeq++
	e := entry{when: when, seq: c.nextSeq, action: action}
	i := sort.Search(len(c.queue), func(i int) bool {
		if c.queue[i].when.Equal(e.when) {
			return c.queue[i].seq > e.seq
		}
		return c.queue[i].when.After(e.when)
	})
	c.queue = append(c.queue, entry{})
	copy(c.queue[i+1:], c.queue[i:])
	c.queue[i] = e
	c.mu.Unlock()
}

// AdvanceTo runs every scheduled action whose when is <= target, advancing
// now to each action's when as it runs, then sets now to target.
func (c *Clock) AdvanceTo(target time.Time) {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 || c.queue[0].when.After(target) {
			if c.now.Before(target) {
				c.now = target
			}
			c.mu.Unlock()
			return
		}
		e := c.queue[0]
		c.queue = c.queue[1:]
		c.now = e.when
		c.mu.Unlock()
		e.action()
	}
}

// AdvanceBy is AdvanceTo(Now() + d).
func (c *Clock) AdvanceBy(d time.Duration) {
	c.AdvanceTo(c.Now().Add(d))
}

// Pending reports whether any action remains scheduled.
func (c *Clock) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) > 0
}

// After returns a channel that receives the virtual time once d has
// elapsed, implementing crscope.TimeSource.
func (c *Clock) After(d time.Duration) <-chan time.Time {
	out := make(chan time.Time, 1)
	when := c.Now().Add(d)
	c.Schedule(when, func() { out <- when })
	return out
}

// NewTimer returns a Timer resolved by the virtual clock, implementing
// crscope.TimeSource.
func (c *Clock) NewTimer(d time.Duration) crscope.Timer {
	ch := make(chan time.Time, 1)
	when := c.Now().Add(d)
	t := &virtualTimer{ch: ch}
	c.Schedule(when, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.stopped {
			return
		}
		ch <- when
		t.stopped = true
	})
	return t
}

type virtualTimer struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *virtualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

func (t *virtualTimer) C() <-chan time.Time { return t.ch }

var _ crscope.TimeSource = (*Clock)(nil)
