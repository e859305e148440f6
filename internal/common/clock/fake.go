package clock

import (
	"sync"
	"time"
)

// Fake is a manually driven Clock. Tickers only fire when Tick is called and
// delayed functions only run when FireTimers is called.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*FakeTicker
	timers  []*fakeTimer
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward without firing anything.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *Fake) NewTicker(time.Duration) Ticker {
	t := &FakeTicker{c: make(chan time.Time), stopped: make(chan struct{})}
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{clock: f, fn: fn, delay: d}
	f.mu.Lock()
	f.timers = append(f.timers, t)
	f.mu.Unlock()
	return t
}

// Tickers returns every ticker created so far, oldest first.
func (f *Fake) Tickers() []*FakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeTicker(nil), f.tickers...)
}

func (f *Fake) LastTicker() *FakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tickers) == 0 {
		return nil
	}
	return f.tickers[len(f.tickers)-1]
}

// PendingTimers counts scheduled functions that were neither fired nor stopped.
func (f *Fake) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// FireTimers runs every pending function synchronously and returns how many ran.
func (f *Fake) FireTimers() int {
	f.mu.Lock()
	var due []*fakeTimer
	for _, t := range f.timers {
		if !t.done {
			t.done = true
			due = append(due, t)
		}
	}
	f.timers = nil
	f.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

type FakeTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *FakeTicker) C() <-chan time.Time { return t.c }

func (t *FakeTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

// Tick delivers one tick and blocks until the owner receives it. It returns
// false once the ticker has been stopped.
func (t *FakeTicker) Tick() bool {
	select {
	case <-t.stopped:
		return false
	default:
	}
	select {
	case t.c <- time.Now():
		return true
	case <-t.stopped:
		return false
	}
}

// Stopped reports whether Stop has been called.
func (t *FakeTicker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

type fakeTimer struct {
	clock *Fake
	fn    func()
	delay time.Duration
	done  bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
