// Package clock abstracts wall-clock time so tickers can be driven manually in tests.
package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Ticker is the subset of *time.Ticker used by the pipeline.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock provides the current time and tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return wrapped{c: clockwork.NewRealClock()}
}

type wrapped struct {
	c clockwork.Clock
}

func (w wrapped) Now() time.Time { return w.c.Now() }

func (w wrapped) NewTicker(d time.Duration) Ticker {
	return ticker{t: w.c.NewTicker(d)}
}

type ticker struct {
	t clockwork.Ticker
}

func (t ticker) C() <-chan time.Time { return t.t.Chan() }
func (t ticker) Stop()               { t.t.Stop() }

// Fake is a manually advanced Clock. As with time.Ticker, a tick is dropped
// when the previous one has not been received yet.
type Fake struct {
	wrapped
	fc *clockwork.FakeClock
}

// NewFake creates a Fake clock starting at now.
func NewFake(now time.Time) *Fake {
	fc := clockwork.NewFakeClockAt(now)
	return &Fake{wrapped: wrapped{c: fc}, fc: fc}
}

// Advance moves the clock forward, firing every ticker whose deadline passes.
func (f *Fake) Advance(d time.Duration) {
	f.fc.Advance(d)
}

// BlockUntilTickers waits until exactly n tickers are running.
func (f *Fake) BlockUntilTickers(ctx context.Context, n int) error {
	return f.fc.BlockUntilContext(ctx, n)
}
