package session

import "time"

// Ticker is the tick source driving a session countdown. Sessions own
// exactly one; injecting it keeps the countdown deterministic in tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds the ticker for a session at the configured interval.
type TickerFactory func(interval time.Duration) Ticker

type wallTicker struct {
	t *time.Ticker
}

// NewWallTicker wraps time.Ticker as the production tick source.
func NewWallTicker(interval time.Duration) Ticker {
	return &wallTicker{t: time.NewTicker(interval)}
}

func (w *wallTicker) C() <-chan time.Time { return w.t.C }

func (w *wallTicker) Stop() { w.t.Stop() }
