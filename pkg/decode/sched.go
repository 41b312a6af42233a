package decode

import (
	"context"
	"runtime"
	"time"
)

// Watchdog is fed at every yield point so a supervised control loop is never
// starved by a long decode.
type Watchdog interface {
	Feed()
}

// NopWatchdog satisfies Watchdog on hosts without one.
type NopWatchdog struct{}

// Feed does nothing.
func (NopWatchdog) Feed() {}

// DefaultPause is the time slice donated at checkpoint yields.
const DefaultPause = time.Millisecond

// Scheduler owns the yield discipline of the decode loop: a watchdog feed,
// a cancellation check, and a processor yield before every tile, plus a
// harder pause every K tiles. K scales with the grid so large images
// checkpoint more often.
type Scheduler struct {
	wd    Watchdog
	every int
	pause time.Duration
}

// NewScheduler sizes the checkpoint cadence for a grid of total tiles.
func NewScheduler(wd Watchdog, total int) *Scheduler {
	if wd == nil {
		wd = NopWatchdog{}
	}
	every := total / 10
	if every < 1 {
		every = 1
	}
	return &Scheduler{wd: wd, every: every, pause: DefaultPause}
}

// Checkpoint reports whether tile index i lands on the aggressive-yield
// cadence.
func (s *Scheduler) Checkpoint(i int) bool {
	return i > 0 && i%s.every == 0
}

// Tick runs the yield point before tile i. It returns the context error when
// the decode has been cancelled.
func (s *Scheduler) Tick(ctx context.Context, i int) error {
	s.wd.Feed()
	if err := ctx.Err(); err != nil {
		return err
	}
	runtime.Gosched()
	if s.Checkpoint(i) {
		time.Sleep(s.pause)
	}
	return nil
}
