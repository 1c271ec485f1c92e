package project

import (
	"sync"
	"time"
)

// autosaveDelay is the coalescing window from spec.md §5: "Autosave is
// level-triggered: a single scheduled save fires 20 seconds after the
// last needs_writing transition, coalescing intermediate changes."
const autosaveDelay = 20 * time.Second

// AutosaveScheduler restarts a single-shot timer on every Trigger call,
// so repeated needs_writing transitions collapse into one save once
// they stop arriving, grounded on
// original_source/GuiSubtrans/GuiInterface.py's _autosave_timer (a
// QTimer with setSingleShot(True), started with 20000ms on every
// command-queue drain) and _perform_autosave (re-checks
// autosave_enabled/needs_writing before saving, since the project may
// have been saved some other way by the time the timer fires).
type AutosaveScheduler struct {
	delay time.Duration
	save  func() error
	onErr func(error)

	mu    sync.Mutex
	timer *time.Timer

	fired chan struct{}
}

// NewAutosaveScheduler builds a scheduler that calls save once delay
// has elapsed with no further Trigger call resetting it. onErr, if
// non-nil, receives any error save returns.
func NewAutosaveScheduler(delay time.Duration, save func() error, onErr func(error)) *AutosaveScheduler {
	if delay <= 0 {
		delay = autosaveDelay
	}
	return &AutosaveScheduler{
		delay: delay,
		save:  save,
		onErr: onErr,
		fired: make(chan struct{}, 1),
	}
}

// Trigger (re)starts the coalescing window. Only the last Trigger
// call within delay of the others results in an actual save, mirroring
// QTimer.start() restarting an already-running single-shot timer.
func (a *AutosaveScheduler) Trigger() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Stop cancels any pending autosave, e.g. because SaveProject was just
// called directly and already satisfied it.
func (a *AutosaveScheduler) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *AutosaveScheduler) fire() {
	if err := a.save(); err != nil && a.onErr != nil {
		a.onErr(err)
	}
	select {
	case a.fired <- struct{}{}:
	default:
	}
}

// Wait blocks until the next scheduled save fires or timeout elapses,
// reporting whether it fired in time. Test-only hook; runtime callers
// never need to observe a fire, since the scheduler's whole point is
// to run unattended.
func (a *AutosaveScheduler) Wait(timeout time.Duration) bool {
	select {
	case <-a.fired:
		return true
	case <-time.After(timeout):
		return false
	}
}
