// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"sync"
	"time"
)

// Scheduler creates debounced functions.
type Scheduler interface {
	// Debounce returns a trigger that runs fn once, interval after the last
	// of a burst of Trigger calls.
	Debounce(fn func(), interval time.Duration) Debounced
}

// Debounced is a trailing-edge coalescing trigger.
type Debounced interface {
	// Trigger (re)arms the trailing timer.
	Trigger()

	// Flush runs fn immediately if a call is pending and reports whether
	// it ran.
	Flush() bool

	// Stop discards any pending call; later triggers are ignored.
	Stop()
}

// TimerScheduler debounces with time.AfterFunc.
type TimerScheduler struct{}

// Debounce implements Scheduler.
func (TimerScheduler) Debounce(fn func(), interval time.Duration) Debounced {
	return &timerDebounced{fn: fn, interval: interval}
}

type timerDebounced struct {
	fn       func()
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool

	// runMu keeps fn invocations from overlapping.
	runMu sync.Mutex
}

func (d *timerDebounced) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
}

func (d *timerDebounced) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()
	d.run()
}

func (d *timerDebounced) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.run()
	return true
}

func (d *timerDebounced) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *timerDebounced) run() {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	d.fn()
}
