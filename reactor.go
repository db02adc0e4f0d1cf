// SPDX-License-Identifier: GPL-3.0-or-later

package jnetemu

import (
	"sync"
	"time"
)

// reactorIdle is how long the shared reactor goroutine sleeps between
// ticks when it has nothing urgent to do. It stands in for the selector
// loop's blocking select(): short enough that a newly-ready deadline is
// noticed promptly, long enough that an idle reactor does not spin a CPU.
var reactorIdle = 2 * time.Millisecond

var (
	reactorMu        sync.Mutex
	reactorInstances map[*Emulator]struct{}
	reactorStop      chan struct{}
	reactorDone      chan struct{}
)

// reactorRegister adds e to the process-wide set of instances serviced by
// the shared reactor goroutine, starting that goroutine if e is the first
// instance registered.
func reactorRegister(e *Emulator) {
	reactorMu.Lock()
	defer reactorMu.Unlock()
	if reactorInstances == nil {
		reactorInstances = make(map[*Emulator]struct{})
	}
	reactorInstances[e] = struct{}{}
	if reactorStop == nil {
		reactorStop = make(chan struct{})
		reactorDone = make(chan struct{})
		go reactorLoop(reactorStop, reactorDone)
	}
}

// reactorUnregister removes e from the shared reactor's instance set,
// signaling the reactor goroutine to exit once no instance remains
// registered. It returns the channel that closes when that goroutine has
// actually exited, or nil if the reactor is still servicing other
// instances, so [Emulator.Stop] can join it and block until the
// reactor thread has actually exited.
func reactorUnregister(e *Emulator) <-chan struct{} {
	reactorMu.Lock()
	defer reactorMu.Unlock()
	delete(reactorInstances, e)
	if len(reactorInstances) == 0 && reactorStop != nil {
		close(reactorStop)
		done := reactorDone
		reactorStop = nil
		reactorDone = nil
		return done
	}
	return nil
}

// reactorSnapshot copies the current instance set so reactorLoop never
// holds reactorMu while ticking an instance.
func reactorSnapshot() []*Emulator {
	reactorMu.Lock()
	defer reactorMu.Unlock()
	instances := make([]*Emulator, 0, len(reactorInstances))
	for e := range reactorInstances {
		instances = append(instances, e)
	}
	return instances
}

// reactorLoop is the body of the single shared goroutine: one clock
// sample per iteration, threaded through every registered instance's
// ingress and egress step, exactly once each, before sleeping and
// repeating. It never blocks on an instance's socket: [Emulator.tick]
// uses already-past read/write deadlines to poll non-blockingly.
//
// A fatal, non-benign I/O error from any instance's tick is logged and
// terminates the reactor goroutine entirely: every remaining registered
// instance goes unserviced until it is explicitly stopped, and the shared
// reactor state is reset so the next Start elsewhere spawns a fresh
// goroutine instead of finding a dead one.
func reactorLoop(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		now := clockNowMS()
		for _, e := range reactorSnapshot() {
			if err := e.tick(now); err != nil {
				e.logger.Warnf("jnetemu: reactor exiting after fatal error: %v", err)
				reactorFatal()
				return
			}
		}
		time.Sleep(reactorIdle)
	}
}

// reactorFatal resets the shared reactor state after reactorLoop exits on
// a fatal error, so a future Start does not mistake the dead goroutine for
// a live one.
func reactorFatal() {
	reactorMu.Lock()
	defer reactorMu.Unlock()
	reactorInstances = nil
	reactorStop = nil
	reactorDone = nil
}
