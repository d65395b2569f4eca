package session

import "time"

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from running. It reports false if the call has
	// already run or was stopped before.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules on the runtime timer.
var SystemScheduler Scheduler = systemScheduler{}
