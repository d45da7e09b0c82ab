/*
Copyright 2024 The Incubator-Beam Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package timers defines the raw timer capability trigger evaluation is
// handed. The capability is scoped to one window by the engine; this package
// has no opinion on how the engine multiplexes windows onto a timer service.
package timers

import "time"

// TimeDomain is the clock a timer is keyed against.
type TimeDomain int

const (
	// EventTime is the element-timestamp clock, advanced by the watermark.
	EventTime TimeDomain = iota
	// ProcessingTime is the local wall clock.
	ProcessingTime
	// SynchronizedProcessingTime is the processing clock synchronized
	// across parallel workers. It is query only; timers cannot be set or
	// deleted in this domain.
	SynchronizedProcessingTime
)

func (d TimeDomain) String() string {
	switch d {
	case EventTime:
		return "EventTime"
	case ProcessingTime:
		return "ProcessingTime"
	case SynchronizedProcessingTime:
		return "SynchronizedProcessingTime"
	default:
		return "Unknown"
	}
}

// Timers sets and deletes timers and reads the current clocks. All calls are
// scoped to the window the capability was created for.
type Timers interface {
	// SetTimer registers a timer for the given instant. Setting an already
	// set timer is a no-op.
	SetTimer(ts time.Time, domain TimeDomain)
	// DeleteTimer unregisters the timer at the given instant, if set.
	DeleteTimer(ts time.Time, domain TimeDomain)
	// CurrentProcessingTime returns the local wall clock reading.
	CurrentProcessingTime() time.Time
	// CurrentSynchronizedProcessingTime returns the synchronized processing
	// clock reading; zero if unknown.
	CurrentSynchronizedProcessingTime() time.Time
	// CurrentEventTime returns the watermark.
	CurrentEventTime() time.Time
}
