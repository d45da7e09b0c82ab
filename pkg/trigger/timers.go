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

package trigger

import (
	"time"

	"github.com/khurrumnasimm/incubator-beam/pkg/timers"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

// triggerTimers wraps the raw timer capability handed to trigger logic.
// Everything passes through except deleting the event-time timer at the
// window's max timestamp: that timer is the engine's end-of-window
// completion signal and must survive whatever combinator logic runs, so the
// deletion is silently absorbed.
type triggerTimers struct {
	timers timers.Timers
	window window.TimedWindow
}

var _ timers.Timers = (*triggerTimers)(nil)

func newTriggerTimers(w window.TimedWindow, t timers.Timers) *triggerTimers {
	return &triggerTimers{timers: t, window: w}
}

func (t *triggerTimers) SetTimer(ts time.Time, domain timers.TimeDomain) {
	t.timers.SetTimer(ts, domain)
}

func (t *triggerTimers) DeleteTimer(ts time.Time, domain timers.TimeDomain) {
	if domain == timers.EventTime && ts.Equal(t.window.MaxTimestamp()) {
		// Don't allow triggers to unset the at-max-timestamp timer. This is
		// necessary for on-time state transitions.
		return
	}
	t.timers.DeleteTimer(ts, domain)
}

func (t *triggerTimers) CurrentProcessingTime() time.Time {
	return t.timers.CurrentProcessingTime()
}

func (t *triggerTimers) CurrentSynchronizedProcessingTime() time.Time {
	return t.timers.CurrentSynchronizedProcessingTime()
}

func (t *triggerTimers) CurrentEventTime() time.Time {
	return t.timers.CurrentEventTime()
}
