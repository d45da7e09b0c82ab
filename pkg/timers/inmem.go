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

package timers

import (
	"sort"
	"sync"
	"time"
)

// InMem is a Timers implementation for one window with manually advanceable
// clocks. The engine advances the clocks and collects the timers that became
// due; trigger evaluation only ever sees the Timers interface.
type InMem struct {
	lock sync.Mutex
	// pending timers per domain, keyed by unix millis
	pending map[TimeDomain]map[int64]struct{}

	processingTime     time.Time
	syncProcessingTime time.Time
	eventTime          time.Time
}

var _ Timers = (*InMem)(nil)

func NewInMem() *InMem {
	return &InMem{
		pending: map[TimeDomain]map[int64]struct{}{
			EventTime:      {},
			ProcessingTime: {},
		},
	}
}

func (t *InMem) SetTimer(ts time.Time, domain TimeDomain) {
	if domain == SynchronizedProcessingTime {
		// query-only domain
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.pending[domain][ts.UnixMilli()] = struct{}{}
}

func (t *InMem) DeleteTimer(ts time.Time, domain TimeDomain) {
	if domain == SynchronizedProcessingTime {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.pending[domain], ts.UnixMilli())
}

// IsSet reports whether a timer is pending for the given instant.
func (t *InMem) IsSet(ts time.Time, domain TimeDomain) bool {
	if domain == SynchronizedProcessingTime {
		return false
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	_, ok := t.pending[domain][ts.UnixMilli()]
	return ok
}

func (t *InMem) CurrentProcessingTime() time.Time {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.processingTime
}

func (t *InMem) CurrentSynchronizedProcessingTime() time.Time {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.syncProcessingTime
}

func (t *InMem) CurrentEventTime() time.Time {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.eventTime
}

// AdvanceEventTime moves the watermark forward and returns the event-time
// timers that became due, earliest first. The clock never moves backwards.
func (t *InMem) AdvanceEventTime(ts time.Time) []time.Time {
	t.lock.Lock()
	defer t.lock.Unlock()
	if ts.After(t.eventTime) {
		t.eventTime = ts
	}
	return t.takeDue(EventTime, t.eventTime)
}

// AdvanceProcessingTime moves the wall and synchronized clocks forward and
// returns the processing-time timers that became due, earliest first.
func (t *InMem) AdvanceProcessingTime(ts time.Time) []time.Time {
	t.lock.Lock()
	defer t.lock.Unlock()
	if ts.After(t.processingTime) {
		t.processingTime = ts
		t.syncProcessingTime = ts
	}
	return t.takeDue(ProcessingTime, t.processingTime)
}

func (t *InMem) takeDue(domain TimeDomain, now time.Time) []time.Time {
	due := make([]time.Time, 0)
	for millis := range t.pending[domain] {
		if ts := time.UnixMilli(millis); !ts.After(now) {
			due = append(due, ts)
			delete(t.pending[domain], millis)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Before(due[j]) })
	return due
}
