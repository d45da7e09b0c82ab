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

// Package fixed implements Fixed windows (sometimes called tumbling windows).
// Fixed windows are defined by a static window size, e.g. minutely windows or
// hourly windows; they never merge. Assignment is left inclusive and right
// exclusive, so an element exactly on the boundary falls into the window to
// the right of the boundary.
package fixed

import (
	"time"

	"github.com/khurrumnasimm/incubator-beam/pkg/reduce/partition"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

// Windower implements window.TimedWindower for fixed windows. It keeps the
// set of active windows ordered by start time so that the ones to close are
// always at the front.
type Windower struct {
	// length is the temporal length of the window.
	length   time.Duration
	assigner *window.SlotAssigner
	entries  *window.SortedWindowList[window.TimedWindow]
}

var _ window.TimedWindower = (*Windower)(nil)

// NewWindower returns a fixed windower of the given length.
func NewWindower(length time.Duration, slots int) window.TimedWindower {
	return &Windower{
		length:   length,
		assigner: window.NewSlotAssigner(slots),
		entries:  window.NewSortedWindowList[window.TimedWindow](),
	}
}

func (w *Windower) Strategy() window.Strategy {
	return window.Fixed
}

func (w *Windower) Codec() window.Codec {
	return window.IntervalCodec{}
}

// AssignWindows assigns the element to the window its event time truncates
// into, emitting Open for a window seen for the first time and Append
// otherwise.
func (w *Windower) AssignWindows(el *window.Element) []*window.TimedWindowRequest {
	start := el.EventTime.Truncate(w.length)
	end := start.Add(w.length)

	id := &partition.ID{Start: start, End: end, Slot: w.assigner.Assign(el.Keys)}
	win := window.NewWindowFromPartitionAndKeys(id, el.Keys)
	tracked, present := w.entries.InsertIfNotPresent(win)

	op := window.Open
	if present {
		op = window.Append
	}
	return []*window.TimedWindowRequest{{
		Operation: op,
		Element:   el,
		ID:        tracked.Partition(),
		Windows:   []window.TimedWindow{tracked},
	}}
}

// CloseWindows closes every window whose end is not after the watermark.
func (w *Windower) CloseWindows(watermark time.Time) []*window.TimedWindowRequest {
	closed := w.entries.RemoveWindows(watermark)
	requests := make([]*window.TimedWindowRequest, 0, len(closed))
	for _, win := range closed {
		requests = append(requests, &window.TimedWindowRequest{
			Operation: window.Close,
			ID:        win.Partition(),
			Windows:   []window.TimedWindow{win},
		})
	}
	return requests
}

func (w *Windower) InsertWindow(tw window.TimedWindow) {
	w.entries.InsertIfNotPresent(tw)
}

func (w *Windower) NextWindowToBeClosed() window.TimedWindow {
	win, ok := w.entries.Front()
	if !ok {
		return nil
	}
	return win
}
