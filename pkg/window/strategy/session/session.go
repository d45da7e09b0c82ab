// Package session implements Session windows. A session window is keyed and
// unaligned: it opens when an element for the key arrives and keeps extending
// as long as elements keep arriving within the configured gap. Session
// windows are the only merging windows; two sessions for the same key merge
// once they overlap.
package session

import (
	"time"

	"github.com/khurrumnasimm/incubator-beam/pkg/reduce/partition"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

// Window is the TimedWindow implementation for session windows.
type Window struct {
	startTime time.Time
	endTime   time.Time
	slot      string
	keys      []string
}

var _ window.TimedWindow = (*Window)(nil)

// NewWindow returns a session window of the gap length starting at the
// element's event time.
func NewWindow(startTime time.Time, gap time.Duration, slot string, keys []string) *Window {
	return &Window{
		startTime: startTime,
		endTime:   startTime.Add(gap),
		slot:      slot,
		keys:      keys,
	}
}

func (w *Window) StartTime() time.Time {
	return w.startTime
}

func (w *Window) EndTime() time.Time {
	return w.endTime
}

func (w *Window) MaxTimestamp() time.Time {
	return w.endTime.Add(-time.Millisecond)
}

func (w *Window) Slot() string {
	return w.slot
}

func (w *Window) Keys() []string {
	return w.keys
}

func (w *Window) Partition() *partition.ID {
	return &partition.ID{
		Start: w.startTime,
		End:   w.endTime,
		Slot:  w.slot,
	}
}

func (w *Window) Merge(tw window.TimedWindow) {
	if w.slot != tw.Slot() {
		panic("cannot merge windows with different slots")
	}
	// expand the start and end to accommodate the new window
	if tw.StartTime().Before(w.startTime) {
		w.startTime = tw.StartTime()
	}

	if tw.EndTime().After(w.endTime) {
		w.endTime = tw.EndTime()
	}
}

func (w *Window) Expand(endTime time.Time) {
	if endTime.After(w.endTime) {
		w.endTime = endTime
	}
}

// Windower is the TimedWindower implementation for session windows. It
// tracks active sessions per combined key and detects, at close time, which
// of them have grown into each other and must be merged.
type Windower struct {
	// gap is the silence after which a session closes.
	gap      time.Duration
	assigner *window.SlotAssigner
	entries  map[string]*window.SortedWindowList[window.TimedWindow]
}

var _ window.TimedWindower = (*Windower)(nil)

func NewWindower(gap time.Duration, slots int) window.TimedWindower {
	return &Windower{
		gap:      gap,
		assigner: window.NewSlotAssigner(slots),
		entries:  make(map[string]*window.SortedWindowList[window.TimedWindow]),
	}
}

func (w *Windower) Strategy() window.Strategy {
	return window.Session
}

func (w *Windower) Codec() window.Codec {
	return window.IntervalCodec{}
}

// AssignWindows assigns the element to an active session for its key,
// opening a new session, appending to an existing one, or expanding an
// existing one whose end the element pushes out.
func (w *Windower) AssignWindows(el *window.Element) []*window.TimedWindowRequest {
	combinedKey := el.CombinedKey()
	slot := w.assigner.Assign(el.Keys)

	list, ok := w.entries[combinedKey]
	if !ok {
		list = window.NewSortedWindowList[window.TimedWindow]()
		w.entries[combinedKey] = list
	}

	win, present := list.FindWindowForTime(el.EventTime)
	if !present {
		fresh := NewWindow(el.EventTime, w.gap, slot, el.Keys)
		list.InsertIfNotPresent(fresh)
		return []*window.TimedWindowRequest{{
			Operation: window.Open,
			Element:   el,
			ID:        fresh.Partition(),
			Windows:   []window.TimedWindow{fresh},
		}}
	}

	if win.EndTime().Before(el.EventTime.Add(w.gap)) {
		// the element pushes the session end past the tracked one
		expanded := NewWindow(win.StartTime(), w.gap, win.Slot(), win.Keys())
		expanded.Expand(el.EventTime.Add(w.gap))
		list.Delete(win)
		list.InsertIfNotPresent(expanded)
		return []*window.TimedWindowRequest{{
			Operation: window.Expand,
			Element:   el,
			ID:        expanded.Partition(),
			Windows:   []window.TimedWindow{win, expanded},
		}}
	}

	return []*window.TimedWindowRequest{{
		Operation: window.Append,
		Element:   el,
		ID:        win.Partition(),
		Windows:   []window.TimedWindow{win},
	}}
}

// CloseWindows closes the sessions that are past the watermark. Closed
// sessions that have grown into each other are reported as a single Merge
// request carrying the whole group; loners are reported as Close.
func (w *Windower) CloseWindows(watermark time.Time) []*window.TimedWindowRequest {
	requests := make([]*window.TimedWindowRequest, 0)
	for key, list := range w.entries {
		closed := list.RemoveWindows(watermark)
		for _, group := range mergeableGroups(closed) {
			if len(group) == 1 {
				requests = append(requests, &window.TimedWindowRequest{
					Operation: window.Close,
					ID:        group[0].Partition(),
					Windows:   group,
				})
			} else {
				requests = append(requests, &window.TimedWindowRequest{
					Operation: window.Merge,
					Windows:   group,
				})
			}
		}
		if list.Len() == 0 {
			delete(w.entries, key)
		}
	}
	return requests
}

func (w *Windower) InsertWindow(tw window.TimedWindow) {
	combinedKey := (&window.Element{Keys: tw.Keys()}).CombinedKey()
	list, ok := w.entries[combinedKey]
	if !ok {
		list = window.NewSortedWindowList[window.TimedWindow]()
		w.entries[combinedKey] = list
	}
	list.InsertIfNotPresent(tw)
}

// NextWindowToBeClosed returns the earliest ending session across all keys.
func (w *Windower) NextWindowToBeClosed() window.TimedWindow {
	var next window.TimedWindow
	for _, list := range w.entries {
		win, ok := list.Front()
		if !ok {
			continue
		}
		if next == nil || win.EndTime().Before(next.EndTime()) {
			next = win
		}
	}
	return next
}

// mergeableGroups partitions the closed windows, which arrive sorted by
// start time, into runs of overlapping windows.
func mergeableGroups(windows []window.TimedWindow) [][]window.TimedWindow {
	if len(windows) == 0 {
		return nil
	}

	groups := make([][]window.TimedWindow, 0, len(windows))
	group := []window.TimedWindow{windows[0]}
	end := windows[0].EndTime()
	for _, win := range windows[1:] {
		if win.StartTime().Before(end) {
			group = append(group, win)
			if win.EndTime().After(end) {
				end = win.EndTime()
			}
			continue
		}
		groups = append(groups, group)
		group = []window.TimedWindow{win}
		end = win.EndTime()
	}
	return append(groups, group)
}
