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

package window

import (
	"sort"
	"sync"
	"time"
)

// SortedWindowList is a window list ordered by start time, lowest first.
// It is safe for concurrent use, although the evaluator drives it from a
// single goroutine per key.
type SortedWindowList[W TimedWindow] struct {
	windows []W
	lock    sync.RWMutex
}

func NewSortedWindowList[W TimedWindow]() *SortedWindowList[W] {
	return &SortedWindowList[W]{
		windows: make([]W, 0),
	}
}

// InsertIfNotPresent inserts the window keeping the start-time order, unless
// a window with the same partition is already tracked, in which case the
// tracked window is returned with true.
func (s *SortedWindowList[W]) InsertIfNotPresent(window W) (W, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	index := sort.Search(len(s.windows), func(i int) bool {
		return !s.windows[i].StartTime().Before(window.StartTime())
	})

	for i := index; i < len(s.windows) && !s.windows[i].StartTime().After(window.StartTime()); i++ {
		if s.windows[i].Partition().String() == window.Partition().String() {
			return s.windows[i], true
		}
	}

	s.windows = append(s.windows, window)
	copy(s.windows[index+1:], s.windows[index:])
	s.windows[index] = window
	return window, false
}

// FindWindowForTime returns the window containing the given time, if any.
// Windows are left inclusive and right exclusive.
func (s *SortedWindowList[W]) FindWindowForTime(t time.Time) (W, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var zero W
	for _, win := range s.windows {
		if !win.StartTime().After(t) && win.EndTime().After(t) {
			return win, true
		}
		if win.StartTime().After(t) {
			break
		}
	}
	return zero, false
}

// RemoveWindows removes and returns, in start-time order, every window whose
// end time is not after the given watermark.
func (s *SortedWindowList[W]) RemoveWindows(wm time.Time) []W {
	s.lock.Lock()
	defer s.lock.Unlock()

	removed := make([]W, 0)
	kept := s.windows[:0]
	for _, win := range s.windows {
		if win.EndTime().After(wm) {
			kept = append(kept, win)
		} else {
			removed = append(removed, win)
		}
	}
	s.windows = kept
	return removed
}

// Delete removes the window with the same partition id, if tracked.
func (s *SortedWindowList[W]) Delete(window W) {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := window.Partition().String()
	for i, win := range s.windows {
		if win.Partition().String() == id {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			return
		}
	}
}

// Front returns the earliest tracked window.
func (s *SortedWindowList[W]) Front() (W, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var zero W
	if len(s.windows) == 0 {
		return zero, false
	}
	return s.windows[0], true
}

// Items returns a copy of the tracked windows in start-time order.
func (s *SortedWindowList[W]) Items() []W {
	s.lock.RLock()
	defer s.lock.RUnlock()

	items := make([]W, len(s.windows))
	copy(items, s.windows)
	return items
}

// Len returns the number of tracked windows.
func (s *SortedWindowList[W]) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.windows)
}
