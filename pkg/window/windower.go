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
	"time"

	"github.com/khurrumnasimm/incubator-beam/pkg/reduce/partition"
)

type TimedWindower interface {
	// Strategy returns the window strategy
	Strategy() Strategy
	// Codec returns the canonical codec for the windows this windower
	// produces. State namespaces are derived from this encoding.
	Codec() Codec
	// AssignWindows assigns the element to one or more windows based on the
	// window configuration.
	AssignWindows(el *Element) []*TimedWindowRequest
	// CloseWindows closes the windows that are past the watermark
	CloseWindows(watermark time.Time) []*TimedWindowRequest
	// InsertWindow inserts window to the list of active windows
	InsertWindow(tw TimedWindow)
	// NextWindowToBeClosed returns the next window yet to be closed.
	NextWindowToBeClosed() TimedWindow
}

type TimedWindow interface {
	// StartTime returns the start time of the window
	StartTime() time.Time
	// EndTime returns the end time of the window
	EndTime() time.Time
	// MaxTimestamp returns the largest timestamp that belongs to the window,
	// i.e. the instant the window closes. The end-of-window event-time timer
	// is keyed on this instant.
	MaxTimestamp() time.Time
	// Slot returns the slot to which the window belongs
	Slot() string
	// Keys returns the keys of the window
	Keys() []string
	// Partition returns the unique partition id of the window
	// could be combination of startTime, endTime and slot
	Partition() *partition.ID
	// Merge merges the window with the new window
	Merge(tw TimedWindow)
	// Expand expands the window end time to the new endTime
	Expand(endTime time.Time)
}

// timedWindow implements TimedWindow
type timedWindow struct {
	startTime time.Time
	endTime   time.Time
	slot      string
	keys      []string
}

// NewWindowFromPartition returns a new TimedWindow for the given partition id.
func NewWindowFromPartition(id *partition.ID) TimedWindow {
	return &timedWindow{
		startTime: id.Start,
		endTime:   id.End,
		slot:      id.Slot,
	}
}

// NewWindowFromPartitionAndKeys returns a new TimedWindow for the given partition id and keys.
func NewWindowFromPartitionAndKeys(id *partition.ID, keys []string) TimedWindow {
	return &timedWindow{
		startTime: id.Start,
		endTime:   id.End,
		slot:      id.Slot,
		keys:      keys,
	}
}

func (w *timedWindow) StartTime() time.Time {
	return w.startTime
}

func (w *timedWindow) EndTime() time.Time {
	return w.endTime
}

func (w *timedWindow) MaxTimestamp() time.Time {
	return maxTimestamp(w.endTime)
}

func (w *timedWindow) Slot() string {
	return w.slot
}

func (w *timedWindow) Keys() []string {
	return w.keys
}

func (w *timedWindow) Partition() *partition.ID {
	return &partition.ID{
		Start: w.startTime,
		End:   w.endTime,
		Slot:  w.slot,
	}
}

func (w *timedWindow) Merge(tw TimedWindow) {
	// expand the start and end to accommodate the new window
	if tw.StartTime().Before(w.startTime) {
		w.startTime = tw.StartTime()
	}

	if tw.EndTime().After(w.endTime) {
		w.endTime = tw.EndTime()
	}
}

func (w *timedWindow) Expand(endTime time.Time) {
	if endTime.After(w.endTime) {
		w.endTime = endTime
	}
}

// maxTimestamp converts an exclusive window end into the largest timestamp
// still inside the window. Windows are left inclusive and right exclusive.
func maxTimestamp(end time.Time) time.Time {
	return end.Add(-time.Millisecond)
}

// TimedWindowRequest represents the operation on the window
type TimedWindowRequest struct {
	// Operation is the operation on the windows
	Operation Operation
	// Element is the element that produced the request, nil for
	// watermark driven operations.
	Element *Element
	// ID represents the partition id
	ID *partition.ID
	// Windows is the list of windows on which the operation is performed
	Windows []TimedWindow
}

// Operation represents the event type of the operation on the window
type Operation int

const (
	Open Operation = iota
	Delete
	Close
	Merge
	Append
	Expand
)

func (e Operation) String() string {
	switch e {
	case Open:
		return "Open"
	case Delete:
		return "Delete"
	case Close:
		return "Close"
	case Merge:
		return "Merge"
	case Append:
		return "Append"
	case Expand:
		return "Expand"
	default:
		return "Unknown"
	}
}

// Strategy represents the windowing strategy
type Strategy int

const (
	Fixed Strategy = iota
	Sliding
	Session
	Global
)

func (s Strategy) String() string {
	switch s {
	case Fixed:
		return "Fixed"
	case Sliding:
		return "Sliding"
	case Session:
		return "Session"
	case Global:
		return "Global"
	default:
		return "Unknown"
	}
}

// IsNonMerging returns true if windows produced under this strategy never
// coalesce with each other. Only session windows merge.
func (s Strategy) IsNonMerging() bool {
	return s != Session
}
