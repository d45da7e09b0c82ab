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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khurrumnasimm/incubator-beam/pkg/reduce/partition"
)

var baseTime = time.UnixMilli(60000)

func newTestWindow(start, end time.Time, slot string) TimedWindow {
	return NewWindowFromPartition(&partition.ID{Start: start, End: end, Slot: slot})
}

func TestTimedWindow_MaxTimestamp(t *testing.T) {
	w := newTestWindow(baseTime, baseTime.Add(time.Minute), "slot-0")
	assert.Equal(t, baseTime.Add(time.Minute).Add(-time.Millisecond), w.MaxTimestamp())
	assert.True(t, w.MaxTimestamp().Before(w.EndTime()))
}

func TestTimedWindow_MergeAndExpand(t *testing.T) {
	w := newTestWindow(baseTime, baseTime.Add(time.Minute), "slot-0")
	other := newTestWindow(baseTime.Add(-time.Second), baseTime.Add(2*time.Minute), "slot-0")

	w.Merge(other)
	assert.Equal(t, baseTime.Add(-time.Second), w.StartTime())
	assert.Equal(t, baseTime.Add(2*time.Minute), w.EndTime())

	// expanding backwards is a no-op
	w.Expand(baseTime)
	assert.Equal(t, baseTime.Add(2*time.Minute), w.EndTime())
	w.Expand(baseTime.Add(3 * time.Minute))
	assert.Equal(t, baseTime.Add(3*time.Minute), w.EndTime())
}

func TestElement_CombinedKey(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{name: "single key", keys: []string{"a"}, want: "a"},
		{name: "multiple keys", keys: []string{"a", "b", "c"}, want: "a:b:c"},
		{name: "no keys", keys: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := &Element{Keys: tt.keys}
			assert.Equal(t, tt.want, el.CombinedKey())
		})
	}
}

func TestIntervalCodec(t *testing.T) {
	codec := IntervalCodec{}
	w := newTestWindow(baseTime, baseTime.Add(time.Minute), "slot-3")

	t.Run("deterministic", func(t *testing.T) {
		same := newTestWindow(baseTime, baseTime.Add(time.Minute), "slot-3")
		assert.Equal(t, codec.EncodeToString(w), codec.EncodeToString(same))
	})

	t.Run("distinct windows never collide", func(t *testing.T) {
		others := []TimedWindow{
			newTestWindow(baseTime.Add(time.Millisecond), baseTime.Add(time.Minute), "slot-3"),
			newTestWindow(baseTime, baseTime.Add(time.Minute).Add(time.Millisecond), "slot-3"),
			newTestWindow(baseTime, baseTime.Add(time.Minute), "slot-4"),
		}
		for _, other := range others {
			assert.NotEqual(t, codec.EncodeToString(w), codec.EncodeToString(other))
		}
	})
}

func TestSlotAssigner(t *testing.T) {
	assigner := NewSlotAssigner(16)

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, assigner.Assign([]string{"a", "b"}), assigner.Assign([]string{"a", "b"}))
	})

	t.Run("within range", func(t *testing.T) {
		keys := [][]string{{"a"}, {"b"}, {"a", "b"}, {"longer", "key", "set"}}
		for _, k := range keys {
			slot := assigner.Assign(k)
			assert.Regexp(t, `^slot-\d+$`, slot)
		}
	})

	t.Run("single slot", func(t *testing.T) {
		one := NewSlotAssigner(1)
		assert.Equal(t, "slot-0", one.Assign([]string{"anything"}))
	})
}

func TestSortedWindowList(t *testing.T) {
	w1 := newTestWindow(baseTime, baseTime.Add(time.Minute), "slot-0")
	w2 := newTestWindow(baseTime.Add(time.Minute), baseTime.Add(2*time.Minute), "slot-0")
	w3 := newTestWindow(baseTime.Add(2*time.Minute), baseTime.Add(3*time.Minute), "slot-0")

	t.Run("insert keeps order and dedupes", func(t *testing.T) {
		list := NewSortedWindowList[TimedWindow]()
		_, present := list.InsertIfNotPresent(w2)
		assert.False(t, present)
		_, present = list.InsertIfNotPresent(w1)
		assert.False(t, present)
		_, present = list.InsertIfNotPresent(w3)
		assert.False(t, present)

		existing, present := list.InsertIfNotPresent(newTestWindow(baseTime, baseTime.Add(time.Minute), "slot-0"))
		assert.True(t, present)
		assert.Equal(t, w1.Partition().String(), existing.Partition().String())

		items := list.Items()
		require.Len(t, items, 3)
		assert.Equal(t, w1, items[0])
		assert.Equal(t, w2, items[1])
		assert.Equal(t, w3, items[2])
	})

	t.Run("find window for time", func(t *testing.T) {
		list := NewSortedWindowList[TimedWindow]()
		list.InsertIfNotPresent(w1)
		list.InsertIfNotPresent(w2)

		got, ok := list.FindWindowForTime(baseTime.Add(30 * time.Second))
		require.True(t, ok)
		assert.Equal(t, w1, got)

		// boundaries are left inclusive, right exclusive
		got, ok = list.FindWindowForTime(baseTime.Add(time.Minute))
		require.True(t, ok)
		assert.Equal(t, w2, got)

		_, ok = list.FindWindowForTime(baseTime.Add(5 * time.Minute))
		assert.False(t, ok)
	})

	t.Run("remove windows below watermark", func(t *testing.T) {
		list := NewSortedWindowList[TimedWindow]()
		list.InsertIfNotPresent(w1)
		list.InsertIfNotPresent(w2)
		list.InsertIfNotPresent(w3)

		removed := list.RemoveWindows(baseTime.Add(2 * time.Minute))
		require.Len(t, removed, 2)
		assert.Equal(t, w1, removed[0])
		assert.Equal(t, w2, removed[1])
		assert.Equal(t, 1, list.Len())
	})

	t.Run("delete and front", func(t *testing.T) {
		list := NewSortedWindowList[TimedWindow]()
		list.InsertIfNotPresent(w1)
		list.InsertIfNotPresent(w2)

		list.Delete(w1)
		front, ok := list.Front()
		require.True(t, ok)
		assert.Equal(t, w2, front)

		list.Delete(w2)
		_, ok = list.Front()
		assert.False(t, ok)
	})
}
