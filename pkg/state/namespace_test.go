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

package state

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/khurrumnasimm/incubator-beam/pkg/reduce/partition"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

func intervalWindow(startMs, durMs int64) window.TimedWindow {
	return window.NewWindowFromPartition(&partition.ID{
		Start: time.UnixMilli(startMs),
		End:   time.UnixMilli(startMs + durMs),
		Slot:  "slot-0",
	})
}

func TestWindowNamespace_Format(t *testing.T) {
	codec := window.IntervalCodec{}
	w := intervalWindow(60000, 60000)

	ns := WindowNamespace(codec, w)
	assert.Equal(t, Namespace("/"+codec.EncodeToString(w)+"/"), ns)

	// the trigger index is appended base36
	assert.Equal(t, Namespace("/"+codec.EncodeToString(w)+"/z/"),
		WindowAndTriggerNamespace(codec, w, 35))
	assert.Equal(t, Namespace("/"+codec.EncodeToString(w)+"/10/"),
		WindowAndTriggerNamespace(codec, w, 36))
}

func TestWindowNamespace_DistinctFromTriggerNamespace(t *testing.T) {
	codec := window.IntervalCodec{}
	w := intervalWindow(60000, 60000)
	assert.NotEqual(t, WindowNamespace(codec, w), WindowAndTriggerNamespace(codec, w, 0))
}

// Distinct (window, trigger index) pairs must never alias, and equal pairs
// must always resolve to the same slot.
func TestWindowAndTriggerNamespace_Isolation(t *testing.T) {
	codec := window.IntervalCodec{}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("distinct pairs do not alias", prop.ForAll(
		func(startA, durA, startB, durB int64, idxA, idxB int) bool {
			sameWindow := startA == startB && durA == durB
			if sameWindow && idxA == idxB {
				return true
			}
			nsA := WindowAndTriggerNamespace(codec, intervalWindow(startA, durA), idxA)
			nsB := WindowAndTriggerNamespace(codec, intervalWindow(startB, durB), idxB)
			return nsA != nsB
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(1, 1<<20),
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(1, 1<<20),
		gen.IntRange(0, 1024),
		gen.IntRange(0, 1024),
	))

	properties.Property("equal pairs share a slot", prop.ForAll(
		func(start, dur int64, idx int) bool {
			store := NewInMemStore()
			nsA := WindowAndTriggerNamespace(codec, intervalWindow(start, dur), idx)
			nsB := WindowAndTriggerNamespace(codec, intervalWindow(start, dur), idx)

			a, err := store.State(nsA, CounterTag("c"))
			if err != nil {
				return false
			}
			if err := a.(CounterState).Inc(1); err != nil {
				return false
			}
			b, err := store.State(nsB, CounterTag("c"))
			if err != nil {
				return false
			}
			sum, err := b.(CounterState).Read()
			return err == nil && sum == 1
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(1, 1<<20),
		gen.IntRange(0, 1024),
	))

	properties.TestingRun(t)
}
