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

// ClearHook is invoked for every node visited by ClearRecursively so the
// node can release any state it owns alongside its finished flag.
type ClearHook func(t *ExecutableTrigger) error

// FinishedTriggers tracks which trigger-tree nodes have irrevocably finished
// within one window. A finished node stays finished until a
// ClearRecursively covering it. Two windows never share a set.
type FinishedTriggers interface {
	// IsFinished returns whether the node is marked finished.
	IsFinished(t *ExecutableTrigger) bool
	// SetFinished marks or unmarks the node.
	SetFinished(t *ExecutableTrigger, finished bool)
	// ClearRecursively clears the node and every node in its subtree,
	// depth-first, invoking onClear for each visited node. A hook failure
	// aborts the walk and propagates.
	ClearRecursively(t *ExecutableTrigger, onClear ClearHook) error
	// Copy returns an independent snapshot of the set.
	Copy() FinishedTriggers
}

// clearTree is the shared ClearRecursively walk. The flag is dropped before
// the hook runs so a failed hook never leaves the node marked finished.
func clearTree(f FinishedTriggers, t *ExecutableTrigger, onClear ClearHook) error {
	f.SetFinished(t, false)
	if onClear != nil {
		if err := onClear(t); err != nil {
			return err
		}
	}
	for _, sub := range t.SubTriggers() {
		if err := clearTree(f, sub, onClear); err != nil {
			return err
		}
	}
	return nil
}

// finishedBitSet is a FinishedTriggers backed by a slice indexed by the
// node's preorder index. It is the per-window working set.
type finishedBitSet struct {
	bits []bool
}

// NewFinishedTriggersBitSet returns an all-unfinished set sized for the
// tree rooted at root.
func NewFinishedTriggersBitSet(root *ExecutableTrigger) FinishedTriggers {
	return &finishedBitSet{
		bits: make([]bool, root.FirstIndexAfterSubtree()),
	}
}

func (f *finishedBitSet) IsFinished(t *ExecutableTrigger) bool {
	return f.bits[t.Index()]
}

func (f *finishedBitSet) SetFinished(t *ExecutableTrigger, finished bool) {
	f.bits[t.Index()] = finished
}

func (f *finishedBitSet) ClearRecursively(t *ExecutableTrigger, onClear ClearHook) error {
	return clearTree(f, t, onClear)
}

func (f *finishedBitSet) Copy() FinishedTriggers {
	bits := make([]bool, len(f.bits))
	copy(bits, f.bits)
	return &finishedBitSet{bits: bits}
}

// finishedSet is a FinishedTriggers backed by a sparse index set. It is used
// for the per-window snapshots handed to merge evaluation, where sets are
// built from persisted indices rather than a live tree.
type finishedSet struct {
	indices map[int]struct{}
}

// NewFinishedTriggersSet returns a set with the given indices marked
// finished.
func NewFinishedTriggersSet(indices ...int) FinishedTriggers {
	s := &finishedSet{indices: make(map[int]struct{}, len(indices))}
	for _, i := range indices {
		s.indices[i] = struct{}{}
	}
	return s
}

func (f *finishedSet) IsFinished(t *ExecutableTrigger) bool {
	_, ok := f.indices[t.Index()]
	return ok
}

func (f *finishedSet) SetFinished(t *ExecutableTrigger, finished bool) {
	if finished {
		f.indices[t.Index()] = struct{}{}
	} else {
		delete(f.indices, t.Index())
	}
}

func (f *finishedSet) ClearRecursively(t *ExecutableTrigger, onClear ClearHook) error {
	return clearTree(f, t, onClear)
}

func (f *finishedSet) Copy() FinishedTriggers {
	indices := make(map[int]struct{}, len(f.indices))
	for i := range f.indices {
		indices[i] = struct{}{}
	}
	return &finishedSet{indices: indices}
}
