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
	"github.com/khurrumnasimm/incubator-beam/pkg/state"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

// StateAccessor reads and writes state rooted at the namespace of
// (current window, bound trigger index).
type StateAccessor interface {
	// Access returns the handle for the address. Repeated calls with the
	// same address return handles to the same slot.
	Access(tag state.Tag) (state.State, error)
}

// MergingStateAccessor additionally reaches into the state of each window
// being merged, at that window's own (unmerged) namespace for the same
// trigger index. It is only available inside merge evaluation.
type MergingStateAccessor interface {
	StateAccessor
	// AccessInEachMergingWindow returns one handle per merging window.
	AccessInEachMergingWindow(tag state.Tag) (map[window.TimedWindow]state.State, error)
}

type stateAccessor struct {
	store           state.Store
	codec           window.Codec
	triggerIndex    int
	windowNamespace state.Namespace
}

var _ StateAccessor = (*stateAccessor)(nil)

func newStateAccessor(store state.Store, codec window.Codec, w window.TimedWindow, t *ExecutableTrigger) *stateAccessor {
	return &stateAccessor{
		store:           store,
		codec:           codec,
		triggerIndex:    t.Index(),
		windowNamespace: state.WindowAndTriggerNamespace(codec, w, t.Index()),
	}
}

func (a *stateAccessor) Access(tag state.Tag) (state.State, error) {
	return a.store.State(a.windowNamespace, tag)
}

func (a *stateAccessor) namespaceFor(w window.TimedWindow) state.Namespace {
	return state.WindowAndTriggerNamespace(a.codec, w, a.triggerIndex)
}

type mergingStateAccessor struct {
	stateAccessor
	// activeToBeMerged is the set of windows being merged into the result.
	// It is treated as immutable for the duration of the merge evaluation.
	activeToBeMerged []window.TimedWindow
}

var _ MergingStateAccessor = (*mergingStateAccessor)(nil)

func newMergingStateAccessor(store state.Store, codec window.Codec, mergeResult window.TimedWindow,
	activeToBeMerged []window.TimedWindow, t *ExecutableTrigger) *mergingStateAccessor {
	return &mergingStateAccessor{
		stateAccessor:    *newStateAccessor(store, codec, mergeResult, t),
		activeToBeMerged: activeToBeMerged,
	}
}

func (a *mergingStateAccessor) AccessInEachMergingWindow(tag state.Tag) (map[window.TimedWindow]state.State, error) {
	states := make(map[window.TimedWindow]state.State, len(a.activeToBeMerged))
	for _, mergingWindow := range a.activeToBeMerged {
		st, err := a.store.State(a.namespaceFor(mergingWindow), tag)
		if err != nil {
			return nil, err
		}
		states[mergingWindow] = st
	}
	return states, nil
}
