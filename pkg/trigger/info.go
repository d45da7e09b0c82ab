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
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

// TriggerInfo exposes tree navigation and finished-flag bookkeeping to
// trigger logic, bound to one node of the tree.
type TriggerInfo interface {
	// IsMerging returns whether the active windowing strategy merges
	// windows.
	IsMerging() bool
	// SubTriggers returns the bound node's children in tree order.
	SubTriggers() []*ExecutableTrigger
	// SubTrigger returns the bound node's child at the given position.
	SubTrigger(i int) *ExecutableTrigger
	// IsFinished returns the bound node's finished flag.
	IsFinished() bool
	// IsFinishedAt returns the finished flag of the child at the given
	// position.
	IsFinishedAt(subTriggerIndex int) bool
	// AreAllSubtriggersFinished returns whether no child remains
	// unfinished.
	AreAllSubtriggersFinished() bool
	// UnfinishedSubTriggers returns a restartable iterator over the
	// not-yet-finished children in tree order.
	UnfinishedSubTriggers() *UnfinishedIter
	// FirstUnfinishedSubTrigger returns the first child in tree order that
	// is not finished, or nil.
	FirstUnfinishedSubTrigger() *ExecutableTrigger
	// ResetTree clears the bound node and its whole subtree: finished
	// flags, each node's cleanup hook, and finally the node's own clear
	// hook against the current context.
	ResetTree() error
	// SetFinished marks or unmarks the bound node.
	SetFinished(finished bool)
	// SetFinishedAt marks or unmarks the child at the given position.
	SetFinishedAt(finished bool, subTriggerIndex int)
}

// MergingTriggerInfo additionally answers whether the bound node had
// finished in the windows currently being merged. The queries are read-only;
// reconciling the merged window's own flag is left to the trigger logic,
// since combinators differ on the policy.
type MergingTriggerInfo interface {
	TriggerInfo
	// FinishedInAnyMergingWindow returns whether the bound node finished in
	// at least one merging window.
	FinishedInAnyMergingWindow() bool
	// FinishedInAllMergingWindows returns whether the bound node finished
	// in every merging window.
	FinishedInAllMergingWindows() bool
}

// UnfinishedIter walks the unfinished children of a node in tree order.
// Flags are consulted lazily, at Next time.
type UnfinishedIter struct {
	subTriggers []*ExecutableTrigger
	finishedSet FinishedTriggers
	pos         int
}

// Next returns the next unfinished child, or false when exhausted.
func (it *UnfinishedIter) Next() (*ExecutableTrigger, bool) {
	for it.pos < len(it.subTriggers) {
		sub := it.subTriggers[it.pos]
		it.pos++
		if !it.finishedSet.IsFinished(sub) {
			return sub, true
		}
	}
	return nil, false
}

// Reset restarts the iterator.
func (it *UnfinishedIter) Reset() {
	it.pos = 0
}

type triggerInfo struct {
	trigger     *ExecutableTrigger
	finishedSet FinishedTriggers
	context     *TriggerContext
	isMerging   bool
}

var _ TriggerInfo = (*triggerInfo)(nil)

func (ti *triggerInfo) IsMerging() bool {
	return ti.isMerging
}

func (ti *triggerInfo) SubTriggers() []*ExecutableTrigger {
	return ti.trigger.SubTriggers()
}

func (ti *triggerInfo) SubTrigger(i int) *ExecutableTrigger {
	return ti.trigger.SubTrigger(i)
}

func (ti *triggerInfo) IsFinished() bool {
	return ti.finishedSet.IsFinished(ti.trigger)
}

func (ti *triggerInfo) IsFinishedAt(subTriggerIndex int) bool {
	return ti.finishedSet.IsFinished(ti.SubTrigger(subTriggerIndex))
}

func (ti *triggerInfo) AreAllSubtriggersFinished() bool {
	_, ok := ti.UnfinishedSubTriggers().Next()
	return !ok
}

func (ti *triggerInfo) UnfinishedSubTriggers() *UnfinishedIter {
	return &UnfinishedIter{
		subTriggers: ti.trigger.SubTriggers(),
		finishedSet: ti.finishedSet,
	}
}

func (ti *triggerInfo) FirstUnfinishedSubTrigger() *ExecutableTrigger {
	for _, sub := range ti.trigger.SubTriggers() {
		if !ti.finishedSet.IsFinished(sub) {
			return sub
		}
	}
	return nil
}

func (ti *triggerInfo) ResetTree() error {
	err := ti.finishedSet.ClearRecursively(ti.trigger, func(t *ExecutableTrigger) error {
		return t.InvokeClear(ti.context)
	})
	if err != nil {
		return err
	}
	return ti.trigger.InvokeClear(ti.context)
}

func (ti *triggerInfo) SetFinished(finished bool) {
	ti.finishedSet.SetFinished(ti.trigger, finished)
}

func (ti *triggerInfo) SetFinishedAt(finished bool, subTriggerIndex int) {
	ti.finishedSet.SetFinished(ti.SubTrigger(subTriggerIndex), finished)
}

type mergingTriggerInfo struct {
	triggerInfo
	// finishedSets maps each pre-merge window to its own finished set.
	finishedSets map[window.TimedWindow]FinishedTriggers
}

var _ MergingTriggerInfo = (*mergingTriggerInfo)(nil)

func (ti *mergingTriggerInfo) FinishedInAnyMergingWindow() bool {
	for _, finishedSet := range ti.finishedSets {
		if finishedSet.IsFinished(ti.trigger) {
			return true
		}
	}
	return false
}

func (ti *mergingTriggerInfo) FinishedInAllMergingWindows() bool {
	for _, finishedSet := range ti.finishedSets {
		if !finishedSet.IsFinished(ti.trigger) {
			return false
		}
	}
	return true
}
