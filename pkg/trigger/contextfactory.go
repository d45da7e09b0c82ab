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
	"fmt"
	"sort"
	"time"

	"github.com/khurrumnasimm/incubator-beam/pkg/state"
	"github.com/khurrumnasimm/incubator-beam/pkg/timers"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

// ContextFactory builds the context objects handed to trigger evaluation.
// The contexts are highly interdependent and share mutable finished-state;
// build them only through the factory. One factory serves one
// (windower, store) pair and is otherwise stateless.
type ContextFactory struct {
	windower window.TimedWindower
	store    state.Store
	codec    window.Codec
}

func NewContextFactory(windower window.TimedWindower, store state.Store) *ContextFactory {
	return &ContextFactory{
		windower: windower,
		store:    store,
		codec:    windower.Codec(),
	}
}

func (f *ContextFactory) isMerging() bool {
	return !f.windower.Strategy().IsNonMerging()
}

// Base returns a context for trigger invocations that do not correspond to
// an element or a merge, e.g. querying or clearing a trigger from a timer
// callback. The base context deliberately has no SetTimer: registering a
// fresh timer is only meaningful while processing an element or a merge.
func (f *ContextFactory) Base(w window.TimedWindow, tm timers.Timers,
	rootTrigger *ExecutableTrigger, finishedSet FinishedTriggers) *TriggerContext {
	return f.newTriggerContext(w, newTriggerTimers(w, tm), rootTrigger, finishedSet)
}

// CreateOnElementContext returns the context for processing one element.
func (f *ContextFactory) CreateOnElementContext(w window.TimedWindow, tm timers.Timers,
	eventTimestamp time.Time, rootTrigger *ExecutableTrigger, finishedSet FinishedTriggers) *OnElementContext {
	return &OnElementContext{
		TriggerContext: f.newTriggerContext(w, newTriggerTimers(w, tm), rootTrigger, finishedSet),
		eventTimestamp: eventTimestamp,
	}
}

// CreateOnMergeContext returns the context for reconciling trigger state
// when the given windows merge into w. finishedSet is the result window's
// own set; finishedSets maps every pre-merge window to its set. The call
// fails fast if the windowing strategy does not merge or the merging set is
// empty.
func (f *ContextFactory) CreateOnMergeContext(w window.TimedWindow, tm timers.Timers,
	rootTrigger *ExecutableTrigger, finishedSet FinishedTriggers,
	finishedSets map[window.TimedWindow]FinishedTriggers) (*OnMergeContext, error) {
	if !f.isMerging() {
		return nil, fmt.Errorf("cannot create an on-merge context, %v windows do not merge", f.windower.Strategy())
	}
	if len(finishedSets) == 0 {
		return nil, fmt.Errorf("cannot create an on-merge context without merging windows")
	}
	return f.newOnMergeContext(w, newTriggerTimers(w, tm), rootTrigger, finishedSet, finishedSets), nil
}

// CreateStateAccessor returns a state accessor rooted at (w, trigger index)
// outside of any context.
func (f *ContextFactory) CreateStateAccessor(w window.TimedWindow, t *ExecutableTrigger) StateAccessor {
	return newStateAccessor(f.store, f.codec, w, t)
}

// CreateMergingStateAccessor returns a merging state accessor for the merge
// of mergingWindows into mergeResult.
func (f *ContextFactory) CreateMergingStateAccessor(mergeResult window.TimedWindow,
	mergingWindows []window.TimedWindow, t *ExecutableTrigger) (MergingStateAccessor, error) {
	if !f.isMerging() {
		return nil, fmt.Errorf("cannot create a merging state accessor, %v windows do not merge", f.windower.Strategy())
	}
	if len(mergingWindows) == 0 {
		return nil, fmt.Errorf("cannot create a merging state accessor without merging windows")
	}
	return newMergingStateAccessor(f.store, f.codec, mergeResult, mergingWindows, t), nil
}

func (f *ContextFactory) newTriggerContext(w window.TimedWindow, tt *triggerTimers,
	t *ExecutableTrigger, finishedSet FinishedTriggers) *TriggerContext {
	c := &TriggerContext{
		factory: f,
		window:  w,
		state:   newStateAccessor(f.store, f.codec, w, t),
		timers:  tt,
	}
	c.triggerInfo = &triggerInfo{
		trigger:     t,
		finishedSet: finishedSet,
		context:     c,
		isMerging:   f.isMerging(),
	}
	return c
}

func (f *ContextFactory) newOnMergeContext(w window.TimedWindow, tt *triggerTimers,
	t *ExecutableTrigger, finishedSet FinishedTriggers,
	finishedSets map[window.TimedWindow]FinishedTriggers) *OnMergeContext {
	mergingWindows := make([]window.TimedWindow, 0, len(finishedSets))
	for mergingWindow := range finishedSets {
		mergingWindows = append(mergingWindows, mergingWindow)
	}
	sort.Slice(mergingWindows, func(i, j int) bool {
		return mergingWindows[i].Partition().String() < mergingWindows[j].Partition().String()
	})

	base := f.newTriggerContext(w, tt, t, finishedSet)
	mergingInfo := &mergingTriggerInfo{
		triggerInfo:  *base.triggerInfo,
		finishedSets: finishedSets,
	}
	// introspection must observe the same finished set through either view
	base.triggerInfo = &mergingInfo.triggerInfo
	return &OnMergeContext{
		TriggerContext: base,
		mergingState:   newMergingStateAccessor(f.store, f.codec, w, mergingWindows, t),
		mergingInfo:    mergingInfo,
	}
}

// TriggerContext is the base context shape: a window, introspection, state
// and (delete-only) timer access, re-scopable to any node of the tree.
type TriggerContext struct {
	factory     *ContextFactory
	window      window.TimedWindow
	state       *stateAccessor
	timers      *triggerTimers
	triggerInfo *triggerInfo
}

// ForTrigger returns a context identical to this one but bound to the given
// node. Window, timers and finished-state keep their identity; only what the
// state accessor and introspection resolve against changes.
func (c *TriggerContext) ForTrigger(t *ExecutableTrigger) *TriggerContext {
	return c.factory.newTriggerContext(c.window, c.timers, t, c.triggerInfo.finishedSet)
}

func (c *TriggerContext) Window() window.TimedWindow {
	return c.window
}

func (c *TriggerContext) Trigger() TriggerInfo {
	return c.triggerInfo
}

func (c *TriggerContext) State() StateAccessor {
	return c.state
}

func (c *TriggerContext) DeleteTimer(ts time.Time, domain timers.TimeDomain) {
	c.timers.DeleteTimer(ts, domain)
}

func (c *TriggerContext) CurrentProcessingTime() time.Time {
	return c.timers.CurrentProcessingTime()
}

func (c *TriggerContext) CurrentSynchronizedProcessingTime() time.Time {
	return c.timers.CurrentSynchronizedProcessingTime()
}

func (c *TriggerContext) CurrentEventTime() time.Time {
	return c.timers.CurrentEventTime()
}

// OnElementContext is the context for processing a single element; it adds
// the element's timestamp and the ability to set timers.
type OnElementContext struct {
	*TriggerContext
	eventTimestamp time.Time
}

// EventTimestamp returns the timestamp of the element being processed.
func (c *OnElementContext) EventTimestamp() time.Time {
	return c.eventTimestamp
}

func (c *OnElementContext) SetTimer(ts time.Time, domain timers.TimeDomain) {
	c.timers.SetTimer(ts, domain)
}

func (c *OnElementContext) ForTrigger(t *ExecutableTrigger) *OnElementContext {
	return &OnElementContext{
		TriggerContext: c.TriggerContext.ForTrigger(t),
		eventTimestamp: c.eventTimestamp,
	}
}

// OnMergeContext is the context for reconciling trigger state across merging
// windows. State and introspection gain their merging variants; timers are
// scoped to the merge result window.
type OnMergeContext struct {
	*TriggerContext
	mergingState *mergingStateAccessor
	mergingInfo  *mergingTriggerInfo
}

func (c *OnMergeContext) Trigger() MergingTriggerInfo {
	return c.mergingInfo
}

func (c *OnMergeContext) State() MergingStateAccessor {
	return c.mergingState
}

func (c *OnMergeContext) SetTimer(ts time.Time, domain timers.TimeDomain) {
	c.timers.SetTimer(ts, domain)
}

func (c *OnMergeContext) ForTrigger(t *ExecutableTrigger) *OnMergeContext {
	return c.factory.newOnMergeContext(c.window, c.timers, t,
		c.triggerInfo.finishedSet, c.mergingInfo.finishedSets)
}
