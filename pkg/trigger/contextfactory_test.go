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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khurrumnasimm/incubator-beam/pkg/state"
	"github.com/khurrumnasimm/incubator-beam/pkg/timers"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
	"github.com/khurrumnasimm/incubator-beam/pkg/window/strategy/fixed"
	"github.com/khurrumnasimm/incubator-beam/pkg/window/strategy/session"
)

func newFixedFactory(store state.Store) *ContextFactory {
	return NewContextFactory(fixed.NewWindower(time.Minute, 4), store)
}

func newSessionFactory(store state.Store) *ContextFactory {
	return NewContextFactory(session.NewWindower(10*time.Second, 4), store)
}

func TestForTrigger_PreservesIdentity(t *testing.T) {
	root := buildTree(t)
	store := state.NewInMemStore()
	factory := newFixedFactory(store)

	w := testWindow(baseTime, baseTime.Add(time.Minute))
	inMem := timers.NewInMem()
	finished := NewFinishedTriggersBitSet(root)

	ctx := factory.CreateOnElementContext(w, inMem, baseTime.Add(time.Second), root, finished)
	subCtx := ctx.ForTrigger(root.SubTrigger(1))

	// a flag set through the re-scoped context is visible from the original
	subCtx.Trigger().SetFinished(true)
	assert.True(t, ctx.Trigger().IsFinishedAt(1))
	assert.True(t, finished.IsFinished(root.SubTrigger(1)))

	// timers keep their identity too
	ts := baseTime.Add(30 * time.Second)
	subCtx.SetTimer(ts, timers.EventTime)
	assert.True(t, inMem.IsSet(ts, timers.EventTime))
	ctx.DeleteTimer(ts, timers.EventTime)
	assert.False(t, inMem.IsSet(ts, timers.EventTime))

	// window and element timestamp carry over unchanged
	assert.Equal(t, w, subCtx.Window())
	assert.Equal(t, baseTime.Add(time.Second), subCtx.EventTimestamp())
}

func TestStateAccessor_SameSlotOnRepeatedAccess(t *testing.T) {
	root := buildTree(t)
	store := state.NewInMemStore()
	factory := newFixedFactory(store)

	w := testWindow(baseTime, baseTime.Add(time.Minute))
	accessor := factory.CreateStateAccessor(w, root.SubTrigger(2))

	first, err := accessor.Access(elementCountTag)
	require.NoError(t, err)
	second, err := accessor.Access(elementCountTag)
	require.NoError(t, err)

	require.NoError(t, first.(state.CounterState).Inc(3))
	count, err := second.(state.CounterState).Read()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestStateAccessor_IsolatedPerTriggerIndex(t *testing.T) {
	root := buildTree(t)
	store := state.NewInMemStore()
	factory := newFixedFactory(store)
	w := testWindow(baseTime, baseTime.Add(time.Minute))

	a := factory.CreateStateAccessor(w, root.SubTrigger(1).SubTrigger(0))
	b := factory.CreateStateAccessor(w, root.SubTrigger(2))

	sa, err := a.Access(elementCountTag)
	require.NoError(t, err)
	require.NoError(t, sa.(state.CounterState).Inc(7))

	sb, err := b.Access(elementCountTag)
	require.NoError(t, err)
	count, err := sb.(state.CounterState).Read()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateOnMergeContext_Misuse(t *testing.T) {
	root := buildTree(t)
	store := state.NewInMemStore()
	w := testWindow(baseTime, baseTime.Add(time.Minute))

	t.Run("non merging strategy", func(t *testing.T) {
		factory := newFixedFactory(store)
		_, err := factory.CreateOnMergeContext(w, timers.NewInMem(), root,
			NewFinishedTriggersBitSet(root),
			map[window.TimedWindow]FinishedTriggers{w: NewFinishedTriggersBitSet(root)})
		assert.Error(t, err)

		_, err = factory.CreateMergingStateAccessor(w, []window.TimedWindow{w}, root)
		assert.Error(t, err)
	})

	t.Run("empty merging set", func(t *testing.T) {
		factory := newSessionFactory(store)
		_, err := factory.CreateOnMergeContext(w, timers.NewInMem(), root,
			NewFinishedTriggersBitSet(root), nil)
		assert.Error(t, err)

		_, err = factory.CreateMergingStateAccessor(w, nil, root)
		assert.Error(t, err)
	})
}

func TestOnMergeContext_FinishedAcrossMergingWindows(t *testing.T) {
	root := buildTree(t)
	store := state.NewInMemStore()
	factory := newSessionFactory(store)

	keys := []string{"k"}
	a := session.NewWindow(baseTime, 10*time.Second, "slot-0", keys)
	b := session.NewWindow(baseTime.Add(5*time.Second), 10*time.Second, "slot-0", keys)
	c := session.NewWindow(baseTime.Add(12*time.Second), 10*time.Second, "slot-0", keys)
	merged := session.NewWindow(baseTime, 22*time.Second, "slot-0", keys)

	// node index 2 (the repeat) finished in a and c, but not b
	finishedSets := map[window.TimedWindow]FinishedTriggers{
		a: NewFinishedTriggersSet(2),
		b: NewFinishedTriggersSet(),
		c: NewFinishedTriggersSet(2),
	}

	ctx, err := factory.CreateOnMergeContext(merged, timers.NewInMem(), root,
		NewFinishedTriggersBitSet(root), finishedSets)
	require.NoError(t, err)

	repeatCtx := ctx.ForTrigger(root.SubTrigger(1))
	assert.True(t, repeatCtx.Trigger().FinishedInAnyMergingWindow())
	assert.False(t, repeatCtx.Trigger().FinishedInAllMergingWindows())

	rootInfo := ctx.Trigger()
	assert.False(t, rootInfo.FinishedInAnyMergingWindow())
	assert.False(t, rootInfo.FinishedInAllMergingWindows())
}

func TestOnMergeContext_SharesFinishedSetAcrossViews(t *testing.T) {
	root := buildTree(t)
	store := state.NewInMemStore()
	factory := newSessionFactory(store)

	keys := []string{"k"}
	a := session.NewWindow(baseTime, 10*time.Second, "slot-0", keys)
	merged := session.NewWindow(baseTime, 15*time.Second, "slot-0", keys)

	finished := NewFinishedTriggersBitSet(root)
	ctx, err := factory.CreateOnMergeContext(merged, timers.NewInMem(), root,
		finished, map[window.TimedWindow]FinishedTriggers{a: NewFinishedTriggersSet()})
	require.NoError(t, err)

	// mutate through the merging view, observe through the base view
	ctx.Trigger().SetFinished(true)
	assert.True(t, ctx.TriggerContext.Trigger().IsFinished())
	assert.True(t, finished.IsFinished(root))
}

func TestAccessInEachMergingWindow(t *testing.T) {
	root := buildTree(t)
	store := state.NewInMemStore()
	factory := newSessionFactory(store)

	keys := []string{"k"}
	a := session.NewWindow(baseTime, 10*time.Second, "slot-0", keys)
	b := session.NewWindow(baseTime.Add(5*time.Second), 10*time.Second, "slot-0", keys)
	merged := session.NewWindow(baseTime, 15*time.Second, "slot-0", keys)
	count := root.SubTrigger(2)

	// write through the per-window accessors first
	for i, w := range []window.TimedWindow{a, b} {
		st, err := factory.CreateStateAccessor(w, count).Access(elementCountTag)
		require.NoError(t, err)
		require.NoError(t, st.(state.CounterState).Inc(int64(i+1)))
	}

	merging, err := factory.CreateMergingStateAccessor(merged, []window.TimedWindow{a, b}, count)
	require.NoError(t, err)
	states, err := merging.AccessInEachMergingWindow(elementCountTag)
	require.NoError(t, err)
	require.Len(t, states, 2)

	got, err := states[a].(state.CounterState).Read()
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	got, err = states[b].(state.CounterState).Read()
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	// the merge result namespace is distinct from every constituent
	st, err := merging.Access(elementCountTag)
	require.NoError(t, err)
	got, err = st.(state.CounterState).Read()
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestOnMergeContext_DeleteTimerDeletes(t *testing.T) {
	root := buildTree(t)
	store := state.NewInMemStore()
	factory := newSessionFactory(store)

	keys := []string{"k"}
	a := session.NewWindow(baseTime, 10*time.Second, "slot-0", keys)
	merged := session.NewWindow(baseTime, 15*time.Second, "slot-0", keys)

	inMem := timers.NewInMem()
	ctx, err := factory.CreateOnMergeContext(merged, inMem, root,
		NewFinishedTriggersBitSet(root),
		map[window.TimedWindow]FinishedTriggers{a: NewFinishedTriggersSet()})
	require.NoError(t, err)

	ts := baseTime.Add(3 * time.Second)
	ctx.SetTimer(ts, timers.EventTime)
	require.True(t, inMem.IsSet(ts, timers.EventTime))
	ctx.DeleteTimer(ts, timers.EventTime)
	assert.False(t, inMem.IsSet(ts, timers.EventTime))

	// only the merge result's own end-of-window timer stays protected
	ctx.SetTimer(merged.MaxTimestamp(), timers.EventTime)
	ctx.DeleteTimer(merged.MaxTimestamp(), timers.EventTime)
	assert.True(t, inMem.IsSet(merged.MaxTimestamp(), timers.EventTime))
}
