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

	"github.com/khurrumnasimm/incubator-beam/pkg/state"
	"github.com/khurrumnasimm/incubator-beam/pkg/timers"
)

// elementCountTag addresses the per-node element counter of the
// ElementCount trigger.
var elementCountTag = state.CounterTag("count")

func counterState(sa StateAccessor) (state.CounterState, error) {
	st, err := sa.Access(elementCountTag)
	if err != nil {
		return nil, err
	}
	counter, ok := st.(state.CounterState)
	if !ok {
		return nil, fmt.Errorf("state at %q is not a counter", elementCountTag.ID)
	}
	return counter, nil
}

// InvokeOnElement runs the node's on-element logic against the context
// re-scoped to this node.
func (t *ExecutableTrigger) InvokeOnElement(c *OnElementContext) error {
	ctx := c.ForTrigger(t)
	switch t.spec.kind {
	case KindAfterEndOfWindow:
		ctx.SetTimer(ctx.Window().MaxTimestamp(), timers.EventTime)
		return nil
	case KindElementCount:
		counter, err := counterState(ctx.State())
		if err != nil {
			return err
		}
		return counter.Inc(1)
	case KindRepeat:
		return t.SubTrigger(0).InvokeOnElement(c)
	case KindAnyOf, KindAllOf:
		it := ctx.Trigger().UnfinishedSubTriggers()
		for sub, ok := it.Next(); ok; sub, ok = it.Next() {
			if err := sub.InvokeOnElement(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown trigger kind, %v", t.spec.kind)
	}
}

// InvokeShouldFire reports whether the node wants to fire, without mutating
// any state.
func (t *ExecutableTrigger) InvokeShouldFire(c *TriggerContext) (bool, error) {
	ctx := c.ForTrigger(t)
	switch t.spec.kind {
	case KindAfterEndOfWindow:
		return !ctx.CurrentEventTime().Before(ctx.Window().MaxTimestamp()), nil
	case KindElementCount:
		counter, err := counterState(ctx.State())
		if err != nil {
			return false, err
		}
		count, err := counter.Read()
		if err != nil {
			return false, err
		}
		return count >= t.spec.count, nil
	case KindRepeat:
		return t.SubTrigger(0).InvokeShouldFire(c)
	case KindAnyOf:
		it := ctx.Trigger().UnfinishedSubTriggers()
		for sub, ok := it.Next(); ok; sub, ok = it.Next() {
			fire, err := sub.InvokeShouldFire(c)
			if err != nil {
				return false, err
			}
			if fire {
				return true, nil
			}
		}
		return false, nil
	case KindAllOf:
		it := ctx.Trigger().UnfinishedSubTriggers()
		any := false
		for sub, ok := it.Next(); ok; sub, ok = it.Next() {
			any = true
			fire, err := sub.InvokeShouldFire(c)
			if err != nil {
				return false, err
			}
			if !fire {
				return false, nil
			}
		}
		return any, nil
	default:
		return false, fmt.Errorf("unknown trigger kind, %v", t.spec.kind)
	}
}

// InvokeOnFire runs the node's firing logic: releasing per-fire state and
// updating finished flags.
func (t *ExecutableTrigger) InvokeOnFire(c *TriggerContext) error {
	ctx := c.ForTrigger(t)
	switch t.spec.kind {
	case KindAfterEndOfWindow:
		ctx.Trigger().SetFinished(true)
		return nil
	case KindElementCount:
		counter, err := counterState(ctx.State())
		if err != nil {
			return err
		}
		if err := counter.Clear(); err != nil {
			return err
		}
		ctx.Trigger().SetFinished(true)
		return nil
	case KindRepeat:
		sub := t.SubTrigger(0)
		if err := sub.InvokeOnFire(c); err != nil {
			return err
		}
		subCtx := ctx.ForTrigger(sub)
		if subCtx.Trigger().IsFinished() {
			// start the next repetition from scratch
			return subCtx.Trigger().ResetTree()
		}
		return nil
	case KindAnyOf, KindAllOf:
		it := ctx.Trigger().UnfinishedSubTriggers()
		for sub, ok := it.Next(); ok; sub, ok = it.Next() {
			fire, err := sub.InvokeShouldFire(c)
			if err != nil {
				return err
			}
			if !fire {
				continue
			}
			if err := sub.InvokeOnFire(c); err != nil {
				return err
			}
		}
		if t.spec.kind == KindAnyOf {
			for i := range t.SubTriggers() {
				if ctx.Trigger().IsFinishedAt(i) {
					ctx.Trigger().SetFinished(true)
					break
				}
			}
		} else if ctx.Trigger().AreAllSubtriggersFinished() {
			ctx.Trigger().SetFinished(true)
		}
		return nil
	default:
		return fmt.Errorf("unknown trigger kind, %v", t.spec.kind)
	}
}

// InvokeOnMerge reconciles the node's state and finished flag when windows
// merge. Different kinds use different policies over the pre-merge flags.
func (t *ExecutableTrigger) InvokeOnMerge(c *OnMergeContext) error {
	ctx := c.ForTrigger(t)
	info := ctx.Trigger()
	switch t.spec.kind {
	case KindAfterEndOfWindow:
		// finished only if every constituent had already passed its end
		if info.FinishedInAllMergingWindows() {
			info.SetFinished(true)
			return nil
		}
		info.SetFinished(false)
		ctx.SetTimer(ctx.Window().MaxTimestamp(), timers.EventTime)
		return nil
	case KindElementCount:
		counts, err := ctx.State().AccessInEachMergingWindow(elementCountTag)
		if err != nil {
			return err
		}
		var sum int64
		for _, st := range counts {
			counter, ok := st.(state.CounterState)
			if !ok {
				return fmt.Errorf("state at %q is not a counter", elementCountTag.ID)
			}
			count, err := counter.Read()
			if err != nil {
				return err
			}
			sum += count
			// clear before writing the sum so an aliased result slot is
			// not double counted
			if err := counter.Clear(); err != nil {
				return err
			}
		}
		merged, err := counterState(ctx.State())
		if err != nil {
			return err
		}
		if err := merged.Inc(sum); err != nil {
			return err
		}
		info.SetFinished(info.FinishedInAnyMergingWindow())
		return nil
	case KindRepeat:
		sub := t.SubTrigger(0)
		if err := sub.InvokeOnMerge(c); err != nil {
			return err
		}
		subCtx := ctx.ForTrigger(sub)
		if subCtx.Trigger().IsFinished() {
			return subCtx.Trigger().ResetTree()
		}
		return nil
	case KindAnyOf, KindAllOf:
		for _, sub := range t.SubTriggers() {
			if err := sub.InvokeOnMerge(c); err != nil {
				return err
			}
		}
		if t.spec.kind == KindAnyOf {
			info.SetFinished(info.FinishedInAnyMergingWindow())
		} else {
			info.SetFinished(info.FinishedInAllMergingWindows())
		}
		return nil
	default:
		return fmt.Errorf("unknown trigger kind, %v", t.spec.kind)
	}
}

// InvokeClear is the node's cleanup hook: it releases state owned by this
// node alone. Subtree cleanup is driven by FinishedTriggers.ClearRecursively.
func (t *ExecutableTrigger) InvokeClear(c *TriggerContext) error {
	ctx := c.ForTrigger(t)
	switch t.spec.kind {
	case KindElementCount:
		counter, err := counterState(ctx.State())
		if err != nil {
			return err
		}
		return counter.Clear()
	case KindAfterEndOfWindow:
		// the guard absorbs this when it targets the protected instant
		ctx.DeleteTimer(ctx.Window().MaxTimestamp(), timers.EventTime)
		return nil
	default:
		return nil
	}
}
