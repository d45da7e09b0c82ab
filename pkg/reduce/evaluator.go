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

// Package reduce drives windowed trigger evaluation for one key. The
// evaluator owns the window bookkeeping (per-window finished sets and timer
// sets) and funnels every element and watermark advance through the trigger
// tree via contexts built by the trigger.ContextFactory. It is strictly
// single-threaded; parallelism lives across keys, never within one.
package reduce

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/khurrumnasimm/incubator-beam/pkg/shared/logging"
	"github.com/khurrumnasimm/incubator-beam/pkg/state"
	"github.com/khurrumnasimm/incubator-beam/pkg/timers"
	"github.com/khurrumnasimm/incubator-beam/pkg/trigger"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

// elementsTag addresses the window-level bag holding the window's
// accumulated values. It is window scoped, not trigger scoped.
var elementsTag = state.BagTag("elements")

// Pane is one emission of a window's accumulated values.
type Pane struct {
	Window window.TimedWindow
	Values [][]byte
	// IsFinal marks the on-close emission; no further pane will follow for
	// the window.
	IsFinal bool
}

// windowState is the evaluator-owned bookkeeping for one active window.
type windowState struct {
	window   window.TimedWindow
	finished trigger.FinishedTriggers
	timers   *timers.InMem
}

// Evaluator evaluates the trigger tree for every window of one key.
type Evaluator struct {
	windower  window.TimedWindower
	store     state.Store
	factory   *trigger.ContextFactory
	root      *trigger.ExecutableTrigger
	active    map[string]*windowState
	watermark time.Time
	log       *zap.SugaredLogger
}

// NewEvaluator builds the trigger tree and returns an evaluator over it.
func NewEvaluator(ctx context.Context, windower window.TimedWindower, store state.Store,
	triggerSpec *trigger.Trigger) (*Evaluator, error) {
	root, err := trigger.Build(triggerSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to build trigger tree, %w", err)
	}
	return &Evaluator{
		windower: windower,
		store:    store,
		factory:  trigger.NewContextFactory(windower, store),
		root:     root,
		active:   make(map[string]*windowState),
		log:      logging.FromContext(ctx),
	}, nil
}

// Process runs one element through window assignment and the trigger tree
// and returns the panes it caused to fire.
func (e *Evaluator) Process(el *window.Element) ([]Pane, error) {
	elementsProcessedCount.WithLabelValues(e.windower.Strategy().String()).Inc()

	panes := make([]Pane, 0)
	for _, req := range e.windower.AssignWindows(el) {
		ws, err := e.windowFor(req)
		if err != nil {
			return nil, err
		}

		bag, err := e.elementsBag(ws.window)
		if err != nil {
			return nil, err
		}
		if err := bag.Add(el.Value); err != nil {
			return nil, err
		}

		ctx := e.factory.CreateOnElementContext(ws.window, ws.timers, el.EventTime, e.root, ws.finished)
		if err := e.root.InvokeOnElement(ctx); err != nil {
			return nil, fmt.Errorf("trigger onElement failed for window %s, %w", ws.window.Partition(), err)
		}

		pane, fired, err := e.maybeFire(ws, false)
		if err != nil {
			return nil, err
		}
		if fired {
			panes = append(panes, pane)
		}
	}
	return panes, nil
}

// AdvanceWatermark moves event time forward, fires due event-time timers,
// and closes (merging where needed) the windows the watermark has passed.
func (e *Evaluator) AdvanceWatermark(wm time.Time) ([]Pane, error) {
	if wm.After(e.watermark) {
		e.watermark = wm
	}

	panes := make([]Pane, 0)
	for _, ws := range e.active {
		if due := ws.timers.AdvanceEventTime(wm); len(due) == 0 {
			continue
		}
		pane, fired, err := e.maybeFire(ws, false)
		if err != nil {
			return nil, err
		}
		if fired {
			panes = append(panes, pane)
		}
	}

	for _, req := range e.windower.CloseWindows(wm) {
		switch req.Operation {
		case window.Close:
			ws, ok := e.active[req.ID.String()]
			if !ok {
				continue
			}
			pane, err := e.closeWindow(ws)
			if err != nil {
				return nil, err
			}
			panes = append(panes, pane)
		case window.Merge:
			ws, err := e.mergeWindows(req.Windows)
			if err != nil {
				return nil, err
			}
			pane, err := e.closeWindow(ws)
			if err != nil {
				return nil, err
			}
			panes = append(panes, pane)
		default:
			return nil, fmt.Errorf("unexpected close operation, %v", req.Operation)
		}
	}
	return panes, nil
}

// AdvanceProcessingTime moves the wall clock forward for every active window
// and fires due processing-time timers.
func (e *Evaluator) AdvanceProcessingTime(now time.Time) ([]Pane, error) {
	panes := make([]Pane, 0)
	for _, ws := range e.active {
		if due := ws.timers.AdvanceProcessingTime(now); len(due) == 0 {
			continue
		}
		pane, fired, err := e.maybeFire(ws, false)
		if err != nil {
			return nil, err
		}
		if fired {
			panes = append(panes, pane)
		}
	}
	return panes, nil
}

// windowFor resolves the assignment request to evaluator bookkeeping,
// opening or expanding window state as needed.
func (e *Evaluator) windowFor(req *window.TimedWindowRequest) (*windowState, error) {
	switch req.Operation {
	case window.Open:
		return e.track(req.Windows[0]), nil
	case window.Append:
		ws, ok := e.active[req.ID.String()]
		if !ok {
			return e.track(req.Windows[0]), nil
		}
		return ws, nil
	case window.Expand:
		// an expansion is a merge of the old window alone into the wider one
		return e.mergeWindows(req.Windows[:1], req.Windows[1])
	default:
		return nil, fmt.Errorf("unexpected assign operation, %v", req.Operation)
	}
}

func (e *Evaluator) track(w window.TimedWindow) *windowState {
	id := w.Partition().String()
	if ws, ok := e.active[id]; ok {
		return ws
	}
	tm := timers.NewInMem()
	tm.AdvanceEventTime(e.watermark)
	ws := &windowState{
		window:   w,
		finished: trigger.NewFinishedTriggersBitSet(e.root),
		timers:   tm,
	}
	e.active[id] = ws
	return ws
}

// mergeWindows reconciles the given windows into one. With a result window
// supplied the constituents merge into it; otherwise the result spans the
// group. The merge either completes, leaving only the result tracked, or
// fails before any bookkeeping changes.
func (e *Evaluator) mergeWindows(group []window.TimedWindow, into ...window.TimedWindow) (*windowState, error) {
	if len(group) == 0 {
		return nil, fmt.Errorf("cannot merge an empty window group")
	}

	var result window.TimedWindow
	if len(into) > 0 {
		result = into[0]
	} else {
		result = window.NewWindowFromPartitionAndKeys(group[0].Partition(), group[0].Keys())
		for _, w := range group[1:] {
			result.Merge(w)
		}
	}

	finishedSets := make(map[window.TimedWindow]trigger.FinishedTriggers, len(group))
	constituents := make([]*windowState, 0, len(group))
	for _, w := range group {
		ws, ok := e.active[w.Partition().String()]
		if !ok {
			// window was assigned but never carried state
			ws = &windowState{
				window:   w,
				finished: trigger.NewFinishedTriggersBitSet(e.root),
				timers:   timers.NewInMem(),
			}
		}
		finishedSets[w] = ws.finished
		constituents = append(constituents, ws)
	}

	tm := timers.NewInMem()
	tm.AdvanceEventTime(e.watermark)
	merged := &windowState{
		window:   result,
		finished: trigger.NewFinishedTriggersBitSet(e.root),
		timers:   tm,
	}

	ctx, err := e.factory.CreateOnMergeContext(result, merged.timers, e.root, merged.finished, finishedSets)
	if err != nil {
		return nil, err
	}
	if err := e.root.InvokeOnMerge(ctx); err != nil {
		return nil, fmt.Errorf("trigger onMerge failed for window %s, %w", result.Partition(), err)
	}

	if err := e.migrateElements(constituents, result); err != nil {
		return nil, err
	}

	for _, ws := range constituents {
		if ws.window.Partition().String() != result.Partition().String() {
			delete(e.active, ws.window.Partition().String())
			windowsMergedCount.WithLabelValues(e.windower.Strategy().String()).Inc()
		}
	}
	e.active[result.Partition().String()] = merged
	e.log.Debugw("merged windows", zap.Int("count", len(group)), zap.String("result", result.Partition().String()))
	return merged, nil
}

// migrateElements moves the accumulated window-level bags of the
// constituents into the result window's bag.
func (e *Evaluator) migrateElements(constituents []*windowState, result window.TimedWindow) error {
	resultBag, err := e.elementsBag(result)
	if err != nil {
		return err
	}
	var errs error
	for _, ws := range constituents {
		if ws.window.Partition().String() == result.Partition().String() {
			continue
		}
		bag, err := e.elementsBag(ws.window)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		values, err := bag.Read()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, v := range values {
			if err := resultBag.Add(v); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		errs = multierr.Append(errs, bag.Clear())
	}
	return errs
}

// maybeFire emits a pane if the root trigger wants to fire. Panes are
// discarding: the bag is cleared on every emission.
func (e *Evaluator) maybeFire(ws *windowState, isFinal bool) (Pane, bool, error) {
	base := e.factory.Base(ws.window, ws.timers, e.root, ws.finished)
	if base.Trigger().IsFinished() && !isFinal {
		return Pane{}, false, nil
	}

	fire, err := e.root.InvokeShouldFire(base)
	if err != nil {
		return Pane{}, false, err
	}
	if !fire && !isFinal {
		return Pane{}, false, nil
	}

	bag, err := e.elementsBag(ws.window)
	if err != nil {
		return Pane{}, false, err
	}
	values, err := bag.Read()
	if err != nil {
		return Pane{}, false, err
	}
	pane := Pane{Window: ws.window, Values: append([][]byte(nil), values...), IsFinal: isFinal}

	if fire {
		if err := e.root.InvokeOnFire(base); err != nil {
			return Pane{}, false, err
		}
	}
	if err := bag.Clear(); err != nil {
		return Pane{}, false, err
	}
	panesFiredCount.WithLabelValues(e.windower.Strategy().String()).Inc()
	return pane, true, nil
}

// closeWindow emits the final pane and releases everything the window owns.
func (e *Evaluator) closeWindow(ws *windowState) (Pane, error) {
	ws.timers.AdvanceEventTime(ws.window.MaxTimestamp())
	pane, _, err := e.maybeFire(ws, true)
	if err != nil {
		return Pane{}, err
	}

	base := e.factory.Base(ws.window, ws.timers, e.root, ws.finished)
	if err := base.Trigger().ResetTree(); err != nil {
		return Pane{}, fmt.Errorf("failed to reset trigger tree for window %s, %w", ws.window.Partition(), err)
	}
	delete(e.active, ws.window.Partition().String())
	e.log.Debugw("closed window", zap.String("window", ws.window.Partition().String()))
	return pane, nil
}

// ActiveWindows returns the number of windows currently tracked.
func (e *Evaluator) ActiveWindows() int {
	return len(e.active)
}

func (e *Evaluator) elementsBag(w window.TimedWindow) (state.BagState, error) {
	st, err := e.store.State(state.WindowNamespace(e.windower.Codec(), w), elementsTag)
	if err != nil {
		return nil, err
	}
	bag, ok := st.(state.BagState)
	if !ok {
		return nil, fmt.Errorf("state at %q is not a bag", elementsTag.ID)
	}
	return bag, nil
}
