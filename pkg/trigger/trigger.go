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

// Package trigger decides, per key and per window, when the accumulated
// contents of a window are emitted. Triggers form a fixed tree of
// combinators; evaluation walks the tree through context objects that scope
// finished-state, namespaced state and timers to the node being visited.
package trigger

import (
	"fmt"
)

// Kind enumerates the trigger combinators. The set is closed; every node in
// a trigger tree is one of these.
type Kind int

const (
	// KindAfterEndOfWindow fires once when the watermark passes the end of
	// the window.
	KindAfterEndOfWindow Kind = iota
	// KindElementCount fires once at least Count elements have been seen.
	KindElementCount
	// KindRepeat re-runs its sub-trigger forever, resetting it each time it
	// finishes.
	KindRepeat
	// KindAnyOf fires when any sub-trigger fires, finishes when any
	// sub-trigger finishes.
	KindAnyOf
	// KindAllOf fires when all unfinished sub-triggers fire, finishes when
	// all sub-triggers have finished.
	KindAllOf
)

func (k Kind) String() string {
	switch k {
	case KindAfterEndOfWindow:
		return "AfterEndOfWindow"
	case KindElementCount:
		return "ElementCount"
	case KindRepeat:
		return "Repeat"
	case KindAnyOf:
		return "AnyOf"
	case KindAllOf:
		return "AllOf"
	default:
		return "Unknown"
	}
}

// Trigger is one node of a trigger tree specification. Specifications are
// immutable once built into an ExecutableTrigger.
type Trigger struct {
	kind        Kind
	count       int64
	subTriggers []*Trigger
}

// AfterEndOfWindow returns a trigger that fires when the watermark passes
// the end of the window.
func AfterEndOfWindow() *Trigger {
	return &Trigger{kind: KindAfterEndOfWindow}
}

// ElementCountAtLeast returns a trigger that fires once the window has seen
// at least count elements.
func ElementCountAtLeast(count int64) *Trigger {
	return &Trigger{kind: KindElementCount, count: count}
}

// Repeat returns a trigger that runs the sub-trigger forever, resetting its
// subtree every time it finishes.
func Repeat(sub *Trigger) *Trigger {
	return &Trigger{kind: KindRepeat, subTriggers: []*Trigger{sub}}
}

// AnyOf returns a trigger that fires and finishes with the first of its
// sub-triggers to do so.
func AnyOf(subs ...*Trigger) *Trigger {
	return &Trigger{kind: KindAnyOf, subTriggers: subs}
}

// AllOf returns a trigger that waits for all of its sub-triggers.
func AllOf(subs ...*Trigger) *Trigger {
	return &Trigger{kind: KindAllOf, subTriggers: subs}
}

func (t *Trigger) Kind() Kind {
	return t.kind
}

func (t *Trigger) Count() int64 {
	return t.count
}

// ExecutableTrigger is a trigger-tree node with its stable preorder index
// assigned. The tree shape is fixed for the lifetime of the pipeline; only
// indices and child lists are ever read.
type ExecutableTrigger struct {
	spec                   *Trigger
	index                  int
	firstIndexAfterSubtree int
	subTriggers            []*ExecutableTrigger
}

// Build assigns preorder indices to the trigger tree rooted at spec and
// validates each node's shape.
func Build(spec *Trigger) (*ExecutableTrigger, error) {
	root, _, err := build(spec, 0)
	return root, err
}

func build(spec *Trigger, index int) (*ExecutableTrigger, int, error) {
	if spec == nil {
		return nil, index, fmt.Errorf("nil trigger spec at index %d", index)
	}
	switch spec.kind {
	case KindAfterEndOfWindow:
		if len(spec.subTriggers) != 0 {
			return nil, index, fmt.Errorf("AfterEndOfWindow takes no sub-triggers, got %d", len(spec.subTriggers))
		}
	case KindElementCount:
		if len(spec.subTriggers) != 0 {
			return nil, index, fmt.Errorf("ElementCount takes no sub-triggers, got %d", len(spec.subTriggers))
		}
		if spec.count < 1 {
			return nil, index, fmt.Errorf("ElementCount needs a count >= 1, got %d", spec.count)
		}
	case KindRepeat:
		if len(spec.subTriggers) != 1 {
			return nil, index, fmt.Errorf("Repeat takes exactly one sub-trigger, got %d", len(spec.subTriggers))
		}
	case KindAnyOf, KindAllOf:
		if len(spec.subTriggers) == 0 {
			return nil, index, fmt.Errorf("%v needs at least one sub-trigger", spec.kind)
		}
	default:
		return nil, index, fmt.Errorf("unknown trigger kind, %v", spec.kind)
	}

	t := &ExecutableTrigger{
		spec:        spec,
		index:       index,
		subTriggers: make([]*ExecutableTrigger, 0, len(spec.subTriggers)),
	}
	next := index + 1
	for _, sub := range spec.subTriggers {
		built, after, err := build(sub, next)
		if err != nil {
			return nil, index, err
		}
		t.subTriggers = append(t.subTriggers, built)
		next = after
	}
	t.firstIndexAfterSubtree = next
	return t, next, nil
}

// Spec returns the specification node.
func (t *ExecutableTrigger) Spec() *Trigger {
	return t.spec
}

// Index returns the node's preorder index within the tree.
func (t *ExecutableTrigger) Index() int {
	return t.index
}

// FirstIndexAfterSubtree returns the lowest index outside the node's
// subtree. For the root this is the size of the tree.
func (t *ExecutableTrigger) FirstIndexAfterSubtree() int {
	return t.firstIndexAfterSubtree
}

// SubTriggers returns the node's children in tree order.
func (t *ExecutableTrigger) SubTriggers() []*ExecutableTrigger {
	return t.subTriggers
}

// SubTrigger returns the child at the given position.
func (t *ExecutableTrigger) SubTrigger(i int) *ExecutableTrigger {
	return t.subTriggers[i]
}
