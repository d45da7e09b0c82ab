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

// Kind is the shape of a piece of state.
type Kind int

const (
	// ValueKind is a single mutable value.
	ValueKind Kind = iota
	// BagKind is an unordered accumulating collection.
	BagKind
	// CounterKind is a combining sum aggregator.
	CounterKind
)

func (k Kind) String() string {
	switch k {
	case ValueKind:
		return "Value"
	case BagKind:
		return "Bag"
	case CounterKind:
		return "Counter"
	default:
		return "Unknown"
	}
}

// Tag is the address descriptor of a piece of state inside a namespace.
// Identical (namespace, tag) pairs always resolve to the same slot.
type Tag struct {
	ID   string
	Kind Kind
}

func ValueTag(id string) Tag {
	return Tag{ID: id, Kind: ValueKind}
}

func BagTag(id string) Tag {
	return Tag{ID: id, Kind: BagKind}
}

func CounterTag(id string) Tag {
	return Tag{ID: id, Kind: CounterKind}
}

// State is a handle to one slot.
type State interface {
	// Clear releases the slot's contents.
	Clear() error
}

// ValueState holds a single value.
type ValueState interface {
	State
	// Read returns the value and whether one has been written.
	Read() ([]byte, bool, error)
	Write(value []byte) error
}

// BagState accumulates values.
type BagState interface {
	State
	Add(value []byte) error
	// Read returns the accumulated values in insertion order.
	Read() ([][]byte, error)
}

// CounterState is a combining sum.
type CounterState interface {
	State
	Inc(delta int64) error
	Read() (int64, error)
}

// Store hands out state handles. The store guarantees that an identical
// (namespace, tag) pair always yields a handle to the same slot and that
// within one evaluation later reads observe earlier writes. Durability is
// the store's own contract.
type Store interface {
	State(ns Namespace, tag Tag) (State, error)
}
