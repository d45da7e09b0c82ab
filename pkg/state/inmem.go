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
	"fmt"
	"sync"
)

// InMemStore is a map backed Store. Handles are cached so that repeated
// access with the same (namespace, tag) returns the same slot.
type InMemStore struct {
	lock  sync.Mutex
	slots map[Namespace]map[Tag]State
}

var _ Store = (*InMemStore)(nil)

func NewInMemStore() *InMemStore {
	return &InMemStore{
		slots: make(map[Namespace]map[Tag]State),
	}
}

func (s *InMemStore) State(ns Namespace, tag Tag) (State, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	byTag, ok := s.slots[ns]
	if !ok {
		byTag = make(map[Tag]State)
		s.slots[ns] = byTag
	}
	if st, ok := byTag[tag]; ok {
		return st, nil
	}

	var st State
	switch tag.Kind {
	case ValueKind:
		st = &valueState{}
	case BagKind:
		st = &bagState{}
	case CounterKind:
		st = &counterState{}
	default:
		return nil, fmt.Errorf("unknown state kind, %v", tag.Kind)
	}
	byTag[tag] = st
	return st, nil
}

type valueState struct {
	value   []byte
	written bool
}

func (v *valueState) Read() ([]byte, bool, error) {
	return v.value, v.written, nil
}

func (v *valueState) Write(value []byte) error {
	v.value = value
	v.written = true
	return nil
}

func (v *valueState) Clear() error {
	v.value = nil
	v.written = false
	return nil
}

type bagState struct {
	values [][]byte
}

func (b *bagState) Add(value []byte) error {
	b.values = append(b.values, value)
	return nil
}

func (b *bagState) Read() ([][]byte, error) {
	return b.values, nil
}

func (b *bagState) Clear() error {
	b.values = nil
	return nil
}

type counterState struct {
	sum int64
}

func (c *counterState) Inc(delta int64) error {
	c.sum += delta
	return nil
}

func (c *counterState) Read() (int64, error) {
	return c.sum, nil
}

func (c *counterState) Clear() error {
	c.sum = 0
	return nil
}
