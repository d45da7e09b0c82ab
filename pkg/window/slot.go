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

package window

import (
	"fmt"

	"github.com/spaolacci/murmur3"
)

// DefaultSlotCount is the number of slots keys are hashed into when the
// windower is not configured with an explicit count.
const DefaultSlotCount = 16

// SlotAssigner maps a set of keys to a slot. Multiple keys can land on the
// same slot; the same keys always land on the same slot.
type SlotAssigner struct {
	count uint32
}

func NewSlotAssigner(count int) *SlotAssigner {
	if count <= 0 {
		count = DefaultSlotCount
	}
	return &SlotAssigner{count: uint32(count)}
}

// Assign returns the slot for the given element keys.
func (s *SlotAssigner) Assign(keys []string) string {
	h := murmur3.New32()
	for _, k := range keys {
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte(keyDelimiter))
	}
	return fmt.Sprintf("slot-%d", h.Sum32()%s.count)
}
