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
	"strings"
	"time"
)

const keyDelimiter = ":"

// Element is a single keyed event flowing into the windower.
type Element struct {
	// Keys is the set of keys the element is grouped by.
	Keys []string
	// Value is the opaque payload.
	Value []byte
	// EventTime is the element's own timestamp.
	EventTime time.Time
}

// CombinedKey returns the keys joined into the form used for window lookup.
func (e *Element) CombinedKey() string {
	return strings.Join(e.Keys, keyDelimiter)
}
