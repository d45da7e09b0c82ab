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

// Package state holds the namespaced state addressing used by trigger
// evaluation and the store interface it is written through. A namespace
// scopes state to one window, and optionally to one trigger-tree node inside
// that window. Namespace derivation is a pure, total function of the
// window's canonical encoding, so equal windows always address the same
// slots and distinct windows never alias.
package state

import (
	"fmt"
	"strconv"

	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

// Namespace is an opaque storage key produced from a window encoding.
type Namespace string

// WindowNamespace returns the namespace for window-scoped state that is not
// discriminated by trigger-tree index.
func WindowNamespace(c window.Codec, w window.TimedWindow) Namespace {
	return Namespace(fmt.Sprintf("/%s/", c.EncodeToString(w)))
}

// WindowAndTriggerNamespace returns the namespace for state owned by one
// trigger-tree node within one window. The index is rendered base36 to keep
// keys short.
func WindowAndTriggerNamespace(c window.Codec, w window.TimedWindow, triggerIndex int) Namespace {
	return Namespace(fmt.Sprintf("/%s/%s/", c.EncodeToString(w), strconv.FormatInt(int64(triggerIndex), 36)))
}
