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
	"encoding/base64"
	"encoding/binary"
)

// Codec produces the canonical encoding of a window. The encoding is used to
// derive state namespaces, so it must be deterministic: two equal windows,
// even if they were built from different instances, encode to the same
// string, and two distinct windows never collide.
type Codec interface {
	// EncodeToString returns the canonical encoding of the window.
	// It is a pure, total function.
	EncodeToString(tw TimedWindow) string
}

// IntervalCodec encodes a window as its (start, end, slot) triple.
type IntervalCodec struct{}

var _ Codec = IntervalCodec{}

func (IntervalCodec) EncodeToString(tw TimedWindow) string {
	slot := tw.Slot()
	buf := make([]byte, 16, 16+len(slot))
	binary.BigEndian.PutUint64(buf[0:8], uint64(tw.StartTime().UnixMilli()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(tw.EndTime().UnixMilli()))
	buf = append(buf, slot...)
	return base64.RawURLEncoding.EncodeToString(buf)
}
