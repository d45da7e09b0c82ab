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

package fixed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khurrumnasimm/incubator-beam/pkg/window"
)

var baseTime = time.UnixMilli(600000)

func TestAssignWindows(t *testing.T) {
	tests := []struct {
		name      string
		length    time.Duration
		eventTime time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid window",
			length:    time.Minute,
			eventTime: baseTime.Add(10 * time.Second),
			wantStart: baseTime,
			wantEnd:   baseTime.Add(time.Minute),
		},
		{
			name:      "on boundary falls right",
			length:    time.Minute,
			eventTime: baseTime.Add(time.Minute),
			wantStart: baseTime.Add(time.Minute),
			wantEnd:   baseTime.Add(2 * time.Minute),
		},
		{
			name:      "just before boundary falls left",
			length:    time.Minute,
			eventTime: baseTime.Add(time.Minute).Add(-time.Millisecond),
			wantStart: baseTime,
			wantEnd:   baseTime.Add(time.Minute),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windower := NewWindower(tt.length, 4)
			reqs := windower.AssignWindows(&window.Element{
				Keys:      []string{"k"},
				Value:     []byte("v"),
				EventTime: tt.eventTime,
			})
			require.Len(t, reqs, 1)
			assert.Equal(t, window.Open, reqs[0].Operation)
			require.Len(t, reqs[0].Windows, 1)
			assert.Equal(t, tt.wantStart, reqs[0].Windows[0].StartTime())
			assert.Equal(t, tt.wantEnd, reqs[0].Windows[0].EndTime())
		})
	}
}

func TestAssignWindows_OpenThenAppend(t *testing.T) {
	windower := NewWindower(time.Minute, 4)
	el := &window.Element{Keys: []string{"k"}, EventTime: baseTime.Add(time.Second)}

	reqs := windower.AssignWindows(el)
	require.Len(t, reqs, 1)
	assert.Equal(t, window.Open, reqs[0].Operation)

	reqs = windower.AssignWindows(&window.Element{Keys: []string{"k"}, EventTime: baseTime.Add(2 * time.Second)})
	require.Len(t, reqs, 1)
	assert.Equal(t, window.Append, reqs[0].Operation)
	assert.Equal(t, reqs[0].ID.String(), windower.NextWindowToBeClosed().Partition().String())
}

func TestCloseWindows(t *testing.T) {
	windower := NewWindower(time.Minute, 4)
	for _, offset := range []time.Duration{time.Second, 61 * time.Second, 121 * time.Second} {
		windower.AssignWindows(&window.Element{Keys: []string{"k"}, EventTime: baseTime.Add(offset)})
	}

	reqs := windower.CloseWindows(baseTime.Add(2 * time.Minute))
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Equal(t, window.Close, req.Operation)
	}
	assert.Equal(t, baseTime, reqs[0].Windows[0].StartTime())
	assert.Equal(t, baseTime.Add(time.Minute), reqs[1].Windows[0].StartTime())

	next := windower.NextWindowToBeClosed()
	require.NotNil(t, next)
	assert.Equal(t, baseTime.Add(2*time.Minute), next.StartTime())
}

func TestInsertWindow(t *testing.T) {
	windower := NewWindower(time.Minute, 4)
	assert.Nil(t, windower.NextWindowToBeClosed())

	win := window.NewWindowFromPartitionAndKeys(
		windower.AssignWindows(&window.Element{Keys: []string{"k"}, EventTime: baseTime})[0].ID,
		[]string{"k"})
	windower.InsertWindow(win)

	// reinserting the same partition does not duplicate it
	reqs := windower.CloseWindows(baseTime.Add(time.Hour))
	assert.Len(t, reqs, 1)
}
