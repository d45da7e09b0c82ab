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

package reduce

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const labelStrategy = "strategy"

// elementsProcessedCount is used to indicate the number of elements driven
// through trigger evaluation.
var elementsProcessedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "reduce",
	Name:      "elements_processed_total",
	Help:      "Total number of elements processed",
}, []string{labelStrategy})

// panesFiredCount is used to indicate the number of panes emitted.
var panesFiredCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "reduce",
	Name:      "panes_fired_total",
	Help:      "Total number of panes fired",
}, []string{labelStrategy})

// windowsMergedCount is used to indicate the number of windows coalesced
// into another window.
var windowsMergedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "reduce",
	Name:      "windows_merged_total",
	Help:      "Total number of windows merged away",
}, []string{labelStrategy})
