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

// Package runner holds the pipeline-level run surface and a thin delegating
// test runner. The test runner exists so harnesses see the assertion that
// actually failed instead of the engine error it ended up wrapped in.
package runner

import (
	"context"
	"errors"
	"fmt"
)

// State is the terminal condition of a pipeline run.
type State int

const (
	Done State = iota
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Result is the final pipeline-level result.
type Result struct {
	state State
	err   error
}

func NewResult(state State, err error) Result {
	return Result{state: state, err: err}
}

func (r Result) State() State {
	return r.state
}

func (r Result) Err() error {
	return r.err
}

// Runner executes a pipeline to completion.
type Runner interface {
	Run(ctx context.Context) Result
}

// AssertionError is a harness-level expectation failure. Engines tend to
// wrap it in transport or user-code errors before it surfaces.
type AssertionError struct {
	Msg   string
	Cause error
}

func Assertionf(format string, args ...any) *AssertionError {
	return &AssertionError{Msg: fmt.Sprintf(format, args...)}
}

func (e *AssertionError) Error() string {
	return e.Msg
}

func (e *AssertionError) Unwrap() error {
	return e.Cause
}

// testRunner delegates to another runner and rewrites a failed result so
// that a buried AssertionError becomes the reported error.
type testRunner struct {
	delegate Runner
}

// NewTestRunner wraps a runner for use in test harnesses.
func NewTestRunner(delegate Runner) Runner {
	return &testRunner{delegate: delegate}
}

func (r *testRunner) Run(ctx context.Context) Result {
	result := r.delegate.Run(ctx)
	if result.Err() == nil {
		return result
	}
	if assertion := findAssertion(result.Err()); assertion != nil {
		return NewResult(result.State(), assertion)
	}
	return result
}

// findAssertion walks the cause chain looking for an AssertionError. The
// walk is finite: it stops when a cause reports itself as its own cause.
func findAssertion(err error) *AssertionError {
	for cur := err; cur != nil; {
		if assertion, ok := cur.(*AssertionError); ok {
			return assertion
		}
		next := errors.Unwrap(cur)
		if next == cur {
			break
		}
		cur = next
	}
	return nil
}
