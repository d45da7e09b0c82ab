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

package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khurrumnasimm/incubator-beam/pkg/reduce"
	"github.com/khurrumnasimm/incubator-beam/pkg/shared/logging"
	"github.com/khurrumnasimm/incubator-beam/pkg/state"
	"github.com/khurrumnasimm/incubator-beam/pkg/trigger"
	"github.com/khurrumnasimm/incubator-beam/pkg/window"
	"github.com/khurrumnasimm/incubator-beam/pkg/window/strategy/fixed"
	"github.com/khurrumnasimm/incubator-beam/pkg/window/strategy/session"
)

// inputElement is one JSON line on stdin.
type inputElement struct {
	Keys      []string  `json:"keys"`
	Value     string    `json:"value"`
	EventTime time.Time `json:"event_time"`
}

// outputPane is one JSON line on stdout.
type outputPane struct {
	Key    string    `json:"key"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Values []string  `json:"values"`
	Final  bool      `json:"final"`
}

// NewReduceCommand returns a command that reads JSON-lines elements from
// stdin, runs them through windowed trigger evaluation per key and writes
// fired panes to stdout. The watermark follows the max seen event time minus
// the allowed lateness.
func NewReduceCommand() *cobra.Command {
	var (
		strategy     string
		length       time.Duration
		gap          time.Duration
		slots        int
		countTrigger int64
		lateness     time.Duration
	)

	command := &cobra.Command{
		Use:   "reduce",
		Short: "Runs windowed trigger evaluation over stdin elements",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetEnvPrefix("beamgo")
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			log := logging.NewLogger().Named("reduce")
			ctx := logging.WithLogger(context.Background(), log)

			newWindower := func() (window.TimedWindower, error) {
				switch v.GetString("strategy") {
				case "fixed":
					return fixed.NewWindower(v.GetDuration("length"), v.GetInt("slots")), nil
				case "session":
					return session.NewWindower(v.GetDuration("gap"), v.GetInt("slots")), nil
				default:
					return nil, fmt.Errorf("unknown strategy %q, use 'fixed' or 'session'", v.GetString("strategy"))
				}
			}

			// end-of-window firing plus an early firing every countTrigger
			// elements
			triggerSpec := trigger.AnyOf(
				trigger.AfterEndOfWindow(),
				trigger.Repeat(trigger.ElementCountAtLeast(v.GetInt64("count-trigger"))),
			)

			store := state.NewInMemStore()
			evaluators := make(map[string]*reduce.Evaluator)
			enc := json.NewEncoder(os.Stdout)

			emit := func(key string, panes []reduce.Pane) error {
				for _, p := range panes {
					values := make([]string, 0, len(p.Values))
					for _, raw := range p.Values {
						values = append(values, string(raw))
					}
					if err := enc.Encode(outputPane{
						Key:    key,
						Start:  p.Window.StartTime(),
						End:    p.Window.EndTime(),
						Values: values,
						Final:  p.IsFinal,
					}); err != nil {
						return err
					}
				}
				return nil
			}

			var watermark time.Time
			allowedLateness := v.GetDuration("lateness")
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				var in inputElement
				if err := json.Unmarshal(line, &in); err != nil {
					log.Warnw("skipping malformed element", "err", err)
					continue
				}

				key := (&window.Element{Keys: in.Keys}).CombinedKey()
				ev, ok := evaluators[key]
				if !ok {
					windower, err := newWindower()
					if err != nil {
						return err
					}
					ev, err = reduce.NewEvaluator(ctx, windower, store, triggerSpec)
					if err != nil {
						return err
					}
					evaluators[key] = ev
				}

				panes, err := ev.Process(&window.Element{
					Keys:      in.Keys,
					Value:     []byte(in.Value),
					EventTime: in.EventTime,
				})
				if err != nil {
					return err
				}
				if err := emit(key, panes); err != nil {
					return err
				}

				if wm := in.EventTime.Add(-allowedLateness); wm.After(watermark) {
					watermark = wm
					for k, e := range evaluators {
						panes, err := e.AdvanceWatermark(watermark)
						if err != nil {
							return err
						}
						if err := emit(k, panes); err != nil {
							return err
						}
					}
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			// input is done, drain every open window
			for k, e := range evaluators {
				panes, err := e.AdvanceWatermark(watermark.Add(24 * time.Hour))
				if err != nil {
					return err
				}
				if err := emit(k, panes); err != nil {
					return err
				}
			}
			return nil
		},
	}

	command.Flags().StringVar(&strategy, "strategy", "fixed", "Windowing strategy, 'fixed' or 'session'")
	command.Flags().DurationVar(&length, "length", time.Minute, "Fixed window length")
	command.Flags().DurationVar(&gap, "gap", 30*time.Second, "Session gap")
	command.Flags().IntVar(&slots, "slots", window.DefaultSlotCount, "Number of key slots")
	command.Flags().Int64Var(&countTrigger, "count-trigger", 100, "Early firing element count")
	command.Flags().DurationVar(&lateness, "lateness", 0, "Allowed lateness subtracted from the watermark")
	return command
}
