// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package stats

import (
	"maps"
	"slices"

	"github.com/cardinalhq/postmortem/internal/extract"
)

// StageCounterStats sums the counters reported by task-finished events of
// one stage and tracks the widest start/finish window seen.
type StageCounterStats struct {
	Counters map[string]uint64

	// StartTime is the earliest start seen. Only valid with HasStartTime.
	StartTime    uint64
	HasStartTime bool
	// FinishTime is the latest finish seen. Only valid with HasFinishTime.
	FinishTime    uint64
	HasFinishTime bool
}

func newStageCounterStats() *StageCounterStats {
	return &StageCounterStats{Counters: map[string]uint64{}}
}

// Counter returns the summed value of name, zero if never observed.
func (s *StageCounterStats) Counter(name string) uint64 {
	return s.Counters[name]
}

// HasWindow reports whether both sides of the timing window were observed.
func (s *StageCounterStats) HasWindow() bool {
	return s.HasStartTime && s.HasFinishTime
}

// RuntimeMillis returns finish minus start. ok is false if either side is
// missing or the window is inverted.
func (s *StageCounterStats) RuntimeMillis() (ms uint64, ok bool) {
	if !s.HasWindow() || s.FinishTime < s.StartTime {
		return 0, false
	}
	return s.FinishTime - s.StartTime, true
}

// CounterAggregator holds StageCounterStats keyed by stage name.
type CounterAggregator struct {
	stages map[string]*StageCounterStats
}

func NewCounterAggregator() *CounterAggregator {
	return &CounterAggregator{stages: map[string]*StageCounterStats{}}
}

// getOrCreate returns the entry for stage, inserting a fresh one if needed.
func (c *CounterAggregator) getOrCreate(stage string) *StageCounterStats {
	st, ok := c.stages[stage]
	if !ok {
		st = newStageCounterStats()
		c.stages[stage] = st
	}
	return st
}

// Record folds one stage-completion event into its stage.
func (c *CounterAggregator) Record(ev extract.StageCompletion) {
	st := c.getOrCreate(ev.Stage)
	for name, v := range ev.Counters {
		st.Counters[name] += v
	}
	if ev.HasStartTime && (!st.HasStartTime || ev.StartTime < st.StartTime) {
		st.StartTime, st.HasStartTime = ev.StartTime, true
	}
	if ev.HasFinishTime && (!st.HasFinishTime || ev.FinishTime > st.FinishTime) {
		st.FinishTime, st.HasFinishTime = ev.FinishTime, true
	}
}

func (c *CounterAggregator) Get(stage string) (*StageCounterStats, bool) {
	st, ok := c.stages[stage]
	return st, ok
}

// Runtime returns the stage runtime in milliseconds, if defined.
func (c *CounterAggregator) Runtime(stage string) (uint64, bool) {
	st, ok := c.stages[stage]
	if !ok {
		return 0, false
	}
	return st.RuntimeMillis()
}

// Stages returns the stages with counter data in sorted order.
func (c *CounterAggregator) Stages() []string {
	return slices.Sorted(maps.Keys(c.stages))
}
