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

	"github.com/DataDog/sketches-go/ddsketch"
)

// sketchRelativeAccuracy is the DDSketch accuracy used for read-size quantiles.
const sketchRelativeAccuracy = 0.01

// StageGlobalStats holds the totals for one stage across every container
// that executed it.
type StageGlobalStats struct {
	TotalContainers   uint64
	TotalBytesRead    uint64
	TotalBytesWritten uint64
	TotalRecords      uint64

	// ByteObservations has one entry per bytes-read line attributed to
	// this stage, in log order.
	ByteObservations []uint64

	sketch *ddsketch.DDSketch
}

func newStageGlobalStats() *StageGlobalStats {
	// Only fails on an invalid accuracy, which is a constant here.
	sk, _ := ddsketch.NewDefaultDDSketch(sketchRelativeAccuracy)
	return &StageGlobalStats{sketch: sk}
}

// Quantile returns the estimated bytes-read value at q (0..1).
// ok is false when no observations were recorded.
func (s *StageGlobalStats) Quantile(q float64) (v float64, ok bool) {
	if s.sketch == nil || s.sketch.IsEmpty() {
		return 0, false
	}
	v, err := s.sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0, false
	}
	return v, true
}

// GlobalAggregator accumulates StageGlobalStats keyed by stage name.
type GlobalAggregator struct {
	stages map[string]*StageGlobalStats
}

func NewGlobalAggregator() *GlobalAggregator {
	return &GlobalAggregator{stages: map[string]*StageGlobalStats{}}
}

// Enter records a context entering stage. The first entry creates the
// stage with one container; later entries add one each.
func (g *GlobalAggregator) Enter(stage string) {
	st, ok := g.stages[stage]
	if !ok {
		st = newStageGlobalStats()
		g.stages[stage] = st
	}
	st.TotalContainers++
}

// AddBytesRead adds n to the stage total and records it as an observation.
// It reports false when the stage has never been entered.
func (g *GlobalAggregator) AddBytesRead(stage string, n uint64) bool {
	st, ok := g.stages[stage]
	if !ok {
		return false
	}
	st.TotalBytesRead += n
	st.ByteObservations = append(st.ByteObservations, n)
	if st.sketch != nil {
		_ = st.sketch.Add(float64(n))
	}
	return true
}

func (g *GlobalAggregator) AddBytesWritten(stage string, n uint64) bool {
	st, ok := g.stages[stage]
	if !ok {
		return false
	}
	st.TotalBytesWritten += n
	return true
}

func (g *GlobalAggregator) AddRecords(stage string, n uint64) bool {
	st, ok := g.stages[stage]
	if !ok {
		return false
	}
	st.TotalRecords += n
	return true
}

// Get returns the stats for stage.
func (g *GlobalAggregator) Get(stage string) (*StageGlobalStats, bool) {
	st, ok := g.stages[stage]
	return st, ok
}

// Stages returns every known stage name in sorted order.
func (g *GlobalAggregator) Stages() []string {
	return slices.Sorted(maps.Keys(g.stages))
}

// Len returns the number of distinct stages.
func (g *GlobalAggregator) Len() int {
	return len(g.stages)
}
