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

// Package stats holds the whole-run aggregators fed by the segmenter:
// per-stage totals, per-stage counter sums and timing windows, exception
// sets, and the pipeline timing pair.
//
// None of the aggregators are safe for concurrent use. A run is processed
// on a single goroutine.
package stats

// Aggregates bundles every aggregator for one analysis run.
type Aggregates struct {
	Global     *GlobalAggregator
	Counters   *CounterAggregator
	Exceptions *ExceptionTracker
	Pipeline   *PipelineTiming
}

func NewAggregates() *Aggregates {
	return &Aggregates{
		Global:     NewGlobalAggregator(),
		Counters:   NewCounterAggregator(),
		Exceptions: NewExceptionTracker(),
		Pipeline:   &PipelineTiming{},
	}
}
