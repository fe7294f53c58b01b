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

	mapset "github.com/deckarep/golang-set/v2"
)

// NoStage is the exception key for lines seen outside any named stage.
const NoStage = ""

// ExceptionTracker records the distinct exception class names per stage.
type ExceptionTracker struct {
	sets map[string]mapset.Set[string]
}

func NewExceptionTracker() *ExceptionTracker {
	return &ExceptionTracker{sets: map[string]mapset.Set[string]{}}
}

// Record adds name to the set for stage. Use NoStage when no stage is known.
func (e *ExceptionTracker) Record(stage, name string) {
	set, ok := e.sets[stage]
	if !ok {
		set = mapset.NewThreadUnsafeSet[string]()
		e.sets[stage] = set
	}
	set.Add(name)
}

// Names returns the sorted distinct names seen for stage.
func (e *ExceptionTracker) Names(stage string) []string {
	set, ok := e.sets[stage]
	if !ok {
		return nil
	}
	names := set.ToSlice()
	slices.Sort(names)
	return names
}

// Stages returns every key with at least one exception, sorted. NoStage
// sorts first when present.
func (e *ExceptionTracker) Stages() []string {
	return slices.Sorted(maps.Keys(e.sets))
}
