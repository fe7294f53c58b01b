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

import "github.com/cardinalhq/postmortem/internal/extract"

// PipelineTiming is the overall DAG start/finish pair. Each side is set at
// most once; later marker lines do not overwrite it.
type PipelineTiming struct {
	StartTime    uint64
	HasStartTime bool

	FinishTime    uint64
	HasFinishTime bool
}

// Record applies a pipeline-finished event. It reports whether any field
// was set by this call.
func (p *PipelineTiming) Record(ev extract.PipelineFinished) bool {
	changed := false
	if ev.HasStartTime && !p.HasStartTime {
		p.StartTime, p.HasStartTime = ev.StartTime, true
		changed = true
	}
	if ev.HasFinishTime && !p.HasFinishTime {
		p.FinishTime, p.HasFinishTime = ev.FinishTime, true
		changed = true
	}
	return changed
}

// DurationMillis returns finish minus start when both were observed.
func (p *PipelineTiming) DurationMillis() (int64, bool) {
	if !p.HasStartTime || !p.HasFinishTime {
		return 0, false
	}
	return int64(p.FinishTime) - int64(p.StartTime), true
}
