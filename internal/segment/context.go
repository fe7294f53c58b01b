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

package segment

// ExecutionContext is the running tally for the current container and
// stage. One instance is live at a time and it is reset in place at every
// context boundary.
type ExecutionContext struct {
	ContainerID  string
	HasContainer bool

	StageName string
	HasStage  bool

	BytesRead        uint64
	BytesWritten     uint64
	RecordsProcessed uint64
	ExceptionCount   uint64
	NonzeroExitCount uint64
}

// Reset clears every field.
func (c *ExecutionContext) Reset() {
	*c = ExecutionContext{}
}

func (c *ExecutionContext) setContainer(id string) {
	c.ContainerID, c.HasContainer = id, true
}

func (c *ExecutionContext) setStage(name string) {
	c.StageName, c.HasStage = name, true
}

// Anomalies counts the recoverable parse anomalies seen during a run.
type Anomalies struct {
	// UnattributedBytes counts byte readings seen with no stage assigned.
	UnattributedBytes uint64
	// UnattributedRecords counts record readings seen with no stage assigned.
	UnattributedRecords uint64
	// MissingStartTime counts completion events without a startTime field.
	MissingStartTime uint64
	// MissingFinishTime counts completion events without a finishTime field.
	MissingFinishTime uint64
}

// Total returns the sum of all anomaly counts.
func (a Anomalies) Total() uint64 {
	return a.UnattributedBytes + a.UnattributedRecords + a.MissingStartTime + a.MissingFinishTime
}
