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

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskFinishedLine = "2015-06-01 10:01:00,000 INFO [Dispatcher thread] HistoryEventHandler: " +
	"[HISTORY][DAG:dag_1433152800000_0001_1][Event:TASK_FINISHED]: vertexName=Map 1, " +
	"taskId=task_1433152800000_0001_1_00_000000, startTime=1433152800000, finishTime=1433152860000, " +
	"timeTaken=60000, status=SUCCEEDED, counters=Counters: 3, org.apache.tez.common.counters.DAGCounter, " +
	"DATA_LOCAL_TASKS=1, SPILLED_RECORDS=20, SPILLED_RECORDS=5"

func TestContainerStart(t *testing.T) {
	r := TezRules()
	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{"line start", "Container: container_1433152800000_0001_01_000002 on host-1_45454", "container_1433152800000_0001_01_000002", true},
		{"not at start", "INFO Container: container_1_1_1_1", "", false},
		{"wrong shape", "Container: container_1_1_1", "", false},
		{"no match", "VertexName: Map 1,", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.ContainerStart(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStageName(t *testing.T) {
	r := TezRules()

	got, ok := r.StageName("2015-06-01 INFO [main] Task: VertexName: Reducer 2, VertexParallelism: 4, TaskAttemptID: x")
	require.True(t, ok)
	assert.Equal(t, "Reducer 2", got)

	got, ok = r.StageName("VertexName: Map 1")
	require.True(t, ok)
	assert.Equal(t, "Map 1", got)

	_, ok = r.StageName("vertexName=Map 1, taskId=x")
	assert.False(t, ok)
}

func TestBytesReadSumsEveryOccurrence(t *testing.T) {
	r := TezRules()

	n, ok := r.BytesRead("Counters: FILE_BYTES_READ=100, HDFS_BYTES_READ=200, BYTES_READ=5")
	require.True(t, ok)
	assert.Equal(t, uint64(305), n)

	_, ok = r.BytesRead("nothing here")
	assert.False(t, ok)
}

func TestBytesWritten(t *testing.T) {
	n, ok := TezRules().BytesWritten("FILE_BYTES_WRITTEN=10 HDFS_BYTES_WRITTEN=20")
	require.True(t, ok)
	assert.Equal(t, uint64(30), n)

	_, ok = MapReduceRules().BytesWritten("FILE_BYTES_WRITTEN=10")
	assert.False(t, ok, "mapreduce format does not track writes")
}

// The records counter must be summed from its own capture, not from the
// bytes-read values found on the same line.
func TestRecordsUseRecordsCapture(t *testing.T) {
	r := TezRules()
	line := "BYTES_READ=4096 INPUT_RECORDS_PROCESSED=7 INPUT_RECORDS_PROCESSED=3"

	recs, ok := r.Records(line)
	require.True(t, ok)
	assert.Equal(t, uint64(10), recs)

	bytes, ok := r.BytesRead(line)
	require.True(t, ok)
	assert.Equal(t, uint64(4096), bytes)
	assert.NotEqual(t, bytes, recs)
}

func TestException(t *testing.T) {
	r := TezRules()

	got, ok := r.Exception("Caused by: java.io.IOException: stream closed, then NullPointerException")
	require.True(t, ok)
	assert.Equal(t, "IOException", got)

	_, ok = r.Exception("all good")
	assert.False(t, ok)
}

func TestNonzeroExit(t *testing.T) {
	r := TezRules()
	assert.True(t, r.NonzeroExit("Container exited with a non-zero exit code 1"))
	assert.True(t, r.NonzeroExit("non-zero"))
	assert.False(t, r.NonzeroExit("exit code 0"))
}

func TestStageFinished(t *testing.T) {
	ev, ok := TezRules().StageFinished(taskFinishedLine)
	require.True(t, ok)

	assert.Equal(t, "Map 1", ev.Stage)
	assert.Equal(t, map[string]uint64{"DATA_LOCAL_TASKS": 1, "SPILLED_RECORDS": 25}, ev.Counters)
	assert.True(t, ev.HasStartTime)
	assert.Equal(t, uint64(1433152800000), ev.StartTime)
	assert.True(t, ev.HasFinishTime)
	assert.Equal(t, uint64(1433152860000), ev.FinishTime)
}

func TestStageFinishedShortAndMissingTimes(t *testing.T) {
	r := TezRules()

	ev, ok := r.StageFinished("[Event:TASK_FINISHED]: vertexName=Map 1, startTime=1000, finishTime=2000, status=SUCCEEDED")
	require.True(t, ok)
	assert.Equal(t, uint64(1000), ev.StartTime)
	assert.Equal(t, uint64(2000), ev.FinishTime)
	assert.Empty(t, ev.Counters)

	ev, ok = r.StageFinished("[Event:TASK_FINISHED]: vertexName=Map 1, status=KILLED, finishTime=")
	require.True(t, ok)
	assert.False(t, ev.HasStartTime)
	assert.False(t, ev.HasFinishTime)

	_, ok = r.StageFinished("[Event:TASK_STARTED]: vertexName=Map 1, startTime=1000")
	assert.False(t, ok)
}

func TestFixedWidthField(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		width  int
		want   uint64
		wantOK bool
	}{
		{"full width", "startTime=1433152800000, x", 13, 1433152800000, true},
		{"longer than width", "startTime=14331528000001234", 13, 1433152800000, true},
		{"short value", "startTime=42,", 13, 42, true},
		{"end of line", "startTime=7", 13, 7, true},
		{"no digits", "startTime=, finish", 13, 0, false},
		{"no label", "finish", 13, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FixedWidthField(tt.line, startTimeLabel, tt.width)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPipelineFinished(t *testing.T) {
	line := "[HISTORY][DAG:dag_1_1_1][Event:DAG_FINISHED]: dagId=dag_1_1_1, startTime=1433152700000, finishTime=1433152900000, timeTaken=200000, status=SUCCEEDED"

	ev, ok := TezRules().PipelineFinished(line)
	require.True(t, ok)
	assert.Equal(t, PipelineFinished{
		StartTime:     1433152700000,
		HasStartTime:  true,
		FinishTime:    1433152900000,
		HasFinishTime: true,
	}, ev)

	_, ok = MapReduceRules().PipelineFinished(line)
	assert.False(t, ok, "mapreduce format has no pipeline marker")

	_, ok = TezRules().PipelineFinished("[Event:DAG_STARTED]: startTime=1")
	assert.False(t, ok)
}

func TestMapReduceRules(t *testing.T) {
	r := MapReduceRules()

	n, ok := r.BytesRead("HDFS_BYTES_READ=100 FILE_BYTES_READ=50")
	require.True(t, ok)
	assert.Equal(t, uint64(100), n)

	recs, ok := r.Records("MAP_INPUT_RECORDS=12")
	require.True(t, ok)
	assert.Equal(t, uint64(12), recs)

	assert.False(t, r.TracksWrites())
	assert.False(t, r.TracksPipeline())
	assert.True(t, TezRules().TracksWrites())
	assert.True(t, TezRules().TracksPipeline())
}

func TestRulesFor(t *testing.T) {
	r, err := RulesFor("")
	require.NoError(t, err)
	assert.Equal(t, FormatTez, r.Format)

	r, err = RulesFor(" MapReduce ")
	require.NoError(t, err)
	assert.Equal(t, FormatMapReduce, r.Format)

	_, err = RulesFor("spark")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
