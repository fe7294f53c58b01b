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
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Format names a log line format variant.
type Format string

const (
	// FormatTez is the Tez aggregated log format, with write-byte tracking
	// and a DAG_FINISHED pipeline marker.
	FormatTez Format = "tez"
	// FormatMapReduce is the older counter-style format. It carries HDFS
	// read counters only and has no pipeline marker.
	FormatMapReduce Format = "mapreduce"
)

// ErrUnknownFormat is returned by RulesFor for a format it does not know.
var ErrUnknownFormat = errors.New("unknown log format")

// Labels used for fixed-offset timestamp extraction.
const (
	startTimeLabel  = "startTime="
	finishTimeLabel = "finishTime="

	// Millisecond epoch timestamps are 13 digits wide.
	timestampWidth = 13
)

// RuleSet maps each semantic signal to the pattern that recognizes it.
// A nil pattern or empty marker means the signal is not tracked in that
// format; the matching extractor then never matches.
type RuleSet struct {
	Format Format

	ContainerStartRe *regexp.Regexp
	StageNameRe      *regexp.Regexp
	BytesReadRe      *regexp.Regexp
	BytesWrittenRe   *regexp.Regexp
	RecordsRe        *regexp.Regexp
	ExceptionRe      *regexp.Regexp
	StageFinishedRe  *regexp.Regexp
	CounterRe        *regexp.Regexp

	NonzeroExitMarker      string
	PipelineFinishedMarker string
	PipelineStartTimeRe    *regexp.Regexp
	PipelineFinishTimeRe   *regexp.Regexp
}

var (
	containerStartRe = regexp.MustCompile(`^Container: (container_\d+_\d+_\d+_\d+)`)
	stageNameRe      = regexp.MustCompile(`VertexName: ([^,]+)`)
	exceptionRe      = regexp.MustCompile(`([A-Za-z]+Exception)`)
	stageFinishedRe  = regexp.MustCompile(`\[Event:TASK_FINISHED\]: vertexName=([^,]+)`)
	counterRe        = regexp.MustCompile(`([A-Z_]+)=(\d+)`)
	pipelineStartRe  = regexp.MustCompile(`startTime=(\d+)`)
	pipelineFinishRe = regexp.MustCompile(`finishTime=(\d+)`)
)

// TezRules returns the rule set for Tez aggregated logs.
func TezRules() RuleSet {
	return RuleSet{
		Format:                 FormatTez,
		ContainerStartRe:       containerStartRe,
		StageNameRe:            stageNameRe,
		BytesReadRe:            regexp.MustCompile(`BYTES_READ=(\d+)`),
		BytesWrittenRe:         regexp.MustCompile(`BYTES_WRITTEN=(\d+)`),
		RecordsRe:              regexp.MustCompile(`INPUT_RECORDS_PROCESSED=(\d+)`),
		ExceptionRe:            exceptionRe,
		StageFinishedRe:        stageFinishedRe,
		CounterRe:              counterRe,
		NonzeroExitMarker:      "non-zero",
		PipelineFinishedMarker: "Event:DAG_FINISHED",
		PipelineStartTimeRe:    pipelineStartRe,
		PipelineFinishTimeRe:   pipelineFinishRe,
	}
}

// MapReduceRules returns the rule set for counter-style MapReduce logs.
func MapReduceRules() RuleSet {
	return RuleSet{
		Format:            FormatMapReduce,
		ContainerStartRe:  containerStartRe,
		StageNameRe:       stageNameRe,
		BytesReadRe:       regexp.MustCompile(`HDFS_BYTES_READ=(\d+)`),
		RecordsRe:         regexp.MustCompile(`MAP_INPUT_RECORDS=(\d+)`),
		ExceptionRe:       exceptionRe,
		StageFinishedRe:   stageFinishedRe,
		CounterRe:         counterRe,
		NonzeroExitMarker: "non-zero",
	}
}

// RulesFor resolves a format name. The empty string selects FormatTez.
func RulesFor(name string) (RuleSet, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatTez, "":
		return TezRules(), nil
	case FormatMapReduce:
		return MapReduceRules(), nil
	default:
		return RuleSet{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// TracksWrites reports whether the format carries bytes-written counters.
func (r RuleSet) TracksWrites() bool {
	return r.BytesWrittenRe != nil
}

// TracksPipeline reports whether the format carries a pipeline-finished marker.
func (r RuleSet) TracksPipeline() bool {
	return r.PipelineFinishedMarker != ""
}
