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

// Package extract holds the stateless line extractors. Each one recognizes
// a single signal in a log line using the patterns of a RuleSet.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// StageCompletion is a task-finished event for a stage, with the counters
// carried on the same line.
type StageCompletion struct {
	Stage    string
	Counters map[string]uint64

	StartTime    uint64
	HasStartTime bool

	FinishTime    uint64
	HasFinishTime bool
}

// PipelineFinished is the overall pipeline start/finish pair.
type PipelineFinished struct {
	StartTime    uint64
	HasStartTime bool

	FinishTime    uint64
	HasFinishTime bool
}

// ContainerStart returns the container id when the line opens a new container log.
func (r RuleSet) ContainerStart(line string) (string, bool) {
	return firstGroup(r.ContainerStartRe, line)
}

// StageName returns the vertex name announced on the line.
func (r RuleSet) StageName(line string) (string, bool) {
	return firstGroup(r.StageNameRe, line)
}

// BytesRead returns the sum of every bytes-read value on the line.
func (r RuleSet) BytesRead(line string) (uint64, bool) {
	return sumAll(r.BytesReadRe, line)
}

// BytesWritten returns the sum of every bytes-written value on the line.
func (r RuleSet) BytesWritten(line string) (uint64, bool) {
	return sumAll(r.BytesWrittenRe, line)
}

// Records returns the sum of every records-processed value on the line.
func (r RuleSet) Records(line string) (uint64, bool) {
	return sumAll(r.RecordsRe, line)
}

// Exception returns the first exception class name on the line.
func (r RuleSet) Exception(line string) (string, bool) {
	return firstGroup(r.ExceptionRe, line)
}

// NonzeroExit reports whether the line carries the non-zero exit marker.
func (r RuleSet) NonzeroExit(line string) bool {
	return r.NonzeroExitMarker != "" && strings.Contains(line, r.NonzeroExitMarker)
}

// StageFinished parses a stage-completion event. The timestamps are located
// by label offset because they sit inside a larger structured payload.
func (r RuleSet) StageFinished(line string) (StageCompletion, bool) {
	stage, ok := firstGroup(r.StageFinishedRe, line)
	if !ok {
		return StageCompletion{}, false
	}

	ev := StageCompletion{
		Stage:    stage,
		Counters: map[string]uint64{},
	}
	if r.CounterRe != nil {
		for _, m := range r.CounterRe.FindAllStringSubmatch(line, -1) {
			v, err := strconv.ParseUint(m[2], 10, 64)
			if err != nil {
				continue
			}
			ev.Counters[m[1]] += v
		}
	}
	ev.StartTime, ev.HasStartTime = FixedWidthField(line, startTimeLabel, timestampWidth)
	ev.FinishTime, ev.HasFinishTime = FixedWidthField(line, finishTimeLabel, timestampWidth)
	return ev, true
}

// PipelineFinished parses the pipeline-finished marker line.
func (r RuleSet) PipelineFinished(line string) (PipelineFinished, bool) {
	if r.PipelineFinishedMarker == "" || !strings.Contains(line, r.PipelineFinishedMarker) {
		return PipelineFinished{}, false
	}
	var ev PipelineFinished
	if s, ok := firstGroup(r.PipelineStartTimeRe, line); ok {
		ev.StartTime, ev.HasStartTime = parseUint(s)
	}
	if s, ok := firstGroup(r.PipelineFinishTimeRe, line); ok {
		ev.FinishTime, ev.HasFinishTime = parseUint(s)
	}
	return ev, true
}

// FixedWidthField reads the number that follows the first occurrence of
// label, looking at no more than width bytes. Only the leading digits of
// that window are used, so a shorter value followed by a delimiter still
// parses.
func FixedWidthField(line, label string, width int) (uint64, bool) {
	offset := strings.Index(line, label)
	if offset == -1 {
		return 0, false
	}
	start := offset + len(label)
	end := min(start+width, len(line))
	window := line[start:end]

	n := 0
	for n < len(window) && window[n] >= '0' && window[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, false
	}
	return parseUint(window[:n])
}

func firstGroup(re *regexp.Regexp, line string) (string, bool) {
	if re == nil {
		return "", false
	}
	m := re.FindStringSubmatch(line)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func sumAll(re *regexp.Regexp, line string) (uint64, bool) {
	if re == nil {
		return 0, false
	}
	matches := re.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return 0, false
	}
	var total uint64
	for _, m := range matches {
		v, ok := parseUint(m[1])
		if !ok {
			continue
		}
		total += v
	}
	return total, true
}

func parseUint(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
