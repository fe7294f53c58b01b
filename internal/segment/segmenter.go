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

// Package segment drives the single-pass scan of an aggregated application
// log. It tracks the current container and stage, flushes the execution
// context at every boundary, and routes extractor matches into the run
// aggregators.
package segment

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cardinalhq/postmortem/internal/extract"
	"github.com/cardinalhq/postmortem/internal/stats"
)

// MaxLineSizeBytes bounds a single log line. Tez counter lines can be long.
const MaxLineSizeBytes = 16 * 1024 * 1024

// FlushFunc receives a copy of the execution context just before it is reset.
type FlushFunc func(ExecutionContext)

// Segmenter is the context state machine. It is not safe for concurrent use.
type Segmenter struct {
	rules  extract.RuleSet
	agg    *stats.Aggregates
	flush  FlushFunc
	logger *slog.Logger

	cur       ExecutionContext
	anomalies Anomalies
	lines     uint64
	flushes   uint64
	finished  bool
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithFlush sets the callback invoked on every context flush.
func WithFlush(f FlushFunc) Option {
	return func(s *Segmenter) {
		s.flush = f
	}
}

// WithLogger sets the logger used for trace and anomaly messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Segmenter) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a segmenter in the idle state that feeds agg.
func New(rules extract.RuleSet, agg *stats.Aggregates, opts ...Option) *Segmenter {
	s := &Segmenter{
		rules:  rules,
		agg:    agg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process scans r line by line until EOF, then flushes the final context.
// The context is checked between lines; on cancellation the final context
// is still flushed and ctx.Err() is returned.
func (s *Segmenter) Process(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSizeBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			s.Finish()
			return err
		}
		s.ProcessLine(scanner.Text())
	}
	s.Finish()
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading log at line %d: %w", s.lines+1, err)
	}
	return nil
}

// ProcessLine applies every extractor to one line, in a fixed order.
func (s *Segmenter) ProcessLine(line string) {
	if s.finished {
		return
	}
	s.lines++

	if id, ok := s.rules.ContainerStart(line); ok {
		if s.cur.HasContainer {
			s.flushContext()
		}
		s.logger.Debug("Starting new container", slog.String("container", id))
		s.cur.setContainer(id)
	}

	if name, ok := s.rules.StageName(line); ok {
		s.enterStage(name)
	}

	if n, ok := s.rules.BytesRead(line); ok {
		s.cur.BytesRead += n
		if !s.cur.HasStage || !s.agg.Global.AddBytesRead(s.cur.StageName, n) {
			s.anomalies.UnattributedBytes++
			s.logger.Debug("Data read outside of named vertex", slog.Uint64("bytes", n), slog.Uint64("line", s.lines))
		}
	}

	if n, ok := s.rules.BytesWritten(line); ok {
		s.cur.BytesWritten += n
		if !s.cur.HasStage || !s.agg.Global.AddBytesWritten(s.cur.StageName, n) {
			s.anomalies.UnattributedBytes++
			s.logger.Debug("Data written outside of named vertex", slog.Uint64("bytes", n), slog.Uint64("line", s.lines))
		}
	}

	if n, ok := s.rules.Records(line); ok {
		s.cur.RecordsProcessed += n
		if !s.cur.HasStage || !s.agg.Global.AddRecords(s.cur.StageName, n) {
			s.anomalies.UnattributedRecords++
			s.logger.Debug("Records read outside of named vertex", slog.Uint64("records", n), slog.Uint64("line", s.lines))
		}
	}

	if ev, ok := s.rules.StageFinished(line); ok {
		s.recordCompletion(ev)
	}

	if name, ok := s.rules.Exception(line); ok {
		s.cur.ExceptionCount++
		key := stats.NoStage
		if s.cur.HasStage {
			key = s.cur.StageName
		}
		s.agg.Exceptions.Record(key, name)
	}

	if s.rules.NonzeroExit(line) {
		s.cur.NonzeroExitCount++
	}

	if ev, ok := s.rules.PipelineFinished(line); ok {
		if !s.agg.Pipeline.Record(ev) {
			s.logger.Debug("Ignoring repeated or empty pipeline finished marker", slog.Uint64("line", s.lines))
		}
	}
}

// Finish flushes the current context. Only the first call has any effect.
func (s *Segmenter) Finish() {
	if s.finished {
		return
	}
	s.flushContext()
	s.finished = true
}

// Current returns a copy of the live execution context.
func (s *Segmenter) Current() ExecutionContext {
	return s.cur
}

// Anomalies returns the recoverable anomalies seen so far.
func (s *Segmenter) Anomalies() Anomalies {
	return s.anomalies
}

// Lines returns the number of lines processed.
func (s *Segmenter) Lines() uint64 {
	return s.lines
}

// Flushes returns the number of contexts flushed.
func (s *Segmenter) Flushes() uint64 {
	return s.flushes
}

// enterStage adopts a stage name. A different name already on the context
// is a boundary: the context is flushed but keeps its container.
func (s *Segmenter) enterStage(name string) {
	switch {
	case !s.cur.HasStage:
		s.logger.Debug("Vertex name set", slog.String("vertex", name))
	case s.cur.StageName != name:
		id, hasID := s.cur.ContainerID, s.cur.HasContainer
		s.flushContext()
		if hasID {
			s.cur.setContainer(id)
		}
		s.logger.Debug("Changing vertex name", slog.String("vertex", name))
	default:
		return
	}
	s.cur.setStage(name)
	s.agg.Global.Enter(name)
}

func (s *Segmenter) recordCompletion(ev extract.StageCompletion) {
	s.logger.Debug("Extracting counters", slog.String("vertex", ev.Stage), slog.Int("counters", len(ev.Counters)))
	if !ev.HasStartTime {
		s.anomalies.MissingStartTime++
		s.logger.Debug("Could not find start time", slog.String("vertex", ev.Stage), slog.Uint64("line", s.lines))
	}
	if !ev.HasFinishTime {
		s.anomalies.MissingFinishTime++
		s.logger.Debug("Could not find finish time", slog.String("vertex", ev.Stage), slog.Uint64("line", s.lines))
	}
	s.agg.Counters.Record(ev)
}

func (s *Segmenter) flushContext() {
	if s.flush != nil {
		s.flush(s.cur)
	}
	s.flushes++
	s.cur.Reset()
}
