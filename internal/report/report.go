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

// Package report renders run aggregates as comma-separated text tables.
// Stage rows are always emitted in sorted stage-name order.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cardinalhq/postmortem/internal/segment"
	"github.com/cardinalhq/postmortem/internal/stats"
)

// NoStageName is how the exception report labels lines outside any stage.
const NoStageName = "AppMaster"

// RuntimeUndefined is the runtime, in seconds, reported for a stage with
// no complete timing window.
const RuntimeUndefined = -1.0

// DefaultNotableCounters are the counters worth surfacing in a postmortem:
// locality, spills, shuffle integrity failures and I/O errors.
var DefaultNotableCounters = []string{
	"DATA_LOCAL_TASKS",
	"RACK_LOCAL_TASKS",
	"SPILLED_RECORDS",
	"WRONG_MAP",
	"WRONG_REDUCE",
	"WRONG_LENGTH",
	"FAILED_SHUFFLE",
	"BAD_ID",
	"IO_ERROR",
}

// DefaultReducerPrefix selects the stages whose reads count as shuffle input.
const DefaultReducerPrefix = "Reduce"

// DefaultQuantiles are the read-size quantiles of the other-stats section.
var DefaultQuantiles = []float64{0.5, 0.95, 0.99}

// Options controls report content.
type Options struct {
	QueryKey        string
	NotableCounters []string
	ReducerPrefix   string
	HistogramBins   int
	Quantiles       []float64
}

// DefaultOptions returns the standard report options.
func DefaultOptions() Options {
	return Options{
		QueryKey:        "NONE",
		NotableCounters: DefaultNotableCounters,
		ReducerPrefix:   DefaultReducerPrefix,
		HistogramBins:   DefaultHistogramBins,
		Quantiles:       DefaultQuantiles,
	}
}

// Generator writes report sections for one set of options.
type Generator struct {
	opts Options
}

// NewGenerator fills unset options with their defaults.
func NewGenerator(opts Options) *Generator {
	def := DefaultOptions()
	if opts.QueryKey == "" {
		opts.QueryKey = def.QueryKey
	}
	if len(opts.NotableCounters) == 0 {
		opts.NotableCounters = def.NotableCounters
	}
	if opts.ReducerPrefix == "" {
		opts.ReducerPrefix = def.ReducerPrefix
	}
	if opts.HistogramBins < 1 {
		opts.HistogramBins = def.HistogramBins
	}
	if len(opts.Quantiles) == 0 {
		opts.Quantiles = def.Quantiles
	}
	return &Generator{opts: opts}
}

// Generate writes every whole-run section in order: global stats, counter
// stats, runtimes, exceptions, then other stats.
func (g *Generator) Generate(w io.Writer, agg *stats.Aggregates) error {
	steps := []func(io.Writer, *stats.Aggregates) error{
		g.WriteGlobalStats,
		g.WriteCounterStats,
		g.WriteRuntimes,
		g.WriteExceptions,
		g.WriteOtherStats,
	}
	for _, step := range steps {
		if err := step(w, agg); err != nil {
			return err
		}
	}
	return nil
}

// WriteContextHeader writes the header of the per-context trace rows.
func (g *Generator) WriteContextHeader(w io.Writer) error {
	p := newPrinter(w)
	p.println("QueryKey,ContainerName,VertexName,nBytes,nBytesWrite,nRecs,nException,nExit")
	return p.err
}

// WriteContext writes one flushed execution context.
func (g *Generator) WriteContext(w io.Writer, c segment.ExecutionContext) error {
	p := newPrinter(w)
	p.printf("%s,%s,%s,%d,%d,%d,%d,%d\n",
		g.opts.QueryKey,
		c.ContainerID,
		c.StageName,
		c.BytesRead,
		c.BytesWritten,
		c.RecordsProcessed,
		c.ExceptionCount,
		c.NonzeroExitCount)
	return p.err
}

// StageRuntimeSeconds returns the stage runtime, or RuntimeUndefined.
func StageRuntimeSeconds(agg *stats.Aggregates, stage string) float64 {
	ms, ok := agg.Counters.Runtime(stage)
	if !ok {
		return RuntimeUndefined
	}
	return float64(ms) / 1000.0
}

// WriteGlobalStats writes one row per stage with totals, the read-size
// histogram and the stage runtime.
func (g *Generator) WriteGlobalStats(w io.Writer, agg *stats.Aggregates) error {
	p := newPrinter(w)
	p.println("")
	p.println("QueryKey,Vertex,TotalContainers,TotalBytesRead,TotalRecsRead,TotalBytesWrite,ReadHistCounts,ReadHistCenters,RunTimeSec")
	for _, stage := range agg.Global.Stages() {
		st, _ := agg.Global.Get(stage)
		counts, edges := Histogram(st.ByteObservations, g.opts.HistogramBins)
		p.printf("%s,%s,%d,%s,%d,%s,%s,%s,%s\n",
			g.opts.QueryKey,
			stage,
			st.TotalContainers,
			ReadableBytes(st.TotalBytesRead),
			st.TotalRecords,
			ReadableBytes(st.TotalBytesWritten),
			formatCounts(counts),
			formatEdges(edges),
			formatSeconds(StageRuntimeSeconds(agg, stage)))
	}
	return p.err
}

// WriteCounterStats writes the notable counters for each stage that
// reported any counter data.
func (g *Generator) WriteCounterStats(w io.Writer, agg *stats.Aggregates) error {
	p := newPrinter(w)
	p.println("")
	p.println("Notable Counter Stats:")
	p.println("QueryKey,Vertex," + strings.Join(g.opts.NotableCounters, ","))
	for _, stage := range agg.Counters.Stages() {
		st, _ := agg.Counters.Get(stage)
		fields := make([]string, 0, len(g.opts.NotableCounters)+2)
		fields = append(fields, g.opts.QueryKey, stage)
		for _, name := range g.opts.NotableCounters {
			fields = append(fields, strconv.FormatUint(st.Counter(name), 10))
		}
		p.println(strings.Join(fields, ","))
	}
	return p.err
}

// WriteRuntimes writes each stage window, the pipeline window, and the sum
// of stage runtimes.
func (g *Generator) WriteRuntimes(w io.Writer, agg *stats.Aggregates) error {
	p := newPrinter(w)
	p.println("")

	var totalMillis uint64
	for _, stage := range agg.Global.Stages() {
		st, ok := agg.Counters.Get(stage)
		if !ok {
			continue
		}
		ms, ok := st.RuntimeMillis()
		if !ok {
			p.printf("%s Start unknown Finish unknown Total %f\n", stage, RuntimeUndefined)
			continue
		}
		totalMillis += ms
		p.printf("%s Start %s Finish %s Total %f\n",
			stage, formatMillis(st.StartTime), formatMillis(st.FinishTime), float64(ms)/1000.0)
	}

	pl := agg.Pipeline
	start, finish := "unknown", "unknown"
	if pl.HasStartTime {
		start = formatMillis(pl.StartTime)
	}
	if pl.HasFinishTime {
		finish = formatMillis(pl.FinishTime)
	}
	dagSeconds := RuntimeUndefined
	if ms, ok := pl.DurationMillis(); ok {
		dagSeconds = float64(ms) / 1000.0
	}
	p.printf("DAG Start %s Finish %s Total %f\n", start, finish, dagSeconds)
	p.printf("Total Vertex Runtime = %fs\n", float64(totalMillis)/1000.0)
	return p.err
}

// WriteExceptions writes the distinct exception class names per stage.
func (g *Generator) WriteExceptions(w io.Writer, agg *stats.Aggregates) error {
	p := newPrinter(w)
	p.println("")
	p.println("Possible Errors:")
	p.println("QueryKey,Vertex,ListOfExceptions")
	for _, key := range agg.Exceptions.Stages() {
		name := key
		if key == stats.NoStage {
			name = NoStageName
		}
		p.printf("%s,%s,%s\n", g.opts.QueryKey, name, strings.Join(agg.Exceptions.Names(key), ","))
	}
	return p.err
}

// IntermediateBytes sums bytes read by every stage whose name carries the
// reducer prefix. It approximates the total shuffle data of the job.
func IntermediateBytes(agg *stats.Aggregates, prefix string) uint64 {
	var total uint64
	for _, stage := range agg.Global.Stages() {
		if !strings.HasPrefix(stage, prefix) {
			continue
		}
		st, _ := agg.Global.Get(stage)
		total += st.TotalBytesRead
	}
	return total
}

// WriteOtherStats writes the derived job figures.
func (g *Generator) WriteOtherStats(w io.Writer, agg *stats.Aggregates) error {
	p := newPrinter(w)
	p.println("")
	p.println("Other Stats:")
	p.println("TotalIntermediateData")
	p.println(ReadableBytes(IntermediateBytes(agg, g.opts.ReducerPrefix)))

	header := []string{"QueryKey", "Vertex"}
	for _, q := range g.opts.Quantiles {
		header = append(header, "P"+strconv.FormatFloat(q*100, 'f', -1, 64))
	}
	p.println("")
	p.println("ReadSizeQuantiles")
	p.println(strings.Join(header, ","))
	for _, stage := range agg.Global.Stages() {
		st, _ := agg.Global.Get(stage)
		if len(st.ByteObservations) == 0 {
			continue
		}
		row := []string{g.opts.QueryKey, stage}
		for _, q := range g.opts.Quantiles {
			v, ok := st.Quantile(q)
			if !ok {
				row = append(row, "unknown")
				continue
			}
			row = append(row, Readable(v))
		}
		p.println(strings.Join(row, ","))
	}
	return p.err
}

func formatCounts(counts []uint64) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = strconv.FormatUint(c, 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatEdges(edges []float64) string {
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = Readable(e)
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

// printer remembers the first write error so a section can be written
// without checking every call.
type printer struct {
	w   io.Writer
	err error
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}
