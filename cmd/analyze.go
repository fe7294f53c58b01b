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

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/cardinalhq/postmortem/config"
	"github.com/cardinalhq/postmortem/internal/extract"
	"github.com/cardinalhq/postmortem/internal/logsource"
	"github.com/cardinalhq/postmortem/internal/report"
	"github.com/cardinalhq/postmortem/internal/segment"
	"github.com/cardinalhq/postmortem/internal/stats"
)

// ErrNoInput is returned when neither a file nor a job id was given.
var ErrNoInput = errors.New("need -f or -j")

type analyzeOptions struct {
	file       string
	job        string
	user       string
	queryKey   string
	format     string
	configFile string
	logFile    string
	verbose    bool
	debug      bool

	// fetch retrieves job logs; nil uses the yarn CLI.
	fetch logsource.Runner
}

func (o *analyzeOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.file, "file", "f", "", "Log file to analyze (local path, .gz, or s3://bucket/key)")
	f.StringVarP(&o.job, "job", "j", "", "YARN application id to fetch with 'yarn logs'")
	f.StringVarP(&o.user, "user", "u", "", "Application owner passed to 'yarn logs -appOwner'")
	f.StringVarP(&o.queryKey, "query-key", "q", "", "Grouping key echoed into every output row (default NONE)")
	f.StringVar(&o.format, "format", "", "Log format: tez or mapreduce (default tez)")
	f.StringVarP(&o.configFile, "config", "c", "", "Path to a configuration file")
	f.StringVar(&o.logFile, "log-file", "", "Also write JSON logs to this file")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Print one row per execution context")
	f.BoolVarP(&o.debug, "debug", "d", false, "Enable debug logging")
}

// resolveConfig merges explicitly set flags over file and environment config.
func (o *analyzeOptions) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = o.format
	}
	if cmd.Flags().Changed("query-key") {
		cfg.QueryKey = o.queryKey
	}
	return cfg, nil
}

func (o *analyzeOptions) s3Options(cfg *config.Config) []logsource.S3Option {
	var opts []logsource.S3Option
	if cfg.S3.Region != "" {
		opts = append(opts, logsource.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.Endpoint != "" {
		opts = append(opts, logsource.WithEndpoint(cfg.S3.Endpoint))
	}
	if cfg.S3.PathStyle {
		opts = append(opts, logsource.WithPathStyle())
	}
	return opts
}

func runAnalyze(cmd *cobra.Command, o *analyzeOptions) error {
	if o.file == "" && o.job == "" {
		return ErrNoInput
	}
	cmd.SilenceUsage = true

	cfg, err := o.resolveConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	rules, err := extract.RulesFor(cfg.Format)
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(cmd.ErrOrStderr(), o.debug, o.logFile)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := handleSignals(cmd.Context())
	defer cancel()

	location := o.file
	if o.job != "" {
		path, err := logsource.FetchJob(ctx, o.fetch, o.job, o.user, os.TempDir())
		if err != nil {
			return err
		}
		defer func() { _ = os.Remove(path) }()
		location = path
	}

	src, err := logsource.Open(ctx, location, o.s3Options(cfg)...)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	gen := report.NewGenerator(report.Options{
		QueryKey:        cfg.QueryKey,
		NotableCounters: cfg.Report.NotableCounters,
		ReducerPrefix:   cfg.Report.ReducerPrefix,
		HistogramBins:   cfg.Report.HistogramBins,
	})

	out := bufio.NewWriter(cmd.OutOrStdout())
	return analyze(ctx, logger, rules, gen, src, out, o.verbose)
}

// analyze scans src and writes every report to out. A scan error still
// produces a report of what was accumulated before it, and is returned
// afterwards.
func analyze(ctx context.Context, logger *slog.Logger, rules extract.RuleSet, gen *report.Generator,
	src io.Reader, out *bufio.Writer, verbose bool) error {
	agg := stats.NewAggregates()

	var errs *multierror.Error
	segOpts := []segment.Option{segment.WithLogger(logger)}
	if verbose {
		if err := gen.WriteContextHeader(out); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		segOpts = append(segOpts, segment.WithFlush(func(c segment.ExecutionContext) {
			if err := gen.WriteContext(out, c); err != nil && errs.ErrorOrNil() == nil {
				errs = multierror.Append(errs, fmt.Errorf("writing report: %w", err))
			}
		}))
	}

	seg := segment.New(rules, agg, segOpts...)
	logger.Info("Analyzing log", slog.String("format", string(rules.Format)))

	if err := seg.Process(ctx, src); err != nil {
		logger.Error("Log scan stopped early", slog.Uint64("lines", seg.Lines()), slog.Any("error", err))
		errs = multierror.Append(errs, err)
	}

	if a := seg.Anomalies(); a.Total() > 0 {
		logger.Warn("Recoverable parse anomalies",
			slog.Uint64("unattributedBytes", a.UnattributedBytes),
			slog.Uint64("unattributedRecords", a.UnattributedRecords),
			slog.Uint64("missingStartTime", a.MissingStartTime),
			slog.Uint64("missingFinishTime", a.MissingFinishTime))
	}

	if err := gen.Generate(out, agg); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("writing report: %w", err))
	}
	if err := out.Flush(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("writing report: %w", err))
	}

	logger.Info("Analysis complete",
		slog.Uint64("lines", seg.Lines()),
		slog.Uint64("contexts", seg.Flushes()),
		slog.Int("vertices", agg.Global.Len()))
	return errs.ErrorOrNil()
}
