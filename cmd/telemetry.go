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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const serviceName = "postmortem"

const otlpShutdownTimeout = 10 * time.Second

// debugRequested reports whether debug logging was asked for through the
// environment.
func debugRequested() bool {
	return os.Getenv("DEBUG") != "" || os.Getenv("POSTMORTEM_DEBUG") != ""
}

// otlpRequested reports whether logs should also be exported over OTLP.
// The exporter itself is configured by the standard OTEL_EXPORTER_OTLP_*
// variables.
func otlpRequested() bool {
	return os.Getenv("OTEL_SERVICE_NAME") != "" && os.Getenv("ENABLE_OTLP_TELEMETRY") == "true"
}

// setupLogging installs the default logger. Logs go to stderr so reports
// on stdout stay clean. When logFile is set, JSON logs are also appended
// there, and with OTLP enabled they are exported as well. The returned
// func closes the log file and flushes the exporter.
func setupLogging(stderr io.Writer, debug bool, logFile string) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug || debugRequested() {
		opts.Level = slog.LevelDebug
	}

	handlers := []slog.Handler{slog.NewTextHandler(stderr, opts)}
	var closers []func() error
	closeAll := func() error {
		var errs *multierror.Error
		for _, c := range closers {
			if err := c(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		return errs.ErrorOrNil()
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", logFile, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closers = append(closers, f.Close)
	}

	if otlpRequested() {
		exporter, err := otlploghttp.New(context.Background())
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)))
		handlers = append(handlers, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(provider)))
		closers = append(closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), otlpShutdownTimeout)
			defer cancel()
			return provider.Shutdown(ctx)
		})
	}

	handler := handlers[0]
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	}

	logger := slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("runID", uuid.NewString()),
	)
	slog.SetDefault(logger)
	return logger, closeAll, nil
}
