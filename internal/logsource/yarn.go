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

package logsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var ErrInvalidJobID = errors.New("invalid job id")

// Runner runs an external command, writing its standard output to stdout.
type Runner func(ctx context.Context, stdout io.Writer, name string, args ...string) error

// ExecRunner runs the command with os/exec. Standard error is passed through.
func ExecRunner(ctx context.Context, stdout io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// YarnLogsArgs returns the yarn CLI arguments that dump the logs of jobID.
func YarnLogsArgs(jobID, owner string) []string {
	args := []string{"logs", "-applicationId", jobID}
	if owner != "" {
		args = append(args, "-appOwner", owner)
	}
	return args
}

// FetchJob dumps the aggregated logs of jobID into a new file under dir
// and returns its path. The caller removes the file. A nil runner uses
// ExecRunner.
func FetchJob(ctx context.Context, run Runner, jobID, owner, dir string) (string, error) {
	// A leading dash would be read by yarn as an option.
	if jobID == "" || strings.HasPrefix(jobID, "-") || strings.ContainsAny(jobID, " \t\r\n/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidJobID, jobID)
	}
	if run == nil {
		run = ExecRunner
	}

	f, err := os.CreateTemp(dir, jobID+"-*.log")
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", jobID, err)
	}
	path := f.Name()

	args := YarnLogsArgs(jobID, owner)
	slog.Info("Fetching job logs", slog.String("command", "yarn "+strings.Join(args, " ")), slog.String("path", path))

	var errs *multierror.Error
	if err := run(ctx, f, "yarn", args...); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := f.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("fetching logs for %s: %w", jobID, err)
	}
	return path, nil
}
