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

// Package logsource opens the aggregated application log to analyze.
// Logs can be local files, objects in S3, or fetched by application id
// through the yarn CLI. Names ending in .gz are decompressed on the fly.
package logsource

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const s3Scheme = "s3://"

var ErrInvalidLocation = errors.New("invalid log location")

// Open returns a reader for the log at location. Locations starting with
// s3:// are fetched from S3; everything else is a local path.
func Open(ctx context.Context, location string, opts ...S3Option) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidLocation)
	}

	var (
		rc  io.ReadCloser
		err error
	)
	if strings.HasPrefix(location, s3Scheme) {
		bucket, key, perr := ParseS3URL(location)
		if perr != nil {
			return nil, perr
		}
		rc, err = openS3(ctx, bucket, key, opts...)
	} else {
		rc, err = os.Open(location)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", location, err)
	}

	if !strings.HasSuffix(strings.ToLower(location), ".gz") {
		return rc, nil
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("opening gzip stream %s: %w", location, err)
	}
	return &stackedReadCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not an s3 URL", ErrInvalidLocation, location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q needs a bucket and a key", ErrInvalidLocation, location)
	}
	return bucket, key, nil
}

// stackedReadCloser reads from the outermost reader and closes every
// layer, innermost last.
type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReadCloser) Close() error {
	var errs *multierror.Error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
