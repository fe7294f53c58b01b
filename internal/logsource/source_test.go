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
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = "Container: container_1_1_1_1 on host\nVertexName: Map 1, x\nBYTES_READ=1024\n"

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	return string(b)
}

func TestOpenLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

	rc, err := Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, sampleLog, readAll(t, rc))
}

func TestOpenGzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log.GZ")
	require.NoError(t, os.WriteFile(path, gzipped(t, sampleLog), 0o644))

	rc, err := Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, sampleLog, readAll(t, rc))
}

func TestOpenCorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

	_, err := Open(context.Background(), path)
	require.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.log"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenEmptyLocation(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidLocation)
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"simple", "s3://logs/app.log", "logs", "app.log", false},
		{"nested key", "s3://logs/yarn/2015/06/app.log.gz", "logs", "yarn/2015/06/app.log.gz", false},
		{"no key", "s3://logs", "", "", true},
		{"trailing slash only", "s3://logs/", "", "", true},
		{"no bucket", "s3:///app.log", "", "", true},
		{"not s3", "/var/log/app.log", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

type fakeGetter struct {
	objects map[string][]byte
	gotKey  string
}

func (f *fakeGetter) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	b, ok := f.objects[f.gotKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestOpenS3(t *testing.T) {
	getter := &fakeGetter{objects: map[string][]byte{
		"logs/app.log":    []byte(sampleLog),
		"logs/app.log.gz": gzipped(t, sampleLog),
	}}

	rc, err := Open(context.Background(), "s3://logs/app.log", WithObjectGetter(getter), WithRegion("us-west-2"))
	require.NoError(t, err)
	assert.Equal(t, sampleLog, readAll(t, rc))

	rc, err = Open(context.Background(), "s3://logs/app.log.gz", WithObjectGetter(getter))
	require.NoError(t, err)
	assert.Equal(t, sampleLog, readAll(t, rc))
	assert.Equal(t, "logs/app.log.gz", getter.gotKey)

	_, err = Open(context.Background(), "s3://logs/missing.log", WithObjectGetter(getter))
	require.ErrorContains(t, err, "NoSuchKey")

	_, err = Open(context.Background(), "s3://logs", WithObjectGetter(getter))
	require.ErrorIs(t, err, ErrInvalidLocation)
}

func TestS3Options(t *testing.T) {
	cfg := &s3Config{}
	for _, opt := range []S3Option{WithRegion("eu-west-1"), WithEndpoint(""), WithEndpoint("http://minio:9000"), WithPathStyle()} {
		opt(cfg)
	}
	assert.Equal(t, "eu-west-1", cfg.Region)
	require.Len(t, cfg.applyS3s, 2, "empty endpoint is ignored")

	var o s3.Options
	for _, fn := range cfg.applyS3s {
		fn(&o)
	}
	assert.Equal(t, "http://minio:9000", aws.ToString(o.BaseEndpoint))
	assert.True(t, o.UsePathStyle)
}
