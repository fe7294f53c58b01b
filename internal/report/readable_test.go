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

package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadable(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0 bytes"},
		{1023, "1023.0 bytes"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1 << 20, "1.0 MB"},
		{1 << 30, "1.0 GB"},
		{1 << 40, "1.0 TB"},
		{1 << 50, "1024.0 TB"},
		{1023.5, "1023.5 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Readable(tt.in))
		})
	}
}

func TestReadableBytes(t *testing.T) {
	assert.Equal(t, "2.0 KB", ReadableBytes(2048))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "1.0", formatSeconds(1))
	assert.Equal(t, "-1.0", formatSeconds(RuntimeUndefined))
	assert.Equal(t, "2.5", formatSeconds(2.5))
	assert.Equal(t, "0.001", formatSeconds(0.001))
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "1970-01-01 00:00:01", formatMillis(1000))
	assert.Equal(t, "2015-06-01 10:00:00", formatMillis(1433152800000))
}
