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
	"fmt"
	"strconv"
	"strings"
	"time"
)

var byteUnits = []string{"bytes", "KB", "MB", "GB", "TB"}

// Readable formats a byte quantity with one decimal place, dividing by
// 1024 until the value fits the unit. TB is the largest unit.
func Readable(n float64) string {
	unit := 0
	for n >= 1024 && unit < len(byteUnits)-1 {
		n /= 1024
		unit++
	}
	return fmt.Sprintf("%3.1f %s", n, byteUnits[unit])
}

// ReadableBytes is Readable for an integral byte count.
func ReadableBytes(n uint64) string {
	return Readable(float64(n))
}

// formatSeconds renders seconds the way a float is usually printed in
// these reports: shortest form, always with a decimal point.
func formatSeconds(s float64) string {
	out := strconv.FormatFloat(s, 'f', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	return out
}

const dateTimeLayout = "2006-01-02 15:04:05"

// formatMillis renders a millisecond epoch timestamp as a UTC date-time.
func formatMillis(ms uint64) string {
	return time.UnixMilli(int64(ms)).UTC().Format(dateTimeLayout)
}
