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

import "slices"

// DefaultHistogramBins is the bucket count of the read-size histogram.
const DefaultHistogramBins = 10

// Histogram buckets values into bins equal-width buckets spanning
// [min, max]. It returns the per-bucket counts and the bins+1 bucket
// edges. Every bucket is half-open except the last, which includes max.
// When all values are equal the range is widened to [v-0.5, v+0.5].
//
// An empty input, or bins < 1, yields nil slices.
func Histogram(values []uint64, bins int) (counts []uint64, edges []float64) {
	if len(values) == 0 || bins < 1 {
		return nil, nil
	}

	lo := float64(slices.Min(values))
	hi := float64(slices.Max(values))
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	edges = make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts = make([]uint64, bins)
	for _, v := range values {
		counts[bucketFor(float64(v), lo, hi, bins)]++
	}
	return counts, edges
}

func bucketFor(v, lo, hi float64, bins int) int {
	if v >= hi {
		return bins - 1
	}
	idx := int((v - lo) / (hi - lo) * float64(bins))
	return max(0, min(idx, bins-1))
}
