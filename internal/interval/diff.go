// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package interval

// Range is a half-open time range [Start, End) in epoch milliseconds.
type Range struct {
	Start int64
	End   int64
}

// Diff returns the sub-ranges of the requested range [minB, maxB] that the
// cached range [minA, maxA] does not cover. The result has at most two entries
// and, merged with the cached range, covers min(minA,minB)..max(maxA,maxB)
// without gaps, so each entry can be stitched onto one end of the cache.
//
// A request that shares exactly one edge with the cache returns the whole
// requested range.
func Diff(minA, maxA, minB, maxB int64) []Range {
	if minB >= minA && maxB <= maxA {
		return nil
	}
	if minA == maxB || maxA == minB {
		return []Range{{Start: minB, End: maxB}}
	}
	var out []Range
	if minB < minA {
		out = append(out, Range{Start: minB, End: minA})
	}
	if maxB > maxA {
		out = append(out, Range{Start: maxA, End: maxB})
	}
	return out
}
