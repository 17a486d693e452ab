// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package series

import (
	"fmt"
	"strconv"
	"strings"
)

// SubkeyLLQ addresses the log-linear quantized variant of a histogram key.
const SubkeyLLQ = "llq"

// Key identifies one cached series: a base metric key, an optional subkey
// selecting a field or variant, and the bucket width in milliseconds.
// Key is comparable and is used directly as a map key.
type Key struct {
	Base   string
	Subkey string
	Delta  int64
}

// ParseKey splits an mkey of the form "base" or "base@subkey".
func ParseKey(mkey string, delta int64) (Key, error) {
	if delta <= 0 {
		return Key{}, fmt.Errorf("delta must be > 0, got %d", delta)
	}
	base, sub := mkey, ""
	if i := strings.LastIndexByte(mkey, '@'); i >= 0 {
		base, sub = mkey[:i], mkey[i+1:]
		if sub == "" {
			return Key{}, fmt.Errorf("empty subkey in %q", mkey)
		}
	}
	if strings.TrimSpace(base) == "" {
		return Key{}, fmt.Errorf("empty base key in %q", mkey)
	}
	return Key{Base: base, Subkey: sub, Delta: delta}, nil
}

// MustKey is ParseKey for literals known to be valid.
func MustKey(mkey string, delta int64) Key {
	k, err := ParseKey(mkey, delta)
	if err != nil {
		panic(err)
	}
	return k
}

// MKey returns the wire form "base" or "base@subkey".
func (k Key) MKey() string {
	if k.Subkey == "" {
		return k.Base
	}
	return k.Base + "@" + k.Subkey
}

// String includes the delta so distinct resolutions print differently.
func (k Key) String() string {
	return k.MKey() + "/" + strconv.FormatInt(k.Delta, 10)
}

// IsLLQ reports whether the key addresses quantized bucket data.
func (k Key) IsLLQ() bool { return k.Subkey == SubkeyLLQ }

// Field returns the point field the key selects ("" when the key has no subkey).
func (k Key) Field() string {
	if k.IsLLQ() {
		return ""
	}
	return k.Subkey
}

// WithSubkey returns a copy of k addressing a different subkey.
func (k Key) WithSubkey(sub string) Key {
	k.Subkey = sub
	return k
}

// Align widens [start, end) outward to whole delta buckets.
func (k Key) Align(start, end int64) (int64, int64) {
	return AlignDown(start, k.Delta), AlignUp(end, k.Delta)
}

// AlignDown rounds ts down to a multiple of delta.
func AlignDown(ts, delta int64) int64 {
	if delta <= 0 {
		return ts
	}
	r := ts % delta
	if r < 0 {
		r += delta
	}
	return ts - r
}

// AlignUp rounds ts up to a multiple of delta.
func AlignUp(ts, delta int64) int64 {
	down := AlignDown(ts, delta)
	if down == ts {
		return ts
	}
	return down + delta
}
