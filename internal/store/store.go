// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package store defines where metric points and dashboards are kept.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Voxer/zag-sub000/internal/dashboard"
	"github.com/Voxer/zag-sub000/internal/series"
)

var (
	// ErrNotFound is returned for unknown keys and dashboards.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported is returned when a backend cannot serve a request,
	// such as llq data from a backend that does not keep it.
	ErrUnsupported = errors.New("not supported by this store")
	// ErrReadOnly is returned by backends that do not accept writes.
	ErrReadOnly = errors.New("store is read-only")
	// ErrTypeMismatch is returned when points do not match the key's type.
	ErrTypeMismatch = errors.New("point type does not match key")
)

// KeyInfo describes one known base key.
type KeyInfo struct {
	Key  string      `json:"key"`
	Type series.Type `json:"type"`
}

// Store keeps metric points by series.
//
// A key whose subkey is "llq" addresses the log-linear quantized series of
// its base key. Any other subkey addresses the base series; callers project
// the field they need from the returned points.
type Store interface {
	// Range returns the points with start <= ts < end in ascending order.
	Range(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error)
	// Append stores points, replacing any with an equal timestamp.
	Append(ctx context.Context, key series.Key, pts []series.Point) error
	// KeyType returns the type of a base key, or ErrNotFound.
	KeyType(ctx context.Context, base string) (series.Type, error)
	// Keys lists known base keys starting with prefix, sorted by key.
	Keys(ctx context.Context, prefix string) ([]KeyInfo, error)
}

// Dashboards keeps saved dashboards.
type Dashboards interface {
	List(ctx context.Context) ([]dashboard.Dashboard, error)
	Get(ctx context.Context, id string) (*dashboard.Dashboard, error)
	Put(ctx context.Context, d dashboard.Dashboard) error
	Delete(ctx context.Context, id string) error
}

// TypeOf returns the type a base key gets from points appended under key.
// LLQ points only ever come from histograms.
func TypeOf(key series.Key, pts []series.Point) (series.Type, bool) {
	if len(pts) == 0 {
		return "", false
	}
	if key.IsLLQ() || pts[0].Type() == series.TypeLLQ {
		return series.TypeHistogram, true
	}
	return pts[0].Type(), true
}

// CheckAppend rejects point batches that mix variants or do not match key.
func CheckAppend(key series.Key, pts []series.Point) error {
	for _, p := range pts {
		if key.IsLLQ() != (p.Type() == series.TypeLLQ) {
			return fmt.Errorf("%w: llq points must be appended under the llq subkey", ErrTypeMismatch)
		}
		if p.Type() != pts[0].Type() {
			return fmt.Errorf("%w: points in one append must share a type", ErrTypeMismatch)
		}
	}
	return nil
}
