// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package redisstore keeps metric points and dashboards in Redis.
//
// Layout, under a configurable prefix:
//
//	<prefix>series:<base>:<delta>       sorted set of JSON points scored by ts
//	<prefix>series:<base>:<delta>:llq   same, for llq points
//	<prefix>types                       hash base key -> type
//	<prefix>dashboards                  hash id -> JSON dashboard
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Voxer/zag-sub000/internal/dashboard"
	"github.com/Voxer/zag-sub000/internal/series"
	"github.com/Voxer/zag-sub000/internal/store"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "zag:"

// Store implements store.Store and store.Dashboards on a Redis client.
type Store struct {
	db     redis.UniversalClient
	prefix string
}

// New wraps db. An empty prefix uses DefaultPrefix.
func New(db redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{db: db, prefix: prefix}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) seriesKey(key series.Key) string {
	k := s.prefix + "series:" + key.Base + ":" + strconv.FormatInt(key.Delta, 10)
	if key.IsLLQ() {
		k += ":" + series.SubkeyLLQ
	}
	return k
}

func (s *Store) typesKey() string      { return s.prefix + "types" }
func (s *Store) dashboardsKey() string { return s.prefix + "dashboards" }

func (s *Store) Range(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error) {
	if _, err := s.KeyType(ctx, key.Base); err != nil {
		return nil, err
	}
	members, err := s.db.ZRangeByScore(ctx, s.seriesKey(key), &redis.ZRangeBy{
		Min: strconv.FormatInt(start, 10),
		Max: "(" + strconv.FormatInt(end, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", key, err)
	}
	out := make([]series.Point, 0, len(members))
	for _, m := range members {
		p, err := series.DecodePoint([]byte(m))
		if err != nil {
			return nil, fmt.Errorf("decode stored point of %s: %w", key, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, key series.Key, pts []series.Point) error {
	if err := store.CheckAppend(key, pts); err != nil {
		return err
	}
	typ, ok := store.TypeOf(key, pts)
	if !ok {
		return nil
	}
	known, err := s.db.HGet(ctx, s.typesKey(), key.Base).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return fmt.Errorf("read type of %q: %w", key.Base, err)
	case series.Type(known) != typ:
		return fmt.Errorf("%w: %q is a %s, not a %s", store.ErrTypeMismatch, key.Base, known, typ)
	}

	zkey := s.seriesKey(key)
	_, err = s.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.typesKey(), key.Base, string(typ))
		for _, p := range pts {
			body, err := json.Marshal(p)
			if err != nil {
				return err
			}
			ts := strconv.FormatInt(p.Timestamp(), 10)
			pipe.ZRemRangeByScore(ctx, zkey, ts, ts)
			pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(p.Timestamp()), Member: body})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", key, err)
	}
	return nil
}

func (s *Store) KeyType(ctx context.Context, base string) (series.Type, error) {
	t, err := s.db.HGet(ctx, s.typesKey(), base).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("key %q: %w", base, store.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read type of %q: %w", base, err)
	}
	return series.ParseType(t)
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]store.KeyInfo, error) {
	all, err := s.db.HGetAll(ctx, s.typesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	out := make([]store.KeyInfo, 0, len(all))
	for k, t := range all {
		if strings.HasPrefix(k, prefix) {
			out = append(out, store.KeyInfo{Key: k, Type: series.Type(t)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) List(ctx context.Context) ([]dashboard.Dashboard, error) {
	all, err := s.db.HGetAll(ctx, s.dashboardsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	out := make([]dashboard.Dashboard, 0, len(all))
	for id, raw := range all {
		var d dashboard.Dashboard
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decode dashboard %q: %w", id, err)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*dashboard.Dashboard, error) {
	raw, err := s.db.HGet(ctx, s.dashboardsKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("dashboard %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read dashboard %q: %w", id, err)
	}
	var d dashboard.Dashboard
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode dashboard %q: %w", id, err)
	}
	return &d, nil
}

func (s *Store) Put(ctx context.Context, d dashboard.Dashboard) error {
	if err := d.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := s.db.HSet(ctx, s.dashboardsKey(), d.ID, body).Err(); err != nil {
		return fmt.Errorf("write dashboard %q: %w", d.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.db.HDel(ctx, s.dashboardsKey(), id).Result()
	if err != nil {
		return fmt.Errorf("delete dashboard %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("dashboard %q: %w", id, store.ErrNotFound)
	}
	return nil
}
