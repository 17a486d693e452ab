// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package series

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// DetectType infers the point variant from the fields present in a JSON object.
func DetectType(raw []byte) (Type, error) {
	if !gjson.ValidBytes(raw) {
		return "", errors.New("invalid point JSON")
	}
	obj := gjson.ParseBytes(raw)
	if !obj.IsObject() {
		return "", errors.New("point must be a JSON object")
	}
	if !obj.Get("ts").Exists() {
		return "", errors.New("point is missing ts")
	}
	switch {
	case obj.Get("data").IsObject():
		return TypeLLQ, nil
	case obj.Get("mean").Exists(), obj.Get("median").Exists(), obj.Get("p95").Exists():
		return TypeHistogram, nil
	case obj.Get("count").Exists():
		return TypeCounter, nil
	}
	return "", errors.New("point has no recognizable fields")
}

// DecodePoint decodes a single point object, detecting its variant.
func DecodePoint(raw []byte) (Point, error) {
	typ, err := DetectType(raw)
	if err != nil {
		return nil, err
	}
	return decodeAs(raw, typ)
}

func decodeAs(raw []byte, typ Type) (Point, error) {
	switch typ {
	case TypeCounter:
		var c Counter
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("failed to decode counter point: %w", err)
		}
		return c, nil
	case TypeHistogram:
		var h Histogram
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("failed to decode histogram point: %w", err)
		}
		return h, nil
	case TypeLLQ:
		var q LLQ
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("failed to decode llq point: %w", err)
		}
		return q, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
}

// DecodePoints decodes a JSON array of points. Each element's variant is detected
// independently, so mixed arrays decode but callers normally receive one variant.
func DecodePoints(data []byte) ([]Point, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode points: %w", err)
	}
	out := make([]Point, 0, len(raws))
	for i, raw := range raws {
		p, err := DecodePoint(raw)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// EncodePoints encodes points as a JSON array. A nil slice encodes as [].
func EncodePoints(pts []Point) ([]byte, error) {
	if pts == nil {
		pts = []Point{}
	}
	return json.Marshal(pts)
}

// EncodeLive encodes a live point event: the point's fields plus its key.
func EncodeLive(mkey string, p Point) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	k, err := json.Marshal(mkey)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(k)+8)
	out = append(out, `{"key":`...)
	out = append(out, k...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}

// DecodeLive decodes an event produced by EncodeLive.
func DecodeLive(data []byte) (string, Point, error) {
	key := gjson.GetBytes(data, "key")
	if key.Type != gjson.String || key.Str == "" {
		return "", nil, errors.New("live event is missing key")
	}
	p, err := DecodePoint(data)
	if err != nil {
		return "", nil, err
	}
	return key.Str, p, nil
}
