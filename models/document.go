package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotAnObject is returned when a request body is valid JSON but not an object.
var ErrNotAnObject = errors.New("request body must be a JSON object")

// ErrNumberOutOfRange is returned for a JSON number a float64 cannot hold.
var ErrNumberOutOfRange = errors.New("number out of range")

// DecodeDocument reads a JSON object into a bson.M ready to be stored verbatim.
// Integral numbers are kept as int64 so they round-trip as integers; the rest
// become float64.
func DecodeDocument(r io.Reader) (bson.M, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, ErrNotAnObject
	}
	return normalizeObject(obj)
}

func normalizeObject(in map[string]interface{}) (bson.M, error) {
	out := make(bson.M, len(in))
	for k, v := range in {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		return normalizeObject(t)
	case []interface{}:
		arr := make(bson.A, len(t))
		for i, e := range t {
			nv, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			arr[i] = nv
		}
		return arr, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNumberOutOfRange, t)
		}
		return f, nil
	default:
		return v, nil
	}
}

// Number converts a decoded document value to float64. Numeric strings are
// accepted the way a loosely typed client would send them.
func Number(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case int:
		f = float64(t)
	case json.Number:
		var err error
		if f, err = t.Float64(); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
