// Package payload decodes loosely-shaped JSON coming from upstream systems.
//
// Every tolerant lookup is an explicit ordered list of accepted shapes or
// field spellings; the first match wins.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Object is a decoded JSON object. Numbers are json.Number.
type Object = map[string]any

// Decode parses body with numbers preserved as json.Number and rejects
// trailing garbage.
func Decode(body []byte) (any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty payload")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("malformed JSON: trailing data after value")
	}
	return v, nil
}

// String renders scalar JSON values as strings so identifiers compare
// equally whether sent as 42, "42" or 42.0.
func String(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		return t, t != ""
	case json.Number:
		return canonicalNumber(t.String()), true
	case float64:
		return canonicalNumber(strconv.FormatFloat(t, 'f', -1, 64)), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// canonicalNumber works on the decimal text so integers wider than a
// float64 mantissa keep every digit.
func canonicalNumber(s string) string {
	if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
		return d.BigInt().String()
	}
	return s
}

// FirstString returns the first key in keys whose value renders to a
// non-empty string.
func FirstString(obj Object, keys ...string) (string, string) {
	for _, key := range keys {
		if s, ok := String(obj[key]); ok && s != "" {
			return key, s
		}
	}
	return "", ""
}

// Lookup follows a dotted path such as "data.id" through nested objects.
func Lookup(obj Object, path string) (any, bool) {
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// FirstPath is FirstString over dotted paths.
func FirstPath(obj Object, paths ...string) string {
	for _, path := range paths {
		if v, ok := Lookup(obj, path); ok {
			if s, ok := String(v); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Objects keeps only the object elements of arr.
func Objects(arr []any) []Object {
	out := make([]Object, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(Object); ok {
			out = append(out, obj)
		}
	}
	return out
}

// listEnvelopes are the keys upstream list endpoints wrap arrays in.
var listEnvelopes = []string{"data", "items", "results"}

// List decodes a list response: a bare array, or an object carrying the
// array under one of the envelope keys (possibly nested once, e.g.
// {"data":{"items":[...]}}).
func List(body []byte) ([]Object, error) {
	v, err := Decode(body)
	if err != nil {
		return nil, err
	}
	return listFrom(v, 2)
}

func listFrom(v any, depth int) ([]Object, error) {
	switch t := v.(type) {
	case []any:
		return Objects(t), nil
	case Object:
		if depth == 0 {
			break
		}
		for _, key := range listEnvelopes {
			inner, ok := t[key]
			if !ok || inner == nil {
				continue
			}
			return listFrom(inner, depth-1)
		}
	case nil:
		return []Object{}, nil
	}
	return nil, fmt.Errorf("unexpected list response shape %T", v)
}
