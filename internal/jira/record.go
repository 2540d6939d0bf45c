package jira

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// ErrMalformedBody is returned when a response body is not the JSON shape an outcome
// needs. No record is logged in that case.
var ErrMalformedBody = errors.New("jira: malformed response body")

// Record is the outcome of one API call: an ordered JSON object that always starts
// with "code" and "success". Setting an existing key replaces its value in place, so
// the first position of a key is kept and the last value wins.
type Record struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewRecord returns {"code":code,"success":success}.
func NewRecord(code int, success bool) *Record {
	r := &Record{values: make(map[string]json.RawMessage, 4)}
	r.SetRaw("code", json.RawMessage(strconv.Itoa(code)))
	r.SetRaw("success", json.RawMessage(strconv.FormatBool(success)))
	return r
}

// SetRaw stores raw as the value of key. raw must be valid JSON.
func (r *Record) SetRaw(key string, raw json.RawMessage) {
	if r.values == nil {
		r.values = map[string]json.RawMessage{}
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = append(json.RawMessage(nil), raw...)
}

// Set encodes v and stores it under key.
func (r *Record) Set(key string, v any) error {
	raw, err := encode(v)
	if err != nil {
		return fmt.Errorf("jira: record %q: %w", key, err)
	}
	r.SetRaw(key, raw)
	return nil
}

// Get returns the raw JSON value stored under key.
func (r *Record) Get(key string) (json.RawMessage, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in rendering order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Code returns the "code" value as an integer (0 if a remote overlay replaced it with a non-number).
func (r *Record) Code() int {
	return int(gjson.ParseBytes(r.values["code"]).Int())
}

// Success returns the "success" value.
func (r *Record) Success() bool {
	return gjson.ParseBytes(r.values["success"]).Bool()
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	c := &Record{keys: r.Keys(), values: make(map[string]json.RawMessage, len(r.values))}
	for k, v := range r.values {
		c.values[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

// MarshalJSON renders the record as a compact object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encode(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, r.values[k]); err != nil {
			return nil, fmt.Errorf("jira: record %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String returns the single-line JSON form used as the log message.
func (r *Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf(`{"code":%d,"success":false,"error":%q}`, r.Code(), err.Error())
	}
	return string(b)
}

// Overlay returns a copy of base extended with every top-level key of the JSON object
// body, in body order. Remote keys take precedence, including "code" and "success".
func Overlay(base *Record, body []byte) (*Record, error) {
	parsed, err := parseBody(body)
	if err != nil {
		return nil, err
	}
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object, got %s", ErrMalformedBody, kindOf(parsed))
	}
	out := base.Clone()
	parsed.ForEach(func(k, v gjson.Result) bool {
		out.SetRaw(k.String(), json.RawMessage(v.Raw))
		return true
	})
	return out, nil
}

func parseBody(body []byte) (gjson.Result, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return gjson.Result{}, fmt.Errorf("%w: empty body", ErrMalformedBody)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrMalformedBody)
	}
	return gjson.ParseBytes(body), nil
}

func kindOf(r gjson.Result) string {
	switch {
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	case r.Type == gjson.String:
		return "string"
	case r.Type == gjson.Number:
		return "number"
	case r.IsBool():
		return "boolean"
	default:
		return "null"
	}
}

// encode marshals v without HTML escaping so URLs stay readable in log lines.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
