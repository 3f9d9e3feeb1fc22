package report

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// A walker response carries its result in a "reports" field whose shape the
// server does not keep stable: it may be absent, a single object, a flat
// list, or a list with one level of nested lists. Value classifies the
// shape once at the JSON boundary so call sites never branch on it.

type Shape int

const (
	Empty Shape = iota
	Single
	Many
	Nested
)

func (s Shape) String() string {
	switch s {
	case Empty:
		return "empty"
	case Single:
		return "single"
	case Many:
		return "many"
	default:
		return "nested"
	}
}

// Value is the tagged "reports" payload of a walker response.
type Value struct {
	shape Shape
	raw   json.RawMessage
}

func (v Value) Shape() Shape { return v.shape }

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{shape: Empty}
		return nil
	}
	if data[0] != '[' {
		*v = Value{shape: Single, raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	shape := Many
	for _, e := range elems {
		if isSequence(e) {
			shape = Nested
			break
		}
	}
	*v = Value{shape: shape, raw: append(json.RawMessage(nil), data...)}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.shape == Empty || len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// Flatten normalizes the value into a flat ordered sequence: absent yields
// nothing, a single object yields itself, a sequence is visited in order
// with nested sequences recursed one level, and empty members are dropped.
func (v Value) Flatten() []json.RawMessage {
	switch v.shape {
	case Empty:
		return nil
	case Single:
		if isEmpty(v.raw) {
			return nil
		}
		return []json.RawMessage{v.raw}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(v.raw, &elems); err != nil {
		return nil
	}
	out := make([]json.RawMessage, 0, len(elems))
	for _, e := range elems {
		if isSequence(e) {
			var inner []json.RawMessage
			if err := json.Unmarshal(e, &inner); err != nil {
				continue
			}
			for _, m := range inner {
				if !isEmpty(m) {
					out = append(out, m)
				}
			}
			continue
		}
		if !isEmpty(e) {
			out = append(out, e)
		}
	}
	return out
}

// Decode flattens the value and unmarshals every entry into T, preserving
// order.
func Decode[T any](v Value) ([]T, error) {
	flat := v.Flatten()
	out := make([]T, 0, len(flat))
	for i, raw := range flat {
		var t T
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode report entry %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Of builds a Value from any marshalable payload. Used on the server side
// when assembling responses.
func Of(payload any) (Value, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Value{}, fmt.Errorf("encode reports: %w", err)
	}
	var v Value
	if err := v.UnmarshalJSON(b); err != nil {
		return Value{}, err
	}
	return v, nil
}

func isSequence(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isEmpty(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return true
	}
	return bytes.Equal(t, []byte("[]"))
}
