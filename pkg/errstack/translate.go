package errstack

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Optional is a value with an explicit presence marker.
type Optional[T any] struct {
	Value   T
	Present bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Present: true} }

// None returns an absent Optional.
func None[T any]() Optional[T] { return Optional[T]{} }

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.Value, o.Present }

// MarshalJSON encodes an absent value as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON decodes null as absent.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Record is the caller-visible form of a frame. Code, file and line are
// always set; the other fields are present only when the producer supplied
// them.
type Record struct {
	Code     uint32           `json:"code"`
	File     string           `json:"file"`
	Line     int              `json:"line"`
	Library  Optional[string] `json:"library"`
	Function Optional[string] `json:"function"`
	Reason   Optional[string] `json:"reason"`
	Data     Optional[string] `json:"data"`
}

// String formats the record on one line, in the colon separated layout of
// the engine's own error strings.
func (r Record) String() string {
	s := fmt.Sprintf("error:%08X:%s:%s:%s", r.Code, r.Library.Value, r.Function.Value, r.Reason.Value)
	s += fmt.Sprintf(":%s:%d", r.File, r.Line)
	if r.Data.Present {
		s += ":" + r.Data.Value
	}
	return s
}

// Translate maps frames to records, preserving order.
func Translate(frames []Frame) []Record {
	if len(frames) == 0 {
		return nil
	}
	records := make([]Record, len(frames))
	for i, f := range frames {
		records[i] = Record{
			Code:     f.Code,
			File:     f.File,
			Line:     f.Line,
			Library:  optional(f.Library),
			Function: optional(f.Function),
			Reason:   optional(f.Reason),
			Data:     optional(f.Data),
		}
	}
	return records
}

// Records translates any error. A foreign error yields a single record with
// its message as reason.
func Records(err error) []Record {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Records()
	}
	return []Record{{Reason: Some(err.Error())}}
}

func optional(s string) Optional[string] {
	if s == "" {
		return None[string]()
	}
	return Some(s)
}
