package message

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Value is an opaque structured JSON value (null, bool, number, string, list or object).
// It is used for the open-ended platform maps of the FCM schema (APNs headers and payload,
// Webpush headers and notification) so that fields added by the server later pass through
// untouched while the rest of the message stays typed.
type Value struct {
	pb *structpb.Value
}

// NewValue converts a Go value (nil, bool, numbers, string, []any, map[string]any) into a Value.
func NewValue(v any) (Value, error) {
	pb, err := structpb.NewValue(v)
	if err != nil {
		return Value{}, fmt.Errorf("unsupported value %T: %w", v, err)
	}
	return Value{pb: pb}, nil
}

// MustValue is NewValue for literals known to be valid. It panics otherwise.
func MustValue(v any) Value {
	val, err := NewValue(v)
	if err != nil {
		panic(err)
	}
	return val
}

// String is shorthand for a string Value.
func String(s string) Value {
	return Value{pb: structpb.NewStringValue(s)}
}

// Proto exposes the underlying protobuf tree.
func (v Value) Proto() *structpb.Value {
	if v.pb == nil {
		return structpb.NewNullValue()
	}
	return v.pb
}

// Interface returns the plain Go representation of the value.
func (v Value) Interface() any {
	return v.Proto().AsInterface()
}

// IsNull reports whether the value is JSON null (including the zero Value).
func (v Value) IsNull() bool {
	_, ok := v.Proto().GetKind().(*structpb.Value_NullValue)
	return ok
}

func (v Value) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(v.Proto())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	pb := &structpb.Value{}
	if err := protojson.Unmarshal(data, pb); err != nil {
		return fmt.Errorf("invalid structured value: %w", err)
	}
	v.pb = pb
	return nil
}

// ValuesFrom converts any JSON-serialisable struct or map into a map of Values.
func ValuesFrom(v any) (map[string]Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]Value
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return out, nil
}
