package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// RequestID is a JSON-RPC ID: a string or a number. The zero value is the
// null ID used by notifications.
type RequestID struct {
	value any
}

// NewRequestID wraps a string or numeric value as an ID. Unsupported kinds
// yield the null ID.
func NewRequestID(value any) *RequestID {
	switch value.(type) {
	case string, int, int64, float64:
		return &RequestID{value: value}
	default:
		return &RequestID{}
	}
}

// IsNil reports whether the ID is absent.
func (id *RequestID) IsNil() bool {
	return id == nil || id.value == nil
}

// String renders the ID for logs.
func (id *RequestID) String() string {
	if id.IsNil() {
		return ""
	}
	return fmt.Sprintf("%v", id.value)
}

// MarshalJSON implements json.Marshaler.
func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id.IsNil() {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler, preserving whether the peer sent
// a string or a number so the response echoes the same shape.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		if num == float64(int64(num)) {
			id.value = int64(num)
		} else {
			id.value = num
		}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		id.value = str
		return nil
	}
	return fmt.Errorf("JSON-RPC ID must be a string or number, got: %s", string(data))
}
