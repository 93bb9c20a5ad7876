package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erp/console/internal/domain/shared"
)

// ErrUnexpectedShape is returned when a response body matches none of the
// shapes a decoder accepts.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Decoder turns a response body into a typed value.
type Decoder[T any] func(data []byte) (T, error)

// ListOf accepts a bare JSON array, or an object wrapping the array under
// one of keys (checked in order). A null body decodes to an empty list.
//
//	ListOf[Order]("orders")    // [...] or {"orders": [...]}
//	ListOf[Product]("data")    // [...] or {"data": [...]}
func ListOf[T any](keys ...string) Decoder[[]T] {
	return func(data []byte) ([]T, error) {
		data = bytes.TrimSpace(data)
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return []T{}, nil
		}

		switch data[0] {
		case '[':
			return decodeList[T](data)
		case '{':
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(data, &obj); err != nil {
				return nil, fmt.Errorf("parsing JSON: %w", err)
			}
			for _, key := range keys {
				raw, ok := obj[key]
				if !ok {
					continue
				}
				raw = bytes.TrimSpace(raw)
				if bytes.Equal(raw, []byte("null")) {
					return []T{}, nil
				}
				if len(raw) == 0 || raw[0] != '[' {
					return nil, fmt.Errorf("%w: %q is not a list", ErrUnexpectedShape, key)
				}
				return decodeList[T](raw)
			}
			return nil, fmt.Errorf("%w: object without any of %v", ErrUnexpectedShape, keys)
		default:
			return nil, fmt.Errorf("%w: expected list", ErrUnexpectedShape)
		}
	}
}

func decodeList[T any](data []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing JSON list: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// ItemOf accepts a bare JSON object, or one wrapped under one of keys.
func ItemOf[T any](keys ...string) Decoder[T] {
	return func(data []byte) (T, error) {
		var zero T
		data = bytes.TrimSpace(data)
		if len(data) == 0 || data[0] != '{' {
			return zero, fmt.Errorf("%w: expected object", ErrUnexpectedShape)
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return zero, fmt.Errorf("parsing JSON: %w", err)
		}
		for _, key := range keys {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			raw = bytes.TrimSpace(raw)
			if len(raw) > 0 && raw[0] == '{' {
				data = raw
				break
			}
		}

		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return zero, fmt.Errorf("parsing JSON object: %w", err)
		}
		return item, nil
	}
}

// ErrorMessage extracts the operator-facing message from an error body.
// Precedence: "details", then "error", then "message". Returns "" when none
// is present so the caller can fall back to the status text.
func ErrorMessage(data []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return ""
	}
	for _, field := range []string{"details", "error", "message"} {
		if msg := stringify(obj[field]); msg != "" {
			return msg
		}
	}
	return ""
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any:
		if msg, ok := val["message"].(string); ok {
			return msg
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Acknowledged checks that a write response carries a truthy "message"
// field and returns it. Anything else is reported as an HTTPError wrapping
// shared.ErrNotAcked, even when the status was 2xx.
func Acknowledged(resp *Response) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal(resp.Body, &obj); err == nil {
		if msg, ok := truthy(obj["message"]); ok {
			return msg, nil
		}
	}

	msg := ErrorMessage(resp.Body)
	if msg == "" {
		msg = shared.ErrNotAcked.Message
	}
	return "", &shared.HTTPError{Status: resp.StatusCode, Message: msg, Err: shared.ErrNotAcked}
}

func truthy(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		return "true", val
	case float64:
		return fmt.Sprintf("%v", val), val != 0
	default:
		return stringify(val), true
	}
}
