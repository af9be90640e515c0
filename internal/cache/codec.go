package cache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes cache values.
type Codec[V any] interface {
	Name() string
	Encode(v V) ([]byte, error)
	Decode(b []byte) (V, error)
}

// JSONCodec encodes values with encoding/json, using the same field names
// as the HTTP API.
type JSONCodec[V any] struct{}

func (JSONCodec[V]) Name() string { return "json" }

func (JSONCodec[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}

// MsgpackCodec encodes values with vmihailenco/msgpack. Struct fields are
// keyed by their json tags so all codecs agree on field names.
type MsgpackCodec[V any] struct{}

func (MsgpackCodec[V]) Name() string { return "msgpack" }

func (MsgpackCodec[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec[V]) Decode(b []byte) (V, error) {
	var v V
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&v)
	return v, err
}

// CBORCodec encodes values with fxamacker/cbor. Times are written as
// RFC 3339 strings with nanoseconds.
type CBORCodec[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec constructs a CBORCodec.
func NewCBORCodec[V any]() (CBORCodec[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBORCodec[V]{}, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBORCodec[V]{}, err
	}
	return CBORCodec[V]{enc: em, dec: dm}, nil
}

func (CBORCodec[V]) Name() string { return "cbor" }

func (c CBORCodec[V]) Encode(v V) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c CBORCodec[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}

// NewTaskListCodec returns the task list codec with the given name:
// "json", "msgpack" or "cbor".
func NewTaskListCodec(name string) (Codec[[]domain.Task], error) {
	switch name {
	case "", "json":
		return JSONCodec[[]domain.Task]{}, nil
	case "msgpack":
		return MsgpackCodec[[]domain.Task]{}, nil
	case "cbor":
		c, err := NewCBORCodec[[]domain.Task]()
		if err != nil {
			return nil, fmt.Errorf("failed to build cbor codec: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}
