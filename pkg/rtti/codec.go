package rtti

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"reflect"
)

// MaxFixedSize is the largest plain value, in bytes, that is stored in a fixed
// size slot. Larger values are written with a length prefix.
const MaxFixedSize = 255

// Codec converts plain values of type T to and from their stream bytes.
type Codec[T any] interface {
	// Size returns the encoded size in bytes, or -1 if it varies per value.
	Size() int

	// Encode returns the bytes for v.
	Encode(v T) ([]byte, error)

	// Decode parses a value previously produced by Encode.
	Decode(b []byte) (T, error)
}

// DefaultCodec picks the codec used for plain fields declared without WithCodec:
// strings are raw UTF-8, Go ints and uints are 8 byte little endian, other
// fixed-size values use encoding/binary, everything else is JSON.
func DefaultCodec[T any]() Codec[T] {
	var zero T
	rt := reflect.TypeOf(&zero).Elem()
	switch rt.Kind() {
	case reflect.String:
		return stringCodec[T]{}
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return wordCodec[T]{signed: rt.Kind() == reflect.Int}
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		// binary.Size reports the current length of a slice, not a fixed size
		return jsonCodec[T]{}
	}
	if n := binary.Size(zero); n >= 0 {
		size := n
		if n > MaxFixedSize {
			size = -1
		}
		return binaryCodec[T]{size: size}
	}
	return jsonCodec[T]{}
}

// DecodePlain decodes raw plain bytes with the default codec for T.
// Migrations use it to read fields that are no longer declared.
func DecodePlain[T any](raw []byte) (T, error) {
	return DefaultCodec[T]().Decode(raw)
}

type stringCodec[T any] struct{}

func (stringCodec[T]) Size() int { return -1 }

func (stringCodec[T]) Encode(v T) ([]byte, error) {
	return []byte(reflect.ValueOf(v).String()), nil
}

func (stringCodec[T]) Decode(b []byte) (T, error) {
	var v T
	reflect.ValueOf(&v).Elem().SetString(string(b))
	return v, nil
}

type wordCodec[T any] struct {
	signed bool
}

func (wordCodec[T]) Size() int { return 8 }

func (c wordCodec[T]) Encode(v T) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if c.signed {
		return binary.LittleEndian.AppendUint64(nil, uint64(rv.Int())), nil
	}
	return binary.LittleEndian.AppendUint64(nil, rv.Uint()), nil
}

func (c wordCodec[T]) Decode(b []byte) (T, error) {
	var v T
	if len(b) != 8 {
		return v, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	u := binary.LittleEndian.Uint64(b)
	rv := reflect.ValueOf(&v).Elem()
	if c.signed {
		rv.SetInt(int64(u))
	} else {
		rv.SetUint(u)
	}
	return v, nil
}

type binaryCodec[T any] struct {
	size int
}

func (c binaryCodec[T]) Size() int { return c.size }

func (binaryCodec[T]) Encode(v T) ([]byte, error) {
	return binary.Append(nil, binary.LittleEndian, v)
}

func (binaryCodec[T]) Decode(b []byte) (T, error) {
	var v T
	n, err := binary.Decode(b, binary.LittleEndian, &v)
	if err != nil {
		return v, err
	}
	if n != len(b) {
		return v, fmt.Errorf("decoded %d of %d bytes", n, len(b))
	}
	return v, nil
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Size() int { return -1 }

func (jsonCodec[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec[T]) Decode(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}
