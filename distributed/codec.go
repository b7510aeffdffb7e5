package distributed

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// Codec converts values to and from bytes for a remote backend.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// JSON encodes values with goccy/go-json.
type JSON[V any] struct{}

// Encode marshals v as JSON.
func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

// Decode unmarshals JSON data into a V.
func (JSON[V]) Decode(data []byte) (V, error) {
	var v V
	err := json.Unmarshal(data, &v)
	return v, err
}

// Zstd compresses the output of an inner codec with zstd.
// It is safe for concurrent use.
type Zstd[V any] struct {
	inner Codec[V]
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewZstd wraps inner with zstd compression at the given level.
func NewZstd[V any](inner Codec[V], level zstd.EncoderLevel) (*Zstd[V], error) {
	if inner == nil {
		inner = JSON[V]{}
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("distributed: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("distributed: zstd decoder: %w", err)
	}
	return &Zstd[V]{inner: inner, enc: enc, dec: dec}, nil
}

// Encode encodes v with the inner codec and compresses the result.
func (z *Zstd[V]) Encode(v V) ([]byte, error) {
	raw, err := z.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// Decode decompresses data and decodes it with the inner codec.
func (z *Zstd[V]) Decode(data []byte) (V, error) {
	raw, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("distributed: zstd decode: %w", err)
	}
	return z.inner.Decode(raw)
}

var (
	_ Codec[string] = JSON[string]{}
	_ Codec[string] = (*Zstd[string])(nil)
)
