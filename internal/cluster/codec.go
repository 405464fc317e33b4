package cluster

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Codec serializes and deserializes envelope payloads for the wire, as
// described in spec.md §8. Two are provided; both are standard-library
// implementations — no third-party codec is exercised anywhere in the
// reference stack, so reaching for a library here would be an invented
// dependency rather than an inherited one (see DESIGN.md).
type Codec interface {
	Tag() byte
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

// JSONCodec is the default, self-describing wire codec.
type JSONCodec struct{}

func (JSONCodec) Tag() byte { return 1 }

func (JSONCodec) Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cluster: json encode: %w", err)
	}
	return b, nil
}

func (JSONCodec) Decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cluster: json decode: %w", err)
	}
	return nil
}

// GobCodec is the binary alternative, cheaper to encode/decode at the
// cost of requiring both peers to register the same concrete payload
// types up front.
type GobCodec struct{}

func (GobCodec) Tag() byte { return 2 }

func (GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("cluster: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return fmt.Errorf("cluster: gob decode: %w", err)
	}
	return nil
}

// RegisterGobType registers a concrete payload type with the encoding/gob
// package so GobCodec can round-trip values carried through an any. Call
// once per payload type at process startup, on both ends of a cluster
// link.
func RegisterGobType(v any) {
	gob.Register(v)
}

// codecsByTag maps a codec's tag byte back to the Codec. The TCP transport
// does not put this tag on the wire: each Transport encodes and decodes
// every envelope frame with its one configured codec, so both ends of a
// link must be configured with the same codec.
var codecsByTag = map[byte]Codec{
	JSONCodec{}.Tag(): JSONCodec{},
	GobCodec{}.Tag():  GobCodec{},
}

// CodecByTag looks up the codec registered for tag.
func CodecByTag(tag byte) (Codec, bool) {
	c, ok := codecsByTag[tag]
	return c, ok
}

// CodecByName resolves the config-level names ("json"/"gob") used in
// config.TCPTransportConfig.Codec.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "gob":
		return GobCodec{}, nil
	default:
		return nil, fmt.Errorf("cluster: unknown codec %q", name)
	}
}
