// Package codec decodes and encodes table payloads for each file format.
//
// Payloads that implement proto.Message go through the protobuf runtime
// (protojson for JSON, proto wire format for Binary). Any other payload is
// treated as a plain Go value: encoding/json for JSON, CBOR for Binary.
package codec

import (
	"fmt"

	"github.com/zjrosen/confhub/internal/format"
)

// DecodeOptions tunes a single Unmarshal call.
type DecodeOptions struct {
	// IgnoreUnknownFields skips unrecognized JSON fields instead of failing.
	// Binary decoding is tolerant regardless.
	IgnoreUnknownFields bool
}

// Codec converts between bytes and a payload for one format.
type Codec interface {
	Format() format.Format
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any, opts DecodeOptions) error
}

// Registry maps formats to codecs.
type Registry struct{ byFormat map[format.Format]Codec }

// NewRegistry returns a registry preloaded with the JSON and Binary codecs.
func NewRegistry() *Registry {
	r := &Registry{byFormat: make(map[format.Format]Codec)}
	r.Register(JSON())
	r.Register(Binary())
	return r
}

// Register adds or replaces the codec for c.Format().
func (r *Registry) Register(c Codec) { r.byFormat[c.Format()] = c }

// Get returns the codec for f, or nil.
func (r *Registry) Get(f format.Format) Codec { return r.byFormat[f] }

var defaultRegistry = NewRegistry()

// For returns the built-in codec for f.
func For(f format.Format) (Codec, error) {
	c := defaultRegistry.Get(f)
	if c == nil {
		return nil, fmt.Errorf("no codec for format %s", f)
	}
	return c, nil
}
