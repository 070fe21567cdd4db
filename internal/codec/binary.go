package codec

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/proto"

	"github.com/zjrosen/confhub/internal/format"
)

type binaryCodec struct {
	mo  proto.MarshalOptions
	uo  proto.UnmarshalOptions
	enc cbor.EncMode
	dec cbor.DecMode
}

// Binary returns the binary codec. Protobuf payloads use the proto wire
// format, everything else uses canonical CBOR. Both tolerate unknown fields.
func Binary() Codec {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor enc mode: %v", err))
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor dec mode: %v", err))
	}
	return binaryCodec{
		mo:  proto.MarshalOptions{Deterministic: true},
		uo:  proto.UnmarshalOptions{},
		enc: em,
		dec: dm,
	}
}

func (binaryCodec) Format() format.Format { return format.Binary }

func (c binaryCodec) Marshal(v any) ([]byte, error) {
	if msg, ok := v.(proto.Message); ok {
		return c.mo.Marshal(msg)
	}
	return c.enc.Marshal(v)
}

func (c binaryCodec) Unmarshal(data []byte, v any, _ DecodeOptions) error {
	if msg, ok := v.(proto.Message); ok {
		return c.uo.Unmarshal(data, msg)
	}
	return c.dec.Unmarshal(data, v)
}
