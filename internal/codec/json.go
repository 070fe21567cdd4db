package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/zjrosen/confhub/internal/format"
)

type jsonCodec struct {
	mo protojson.MarshalOptions
}

// JSON returns the JSON codec.
func JSON() Codec {
	return jsonCodec{
		mo: protojson.MarshalOptions{Multiline: true, Indent: "  ", UseProtoNames: true},
	}
}

func (jsonCodec) Format() format.Format { return format.JSON }

func (c jsonCodec) Marshal(v any) ([]byte, error) {
	if msg, ok := v.(proto.Message); ok {
		return c.mo.Marshal(msg)
	}
	return json.MarshalIndent(v, "", "  ")
}

func (jsonCodec) Unmarshal(data []byte, v any, opts DecodeOptions) error {
	if msg, ok := v.(proto.Message); ok {
		uo := protojson.UnmarshalOptions{DiscardUnknown: opts.IgnoreUnknownFields}
		return uo.Unmarshal(data, msg)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if !opts.IgnoreUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}
