package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zjrosen/confhub/internal/format"
)

type item struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type itemList struct {
	Items []item `json:"items"`
}

func TestFor(t *testing.T) {
	c, err := For(format.JSON)
	require.NoError(t, err)
	require.Equal(t, format.JSON, c.Format())

	c, err = For(format.Binary)
	require.NoError(t, err)
	require.Equal(t, format.Binary, c.Format())

	_, err = For(format.Text)
	require.Error(t, err)
	_, err = For(format.Unknown)
	require.Error(t, err)
}

func TestJSONCodec_Struct(t *testing.T) {
	c := JSON()
	in := itemList{Items: []item{{ID: 1, Name: "sword"}, {ID: 2, Name: "shield"}}}
	b, err := c.Marshal(in)
	require.NoError(t, err)

	var out itemList
	require.NoError(t, c.Unmarshal(b, &out, DecodeOptions{}))
	require.Equal(t, in, out)
}

func TestJSONCodec_UnknownFields(t *testing.T) {
	c := JSON()
	data := []byte(`{"items":[{"id":1,"name":"sword","weight":3}]}`)

	var strict itemList
	require.Error(t, c.Unmarshal(data, &strict, DecodeOptions{}))

	var lenient itemList
	require.NoError(t, c.Unmarshal(data, &lenient, DecodeOptions{IgnoreUnknownFields: true}))
	require.Equal(t, "sword", lenient.Items[0].Name)
}

func TestJSONCodec_TrailingData(t *testing.T) {
	var out itemList
	err := JSON().Unmarshal([]byte(`{"items":[]} {"items":[]}`), &out, DecodeOptions{})
	require.Error(t, err)
}

func TestJSONCodec_Proto(t *testing.T) {
	c := JSON()
	in, err := structpb.NewStruct(map[string]any{"color": "red", "size": 3})
	require.NoError(t, err)

	b, err := c.Marshal(in)
	require.NoError(t, err)

	out := &structpb.Struct{}
	require.NoError(t, c.Unmarshal(b, out, DecodeOptions{}))
	require.True(t, proto.Equal(in, out))
}

func TestJSONCodec_ProtoUnknownFields(t *testing.T) {
	c := JSON()
	data := []byte(`{"name":"hero.proto","bogus":1}`)

	require.Error(t, c.Unmarshal(data, &descriptorpb.FileDescriptorProto{}, DecodeOptions{}))

	fd := &descriptorpb.FileDescriptorProto{}
	require.NoError(t, c.Unmarshal(data, fd, DecodeOptions{IgnoreUnknownFields: true}))
	require.Equal(t, "hero.proto", fd.GetName())
}

func TestBinaryCodec_Struct(t *testing.T) {
	c := Binary()
	in := itemList{Items: []item{{ID: 7, Name: "potion"}}}
	b, err := c.Marshal(in)
	require.NoError(t, err)

	var out itemList
	require.NoError(t, c.Unmarshal(b, &out, DecodeOptions{}))
	require.Equal(t, in, out)
}

func TestBinaryCodec_Proto(t *testing.T) {
	c := Binary()
	in, err := structpb.NewStruct(map[string]any{"k": "v"})
	require.NoError(t, err)

	b, err := c.Marshal(in)
	require.NoError(t, err)

	out := &structpb.Struct{}
	require.NoError(t, c.Unmarshal(b, out, DecodeOptions{}))
	require.Equal(t, "v", out.GetFields()["k"].GetStringValue())
}

func TestBinaryCodec_Garbage(t *testing.T) {
	var out itemList
	require.Error(t, Binary().Unmarshal([]byte{0xff, 0x00, 0x13}, &out, DecodeOptions{}))
}
