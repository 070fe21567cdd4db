package protoconf

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/load"
)

// ThemeConf is a free-form key/value table stored as a protobuf Struct,
// so it decodes through protojson and the protobuf wire format.
type ThemeConf struct {
	hub.Base
	data *structpb.Struct
}

// NewThemeConf returns an empty ThemeConf.
func NewThemeConf() *ThemeConf {
	return &ThemeConf{data: &structpb.Struct{}}
}

// Name implements hub.Messager.
func (x *ThemeConf) Name() string { return ThemeConfDescriptor.Name }

// Load implements hub.Messager.
func (x *ThemeConf) Load(dir string, fmt format.Format, opts *load.MessagerOptions) error {
	return hub.Decode(&x.Base, &x.data, x.Name(), dir, fmt, opts)
}

// Message implements hub.Messager.
func (x *ThemeConf) Message() any { return x.data }

// Data returns the decoded struct.
func (x *ThemeConf) Data() *structpb.Struct { return x.data }

// Get returns the value under key.
func (x *ThemeConf) Get(key string) (*structpb.Value, error) {
	v, ok := x.data.GetFields()[key]
	if !ok {
		return nil, notFound(x.Name(), key)
	}
	return v, nil
}

// StringValue returns the string value under key, or fallback.
func (x *ThemeConf) StringValue(key, fallback string) string {
	v, err := x.Get(key)
	if err != nil {
		return fallback
	}
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		return s.StringValue
	}
	return fallback
}
