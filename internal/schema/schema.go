// Package schema derives JSON Schema documents for table payloads.
package schema

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"google.golang.org/protobuf/proto"

	"github.com/zjrosen/confhub/internal/hub"
)

// For returns the JSON Schema of the payload m decodes into. Go struct
// payloads are reflected with properties inlined. Protobuf payloads are
// described as open objects titled with the message's full name, since
// their JSON form is defined by protojson rather than Go struct tags.
func For(m hub.Messager) (*jsonschema.Schema, error) {
	payload := m.Message()
	if payload == nil {
		return nil, fmt.Errorf("%s: nil payload", m.Name())
	}

	if pm, ok := payload.(proto.Message); ok {
		return &jsonschema.Schema{
			Version:     jsonschema.Version,
			Title:       m.Name(),
			Description: "protobuf message " + string(pm.ProtoReflect().Descriptor().FullName()),
			Type:        "object",
		}, nil
	}

	t := reflect.TypeOf(payload)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s: payload must be a struct or pointer to struct, got %s", m.Name(), t.Kind())
	}

	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.ReflectFromType(t)
	s.Title = m.Name()
	return s, nil
}

// All returns the schema of every table in reg keyed by name. names limits
// the result when non-empty.
func All(reg *hub.Registry, names ...string) (map[string]*jsonschema.Schema, error) {
	if len(names) == 0 {
		names = reg.Names()
	}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		ctor, ok := reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown table %q", name)
		}
		s, err := For(ctor())
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}
