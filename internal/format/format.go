// Package format maps table file extensions to encoding formats and back.
package format

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies how a table file is encoded.
type Format int

const (
	// Unknown is a valid resolver outcome but never a valid load target.
	Unknown Format = iota
	// JSON is the canonical JSON mapping of a table payload.
	JSON
	// Binary is the compact binary encoding of a table payload.
	Binary
	// Text is reserved. Loading or storing it is rejected.
	Text
)

// File extensions, including the leading dot.
const (
	UnknownExt = ".unknown"
	JSONExt    = ".json"
	BinaryExt  = ".binpb"
	TextExt    = ".txtpb"
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case Binary:
		return "binary"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// ResolveFormat returns the format of path derived from its extension.
// Only JSON and Binary are recognized; anything else yields Unknown.
func ResolveFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case JSONExt:
		return JSON
	case BinaryExt:
		return Binary
	default:
		return Unknown
	}
}

// FormatExtension returns the file extension used for fmt.
// Unknown maps to UnknownExt, which only shows up in diagnostics.
func FormatExtension(fmt Format) string {
	switch fmt {
	case JSON:
		return JSONExt
	case Binary:
		return BinaryExt
	case Text:
		return TextExt
	default:
		return UnknownExt
	}
}

// Parse converts a user supplied name ("json", "binary", "bin", "binpb",
// "text") into a Format.
func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return JSON, nil
	case "binary", "bin", "binpb":
		return Binary, nil
	case "text", "txt", "txtpb":
		return Text, nil
	default:
		return Unknown, fmt.Errorf("unknown format %q", s)
	}
}

// Loadable reports whether tables can be decoded from fmt.
func (f Format) Loadable() bool {
	return f == JSON || f == Binary
}
