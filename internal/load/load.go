package load

import (
	"os"
	"path/filepath"

	"github.com/zjrosen/confhub/internal/codec"
	"github.com/zjrosen/confhub/internal/format"
)

// ReadFile is the default ReadFunc.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path) //nolint:gosec // G304: table paths come from the operator's config
}

// Path returns the file a table named name would be loaded from.
func Path(name, dir string, fmt format.Format, opts *MessagerOptions) string {
	if opts != nil && opts.Path != "" {
		return opts.Path
	}
	return filepath.Join(dir, name+format.FormatExtension(fmt))
}

// LoadMessage fills payload for the table name. The file is opts.Path if
// set (format taken from its extension), else <dir>/<name><ext(fmt)>.
// Patch files found through opts.PatchPaths or opts.PatchDirs are then
// applied according to opts.Patch and opts.Mode.
//
// payload is only written by the decoder; callers that must keep the
// previous value on failure should decode into a fresh value.
func LoadMessage(payload any, name, dir string, fmt format.Format, opts *MessagerOptions) error {
	if opts == nil {
		opts = &MessagerOptions{}
	}
	if opts.Path != "" {
		fmt = format.ResolveFormat(opts.Path)
		if fmt == format.Unknown {
			return newError(KindUnknownFormat, name, opts.Path, "unrecognized extension %q", filepath.Ext(opts.Path))
		}
	} else if !fmt.Loadable() {
		return newError(KindIllegalParam, name, "", "cannot load format %s", fmt)
	}
	path := Path(name, dir, fmt, opts)
	if opts.GetMode() != ModeOnlyMain {
		if patches := patchPaths(name, fmt, opts); len(patches) > 0 {
			return loadWithPatch(payload, name, path, fmt, patches, opts)
		}
		if opts.GetMode() == ModeOnlyPatch {
			return nil
		}
	}
	return classify(name, path, opts.GetLoadFunc()(payload, path, fmt, opts))
}

// LoadMessageByPath is the default LoadFunc: read with opts' ReadFunc, then
// decode with the codec for fmt.
func LoadMessageByPath(payload any, path string, fmt format.Format, opts *MessagerOptions) error {
	if !fmt.Loadable() {
		return newError(KindIllegalParam, "", path, "cannot load format %s", fmt)
	}
	c, err := codec.For(fmt)
	if err != nil {
		return &Error{Kind: KindIllegalParam, Path: path, Err: err}
	}
	data, err := opts.GetReadFunc()(path)
	if err != nil {
		return &Error{Kind: KindNotFound, Path: path, Err: err}
	}
	if err := c.Unmarshal(data, payload, codec.DecodeOptions{IgnoreUnknownFields: opts.GetIgnoreUnknownFields()}); err != nil {
		return &Error{Kind: KindParse, Path: path, Err: err}
	}
	return nil
}
