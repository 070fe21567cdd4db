package load

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"

	"dario.cat/mergo"
	"google.golang.org/protobuf/proto"

	"github.com/zjrosen/confhub/internal/format"
	"github.com/zjrosen/confhub/internal/log"
)

// patchPaths returns the patch files of a table that exist on disk, in
// application order.
func patchPaths(name string, f format.Format, opts *MessagerOptions) []string {
	candidates := opts.PatchPaths
	if len(candidates) == 0 {
		for _, dir := range opts.GetPatchDirs() {
			candidates = append(candidates, filepath.Join(dir, name+format.FormatExtension(f)))
		}
	}
	var existing []string
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			existing = append(existing, p)
		}
	}
	return existing
}

// loadWithPatch loads the main file at path and applies the patch files.
func loadWithPatch(payload any, name, path string, f format.Format, patches []string, opts *MessagerOptions) error {
	loadFn := opts.GetLoadFunc()

	switch opts.Patch {
	case PatchReplace:
		last := patches[len(patches)-1]
		pf := format.ResolveFormat(last)
		if pf == format.Unknown {
			return newError(KindUnknownFormat, name, last, "unrecognized patch extension %q", filepath.Ext(last))
		}
		if err := loadFn(payload, last, pf, opts); err != nil {
			return classify(name, last, err)
		}
	case PatchMerge:
		if opts.GetMode() != ModeOnlyPatch {
			if err := loadFn(payload, path, f, opts); err != nil {
				return classify(name, path, err)
			}
		}
		for _, p := range patches {
			pf := format.ResolveFormat(p)
			if pf == format.Unknown {
				return newError(KindUnknownFormat, name, p, "unrecognized patch extension %q", filepath.Ext(p))
			}
			next, err := newLike(payload)
			if err != nil {
				return &Error{Kind: KindIllegalParam, Name: name, Path: p, Err: err}
			}
			if err := loadFn(next, p, pf, opts); err != nil {
				return classify(name, p, err)
			}
			if err := mergePatch(payload, next); err != nil {
				return &Error{Kind: KindParse, Name: name, Path: p, Err: err}
			}
		}
	default:
		return newError(KindIllegalParam, name, path, "unknown patch type %s", opts.Patch)
	}

	log.Debug(log.CatLoad, "table patched", "table", name, "patch", opts.Patch.String(), "files", patches)
	return nil
}

// newLike returns a zero value of payload's type.
func newLike(payload any) (any, error) {
	if m, ok := payload.(proto.Message); ok {
		return m.ProtoReflect().New().Interface(), nil
	}
	t := reflect.TypeOf(payload)
	if t == nil || t.Kind() != reflect.Pointer {
		return nil, errors.New("payload must be a pointer to patch")
	}
	return reflect.New(t.Elem()).Interface(), nil
}

// mergePatch merges src over dst. Protobuf payloads follow proto.Merge;
// other payloads get the same shape through mergo: set fields override,
// slices append and maps merge by key.
func mergePatch(dst, src any) error {
	if dm, ok := dst.(proto.Message); ok {
		proto.Merge(dm, src.(proto.Message))
		return nil
	}
	return mergo.Merge(dst, src, mergo.WithOverride, mergo.WithAppendSlice)
}
