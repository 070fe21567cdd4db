package load

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/confhub/internal/codec"
	"github.com/zjrosen/confhub/internal/format"
)

// StoreMessage writes payload to <dir>/<name><ext(f)> and returns the path.
// The file is replaced atomically.
func StoreMessage(payload any, name, dir string, f format.Format) (string, error) {
	if !f.Loadable() {
		return "", newError(KindIllegalParam, name, "", "cannot store format %s", f)
	}
	c, err := codec.For(f)
	if err != nil {
		return "", &Error{Kind: KindIllegalParam, Name: name, Err: err}
	}
	data, err := c.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", name, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: output directory for table files
		return "", fmt.Errorf("creating directory: %w", err)
	}
	path := filepath.Join(dir, name+format.FormatExtension(f))

	temp, err := os.CreateTemp(dir, "."+name+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()
	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return path, nil
}
