package cachemanager

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileReader reads table files through a cache. Entries are keyed by path,
// size and modification time, so an edited file is read again even before
// its old entry expires.
type FileReader struct {
	cache    CacheManager[string, []byte]
	ttl      time.Duration
	readFile func(path string) ([]byte, error)
}

// NewFileReader returns a reader caching file contents in cache for ttl.
func NewFileReader(cache CacheManager[string, []byte], ttl time.Duration) *FileReader {
	return &FileReader{cache: cache, ttl: ttl, readFile: os.ReadFile}
}

// Read has the signature of load.ReadFunc. The returned slice is shared
// with the cache and must not be modified. Failed reads are not cached.
func (r *FileReader) Read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	ctx := context.Background()
	key := fileKey(path, info)
	if data, ok := r.cache.Get(ctx, key); ok {
		return data, nil
	}
	data, err := r.readFile(path)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, key, data, r.ttl)
	return data, nil
}

// Flush drops every cached file.
func (r *FileReader) Flush() error {
	return r.cache.Flush(context.Background())
}

func fileKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
}
