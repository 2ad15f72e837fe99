package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// File is the on-disk save: the world snapshot plus a host-owned seed and
// opaque state blob, all under one version tag.
type File struct {
	Version uint8  `json:"version"`
	Seed    uint32 `json:"seed"`
	World   Data   `json:"world"`
	State   []byte `json:"state"`
}

func marshalFile(f *File) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalFile(raw []byte) (*File, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// WriteFile encodes f and atomically replaces path with it: the bytes go to a
// temporary file in the same directory, which is then renamed into place.
// Parent directories are created as needed. Returns the file size.
func WriteFile(path string, f *File) (int64, error) {
	raw, err := marshalFile(f)
	if err != nil {
		return 0, fmt.Errorf("encode save file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: create directory %s: %w", ErrIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp file: %w", ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: write %s: %w", ErrIO, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: sync %s: %w", ErrIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: close %s: %w", ErrIO, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("%w: rename into %s: %w", ErrIO, path, err)
	}
	return int64(len(raw)), nil
}

// ReadFile reads, decodes and version-checks a save file. The state blob is
// returned as stored; callers decide when to validate it.
func ReadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	f, err := unmarshalFile(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("%w: save file version %d", ErrUnsupportedVersion, f.Version)
	}
	if err := f.World.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
