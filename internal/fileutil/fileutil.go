package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, creating the parent directory when needed.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// StreamResult describes a completed WriteStreamAtomic call.
type StreamResult struct {
	Bytes  int64
	SHA256 string
}

// WriteStreamAtomic copies r into path through a temp file. Nothing is left
// at path when the copy fails or yields zero bytes.
func WriteStreamAtomic(path string, r io.Reader, mode os.FileMode) (StreamResult, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return StreamResult{}, fmt.Errorf("create directory: %w", err)
	}
	tmpPath := path + ".tmp"
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return StreamResult{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, hasher), r)
	if err != nil {
		_ = os.Remove(tmpPath)
		return StreamResult{}, fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return StreamResult{}, fmt.Errorf("close temp file: %w", err)
	}
	if written == 0 {
		_ = os.Remove(tmpPath)
		return StreamResult{}, fmt.Errorf("copy: no data written")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return StreamResult{}, fmt.Errorf("rename temp file: %w", err)
	}
	return StreamResult{Bytes: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
