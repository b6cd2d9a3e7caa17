// Package fsio implements the atomic write / backup / safe-load primitives
// every document-backed component in the kernel builds on: write-to-temp,
// fsync, then rename, with a timestamped backup on overwrite.
package fsio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// AtomicWrite writes data to path by creating a temp file in the same
// directory, fsyncing it, then renaming it over the destination. It never
// leaves a temp file behind on success, and removes it on failure (§4.3).
func AtomicWrite(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return store.WrapError(store.KindWriteFailed, path, fmt.Errorf("create dir %s: %w", dir, err))
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return store.WrapError(store.KindWriteFailed, path, err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return store.WrapError(store.KindWriteFailed, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return store.WrapError(store.KindWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return store.WrapError(store.KindWriteFailed, path, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return store.WrapError(store.KindWriteFailed, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return store.WrapError(store.KindWriteFailed, path, err)
	}
	cleanup = false
	return nil
}

// CreateBackup copies the existing file at path to a timestamped sibling
// before an overwrite. Backup failure is non-fatal — it is logged and
// swallowed, never surfaced as an error to the caller (§4.3).
func CreateBackup(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("fsio: backup read failed", "path", path, "error", err)
		}
		return
	}

	backupPath := path + "." + time.Now().UTC().Format("20060102T150405Z") + ".bak"
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		slog.Warn("fsio: backup write failed", "path", path, "backup", backupPath, "error", err)
	}
}

// Validator reports whether content read back from disk is well-formed.
type Validator func(content []byte) error

// SafeLoad reads path; if missing it returns NOT_FOUND. If validator rejects
// the content, it searches for the most recent backup sibling and
// substitutes it, re-validating; if no usable backup exists, it returns
// CORRUPTED (§4.3).
func SafeLoad(path string, validator Validator) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, store.NewError(store.KindNotFound, path, "file not found: %s", path)
	}
	if err != nil {
		return nil, store.WrapError(store.KindWriteFailed, path, err)
	}

	if validator == nil || validator(data) == nil {
		return data, nil
	}

	backupPath, berr := latestBackup(path)
	if berr != nil {
		return nil, store.NewError(store.KindCorrupted, path, "corrupted and no backup available: %s", path)
	}

	backupData, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, store.NewError(store.KindCorrupted, path, "corrupted and backup unreadable: %s", path)
	}
	if validator(backupData) != nil {
		return nil, store.NewError(store.KindCorrupted, path, "corrupted and latest backup also invalid: %s", path)
	}

	slog.Warn("fsio: recovered from backup", "path", path, "backup", backupPath)
	return backupData, nil
}

func latestBackup(path string) (string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) <= len(base)+1 || name[:len(base)+1] != base+"." || filepath.Ext(name) != ".bak" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = name
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", os.ErrNotExist
	}
	return filepath.Join(dir, newest), nil
}
