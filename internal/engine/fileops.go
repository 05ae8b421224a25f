package engine

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stagehand-labs/stagehand/internal/manifest"
	"github.com/stagehand-labs/stagehand/internal/platform"
)

// shouldReplace decides whether an existing destination gets the source's
// content. skip-if-newer keeps identical files and files modified after the
// packaged copy.
func shouldReplace(policy manifest.OverwritePolicy, src, dst string, srcInfo, dstInfo os.FileInfo) (bool, error) {
	switch policy {
	case manifest.OverwriteAlways:
		return true, nil
	case manifest.OverwriteKeep:
		return false, nil
	}

	same, err := sameContent(src, dst, srcInfo, dstInfo)
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}
	return !dstInfo.ModTime().After(srcInfo.ModTime()), nil
}

func sameContent(a, b string, ai, bi os.FileInfo) (bool, error) {
	if ai.Size() != bi.Size() {
		return false, nil
	}
	da, err := digest(a)
	if err != nil {
		return false, err
	}
	db, err := digest(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}

func digest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// copyFile copies src to dst, preserving permissions and modification time.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	return n, platform.CopyAttrs(dst, info)
}

// stash moves path into the staging directory and returns where it went.
func stash(path, staging string, seq int) (string, error) {
	if err := os.MkdirAll(staging, 0755); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	backup := filepath.Join(staging, fmt.Sprintf("%04d-%s", seq, filepath.Base(path)))

	err := os.Rename(path, backup)
	if err == nil {
		return backup, nil
	}
	if platform.IsBusy(err) {
		return "", err
	}

	// Rename fails across filesystems; copy then remove.
	if _, cerr := copyFile(path, backup); cerr != nil {
		os.Remove(backup)
		return "", fmt.Errorf("backing up %s: %w", path, cerr)
	}
	if rerr := os.Remove(path); rerr != nil {
		os.Remove(backup)
		return "", rerr
	}
	return backup, nil
}

// restore puts a stashed file back at path, replacing whatever is there.
func restore(backup, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(backup, path); err != nil {
		if _, cerr := copyFile(backup, path); cerr != nil {
			return fmt.Errorf("restoring %s: %w (rename: %v)", path, cerr, err)
		}
		os.Remove(backup)
	}
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
