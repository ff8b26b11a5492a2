// Package fileops implements copy, move, rename, create, and delete as
// cancellable operations. Long transfers check their context between
// chunks so a cancel takes effect within one chunk of I/O.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// copyChunk is the unit of transfer between cancellation checks.
const copyChunk = 1 << 20

// ErrExists is returned when a destination already exists; operations
// never overwrite silently.
var ErrExists = errors.New("fileops: destination already exists")

// ProgressFunc receives cumulative transfer progress. total is 0 while
// the total is still being computed.
type ProgressFunc func(copied, total int64)

// Copy copies src (file or directory tree) to dst, reporting progress.
// Cancellation returns ctx.Err() with the partial destination left for
// the caller to surface; it is not treated as a failure here.
func Copy(ctx context.Context, src, dst string, progress ProgressFunc) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, dst)
	}
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	total, err := treeSize(ctx, src, info)
	if err != nil {
		return err
	}

	var copied int64
	report := func() {
		if progress != nil {
			progress(copied, total)
		}
	}
	report()

	if info.IsDir() {
		err = copyTree(ctx, src, dst, &copied, report)
	} else {
		err = copyFile(ctx, src, dst, info, &copied, report)
	}
	if err != nil {
		return err
	}
	report()
	return nil
}

// Move renames src to dst, falling back to copy-then-delete across
// devices.
func Move(ctx context.Context, src, dst string, progress ProgressFunc) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, dst)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		return err
	}
	if err := Copy(ctx, src, dst, progress); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// Rename renames the entry name inside dir to newName and returns the new
// path. The new name must be a bare name, not a path.
func Rename(dir, name, newName string) (string, error) {
	if newName == "" || strings.ContainsRune(newName, os.PathSeparator) {
		return "", fmt.Errorf("fileops: invalid name %q", newName)
	}
	oldPath := filepath.Join(dir, name)
	newPath := filepath.Join(dir, newName)
	if _, err := os.Lstat(newPath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, newPath)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", err
	}
	return newPath, nil
}

// CreateFile creates an empty file named name in dir.
func CreateFile(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
		return "", err
	}
	return path, f.Close()
}

// CreateDir creates a directory named name in dir.
func CreateDir(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
		return "", err
	}
	return path, nil
}

// Delete removes path and, for directories, everything beneath it.
func Delete(path string) error {
	return os.RemoveAll(path)
}

func copyTree(ctx context.Context, src, dst string, copied *int64, report func()) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyTree(ctx, s, d, copied, report); err != nil {
				return err
			}
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(s)
			if err != nil {
				return err
			}
			if err := os.Symlink(target, d); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(ctx, s, d, fi, copied, report); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(ctx context.Context, src, dst string, info os.FileInfo, copied *int64, report func()) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	buf := make([]byte, copyChunk)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			*copied += int64(n)
			report()
		}
		if rerr == io.EOF {
			return out.Sync()
		}
		if rerr != nil {
			return rerr
		}
	}
}

// treeSize totals the regular-file bytes under src for progress
// reporting. Unreadable children are skipped; they fail later, per file,
// where the error can be attributed.
func treeSize(ctx context.Context, src string, info os.FileInfo) (int64, error) {
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.Type().IsRegular() {
			if fi, err := d.Info(); err == nil {
				total += fi.Size()
			}
		}
		return nil
	})
	return total, err
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, syscall.EXDEV)
}
