package walk

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// Entry is a regular file found by a walk.
type Entry interface {
	// Path returns the file path prefixed with the name of its filesystem.
	Path() string
	// Name returns the base name of the file.
	Name() string
	Stat() (fs.FileInfo, error)
}

// Root is a convenience wrapper around Dir for os.Root. See Dir for details.
// Symlinks are resolved by the operating system, so a link may point outside
// of root.
func Root(ctx context.Context, root *os.Root) iter.Seq2[Entry, error] {
	return dir(ctx, root.FS(), root.Name(), func(name string) (fs.FileInfo, error) {
		return os.Stat(filepath.Join(root.Name(), name))
	})
}

// Dir lists the top level of root and returns a handle for every regular file,
// ordered by name. Subdirectories are not descended into. A symlink is
// returned when its target is a regular file, Stat then describes the target.
// A dangling symlink yields an error. An error yielded for an entry does not
// stop the iteration.
func Dir(ctx context.Context, root fs.FS, name string) iter.Seq2[Entry, error] {
	if root == nil {
		panic("root is nil")
	}
	return dir(ctx, root, name, func(n string) (fs.FileInfo, error) {
		return fs.Stat(root, n)
	})
}

func dir(ctx context.Context, root fs.FS, name string, stat func(string) (fs.FileInfo, error)) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		dirents, err := fs.ReadDir(root, ".")
		if err != nil {
			yield(nil, err)
			return
		}
		for _, d := range dirents {
			if ctx.Err() != nil {
				return
			}
			var entry = fsEntry{
				abspath: filepath.Join(name, d.Name()),
				name:    d.Name(),
			}
			info, err := d.Info()
			if err == nil && d.Type()&fs.ModeSymlink != 0 {
				info, err = stat(d.Name())
			}
			if err != nil {
				entry.infoErr = err
				if !yield(entry, err) {
					return
				}
				continue
			}
			if !info.Mode().IsRegular() {
				continue
			}
			entry.info = info
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// fsEntry implements Entry for a filesystem
type fsEntry struct {
	abspath string
	name    string
	info    fs.FileInfo
	infoErr error
}

// returns the absolute path to the file
func (e fsEntry) Path() string {
	return e.abspath
}

func (e fsEntry) Name() string {
	return e.name
}

func (e fsEntry) Stat() (fs.FileInfo, error) {
	return e.info, e.infoErr
}
