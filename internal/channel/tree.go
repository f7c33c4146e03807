package channel

import (
	"context"
	"fmt"
	"io/fs"

	"golang.org/x/sync/errgroup"
)

// probeResult is the outcome of checking whether a destination directory exists.
type probeResult int

const (
	probeAbsent probeResult = iota
	probeExists
	// probeIndeterminate covers stat failures other than not-exist and
	// non-directory entries. It is handled like probeAbsent: the mkdir that
	// follows either succeeds or reports the real problem.
	probeIndeterminate
)

func (p probeResult) String() string {
	switch p {
	case probeExists:
		return "exists"
	case probeAbsent:
		return "absent"
	default:
		return "indeterminate"
	}
}

// probeFromStat classifies a stat result.
func probeFromStat(info fs.FileInfo, err error, isNotExist func(error) bool) probeResult {
	switch {
	case err == nil && info.IsDir():
		return probeExists
	case err != nil && isNotExist(err):
		return probeAbsent
	default:
		return probeIndeterminate
	}
}

// treeEntry is one child of a source directory.
type treeEntry struct {
	name  string
	isDir bool
}

// mirror copies a directory tree from a source side to a destination side.
// Files within one directory are copied concurrently, subdirectories in order.
type mirror struct {
	list       func(dir string) ([]treeEntry, error)
	joinSource func(elem ...string) string
	joinDest   func(dir, name string) (string, error)
	probe      func(dir string) probeResult
	mkdir      func(dir string) error
	copyFile   func(ctx context.Context, src, dstDir string) error
	parallel   int
}

// run mirrors src into dst. The first failure stops the walk; entries copied
// before it are left in place.
func (m *mirror) run(ctx context.Context, src, dst string) error {
	if m.probe(dst) != probeExists {
		if err := m.mkdir(dst); err != nil {
			return fmt.Errorf("create directory %s: %w", dst, err)
		}
	}

	entries, err := m.list(src)
	if err != nil {
		return fmt.Errorf("list directory %s: %w", src, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if m.parallel > 0 {
		g.SetLimit(m.parallel)
	}
	var dirs []treeEntry
	for _, e := range entries {
		if e.isDir {
			dirs = append(dirs, e)
			continue
		}
		path := m.joinSource(src, e.name)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return m.copyFile(gctx, path, dst)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		child, err := m.joinDest(dst, d.name)
		if err != nil {
			return err
		}
		if err := m.run(ctx, m.joinSource(src, d.name), child); err != nil {
			return err
		}
	}
	return nil
}

func entriesFromDir(des []fs.DirEntry) []treeEntry {
	out := make([]treeEntry, len(des))
	for i, de := range des {
		out[i] = treeEntry{name: de.Name(), isDir: de.IsDir()}
	}
	return out
}

func entriesFromInfo(infos []fs.FileInfo) []treeEntry {
	out := make([]treeEntry, len(infos))
	for i, fi := range infos {
		out[i] = treeEntry{name: fi.Name(), isDir: fi.IsDir()}
	}
	return out
}
