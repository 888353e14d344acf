package archive

import (
	"io/fs"
	"os"
	"path/filepath"

	"packedit/internal/errors"
	"packedit/internal/log"
	"packedit/pkg/types"

	"github.com/dchest/safefile"
)

// Detector classifies entries by path, then by content
type Detector interface {
	DetectContent(p types.Path, data []byte) types.PackedFileType
}

// LoadDir builds an archive from an unpacked PackFile folder: every regular
// file below root becomes one entry named by its relative path.
func LoadDir(root string, detector Detector) (*Archive, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.NewEntryError("cannot open archive folder", root, errors.FileOperationFailed, err)
	}
	if !info.IsDir() {
		return nil, errors.NewEntryError("archive source is not a folder", root, errors.FileOperationFailed, nil)
	}

	a := New(filepath.Base(root))
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		p := types.ParsePath(filepath.ToSlash(rel))
		_, err = a.Put(p, detector.DetectContent(p, data), data)
		return err
	})
	if err != nil {
		return nil, errors.NewEntryError("cannot load archive folder", root, errors.FileOperationFailed, err)
	}

	log.LogWithFields(log.F("folder", root), log.F("entries", a.Len())).Info("Archive loaded")
	return a, nil
}

// DiskPath maps an entry path below dir
func DiskPath(dir string, p types.Path) string {
	return filepath.Join(append([]string{dir}, p...)...)
}

// WriteEntry writes one entry below dir. The file is replaced atomically:
// readers see either the old file or the new one.
func WriteEntry(dir string, e *Entry) error {
	for _, seg := range e.Path {
		if seg == ".." {
			return errors.NewEntryError("path escapes extraction folder", e.Path.String(), errors.FileOperationFailed, nil)
		}
	}
	target := DiskPath(dir, e.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.NewEntryError("cannot create folder", e.Path.String(), errors.FileOperationFailed, err)
	}

	f, err := safefile.Create(target, 0644)
	if err != nil {
		return errors.NewEntryError("cannot create file", e.Path.String(), errors.FileOperationFailed, err)
	}
	defer f.Close()

	if _, err := f.Write(e.Data); err != nil {
		return errors.NewEntryError("cannot write file", e.Path.String(), errors.FileOperationFailed, err)
	}
	if err := f.Commit(); err != nil {
		return errors.NewEntryError("cannot commit file", e.Path.String(), errors.FileOperationFailed, err)
	}
	return nil
}

// Extract writes the entries at paths below dir, or every entry when paths is
// empty. It stops at the first failure and returns the entries written so
// far.
func (a *Archive) Extract(dir string, paths []types.Path) ([]types.EntryInfo, error) {
	if len(paths) == 0 {
		for _, info := range a.List() {
			paths = append(paths, info.Path)
		}
	}

	written := make([]types.EntryInfo, 0, len(paths))
	for _, p := range paths {
		e, ok := a.Get(p)
		if !ok {
			return written, errors.NewEntryError("entry not found", p.String(), errors.NotFound, nil)
		}
		if err := WriteEntry(dir, e); err != nil {
			return written, err
		}
		written = append(written, e.Info())
	}
	return written, nil
}
