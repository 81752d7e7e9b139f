package assets

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/openmined/pagesync/internal/utils"
)

// Scanner enumerates the deployable files under a root directory.
type Scanner struct {
	root   string
	ignore *IgnoreList
	limits Limits
}

func NewScanner(root string, ignore *IgnoreList, limits Limits) *Scanner {
	return &Scanner{root: root, ignore: ignore, limits: limits.withDefaults()}
}

// Scan walks the root and returns every eligible regular file in lexical
// order. Symlinks are skipped without being followed. The first file
// over the size limit aborts the whole scan.
func (s *Scanner) Scan() ([]*AssetFile, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, &FilesystemError{Op: "stat", Path: s.root, Err: err}
	}
	if !info.IsDir() {
		return nil, &FilesystemError{Op: "stat", Path: s.root, Err: ErrNotDirectory}
	}

	// the root itself may be a link, its contents are never followed
	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return nil, &FilesystemError{Op: "resolve", Path: s.root, Err: err}
	}

	var files []*AssetFile
	var totalSize int64

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &FilesystemError{Op: "read", Path: path, Err: err}
		}
		if path == root {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return &FilesystemError{Op: "rel", Path: path, Err: err}
		}

		if s.ignore != nil && s.ignore.ShouldIgnore(relPath) {
			slog.Debug("assets", "op", "scan", "status", "ignored", "path", relPath)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return &FilesystemError{Op: "stat", Path: path, Err: err}
		}
		if fi.Size() > s.limits.MaxAssetSize {
			return &AssetTooLargeError{Path: relPath, Size: fi.Size(), Limit: s.limits.MaxAssetSize}
		}

		files = append(files, &AssetFile{
			Path:        path,
			URL:         "/" + filepath.ToSlash(relPath),
			ContentType: utils.DetectContentType(d.Name()),
			Size:        fi.Size(),
		})
		totalSize += fi.Size()
		return nil
	})
	if err != nil {
		var fsErr *FilesystemError
		var sizeErr *AssetTooLargeError
		if errors.As(err, &fsErr) || errors.As(err, &sizeErr) {
			return nil, err
		}
		return nil, &FilesystemError{Op: "walk", Path: root, Err: err}
	}

	slog.Info("assets", "op", "scan", "root", s.root, "files", len(files), "size", humanize.Bytes(uint64(totalSize)))
	return files, nil
}
