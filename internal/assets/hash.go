package assets

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"lukechampine.com/blake3"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 32

// HashContent computes the content key of an asset:
// hex(blake3(base64(data) + ext))[:32].
// The remote verifies keys with the same transform, so it must not change.
func HashContent(data []byte, ext string) string {
	h := blake3.New(32, nil)
	enc := base64.NewEncoder(base64.StdEncoding, h)
	enc.Write(data)
	enc.Close()
	io.WriteString(h, ext)
	return hex.EncodeToString(h.Sum(nil))[:HashLength]
}

// HashFile streams the file through the same transform as HashContent.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := blake3.New(32, nil)
	enc := base64.NewEncoder(base64.StdEncoding, h)
	if _, err := io.Copy(enc, file); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	io.WriteString(h, Extension(path))
	return hex.EncodeToString(h.Sum(nil))[:HashLength], nil
}

// Extension returns the extension without its dot. Dotfiles such as
// ".htaccess" have none.
func Extension(path string) string {
	base := filepath.Base(path)
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx+1:]
}

// HashFiles fills in Hash for every file, reading several files at once.
func HashFiles(ctx context.Context, files []*AssetFile) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())

	for _, f := range files {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			hash, err := HashFile(f.Path)
			if err != nil {
				return &FilesystemError{Op: "hash", Path: f.Path, Err: err}
			}
			f.Hash = hash
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
