package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideLibrary is returned for local paths that resolve outside the
// library directory
var ErrOutsideLibrary = errors.New("path is outside the library")

// IsRemote reports whether src is an http(s) URL
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// ResolveLocalAsset turns a local asset path into an absolute path with
// symlinks evaluated. Relative paths are taken from the library root. The
// result must stay inside the library root.
func (s *Storage) ResolveLocalAsset(src string) (string, error) {
	if src == "" || IsRemote(src) || strings.HasPrefix(src, "data:") {
		return "", fmt.Errorf("%q is not a local path", src)
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(s.rootPath, src)
	}
	absRoot, err := filepath.Abs(s.rootPath)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", err
	}
	// reject before touching the file so outside paths never reveal whether they exist
	if !within(absRoot, abs) {
		return "", fmt.Errorf("%s: %w", src, ErrOutsideLibrary)
	}

	root, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}
	path, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if !within(root, path) {
		return "", fmt.Errorf("%s: %w", src, ErrOutsideLibrary)
	}
	return path, nil
}

// InImagesDir reports whether a resolved path lies in the images directory
func (s *Storage) InImagesDir(path string) bool {
	dir, err := resolvePath(s.ImagesDir())
	return err == nil && within(dir, path)
}

func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
