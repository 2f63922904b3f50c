package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

var ErrNonexistentPath = errors.New("path does not exist")

// ResolvePathStrict resolves p to an absolute, clean path and checks that it
// exists on fsys. Symlinks are followed only on the real filesystem.
func ResolvePathStrict(fsys afero.Fs, p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}
	clean := filepath.Clean(abs)

	if _, ok := fsys.(*afero.OsFs); ok {
		resolved, err := filepath.EvalSymlinks(clean)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", ErrNonexistentPath
			}
			return "", err
		}
		clean = resolved
	}

	if _, err := fsys.Stat(clean); err != nil {
		return "", ErrNonexistentPath
	}
	return clean, nil
}

// ResolveFolderStrict resolves p to a folder. A path to a file resolves to
// the folder that contains it.
func ResolveFolderStrict(fsys afero.Fs, p string) (dir string, file string, err error) {
	abs, err := ResolvePathStrict(fsys, p)
	if err != nil {
		return "", "", err
	}

	fi, err := fsys.Stat(abs)
	if err != nil {
		return "", "", err
	}
	if !fi.IsDir() {
		return filepath.Dir(abs), abs, nil
	}
	return abs, "", nil
}

// JoinRelative joins p onto base unless p is already absolute. "~" is
// expanded first.
func JoinRelative(base, p string) (string, error) {
	expanded, err := homedir.Expand(strings.TrimSpace(p))
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Join(base, expanded), nil
}
