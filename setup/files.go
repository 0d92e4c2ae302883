package setup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CorrectFilename handles files synced from drives that hide extensions:
// when filename does not exist, has no extension, and exactly one sibling
// is named filename plus a single extension, that sibling is returned.
// Otherwise filename is returned unchanged.
func CorrectFilename(filename string) string {
	if _, err := os.Stat(filename); err == nil {
		return filename
	}
	dir, base := filepath.Split(filename)
	if strings.Contains(base, ".") {
		return filename
	}
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return filename
	}
	var cands []string
	for _, e := range entries {
		if strings.SplitN(e.Name(), ".", 2)[0] == base {
			cands = append(cands, e.Name())
		}
	}
	if len(cands) != 1 || strings.Count(cands[0], ".") != 1 {
		return filename
	}
	return filepath.Join(dir, cands[0])
}

// FileSource says where a setup file came from.
type FileSource int

const (
	FileMissing FileSource = iota
	FileExists
	FileCopied
)

func (s FileSource) String() string {
	switch s {
	case FileExists:
		return "file exists"
	case FileCopied:
		return "file was copied"
	default:
		return "file missing"
	}
}

// CheckSetupFile returns the path of dir/name and whether it is usable.
// A missing file is copied from fallback, when given, after passing the
// fallback through CorrectFilename.
func CheckSetupFile(dir, name, fallback string) (string, FileSource, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return path, FileExists, nil
	} else if !os.IsNotExist(err) {
		return path, FileMissing, err
	}
	if fallback == "" {
		return path, FileMissing, nil
	}
	fallback = CorrectFilename(fallback)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, FileMissing, fmt.Errorf("create setup dir: %w", err)
	}
	if err := copyFile(fallback, path); err != nil {
		return path, FileMissing, fmt.Errorf("copy %s: %w", fallback, err)
	}
	return path, FileCopied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
