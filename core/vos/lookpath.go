package vos

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is the error resulting if a path search failed to find a file.
	ErrNotFound = errors.New("command not found")
	// ErrIsDirectory is returned when the first match is a directory.
	ErrIsDirectory = errors.New("is a directory")
	// ErrNotExecutable is returned when the first match isn't executable.
	ErrNotExecutable = errors.New("permission denied")
)

// LookupError is returned by LookPath.
type LookupError struct {
	Name string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// PathEnv is what LookPath needs to search for a program.
type PathEnv interface {
	Stat(name string) (fs.FileInfo, error)
	Getenv(key string) string
	Getwd() (string, error)
}

// LookPath searches for an executable named file. The working directory is
// searched first, then each directory of the PATH environment variable. In
// each directory the bare name is tried and then the name with each of the
// extensions. If file contains a slash, it's tried directly.
//
// The first existing candidate decides the outcome: directories fail with
// ErrIsDirectory and non-executable files with ErrNotExecutable. Files
// carrying one of the extensions don't need to be executable. The result is
// always an absolute path.
func LookPath(env PathEnv, file string, exts ...string) (string, error) {
	wd, err := env.Getwd()
	if err != nil {
		return "", &LookupError{Name: file, Err: err}
	}

	var dirs []string
	if strings.Contains(file, "/") {
		dirs = []string{wd}
	} else {
		dirs = append(dirs, wd)
		for _, dir := range filepath.SplitList(env.Getenv("PATH")) {
			if dir == "" {
				// Unix shell semantics: path element "" means "."
				dir = "."
			}
			dirs = append(dirs, Resolve(wd, dir))
		}
	}

	for _, dir := range dirs {
		candidates := []string{file}
		for _, ext := range exts {
			if ext != "" && !strings.HasSuffix(file, ext) {
				candidates = append(candidates, file+ext)
			}
		}

		for _, candidate := range candidates {
			full := Resolve(dir, candidate)
			found, err := checkCandidate(env, full, exts)
			if !found {
				continue
			}
			if err != nil {
				return "", &LookupError{Name: file, Err: err}
			}
			return full, nil
		}
	}

	return "", &LookupError{Name: file, Err: ErrNotFound}
}

func checkCandidate(env PathEnv, name string, exts []string) (bool, error) {
	stat, err := env.Stat(name)
	switch {
	case err != nil:
		// Missing files and unreadable parents don't stop the search.
		return false, nil
	case stat.IsDir():
		return true, ErrIsDirectory
	case stat.Mode()&0111 != 0:
		return true, nil
	}

	for _, ext := range exts {
		if ext != "" && path.Ext(name) == ext {
			return true, nil
		}
	}
	return true, ErrNotExecutable
}
