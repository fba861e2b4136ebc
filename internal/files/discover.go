// Package files discovers input data files.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNoSuchRoot is returned when the directory to search does not exist.
var ErrNoSuchRoot = errors.New("data root does not exist")

// Pattern matches the data files collected by Discover.
const Pattern = "*.json"

// Discover walks root recursively and returns the absolute paths of all
// files matching Pattern, in lexical order. Hidden files are not matched.
// An empty root is rejected rather than resolved to the working directory.
func Discover(fs afero.Fs, root string) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: no data root configured", ErrNoSuchRoot)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	info, err := fs.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchRoot, abs)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoSuchRoot, abs)
	}

	var found []string
	err = afero.Walk(fs, abs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !matches(info.Name()) {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", abs, err)
	}
	return found, nil
}

func matches(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ok, _ := filepath.Match(Pattern, name)
	return ok
}
