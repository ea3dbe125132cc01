package suite

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IsSuiteFile reports whether name looks like a suite file.
func IsSuiteFile(name string) bool {
	base := filepath.Base(name)
	return base == "webmatch.yaml" || base == "webmatch.yml" ||
		strings.HasSuffix(base, ".webmatch.yaml") || strings.HasSuffix(base, ".webmatch.yml")
}

// Collect expands the given files and directories into a sorted list of
// suite files. Files named explicitly are taken whatever their name.
func Collect(paths ...string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && path != p && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !d.IsDir() && IsSuiteFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}
