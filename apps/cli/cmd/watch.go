package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/webmatch/packages/suite"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

// watchRelevant reports whether a change to name should trigger a re-run.
// Schema files count, since match_json_schema reads them on every run.
func watchRelevant(name string) bool {
	return suite.IsSuiteFile(name) || strings.EqualFold(filepath.Ext(name), ".json")
}

// watchDirs returns every directory that holds an argument or lives under one.
func watchDirs(args []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			add(filepath.Dir(arg))
			continue
		}
		_ = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				add(path)
			}
			return nil
		})
	}
	return dirs
}

// watch re-runs the suites whenever a suite or schema file is written, until
// ctx is cancelled.
func (s *session) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range watchDirs(s.args) {
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("watching directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	out := s.cmd.OutOrStdout()
	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Debounce rapid saves into one run.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	var changed string

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !watchRelevant(event.Name) {
				continue
			}
			changed = event.Name
			debounce.Reset(WatchDebounceDelay)

		case <-debounce.C:
			fmt.Fprintf(out, "\n\nFile changed: %s\nRe-running checks...\n\n", changed)

			files, err := suite.Collect(s.args...)
			if err != nil {
				fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: %v\n", err)
				continue
			}
			if _, err := s.runOnce(ctx, files); err != nil {
				fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: %v\n", err)
			}

			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
