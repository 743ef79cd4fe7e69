// Package resolve locates the Playwright binary and config file for a
// given source path by walking the directory tree upward, bounded by the
// version-control root.
package resolve

import (
	"os"
	"path/filepath"
	"runtime"
)

// RunnerName is the bare executable name used when no local install is
// found; the process-launch PATH lookup takes over in that case.
const RunnerName = "playwright"

var configNames = []string{"playwright.config.ts", "playwright.config.js"}

// FindVCSRoot returns the nearest ancestor of path containing a .git
// marker (directory or file, so worktrees count), or "" when none exists.
func FindVCSRoot(path string) string {
	for _, dir := range candidateDirs(path, "") {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
	}
	return ""
}

// Binary returns the path of the Playwright executable to invoke for the
// given source path. It walks the precomputed list of directories from the
// path up to the version-control root looking for
// <dir>/node_modules/.bin/playwright, and falls back to the bare runner
// name when the bound is reached without a hit.
func Binary(path string) string {
	root := FindVCSRoot(path)
	for _, dir := range candidateDirs(path, root) {
		bin := filepath.Join(dir, "node_modules", ".bin", RunnerName)
		if isExecutable(bin) {
			return bin
		}
	}
	return RunnerName
}

// Config returns the nearest ancestor playwright.config.(ts|js) for the
// given source path, preferring the .ts variant when a directory holds
// both. It returns "" when no ancestor up to the version-control root has
// a config; the caller decides on a default.
func Config(path string) string {
	root := FindVCSRoot(path)
	for _, dir := range candidateDirs(path, root) {
		for _, name := range configNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// candidateDirs precomputes the directories from path up to stop
// (inclusive). An empty stop bounds the walk at the filesystem root. The
// explicit list keeps the upward search iterative and its bound testable.
func candidateDirs(path string, stop string) []string {
	dir := path
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}

	var dirs []string
	for {
		dirs = append(dirs, dir)
		if dir == stop {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0111 != 0
}
