package discovery

import (
	"path/filepath"
	"regexp"
	"strings"
)

// testFilePattern matches basenames like foo.spec.ts, foo.e2e-test.js,
// bar.test.coffee.
var testFilePattern = regexp.MustCompile(`(spec|test)\.(js|jsx|coffee|ts|tsx)$`)

const testsDir = "__tests__"

// IsTestFile reports whether path looks like a Playwright test file: either
// it lives under a __tests__ directory or its basename ends in
// (spec|test).(js|jsx|coffee|ts|tsx).
func IsTestFile(path string) bool {
	if path == "" {
		return false
	}

	if hasTestsDirSegment(path) {
		return true
	}

	return testFilePattern.MatchString(filepath.Base(path))
}

// ShouldScanDir reports whether a directory entry should be descended into
// while looking for test files. Pure string check, no I/O.
func ShouldScanDir(name string) bool {
	return name != "node_modules"
}

func hasTestsDirSegment(path string) bool {
	normalized := filepath.ToSlash(path)
	for _, part := range strings.Split(normalized, "/") {
		if part == testsDir {
			return true
		}
	}
	return false
}
