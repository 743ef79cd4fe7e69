package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers indicates that Scan should use GOMAXPROCS workers.
const DefaultWorkers = 0

// defaultSkipDirs are directory names never worth descending into, beyond
// the node_modules exclusion enforced by ShouldScanDir.
var defaultSkipDirs = map[string]bool{
	".git":     true,
	"dist":     true,
	"coverage": true,
	".cache":   true,
}

// ErrInvalidRoot is returned when the scan root does not exist or is not a
// directory.
var ErrInvalidRoot = errors.New("discovery: scan root is not a directory")

// ScanError is a non-fatal per-file failure collected during a scan.
type ScanError struct {
	Path string
	Err  error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ScanResult holds the position trees of every test file under the root,
// plus any per-file errors encountered along the way.
type ScanResult struct {
	Positions []*Position
	Errors    []ScanError
}

// ScanOptions configures Scan.
type ScanOptions struct {
	// Patterns filters test files by doublestar glob patterns relative to
	// the scan root. Empty means every classifier match is in.
	Patterns []string
	// Workers caps parallel file parsing. <=0 means GOMAXPROCS.
	Workers int
}

// ScanOption is a functional option for Scan.
type ScanOption func(*ScanOptions)

// WithPatterns filters scanned files by glob patterns.
func WithPatterns(patterns []string) ScanOption {
	return func(o *ScanOptions) { o.Patterns = patterns }
}

// WithWorkers sets the parallel parse worker count.
func WithWorkers(n int) ScanOption {
	return func(o *ScanOptions) { o.Workers = n }
}

// Scan walks root for test files and discovers the positions in each one in
// parallel. Individual files that fail to parse are reported in
// ScanResult.Errors; the scan itself only fails for an invalid root or a
// cancelled context.
func Scan(ctx context.Context, root string, opts ...ScanOption) (*ScanResult, error) {
	options := &ScanOptions{Workers: DefaultWorkers}
	for _, opt := range opts {
		opt(options)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, ErrInvalidRoot
	}

	files, walkErrs := detectTestFiles(ctx, root, options.Patterns)

	result := &ScanResult{Errors: walkErrs}
	if len(files) == 0 {
		return result, ctx.Err()
	}

	workers := options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	positions, parseErrs := discoverParallel(ctx, files, workers)
	result.Positions = positions
	result.Errors = append(result.Errors, parseErrs...)

	return result, ctx.Err()
}

func detectTestFiles(ctx context.Context, root string, patterns []string) ([]string, []ScanError) {
	var files []string
	var errs []ScanError

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			errs = append(errs, ScanError{Path: path, Err: walkErr})
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := filepath.Base(path)
			if !ShouldScanDir(name) || defaultSkipDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsTestFile(path) {
			return nil
		}

		if len(patterns) > 0 && !matchesAnyPattern(path, root, patterns) {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, errs
}

func discoverParallel(ctx context.Context, files []string, workers int) ([]*Position, []ScanError) {
	sem := semaphore.NewWeighted(int64(workers))
	g, gCtx := errgroup.WithContext(ctx)

	var (
		mu        sync.Mutex
		positions = make([]*Position, 0, len(files))
		errs      []ScanError
	)

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return nil // Context cancelled
			}
			defer sem.Release(1)

			pos, err := Discover(file)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, ScanError{Path: file, Err: err})
				return nil // Continue with other files
			}
			if pos != nil {
				positions = append(positions, pos)
			}
			return nil
		})
	}

	_ = g.Wait() // Failures are collected in errs

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Path < positions[j].Path
	})

	return positions, errs
}

func matchesAnyPattern(path, root string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			continue // Invalid pattern syntax
		}
		if matched {
			return true
		}
	}
	return false
}
