package results

import (
	"encoding/json"
	"os"
)

// Collect performs the final parse of a results file after the run has
// ended. A missing file, a malformed report, and a report without suites
// are each logged and yield an empty map: the run produced nothing, the
// host stays alive.
func Collect(path, sourceFile, output string, logger Logger) map[string]TestResult {
	if logger == nil {
		logger = noopLogger{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("results: no results file at %s: %v", path, err)
		return map[string]TestResult{}
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		logger.Error("results: malformed report in %s: %v", path, err)
		return map[string]TestResult{}
	}
	if report.Suites == nil {
		logger.Error("results: report in %s has no suites", path)
		return map[string]TestResult{}
	}

	return Parse(&report, sourceFile, output, logger)
}
