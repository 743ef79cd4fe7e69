package results

import (
	"regexp"
	"strconv"
	"strings"
)

// Status is the normalized two-state outcome of a spec.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// ErrorDetail is one recovered failure location, 0-based.
type ErrorDetail struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// TestResult is the normalized record for one spec, keyed by the runner's
// spec ID. Records are transient; each parse rebuilds them and later
// parses overwrite earlier entries with the same key.
type TestResult struct {
	Status  Status        `json:"status"`
	Summary string        `json:"summary"`
	Output  string        `json:"output,omitempty"`
	Errors  []ErrorDetail `json:"errors,omitempty"`
}

// Logger is the diagnostic sink the parser and streamer report to.
type Logger interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...interface{}) {}
func (noopLogger) Error(format string, args ...interface{}) {}

// Parse maps a report to normalized results keyed by spec ID. sourceFile is
// the test file the run was scoped to; its literal path anchors the
// error-location search in failure messages. output, when non-empty, is a
// reference to the captured process output attached to every record.
//
// A spec without a title makes the whole report unusable: Parse logs a
// diagnostic and returns an empty map rather than guessing at keys.
func Parse(report *Report, sourceFile string, output string, logger Logger) map[string]TestResult {
	if logger == nil {
		logger = noopLogger{}
	}
	if report == nil {
		return map[string]TestResult{}
	}

	locPattern := locationPattern(sourceFile)
	results := make(map[string]TestResult)

	for _, suite := range report.Suites {
		if !parseSuite(suite, locPattern, output, results, logger) {
			return map[string]TestResult{}
		}
	}
	return results
}

func parseSuite(suite Suite, locPattern *regexp.Regexp, output string, results map[string]TestResult, logger Logger) bool {
	for _, spec := range suite.Specs {
		if spec.Title == "" {
			logger.Error("results: spec %q in suite %q has no title, discarding report", spec.ID, suite.Name)
			return false
		}
		results[spec.ID] = specResult(spec, locPattern, output)
	}

	for _, nested := range suite.Suites {
		if !parseSuite(nested, locPattern, output, results, logger) {
			return false
		}
	}
	return true
}

func specResult(spec Spec, locPattern *regexp.Regexp, output string) TestResult {
	status := StatusFailed
	if spec.OK {
		status = StatusPassed
	}

	var summary strings.Builder
	summary.WriteString(spec.Title)
	summary.WriteString(": ")
	summary.WriteString(string(status))

	var errs []ErrorDetail
	for _, message := range spec.FailureMessages {
		cleaned := CleanANSI(message)
		summary.WriteString("\n")
		summary.WriteString(cleaned)
		errs = append(errs, ErrorDetail{
			Message: cleaned,
			Line:    errorLine(cleaned, locPattern, spec.Location),
			Column:  errorColumn(cleaned, locPattern),
		})
	}

	return TestResult{
		Status:  status,
		Summary: summary.String(),
		Output:  output,
		Errors:  errs,
	}
}

// locationPattern builds a search pattern for "<sourceFile>:line:column"
// occurrences inside failure text, with the literal path escaped.
func locationPattern(sourceFile string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(sourceFile) + `:(\d+):(\d+)`)
}

// errorLine recovers the 0-based failure line from the cleaned message,
// falling back to the spec's own reported location.
func errorLine(message string, locPattern *regexp.Regexp, loc Location) int {
	if m := locPattern.FindStringSubmatch(message); m != nil {
		line, _ := strconv.Atoi(m[1])
		return line - 1
	}
	return loc.Line - 1
}

// errorColumn recovers the 0-based failure column, defaulting to column 0.
func errorColumn(message string, locPattern *regexp.Regexp) int {
	if m := locPattern.FindStringSubmatch(message); m != nil {
		col, _ := strconv.Atoi(m[2])
		return col - 1
	}
	return 0
}
