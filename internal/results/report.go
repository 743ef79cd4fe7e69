// Package results decodes the Playwright JSON reporter output and maps it
// into normalized per-test result records, both mid-run (tolerant
// streaming) and at final collection.
package results

import (
	"bytes"
	"encoding/json"
)

// Report is the root of the runner's JSON report.
type Report struct {
	Suites []Suite `json:"suites"`
}

// Suite groups the specs of one source file. Reporters may nest suites for
// describe blocks.
type Suite struct {
	Name   string  `json:"name"`
	Specs  []Spec  `json:"specs"`
	Suites []Suite `json:"suites,omitempty"`
}

// Spec is a single test entry in the report.
type Spec struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	OK              OKFlag   `json:"status"`
	Location        Location `json:"location"`
	FailureMessages []string `json:"failureMessages"`
}

// Location is the 1-based source position the runner reports for a spec.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// OKFlag is the bool-like status field of a spec. The wire value has been
// observed as a bare bool, but the decoder also accepts status strings and
// numbers so a richer future schema lands in one place.
type OKFlag bool

// UnmarshalJSON implements tolerant decoding of bool-like values.
func (f *OKFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = OKFlag(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "passed", "expected", "ok", "true":
			*f = true
		default:
			*f = false
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = n != 0
		return nil
	}

	// null or any unrecognized shape counts as not-ok
	*f = false
	return nil
}
