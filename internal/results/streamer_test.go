package results

import (
	"os"
	"path/filepath"
	"testing"
)

func tempResultsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("create results file: %v", err)
	}
	return path
}

func TestStreamer_PollBeforeValidJSON(t *testing.T) {
	path := tempResultsFile(t)
	s := NewStreamer(path, "a.spec.ts", nil)
	defer s.Stop()

	// Empty file, truncated JSON, junk: every poll returns empty, no panic.
	for _, content := range []string{"", `{"sui`, "not json at all"} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if got := s.Poll(); len(got) != 0 {
			t.Errorf("Poll() with content %q = %v, want empty", content, got)
		}
	}
}

func TestStreamer_PollWithoutSuitesKey(t *testing.T) {
	path := tempResultsFile(t)
	s := NewStreamer(path, "a.spec.ts", nil)
	defer s.Stop()

	if err := os.WriteFile(path, []byte(`{"config":{}}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := s.Poll(); len(got) != 0 {
		t.Errorf("Poll() without suites = %v, want empty", got)
	}
}

func TestStreamer_PollPicksUpResults(t *testing.T) {
	path := tempResultsFile(t)
	s := NewStreamer(path, "a.spec.ts", nil)
	defer s.Stop()

	if got := s.Poll(); len(got) != 0 {
		t.Fatalf("initial Poll() = %v, want empty", got)
	}

	report := `{"suites":[{"name":"a.spec.ts","specs":[
		{"id":"1","title":"t1","status":true,"location":{"line":5,"column":3},"failureMessages":[]}
	]}]}`
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := s.Poll()
	if len(got) != 1 {
		t.Fatalf("Poll() after write = %d results, want 1", len(got))
	}
	if got["1"].Status != StatusPassed {
		t.Errorf("Status = %q, want passed", got["1"].Status)
	}

	// Unchanged file returns the same batch.
	again := s.Poll()
	if len(again) != 1 {
		t.Errorf("repeat Poll() = %d results, want 1", len(again))
	}
}

func TestStreamer_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-created.json")
	s := NewStreamer(path, "a.spec.ts", nil)
	defer s.Stop()

	if got := s.Poll(); len(got) != 0 {
		t.Errorf("Poll() on missing file = %v, want empty", got)
	}
}

func TestStreamer_StopIdempotent(t *testing.T) {
	s := NewStreamer(tempResultsFile(t), "a.spec.ts", nil)

	// Stop twice without any poll; must not panic either time.
	s.Stop()
	s.Stop()

	// Polling after stop still degrades gracefully.
	if got := s.Poll(); len(got) != 0 {
		t.Errorf("Poll() after Stop = %v, want empty", got)
	}
}
