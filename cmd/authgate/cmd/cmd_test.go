package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		if _, err := newLogger(level); err != nil {
			t.Fatalf("%s: unexpected error %v", level, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoadtestCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"loadtest", "--services", "4", "--ops", "40", "--concurrency", "1"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("loadtest failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "handshake: ops=40 failures=0") || !strings.Contains(got, "verify: ops=40 failures=0") {
		t.Fatalf("unexpected output:\n%s", got)
	}
	for _, want := range []string{"event challenge_issued=40", "event token_issued=40", "event bearer_apikey_success=40"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in output:\n%s", want, got)
		}
	}
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %d", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %d", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %d", got)
	}
}
