package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/model-catalog/internal/visibility"
)

func TestRootCmd_Text(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	got := out.String()
	for _, line := range []string{"Original models: 6", "Filtered models: 3", "Test passed: true"} {
		if !strings.Contains(got, line) {
			t.Errorf("output missing %q:\n%s", line, got)
		}
	}
}

func TestRootCmd_JSON(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"--format", "json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var report visibility.CheckReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("Unmarshal() error = %v, body = %s", err, out.String())
	}
	if !report.Passed || report.Filtered != 3 || report.Original != 6 {
		t.Errorf("report = %+v, want passed with 3 of 6", report)
	}
}

func TestRootCmd_RejectsArgsAndFormat(t *testing.T) {
	for _, args := range [][]string{{"extra"}, {"--format", "yaml"}} {
		var out, errOut bytes.Buffer
		cmd := newRootCmd(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err == nil {
			t.Errorf("Execute(%v) error = nil, want error", args)
		}
	}
}

// TestRunCheck_LogsCountsAtInfo verifies the summary line is emitted at the default log level.
func TestRunCheck_LogsCountsAtInfo(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var out bytes.Buffer
	if err := runCheck(&out, "text", zap.New(core)); err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
	entries := logs.FilterMessage("filter check complete").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["original"] != int64(6) || fields["filtered"] != int64(3) || fields["passed"] != true {
		t.Errorf("fields = %v, want original=6 filtered=3 passed=true", fields)
	}
}
