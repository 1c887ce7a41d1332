package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
)

func TestExitCode(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"success":     {nil, 0},
		"failure":     {errors.New("identify failed: process-error"), 1},
		"interrupted": {fmt.Errorf("watch: %w", context.Canceled), exitInterrupted},
	}
	for name, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("%s: exitCode = %d, want %d", name, got, tc.want)
		}
	}
}

func TestWriteJSONKeepsIdentifiersVerbatim(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := writeJSON(cmd, map[string]string{"identifier": "R&D <lab>"}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if got := buf.String(); got != "{\n  \"identifier\": \"R&D <lab>\"\n}\n" {
		t.Fatalf("unexpected JSON %q", got)
	}
}
