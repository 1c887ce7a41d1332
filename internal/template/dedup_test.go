package template_test

import (
	"strings"
	"testing"

	"fingergate/internal/template"
)

func mustParse(t *testing.T, text string) template.Template {
	t.Helper()
	tpl, err := template.Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tpl
}

func TestDeduplicatorDiscardsRepeatedProbe(t *testing.T) {
	x := mustParse(t, strings.Repeat("X", 120))
	y := mustParse(t, strings.Repeat("Y", 120))

	var d template.Deduplicator
	got := []bool{d.Accept(x), d.Accept(x), d.Accept(y)}
	want := []bool{true, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("probe %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDeduplicatorAcceptsAlternatingProbes(t *testing.T) {
	x := mustParse(t, strings.Repeat("X", 120))
	y := mustParse(t, strings.Repeat("Y", 120))

	var d template.Deduplicator
	for i, tpl := range []template.Template{x, y, x} {
		if !d.Accept(tpl) {
			t.Fatalf("probe %d unexpectedly discarded", i)
		}
	}
}

func TestDeduplicatorReset(t *testing.T) {
	x := mustParse(t, strings.Repeat("X", 120))

	var d template.Deduplicator
	d.Accept(x)
	d.Reset()
	if !d.Accept(x) {
		t.Fatal("expected probe to be accepted after reset")
	}
}
