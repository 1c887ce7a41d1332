package testsupport

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"fingergate/internal/config"
	"fingergate/internal/store"
	"fingergate/internal/template"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// Template builds a deterministic valid template from seed.
func Template(t testing.TB, seed string) template.Template {
	t.Helper()

	if seed == "" {
		seed = "seed"
	}
	raw := strings.Repeat(seed+"|", 120/(len(seed)+1)+1)
	tpl, err := template.Parse(base64.StdEncoding.EncodeToString([]byte(raw)))
	if err != nil {
		t.Fatalf("build template from %q: %v", seed, err)
	}
	return tpl
}

// MustEnroll inserts an enrollment for tests.
func MustEnroll(t testing.TB, repo store.Repository, identifier string, tpl template.Template) store.Record {
	t.Helper()

	rec, err := repo.Insert(context.Background(), identifier, tpl)
	if err != nil {
		t.Fatalf("Insert %q: %v", identifier, err)
	}
	return rec
}
