package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"fingergate/internal/api"
	"fingergate/internal/daemon"
	"fingergate/internal/daemonrun"
	"fingergate/internal/logging"
)

func TestEnrollThenIdentifyLocally(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "enroll", "alice")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	requireContains(t, out, "Enrolled")
	requireContains(t, out, "alice (record 1)")

	out, _, err = runCLI(t, env.configPath, "identify")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	requireContains(t, out, "Granted")
	requireContains(t, out, "alice (score 88, 1/1 checked)")

	out, _, err = runCLI(t, env.configPath, "events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	requireContains(t, out, "alice")
	requireContains(t, out, "matched")
}

func TestIdentifyDeniedWithoutEnrollments(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "identify", "--json")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	var report api.AttemptReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report %q: %v", out, err)
	}
	if report.Granted || report.Result != "no_match" || report.Total != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.AttemptID == "" {
		t.Fatal("expected attempt id")
	}
}

func TestEnrollRejectsBlankIdentifier(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "enroll", "   ")
	if err == nil {
		t.Fatal("expected error for blank identifier")
	}
	requireContains(t, err.Error(), "invalid-identifier")
	requireContains(t, out, "Failed")
}

func TestWatchStopsAfterCount(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, "enroll", "alice"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "watch", "--count", "1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, out, "Watching for fingerprints")
	requireContains(t, out, "Granted")
	if got := strings.Count(out, "Granted"); got != 1 {
		t.Fatalf("expected one decision, got %d in %q", got, out)
	}
}

func TestWatchRejectsRemote(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "--remote", "watch")
	if err == nil {
		t.Fatal("expected error for remote watch")
	}
	requireContains(t, err.Error(), "local sensor")
}

func TestRemoteCommandsUseDaemonAPI(t *testing.T) {
	env := setupCLITestEnv(t)

	rt, err := daemonrun.Open(env.cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemonrun.Open: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	d, err := daemon.New(env.cfg, rt.Store, rt.Session, rt.Metrics, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)

	remote := func(args ...string) string {
		t.Helper()
		out, _, err := runCLI(t, env.configPath, append([]string{"--remote", "--api", srv.URL}, args...)...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out
	}

	requireContains(t, remote("enroll", "bob"), "bob (record 1)")
	requireContains(t, remote("identify"), "Granted")
	requireContains(t, remote("records"), "bob")
	requireContains(t, remote("events", "--limit", "5"), "matched")
	requireContains(t, remote("status"), "idle")
	requireContains(t, remote("records", "delete", "1"), "Deleted record 1")
	requireContains(t, remote("records"), "No enrollments")
}
