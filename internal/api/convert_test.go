package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"fingergate/internal/deps"
	"fingergate/internal/match"
	"fingergate/internal/store"
	"fingergate/internal/worker"
)

func TestFromReportIdentify(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	out := match.Matched("alice", 77)
	out.Checked, out.Total = 2, 4
	dto := FromReport(worker.Report{
		AttemptID:      "a1",
		Mode:           worker.ModeIdentify,
		Identification: out,
		StartedAt:      start,
		FinishedAt:     start.Add(1500 * time.Millisecond),
	})

	if !dto.Granted || dto.Identifier != "alice" || dto.Score != 77 {
		t.Fatalf("unexpected identify dto %+v", dto)
	}
	if dto.Result != "matched" || dto.Checked != 2 || dto.Total != 4 {
		t.Fatalf("unexpected progress fields %+v", dto)
	}
	if dto.StartedAt != "2026-03-01T09:00:00.000Z" {
		t.Fatalf("startedAt = %q, want UTC", dto.StartedAt)
	}
	if dto.DurationMS != 1500 {
		t.Fatalf("durationMs = %d", dto.DurationMS)
	}
	if dto.ErrorKind != "" {
		t.Fatalf("unexpected error kind %q", dto.ErrorKind)
	}
}

func TestFromReportFailures(t *testing.T) {
	dto := FromReport(worker.Report{
		Mode:           worker.ModeIdentify,
		Identification: match.Errored(match.NewFailure(match.KindStorageUnreachable, "list enrollments", errors.New("dial tcp"))),
	})
	if dto.Granted || dto.ErrorKind != "storage-unreachable" || dto.Result != "storage-unreachable" {
		t.Fatalf("unexpected failure dto %+v", dto)
	}
	if dto.Error == "" {
		t.Fatal("expected error detail")
	}

	enroll := FromReport(worker.Report{
		Mode:       worker.ModeEnroll,
		Enrollment: worker.EnrollFailed(match.NewFailure(match.KindDuplicateIdentifier, "bob", nil)),
	})
	if enroll.ErrorKind != "duplicate-identifier" || enroll.RecordID != 0 {
		t.Fatalf("unexpected enroll failure dto %+v", enroll)
	}
}

func TestFromReportEnrolled(t *testing.T) {
	dto := FromReport(worker.Report{
		Mode:       worker.ModeEnroll,
		Enrollment: worker.Enrolled(store.Record{ID: 7, Identifier: "bob"}),
	})
	if dto.Result != "enrolled" || dto.RecordID != 7 || dto.Identifier != "bob" || dto.Granted {
		t.Fatalf("unexpected enroll dto %+v", dto)
	}
	if dto.StartedAt != "" {
		t.Fatalf("zero times should be omitted, got %q", dto.StartedAt)
	}
}

func TestFromSessionCopiesLastReport(t *testing.T) {
	last := worker.Report{AttemptID: "prev", Mode: worker.ModeIdentify, Identification: match.NoMatch()}
	dto := FromSession(worker.Status{State: worker.StateIdle, LastReport: &last})
	if dto.State != "idle" || dto.LastReport == nil || dto.LastReport.AttemptID != "prev" {
		t.Fatalf("unexpected session dto %+v", dto)
	}
	if dto.LastReport.Result != "no_match" {
		t.Fatalf("last report result = %q", dto.LastReport.Result)
	}
}

func TestListConversionsNeverNil(t *testing.T) {
	if FromRecordSummaries(nil) == nil || FromAccessEvents(nil) == nil || FromDependencies(nil) == nil {
		t.Fatal("conversions must return empty slices for JSON arrays")
	}
	got := FromDependencies([]deps.Status{{Name: "Comparator", Command: "fp-compare", Available: true}})
	if len(got) != 1 || !got[0].Available {
		t.Fatalf("unexpected deps %+v", got)
	}
}

func TestStatusErrorBusy(t *testing.T) {
	err := error(&StatusError{Code: http.StatusConflict, Message: "busy"})
	if !errors.Is(err, ErrBusy) {
		t.Fatal("409 must match ErrBusy")
	}
	if errors.Is(&StatusError{Code: http.StatusInternalServerError}, ErrBusy) {
		t.Fatal("500 must not match ErrBusy")
	}
}

func TestNewClientNormalizesBase(t *testing.T) {
	for in, want := range map[string]string{
		"127.0.0.1:7590":        "http://127.0.0.1:7590",
		" http://host:1/ ":      "http://host:1",
		"https://gate.example/": "https://gate.example",
	} {
		if got := NewClient(in, "").base; got != want {
			t.Errorf("NewClient(%q).base = %q, want %q", in, got, want)
		}
	}
}
