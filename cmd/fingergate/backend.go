package main

import (
	"context"
	"errors"

	"fingergate/internal/api"
	"fingergate/internal/daemonrun"
	"fingergate/internal/worker"
)

const defaultEventLimit = 50

// backend runs attempts and record maintenance either in-process or through
// the daemon.
type backend interface {
	Identify(ctx context.Context) (api.AttemptReport, error)
	Enroll(ctx context.Context, identifier string) (api.AttemptReport, error)
	Records(ctx context.Context, filter string) ([]api.RecordSummary, error)
	DeleteRecord(ctx context.Context, id int64) error
	Events(ctx context.Context, limit int) ([]api.AccessEvent, error)
	Close() error
}

type remoteBackend struct {
	client *api.Client
}

func (b *remoteBackend) Identify(ctx context.Context) (api.AttemptReport, error) {
	report, err := b.client.Identify(ctx)
	if err != nil {
		return api.AttemptReport{}, wrapBusy(err)
	}
	return *report, nil
}

func (b *remoteBackend) Enroll(ctx context.Context, identifier string) (api.AttemptReport, error) {
	report, err := b.client.Enroll(ctx, identifier)
	if err != nil {
		return api.AttemptReport{}, wrapBusy(err)
	}
	return *report, nil
}

func (b *remoteBackend) Records(ctx context.Context, filter string) ([]api.RecordSummary, error) {
	return b.client.Records(ctx, filter)
}

func (b *remoteBackend) DeleteRecord(ctx context.Context, id int64) error {
	return b.client.DeleteRecord(ctx, id)
}

func (b *remoteBackend) Events(ctx context.Context, limit int) ([]api.AccessEvent, error) {
	return b.client.Events(ctx, limit)
}

func (b *remoteBackend) Close() error { return nil }

func wrapBusy(err error) error {
	if errors.Is(err, api.ErrBusy) {
		return errors.New("daemon is busy with another attempt; try again shortly")
	}
	return err
}

type localBackend struct {
	rt *daemonrun.Runtime
}

func (b *localBackend) Identify(ctx context.Context) (api.AttemptReport, error) {
	ch, err := b.rt.Session.Identify(ctx)
	return awaitLocal(ch, err)
}

func (b *localBackend) Enroll(ctx context.Context, identifier string) (api.AttemptReport, error) {
	ch, err := b.rt.Session.Enroll(ctx, identifier)
	return awaitLocal(ch, err)
}

// awaitLocal blocks for the attempt's report. Attempts are detached from the
// caller, so an interrupt still lets the capture finish and be logged.
func awaitLocal(ch <-chan worker.Report, err error) (api.AttemptReport, error) {
	if err != nil {
		return api.AttemptReport{}, err
	}
	report, ok := <-ch
	if !ok {
		return api.AttemptReport{}, errors.New("attempt ended without a report")
	}
	return api.FromReport(report), nil
}

func (b *localBackend) Records(ctx context.Context, filter string) ([]api.RecordSummary, error) {
	records, err := b.rt.Store.ListSummaries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return api.FromRecordSummaries(records), nil
}

func (b *localBackend) DeleteRecord(ctx context.Context, id int64) error {
	return b.rt.Store.Delete(ctx, id)
}

func (b *localBackend) Events(ctx context.Context, limit int) ([]api.AccessEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	events, err := b.rt.Store.ListAccess(ctx, limit)
	if err != nil {
		return nil, err
	}
	return api.FromAccessEvents(events), nil
}

func (b *localBackend) Close() error {
	return b.rt.Close()
}
