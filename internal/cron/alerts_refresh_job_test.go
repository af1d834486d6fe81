package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/allotments-backend/pkg/logger"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) (map[string]int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]int{"danger": 2}, nil
}

func TestAlertsRefreshJob(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	refresher := &fakeRefresher{}
	job, err := NewAlertsRefreshJob(logg, refresher)
	if err != nil {
		t.Fatalf("NewAlertsRefreshJob: %v", err)
	}
	if job.Name() != "alerts-refresh" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.calls)
	}

	refresher.err = errors.New("db down")
	if err := job.Run(context.Background()); !errors.Is(err, refresher.err) {
		t.Fatalf("expected refresh error, got %v", err)
	}
}

func TestAlertsRefreshJobRequiresDependencies(t *testing.T) {
	if _, err := NewAlertsRefreshJob(nil, &fakeRefresher{}); err == nil {
		t.Fatal("expected logger error")
	}
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	if _, err := NewAlertsRefreshJob(logg, nil); err == nil {
		t.Fatal("expected refresher error")
	}
}
