package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	refresh := &stubJob{name: alertsRefreshJobName}
	retention := &stubJob{name: outboxRetentionJobName}
	require.NoError(t, registry.Register(refresh))
	require.NoError(t, registry.Register(retention))

	jobs := registry.Jobs()
	require.Equal(t, []Job{refresh, retention}, jobs)
	require.Equal(t, []string{alertsRefreshJobName, outboxRetentionJobName}, registry.Names())

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsInvalidJobs(t *testing.T) {
	registry := NewRegistry()
	require.Error(t, registry.Register(nil))
	require.Error(t, registry.Register(&stubJob{name: "  "}))
	require.NoError(t, registry.Register(&stubJob{name: "alerts-refresh"}))
	require.Error(t, registry.Register(&stubJob{name: "alerts-refresh"}))
	require.Len(t, registry.Jobs(), 1)
}
