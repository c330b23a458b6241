package infrasvc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloud-ingest/internal/infra"
)

func newTestService(sp *fakeSpanner, ps *fakePubSub, fn *fakeFunctions, gce *fakeCompute, opts Options) *InfraService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewInfraService(sp, ps, fn, gce, "my-project", opts, logger)
}

func TestInfraService_Statuses(t *testing.T) {
	sp := &fakeSpanner{status: infra.StatusNotFound}
	ps := &fakePubSub{statuses: map[string]infra.ResourceStatus{
		"cloud-ingest-list":          infra.StatusRunning,
		"cloud-ingest-copy":          infra.StatusDeleting,
		"cloud-ingest-copy-progress": infra.StatusRunning,
	}}
	fn := &fakeFunctions{status: infra.StatusDeploying}
	gce := &fakeCompute{status: infra.StatusUnknown}
	svc := newTestService(sp, ps, fn, gce, Options{})

	status, err := svc.Statuses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, infra.StatusNotFound, status.SpannerStatus)
	assert.Equal(t, infra.StatusDeploying, status.CloudFunctionsStatus)
	assert.Equal(t, infra.StatusUnknown, status.DCPStatus)
	assert.Equal(t, map[string]infra.ResourceStatus{
		"list":                 infra.StatusRunning,
		"listProgress":         infra.StatusUnknown,
		"copy":                 infra.StatusDeleting,
		"copyProgress":         infra.StatusRunning,
		"loadBigQuery":         infra.StatusUnknown,
		"loadBigQueryProgress": infra.StatusUnknown,
	}, status.PubSubStatus)
}

func TestInfraService_StatusesError(t *testing.T) {
	sp := &fakeSpanner{err: errors.New("spanner unreachable")}
	svc := newTestService(sp, &fakePubSub{}, &fakeFunctions{}, &fakeCompute{}, Options{})

	_, err := svc.Statuses(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spanner unreachable")
}

func TestInfraService_Create(t *testing.T) {
	t.Run("with_dcp", func(t *testing.T) {
		sp := &fakeSpanner{}
		ps := &fakePubSub{}
		fn := &fakeFunctions{}
		gce := &fakeCompute{}
		svc := newTestService(sp, ps, fn, gce, Options{
			FunctionSourceDir: "/src/importer",
			RunDCP:            true,
			DCPImage:          infra.DCPContainerImage,
		})

		require.NoError(t, svc.Create(context.Background()))

		assert.Equal(t, []string{"create-instance", "create-database"}, sp.calls)
		assert.Len(t, ps.created, 6)
		assert.Equal(t, []string{"create:" + infra.LoadBQFunction}, fn.calls)
		assert.Equal(t, "/src/importer", fn.srcDir)
		assert.Equal(t, infra.LoadBQTopic, fn.topic)
		assert.Equal(t, []string{"create:" + infra.DCPInstance}, gce.calls)
		assert.Equal(t, infra.DCPCommand, gce.cmd)
		assert.Equal(t, []string{"my-project"}, gce.args)
	})

	t.Run("skip_dcp", func(t *testing.T) {
		gce := &fakeCompute{}
		svc := newTestService(&fakeSpanner{}, &fakePubSub{}, &fakeFunctions{}, gce, Options{RunDCP: false})

		require.NoError(t, svc.Create(context.Background()))
		assert.Empty(t, gce.calls)
	})

	t.Run("spanner_failure_stops_creation", func(t *testing.T) {
		sp := &fakeSpanner{err: errors.New("quota exceeded")}
		ps := &fakePubSub{}
		svc := newTestService(sp, ps, &fakeFunctions{}, &fakeCompute{}, Options{})

		require.Error(t, svc.Create(context.Background()))
		assert.Empty(t, ps.created)
	})
}

func TestInfraService_TearDown(t *testing.T) {
	sp := &fakeSpanner{}
	ps := &fakePubSub{}
	fn := &fakeFunctions{}
	gce := &fakeCompute{}
	svc := newTestService(sp, ps, fn, gce, Options{})

	require.NoError(t, svc.TearDown(context.Background()))

	assert.Equal(t, []string{"delete:" + infra.DCPInstance}, gce.calls)
	assert.Equal(t, []string{"delete:" + infra.LoadBQFunction}, fn.calls)
	assert.Len(t, ps.deleted, 6)
	assert.Equal(t, []string{"delete-instance"}, sp.calls)
}
