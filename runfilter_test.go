package runfilter_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/helixml/runfilter"
	"github.com/helixml/runfilter/application/service"
	"github.com/helixml/runfilter/domain/filter"
	"github.com/helixml/runfilter/domain/flowrun"
)

func newClient(t *testing.T, opts ...runfilter.Option) *runfilter.Client {
	t.Helper()
	opts = append([]runfilter.Option{
		runfilter.WithSQLite(":memory:"),
		runfilter.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	client, err := runfilter.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_ValidateAndFilter(t *testing.T) {
	ctx := context.Background()
	client := newClient(t, runfilter.WithDefaultLimit(10))

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, run := range []flowrun.FlowRun{
		flowrun.NewFlowRun("etl", flowrun.WithTags("prod"), flowrun.WithStartTime(start)),
		flowrun.NewFlowRun("etl", flowrun.WithTags("dev")),
		flowrun.NewFlowRun("report", flowrun.WithTags("prod")),
	} {
		_, err := client.FlowRuns.Create(ctx, run)
		require.NoError(t, err)
	}

	filters, err := client.Filters.ValidateAll(ctx, []any{
		json.RawMessage(`{"object":"flow_run","property":"name","any_":["etl"]}`),
		map[string]any{"object": "flow_run", "property": "tag", "all_": []any{"prod"}},
	})
	require.NoError(t, err)

	runs, err := client.FlowRuns.Filter(ctx, service.FilterParams{Filters: filters})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].StartTime().Equal(start))

	count, err := client.FlowRuns.Count(ctx, filters...)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 10, client.FlowRuns.DefaultLimit())
}

func TestClient_ValidateAllReportsIndexes(t *testing.T) {
	client := newClient(t)

	_, err := client.Filters.ValidateAll(context.Background(), []any{
		map[string]any{"object": "flow_run", "property": "name"},
		map[string]any{"object": "flow_run", "property": "owner"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, filter.ErrUnknownProperty)

	var indexErr *filter.IndexError
	require.True(t, errors.As(err, &indexErr))
	assert.Equal(t, 1, indexErr.Index)
}

func TestClient_DefaultDatabaseInDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	client, err := runfilter.New(
		runfilter.WithDataDir(dir),
		runfilter.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	assert.FileExists(t, filepath.Join(dir, "runfilter.db"))
	assert.NoError(t, client.Ping(context.Background()))
}

func TestClient_FileDatabaseConcurrentWrites(t *testing.T) {
	client := newClient(t, runfilter.WithSQLite(filepath.Join(t.TempDir(), "runs.db")))
	ctx := context.Background()

	g, gctx := errgroup.WithContext(ctx)
	for i := range 8 {
		g.Go(func() error {
			_, err := client.FlowRuns.Create(gctx, flowrun.NewFlowRun(fmt.Sprintf("run-%d", i), flowrun.WithTags("prod")))
			return err
		})
	}
	require.NoError(t, g.Wait())

	count, err := client.FlowRuns.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), count)
}

func TestClient_NoDatabase(t *testing.T) {
	_, err := runfilter.New(runfilter.WithDatabaseURL(""))
	assert.ErrorIs(t, err, runfilter.ErrNoDatabase)

	_, err = runfilter.New(runfilter.WithDatabaseURL("mysql://db/runs"))
	assert.Error(t, err)
}

func TestClient_Metrics(t *testing.T) {
	reg := prom.NewRegistry()
	client := newClient(t, runfilter.WithMetricsRegisterer(reg))
	assert.Same(t, reg, client.Gatherer())

	_, err := client.Filters.Validate(context.Background(), map[string]any{"object": "flow_run", "property": "state"})
	require.NoError(t, err)

	families, err := client.Gatherer().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "runfilter_filter_validations_total" {
			found = true
		}
	}
	assert.True(t, found, "validation counter gathered")

	private := newClient(t)
	assert.NotNil(t, private.Gatherer())
	assert.NotSame(t, prom.DefaultGatherer, private.Gatherer())
}

func TestClient_Close(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close(), "second close is a no-op")

	_, err := client.Filters.Validate(ctx, map[string]any{"object": "flow_run", "property": "name"})
	assert.ErrorIs(t, err, runfilter.ErrClientClosed)

	_, err = client.FlowRuns.Count(ctx)
	assert.ErrorIs(t, err, runfilter.ErrClientClosed)

	assert.ErrorIs(t, client.Ping(ctx), runfilter.ErrClientClosed)
}
