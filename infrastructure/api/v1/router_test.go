package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helixml/runfilter"
	"github.com/helixml/runfilter/domain/flowrun"
	"github.com/helixml/runfilter/infrastructure/api/jsonapi"
)

func newTestClient(t *testing.T, opts ...runfilter.Option) *runfilter.Client {
	t.Helper()
	opts = append([]runfilter.Option{
		runfilter.WithSQLite(":memory:"),
		runfilter.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	client, err := runfilter.New(opts...)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// seedFlowRuns stores a small fixed set of flow runs.
func seedFlowRuns(t *testing.T, client *runfilter.Client) []flowrun.FlowRun {
	t.Helper()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	runs := []flowrun.FlowRun{
		flowrun.NewFlowRun("etl",
			flowrun.WithTags("prod", "nightly"),
			flowrun.WithState(flowrun.StateTypeCompleted, ""),
			flowrun.WithStartTime(start),
			flowrun.WithEndTime(start.Add(time.Hour)),
		),
		flowrun.NewFlowRun("etl",
			flowrun.WithTags("dev"),
			flowrun.WithState(flowrun.StateTypeFailed, ""),
			flowrun.WithStartTime(start.Add(24*time.Hour)),
		),
		flowrun.NewFlowRun("report", flowrun.WithTags("prod")),
	}
	saved := make([]flowrun.FlowRun, len(runs))
	for i, r := range runs {
		s, err := client.FlowRuns.Create(context.Background(), r)
		require.NoError(t, err)
		saved[i] = s
	}
	return saved
}

func serve(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type document struct {
	Data   json.RawMessage `json:"data"`
	Meta   map[string]any  `json:"meta"`
	Errors []jsonapi.Error `json:"errors"`
}

func decodeDocument(t *testing.T, w *httptest.ResponseRecorder) document {
	t.Helper()
	var doc document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc), "body: %s", w.Body.String())
	return doc
}

type resource struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}
