package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/include-cycles/pkg/analysis"
	"github.com/ritzau/include-cycles/pkg/config"
	"github.com/ritzau/include-cycles/pkg/lens"
	"github.com/ritzau/include-cycles/pkg/logging"
	"github.com/ritzau/include-cycles/pkg/model"
	"github.com/ritzau/include-cycles/pkg/pubsub"
)

// analyzedServer runs one analysis of a small tree through a Runner that
// publishes to a fresh Server
func analyzedServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"core/a.h":    "#include \"b.h\"\n",
		"core/b.h":    "#include \"a.h\"\n#include \"util/log.h\"\n",
		"util/log.h":  "#include <vector>\n",
		"app/main.cc": "#include \"a.h\"\n#include \"missing.h\"\n",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	opts := analysis.Options{
		Root:        root,
		FileTypes:   config.DefaultFileTypes,
		ExcludeDirs: config.DefaultExcludeDirs,
		Workers:     2,
	}

	srv := NewServer()
	runner := analysis.NewRunner(opts, srv)
	srv.SetResultSource(runner)
	_, err := runner.Run(context.Background(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestReportUnavailableBeforeFirstRun(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	for _, path := range []string{"/api/report", "/api/graph", "/api/cycles", "/api/files/a.h"} {
		rec := get(t, srv, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}

	rec := get(t, srv, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status pubsub.AnalysisStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, analysis.StateAnalyzing, status.State)
	assert.Equal(t, 0, status.Run)
}

func TestReportEndpoints(t *testing.T) {
	srv := analyzedServer(t)

	rec := get(t, srv, "/api/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(logging.RequestIDHeader))

	var report model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Counts.Cycles)
	assert.Equal(t, 4, report.Counts.Nodes)

	rec = get(t, srv, "/api/cycles")
	require.Equal(t, http.StatusOK, rec.Code)
	var cycles []model.Cycle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cycles))
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"core/a.h", "core/b.h"}, cycles[0].Files)

	rec = get(t, srv, "/api/components")
	require.Equal(t, http.StatusOK, rec.Code)
	var components [][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &components))
	assert.Len(t, components, 1)

	rec = get(t, srv, "/api/status")
	var status pubsub.AnalysisStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, analysis.StateReady, status.State)
	assert.Equal(t, 1, status.Run)
}

func TestIssuesFilter(t *testing.T) {
	srv := analyzedServer(t)

	rec := get(t, srv, "/api/issues?kind=unresolved")
	require.Equal(t, http.StatusOK, rec.Code)

	var issues []model.Issue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issues))
	require.Len(t, issues, 1)
	assert.Equal(t, "app/main.cc", issues[0].File)
	assert.Equal(t, "missing.h", issues[0].Target)

	rec = get(t, srv, "/api/issues?kind=ambiguous")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issues))
	assert.Empty(t, issues)
}

func TestFileDetails(t *testing.T) {
	srv := analyzedServer(t)

	rec := get(t, srv, "/api/files/core/b.h")
	require.Equal(t, http.StatusOK, rec.Code)

	var details analysis.FileDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, "core/b.h", details.ID)
	assert.Equal(t, "header", details.Type)
	assert.Equal(t, []string{"core/a.h", "util/log.h"}, details.Includes)
	assert.Len(t, details.Cycles, 1)
	require.Len(t, details.OutgoingDirDeps, 1)
	assert.Equal(t, "util", details.OutgoingDirDeps[0].TargetDir)

	rec = get(t, srv, "/api/files/nope.h")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFocusedGraph(t *testing.T) {
	srv := analyzedServer(t)

	rec := get(t, srv, "/api/focus/util/log.h")
	require.Equal(t, http.StatusOK, rec.Code)

	var g model.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"core/b.h", "util/log.h"}, ids)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "core/b.h", g.Edges[0].Source)
}

func TestFocusedGraphParameters(t *testing.T) {
	srv := analyzedServer(t)

	rec := get(t, srv, "/api/focus/core?depth=0")
	require.Equal(t, http.StatusOK, rec.Code)
	var g model.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 2)

	rec = get(t, srv, "/api/focus/core/a.h?depth=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, srv, "/api/focus/nope.h")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiffAcrossReports(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	rec := get(t, srv, "/api/diff")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	first := &model.Report{Graph: model.NewGraph()}
	first.Graph.AddNode(&model.Node{ID: "a.h", Label: "a.h", Type: model.NodeTypeFile})
	require.NoError(t, srv.PublishReport(first))

	second := &model.Report{Graph: model.NewGraph()}
	second.Graph.AddNode(&model.Node{ID: "a.h", Label: "a.h", Type: model.NodeTypeFile})
	second.Graph.AddNode(&model.Node{ID: "b.h", Label: "b.h", Type: model.NodeTypeFile})
	second.Graph.AddEdge(&model.Edge{Source: "a.h", Target: "b.h"})
	require.NoError(t, srv.PublishReport(second))

	rec = get(t, srv, "/api/diff")
	require.Equal(t, http.StatusOK, rec.Code)
	var diff lens.GraphDiff
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &diff))
	assert.False(t, diff.FullGraph)
	require.Len(t, diff.AddedNodes, 1)
	assert.Equal(t, "b.h", diff.AddedNodes[0].ID)
	assert.Equal(t, []model.Edge{{Source: "a.h", Target: "b.h"}}, diff.AddedEdges)
}

func TestSubscribeUnknownTopic(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	rec := get(t, srv, "/api/subscribe/bogus")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscribeStatusStream(t *testing.T) {
	srv := NewServer()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.Close()

	require.NoError(t, srv.PublishStatus(analysis.StateAnalyzing, "Analyzing..."))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/subscribe/status", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The buffered status is replayed; read until its data line
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event pubsub.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		assert.Equal(t, pubsub.TopicStatus, event.Topic)
		assert.Equal(t, analysis.StateAnalyzing, event.Type)

		var status pubsub.AnalysisStatus
		require.NoError(t, json.Unmarshal(event.Data, &status))
		assert.Equal(t, 1, status.Run)
		assert.Equal(t, "Analyzing...", status.Message)
		return
	}
}
