package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

const survey = `
identifier: survey
type: assessment
steps:
  - identifier: intro
    type: instruction
    title: Hello
  - identifier: age
    type: question
    answerType: integer
  - identifier: bye
    type: completion
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	loader := memory.NewLoader(map[string]string{"survey": survey})
	eng, err := arbor.New("", arbor.WithLoader(loader), arbor.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)
	svc := arbor.NewService(eng, session.NewManager(persistence.NewCache(memory.NewStore())))

	handler, err := NewHandler(svc, WithMetrics(reg))
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func snapshotOf(t *testing.T, data []byte) ports.RunSnapshot {
	t.Helper()
	var snap ports.RunSnapshot
	require.NoError(t, json.Unmarshal(data, &snap), string(data))
	return snap
}

func TestServer_RunLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, body := call(t, srv, "GET", "/assessments", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["survey"]`, string(body))

	resp, body = call(t, srv, "POST", "/runs", `{"assessment":"survey","runId":"r1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	snap := snapshotOf(t, body)
	assert.Equal(t, "intro", snap.Step.Identifier)
	assert.Equal(t, "Hello", snap.Step.Title)

	resp, body = call(t, srv, "POST", "/runs/r1/forward", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "age", snapshotOf(t, body).Step.Identifier)

	resp, body = call(t, srv, "POST", "/runs/r1/answer", `{"value":"old"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "type_mismatch")

	resp, body = call(t, srv, "POST", "/runs/r1/answer", `{"value":42,"advance":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "bye", snapshotOf(t, body).Step.Identifier)

	resp, body = call(t, srv, "POST", "/runs/r1/forward", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	snap = snapshotOf(t, body)
	assert.True(t, snap.Finished)
	require.NotNil(t, snap.Reason)
	assert.Equal(t, "complete", string(snap.Reason.Kind))

	resp, body = call(t, srv, "POST", "/runs/r1/forward", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	resp, body = call(t, srv, "GET", "/runs/r1/result", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"taskRunUUID":"r1"`)
	assert.Contains(t, string(body), `"value":42`)

	resp, body = call(t, srv, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `arbor_runs_finished_total{assessment="survey",reason="complete"} 1`)
}

func TestServer_Errors(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := call(t, srv, "GET", "/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, srv, "POST", "/runs", `{"assessment":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Rejected by the OpenAPI document before reaching the handler.
	resp, body := call(t, srv, "POST", "/runs", `{"runId":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "invalid_request")

	resp, _ = call(t, srv, "POST", "/runs", `{"assessment":"survey","runId":"r2"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = call(t, srv, "POST", "/runs/r2/backward", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = call(t, srv, "POST", "/runs/r2/exit", `{"reason":"later"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, srv, "POST", "/runs/r2/exit", `{"reason":"declined"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.True(t, snapshotOf(t, body).Reason.Declined)
}

func TestServer_Info(t *testing.T) {
	srv := newTestServer(t)

	resp, body := call(t, srv, "GET", "/info", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info map[string]string
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, arbor.Version, info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	resp, body = call(t, srv, "GET", "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, Spec(), body)
}

func TestSubscribeEvents_Run(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := call(t, srv, "POST", "/runs", `{"assessment":"survey","runId":"live"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/runs/live/events", nil)
	require.NoError(t, err)
	stream, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)

	lines := bufio.NewScanner(stream.Body)
	next := func() string {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok && data != "connected" {
				return data
			}
		}
		return ""
	}

	initial := snapshotOf(t, []byte(next()))
	assert.Equal(t, "intro", initial.Step.Identifier)

	resp, _ = call(t, srv, "POST", "/runs/live/forward", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	moved := snapshotOf(t, []byte(next()))
	assert.Equal(t, "age", moved.Step.Identifier)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("run")
	defer cancel()

	for i := 0; i < 20; i++ {
		sm.Broadcast("run", "msg")
	}
	assert.Len(t, ch, cap(ch))

	sm.Broadcast("other", "ignored")
}
