package api

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrand/lansweep/internal/config"
	"github.com/ostrand/lansweep/internal/metrics"
	"github.com/ostrand/lansweep/internal/scan"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.API.StaticDir = ""
	engine := scan.New(nil, nil)
	return New(cfg, engine, metrics.New(), "test")
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(rec, req)
	return rec
}

// closedPort reserves then releases a loopback port.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func waitForDone(t *testing.T, s *Server) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec := doJSON(t, s, "GET", "/api/v1/status", nil)
		var snap scan.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		if snap.State == "done" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("scan did not finish")
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, "GET", "/api/v1/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "idle", body["scan_state"])
}

func TestVersionEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, "GET", "/api/v1/version", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "lansweep", body["name"])
}

func TestStatusIdleBeforeAnyScan(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, "GET", "/api/v1/status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap scan.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "idle", snap.State)
	assert.Zero(t, snap.Total)
}

func TestStartScanAcceptedAndCompletes(t *testing.T) {
	s := newTestServer(t)
	port := closedPort(t)

	rec := doJSON(t, s, "POST", "/api/v1/scan", ScanRequest{
		Targets:   []string{"127.0.0.1"},
		Ports:     strconv.Itoa(port),
		TimeoutMS: 300,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ScanID)
	assert.Equal(t, "running", resp.State)
	assert.EqualValues(t, 1, resp.Total)

	waitForDone(t, s)

	res := doJSON(t, s, "GET", "/api/v1/results", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var results scan.Results
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &results))
	assert.Equal(t, resp.ScanID, results.ScanID)
	assert.EqualValues(t, 1, results.Scanned)
	assert.Empty(t, results.Entries)
}

func TestStartScanConflictWhileRunning(t *testing.T) {
	s := newTestServer(t)

	// A large sweep over TEST-NET-3 stays running long enough to
	// provoke the conflict.
	first := doJSON(t, s, "POST", "/api/v1/scan", ScanRequest{
		Targets:     []string{"203.0.113.0/24"},
		Ports:       "1-100",
		Concurrency: 4,
		TimeoutMS:   400,
	})
	require.Equal(t, http.StatusAccepted, first.Code)

	second := doJSON(t, s, "POST", "/api/v1/scan", ScanRequest{
		Targets: []string{"127.0.0.1"},
		Ports:   "80",
	})
	assert.Equal(t, http.StatusConflict, second.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &errResp))
	assert.Equal(t, "ALREADY_RUNNING", errResp.Code)

	cancel := doJSON(t, s, "POST", "/api/v1/cancel", nil)
	assert.Equal(t, http.StatusOK, cancel.Code)
	waitForDone(t, s)
}

func TestStartScanValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		req  ScanRequest
	}{
		{"bad target", ScanRequest{Targets: []string{"not-an-ip"}, Ports: "80"}},
		{"ipv6 target", ScanRequest{Targets: []string{"::1"}, Ports: "80"}},
		{"bad port spec", ScanRequest{Targets: []string{"127.0.0.1"}, Ports: "80-22"}},
		{"port zero", ScanRequest{Targets: []string{"127.0.0.1"}, Ports: "0"}},
		{"concurrency too high", ScanRequest{Targets: []string{"127.0.0.1"}, Ports: "80", Concurrency: 50000}},
		{"all ports excluded", ScanRequest{Targets: []string{"127.0.0.1"}, Ports: "80", ExcludePorts: []int{80}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, "POST", "/api/v1/scan", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestStartScanMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/v1/scan", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelWhenIdleIsNoop(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, "POST", "/api/v1/cancel", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "idle", body["state"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Labeled series only exist once a request has been observed.
	doJSON(t, s, "GET", "/api/v1/health", nil)

	rec := doJSON(t, s, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lansweep_api_requests_total")
}
