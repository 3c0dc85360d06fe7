// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer wires a Server with a fake external tool behind an
// httptest listener, API routes only.
func newTestServer(t *testing.T, script string) (*Server, *httptest.Server) {
	t.Helper()
	cfg := Config{
		OutputDir:  t.TempDir(),
		Executable: fakeTool(t, script),
		StopGrace:  time.Second,
		LogBacklog: 1000,
	}
	s := New(cfg, "test")
	go s.wsHub.Run()

	mux := http.NewServeMux()
	s.registerAPIRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	t.Cleanup(s.jobs.Shutdown)
	return s, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestAPI_Health(t *testing.T) {
	_, ts := newTestServer(t, "exit 0")

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Errorf("health status = %v", body["status"])
	}
}

func TestAPI_StartMirror(t *testing.T) {
	_, ts := newTestServer(t, `echo "100%"; exit 0`)

	resp := postJSON(t, ts.URL+"/api/mirror", MirrorRequest{
		URLs:  []string{"https://example.com"},
		Depth: 2,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	job := decode[Job](t, resp)
	if job.ID == "" {
		t.Error("job has no ID")
	}
	if job.Options.Depth != 2 {
		t.Errorf("depth = %d, want 2", job.Options.Depth)
	}
}

func TestAPI_StartMirror_Validation(t *testing.T) {
	_, ts := newTestServer(t, "exit 0")

	t.Run("missing urls", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/mirror", MirrorRequest{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("invalid url", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/mirror", MirrorRequest{URLs: []string{"not a url"}})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/mirror", "application/json", bytes.NewReader([]byte("{")))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestAPI_ConflictWhileActive(t *testing.T) {
	_, ts := newTestServer(t, "sleep 30")

	resp := postJSON(t, ts.URL+"/api/mirror", MirrorRequest{URLs: []string{"https://example.com"}})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first job: status %d", resp.StatusCode)
	}
	job := decode[Job](t, resp)

	resp = postJSON(t, ts.URL+"/api/mirror", MirrorRequest{URLs: []string{"https://example.com"}})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second job: status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+fmt.Sprintf("/api/jobs/%s/stop", job.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stop: status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAPI_GetJobAndLogs(t *testing.T) {
	s, ts := newTestServer(t, `echo "Mirroring site"; echo "40%"; exit 0`)

	resp := postJSON(t, ts.URL+"/api/mirror", MirrorRequest{URLs: []string{"https://example.com"}})
	job := decode[Job](t, resp)

	waitForStatus(t, s.jobs, job.ID, JobStatusCompleted)

	t.Run("get job", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/jobs/" + job.ID)
		if err != nil {
			t.Fatal(err)
		}
		got := decode[Job](t, resp)
		if got.Status != JobStatusCompleted {
			t.Errorf("status = %s, want completed", got.Status)
		}
		if got.Progress.Percent != 40 {
			t.Errorf("percent = %d, want 40", got.Progress.Percent)
		}
	})

	t.Run("get logs", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/jobs/" + job.ID + "/logs")
		if err != nil {
			t.Fatal(err)
		}
		body := decode[map[string]any](t, resp)
		if body["count"].(float64) == 0 {
			t.Error("no log entries returned")
		}
	})

	t.Run("missing job is 404", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/jobs/nonexistent")
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestAPI_StopNotRunning(t *testing.T) {
	s, ts := newTestServer(t, "exit 0")

	resp := postJSON(t, ts.URL+"/api/mirror", MirrorRequest{URLs: []string{"https://example.com"}})
	job := decode[Job](t, resp)
	waitForStatus(t, s.jobs, job.ID, JobStatusCompleted)

	resp = postJSON(t, ts.URL+"/api/jobs/"+job.ID+"/stop", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("stopping a finished job: status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAPI_Presets(t *testing.T) {
	_, ts := newTestServer(t, "exit 0")

	resp, err := http.Get(ts.URL + "/api/presets")
	if err != nil {
		t.Fatal(err)
	}
	body := decode[map[string][]map[string]string](t, resp)
	if len(body["presets"]) != 5 {
		t.Errorf("got %d presets, want 5", len(body["presets"]))
	}
}

func TestAPI_Settings(t *testing.T) {
	s, ts := newTestServer(t, "exit 0")

	resp, err := http.Get(ts.URL + "/api/settings")
	if err != nil {
		t.Fatal(err)
	}
	got := decode[SettingsResponse](t, resp)
	if got.OutputDir != s.config.OutputDir {
		t.Errorf("outputDir = %s, want %s", got.OutputDir, s.config.OutputDir)
	}
	if got.StopGrace == "" {
		t.Error("stopGrace not reported")
	}
}

func TestAPI_DeleteJob(t *testing.T) {
	s, ts := newTestServer(t, "sleep 30")

	resp := postJSON(t, ts.URL+"/api/mirror", MirrorRequest{URLs: []string{"https://example.com"}})
	job := decode[Job](t, resp)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/jobs/"+job.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if delResp.StatusCode != http.StatusOK {
		t.Errorf("delete: status = %d, want 200", delResp.StatusCode)
	}
	delResp.Body.Close()

	if _, ok := s.jobs.GetJob(job.ID); ok {
		t.Error("job still present after delete")
	}
}
