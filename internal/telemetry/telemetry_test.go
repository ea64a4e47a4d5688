/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestEventBatchReachesEndpoint(t *testing.T) {
	var mu sync.Mutex
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Events []map[string]any `json:"events"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		mu.Lock()
		got = append(got, payload.Events...)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("client should be enabled")
	}

	// batchSize events force an immediate post without waiting for the ticker.
	for i := 0; i < batchSize; i++ {
		c.Event("parse_completed", map[string]any{"scenes": i})
	}
	c.Flush(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= batchSize {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("endpoint received %d events, want %d", n, batchSize)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	first := got[0]
	mu.Unlock()
	if first["name"] != "parse_completed" {
		t.Fatalf("event name = %v", first["name"])
	}
	if first["version"] == "" || first["os"] == "" {
		t.Fatalf("event envelope incomplete: %v", first)
	}
}

func TestDisabledClientCountsLocally(t *testing.T) {
	c := New(Config{})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("client without endpoint must be disabled")
	}
	c.Event("parse_started", nil)
	c.Event("parse_started", nil)
	c.Event("", nil) // ignored
	if got := c.Counts()["parse_started"]; got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	if len(c.q) != 0 {
		t.Fatalf("disabled client queued %d events", len(c.q))
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Fatalf("nil client reports enabled")
	}
	c.Event("parse_started", nil) // must not panic
	c.UploadCrash([]byte("report"))
}

func TestUploadCrashPostsReport(t *testing.T) {
	done := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		done <- body
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, CrashURL: srv.URL, Timeout: 2 * time.Second})
	defer c.Close()
	c.UploadCrash([]byte("panic: boom"))

	select {
	case body := <-done:
		if string(body) != "panic: boom" {
			t.Fatalf("crash body = %q", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("crash report never arrived")
	}
}

func TestUploadCrashDisabledWithoutOptIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, CrashURL: srv.URL})
	defer c.Close()
	c.UploadCrash([]byte("report"))
	time.Sleep(50 * time.Millisecond)
}

func TestFromEnvParsesValues(t *testing.T) {
	t.Setenv("SWR_TELEMETRY_OPT_IN", "yes")
	t.Setenv("SWR_TELEMETRY_URL", "http://example.invalid/t")
	t.Setenv("SWR_CRASH_UPLOAD_URL", "http://example.invalid/c")
	t.Setenv("SWR_TELEMETRY_TIMEOUT_MS", "250")
	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://example.invalid/t" || cfg.CrashURL != "http://example.invalid/c" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
}
