/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry records anonymous, opt-in usage events for the parsing
// pipeline (parse_started, parse_completed, ocr_fallback) and optional crash
// uploads. Disabled by default; without an endpoint every call is a no-op.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "screenwright/internal/log"
	"screenwright/internal/version"
)

// Config controls the sender. Read once at client construction.
//
// Environment variables (read by FromEnv):
// - SWR_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - SWR_TELEMETRY_URL: URL to POST JSON event batches to
// - SWR_CRASH_UPLOAD_URL: URL to POST crash reports to
// - SWR_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
// - SWR_TELEMETRY_DEBUG: if set, logs send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("SWR_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("SWR_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("SWR_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("SWR_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("SWR_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

type event struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client batches events and posts them asynchronously. Calls never block the
// caller; when the queue is full events are dropped and counted locally only.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan event
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	counts map[string]int
}

const (
	queueSize     = 64
	batchSize     = 8
	flushInterval = 5 * time.Second
)

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault builds the package-level client from the environment on first use.
func InitDefault() {
	defaultOnce.Do(func() { NewDefault(FromEnv()) })
}

// NewDefault installs cfg as the package-level client.
func NewDefault(cfg Config) {
	defaultClient = New(cfg)
}

func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan event, queueSize),
		closed: make(chan struct{}),
		counts: make(map[string]int),
	}
	go c.loop()
	return c
}

// Enabled reports whether events will actually leave the process.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the default client sends events.
func Enabled() bool {
	InitDefault()
	return defaultClient.Enabled()
}

// Event records one named event. Local counters update even when sending is
// disabled, so a summary can be logged at shutdown; props must be non-PII.
func (c *Client) Event(name string, props map[string]any) {
	if c == nil || name == "" {
		return
	}
	c.mu.Lock()
	c.counts[name]++
	c.mu.Unlock()
	if !c.Enabled() {
		return
	}
	ev := event{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   props,
	}
	select {
	case c.q <- ev:
	default:
		// queue full, drop
	}
}

// Event records an event on the default client.
func Event(name string, props map[string]any) { InitDefault(); defaultClient.Event(name, props) }

// Counts returns a copy of the local event counters.
func (c *Client) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the background sender after posting whatever is queued.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

// loop gathers events into small batches so a burst of parses produces one
// request, not one per event.
func (c *Client) loop() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	var batch []event
	for {
		select {
		case <-c.closed:
			c.post(batch)
			return
		case ev := <-c.q:
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				c.post(batch)
				batch = nil
			}
		case <-ticker.C:
			c.post(batch)
			batch = nil
		}
	}
}

func (c *Client) post(batch []event) {
	if len(batch) == 0 {
		return
	}
	buf, err := json.Marshal(map[string]any{"events": batch})
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, c.cfg.EventsURL, bytes.NewReader(buf))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry batch sent", slog.Int("events", len(batch)))
	}
}

// UploadCrash posts a serialized crash report if crash uploads are opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go func(b []byte) {
		req, err := http.NewRequest(http.MethodPost, c.cfg.CrashURL, bytes.NewReader(b))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp, err := c.cli.Do(req)
		if err != nil {
			if c.cfg.DebugLogging {
				c.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		_ = resp.Body.Close()
	}(append([]byte(nil), report...))
}

// UploadCrash posts a crash report via the default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }
