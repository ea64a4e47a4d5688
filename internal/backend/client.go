/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"screenwright/internal/screenplay"
)

// Client is a minimal HTTP client for the shared archive API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Script is the catalog projection returned by the list endpoint.
type Script struct {
	ID         int64     `json:"id"`
	StableID   string    `json:"stable_id"`
	Title      string    `json:"title"`
	Format     string    `json:"format"`
	Scenes     int       `json:"scenes"`
	Characters int       `json:"characters"`
	Confidence float64   `json:"confidence"`
	Blocked    bool      `json:"blocked"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UploadRequest is the body of POST /api/scripts.
type UploadRequest struct {
	StableID string                       `json:"stable_id"`
	Blocked  bool                         `json:"blocked"`
	Document *screenplay.NormalizedScript `json:"document"`
}

// ListScripts returns archived scripts, newest first.
func (c *Client) ListScripts(ctx context.Context) ([]Script, error) {
	var list []Script
	if err := c.doJSON(ctx, http.MethodGet, "/api/scripts", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DocumentEnvelope matches the server response for a stored script document.
type DocumentEnvelope struct {
	ScriptID  int64                        `json:"script_id"`
	UpdatedAt string                       `json:"updated_at"`
	Document  *screenplay.NormalizedScript `json:"document"`
}

// GetScript fetches one archived script document by server id.
func (c *Client) GetScript(ctx context.Context, id int64) (*DocumentEnvelope, error) {
	var env DocumentEnvelope
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/scripts/%d", id), nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// UploadScript pushes a parsed document to the shared archive.
func (c *Client) UploadScript(ctx context.Context, stableID string, doc *screenplay.NormalizedScript, blocked bool) (int64, error) {
	var resp struct {
		ID json.Number `json:"id"`
	}
	req := UploadRequest{StableID: stableID, Blocked: blocked, Document: doc}
	if err := c.doJSON(ctx, http.MethodPost, "/api/scripts", req, &resp); err != nil {
		return 0, err
	}
	id, err := resp.ID.Int64()
	if err != nil {
		return 0, fmt.Errorf("parse id: %w", err)
	}
	return id, nil
}
