/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bgremove

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResultBytes bounds the segmentation service response.
const maxResultBytes = 64 << 20

// HTTPSegmenter posts the PNG to a segmentation service and reads the PNG it returns.
type HTTPSegmenter struct {
	URL    string
	Token  string // bearer token
	client *http.Client
}

// NewHTTPSegmenter creates a segmenter for url. A zero timeout means no client timeout.
func NewHTTPSegmenter(url, token string, timeout time.Duration) *HTTPSegmenter {
	return &HTTPSegmenter{
		URL:    strings.TrimRight(url, "/"),
		Token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPSegmenter) Segment(ctx context.Context, png []byte, progress func(cur, total int)) ([]byte, error) {
	if progress != nil {
		progress(0, 1)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(png))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "image/png")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("segmentation service: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(1, 1)
	}
	return data, nil
}
