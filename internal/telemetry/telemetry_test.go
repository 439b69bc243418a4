/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
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

func TestClient_EventAndUploadCrash(t *testing.T) {
	var mu sync.Mutex
	var events [][]byte
	var crashes [][]byte

	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		mu.Lock()
		events = append(events, append([]byte(nil), b...))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		mu.Lock()
		crashes = append(crashes, append([]byte(nil), b...))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second}
	c := New(cfg)
	defer c.Close()

	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}

	// Send an event and flush
	c.Event("started", map[string]any{"k": "v"})
	c.Flush(context.Background())

	// Wait briefly for loop to send
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	ecount := len(events)
	mu.Unlock()
	if ecount == 0 {
		t.Fatalf("expected at least one event to be sent")
	}

	// Validate event JSON has name and ts
	var m map[string]any
	if err := json.Unmarshal(events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "started" {
		t.Fatalf("event name mismatch: %v", m["name"])
	}
	if _, ok := m["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}

	// Upload a crash report
	c.UploadCrash([]byte("STACKTRACE"))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	ccount := len(crashes)
	mu.Unlock()
	if ccount == 0 {
		t.Fatalf("expected crash upload to be sent")
	}
}

func TestEnabled_DefaultClientAndFromEnv(t *testing.T) {
	t.Setenv("SPRITE_TELEMETRY_OPT_IN", "true")
	t.Setenv("SPRITE_TELEMETRY_URL", "http://127.0.0.1:0") // bogus URL but presence enables
	t.Setenv("SPRITE_CRASH_UPLOAD_URL", "")
	t.Setenv("SPRITE_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout <= 0 {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}

	NewDefault(cfg)
	if !Enabled() {
		t.Fatalf("default Enabled should be true with env config")
	}
}

func TestConfigWithOptIn(t *testing.T) {
	if !(Config{}).WithOptIn(true).OptIn {
		t.Fatalf("persisted opt-in should enable")
	}
	if (Config{}).WithOptIn(false).OptIn {
		t.Fatalf("default must stay disabled")
	}
	if !(Config{OptIn: true}).WithOptIn(false).OptIn {
		t.Fatalf("env opt-in should win")
	}
}

func TestEventDropsUnsafeProps(t *testing.T) {
	got := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		got <- m
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	c.Event(EventExport, map[string]any{
		"format": "zip",
		"frames": 12,
		"label":  "a label that is far too long to be considered anonymous data",
		"blob":   []byte("x"),
		"name":   "spoofed",
		"os":     "plan9",
	})
	select {
	case m := <-got:
		if m["format"] != "zip" || m["frames"] != float64(12) {
			t.Fatalf("missing props: %v", m)
		}
		if _, ok := m["label"]; ok {
			t.Fatalf("long string leaked: %v", m)
		}
		if _, ok := m["blob"]; ok {
			t.Fatalf("bytes leaked: %v", m)
		}
		if m["name"] != EventExport {
			t.Fatalf("event name overwritten: %v", m["name"])
		}
		if m["os"] == "plan9" {
			t.Fatalf("os field overwritten: %v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestFromEnvTypedValues(t *testing.T) {
	t.Setenv("SPRITE_TELEMETRY_OPT_IN", "Yes")
	t.Setenv("SPRITE_TELEMETRY_URL", " http://example.test/events ")
	t.Setenv("SPRITE_TELEMETRY_TIMEOUT_MS", "250")
	t.Setenv("SPRITE_TELEMETRY_DEBUG", "on")
	cfg := FromEnv()
	if !cfg.OptIn || !cfg.DebugLogging {
		t.Fatalf("switches not parsed: %+v", cfg)
	}
	if cfg.EventsURL != "http://example.test/events" || cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("values not parsed: %+v", cfg)
	}

	t.Setenv("SPRITE_TELEMETRY_TIMEOUT_MS", "soon")
	if cfg := FromEnv(); cfg.OptIn || cfg.Timeout != 1500*time.Millisecond {
		t.Fatalf("malformed env should disable telemetry: %+v", cfg)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SPRITE_TELEMETRY_OPT_IN", "")
	t.Setenv("SPRITE_TELEMETRY_DEBUG", "")
	cfg := FromEnv()
	if cfg.OptIn || cfg.DebugLogging || cfg.Timeout != 1500*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
