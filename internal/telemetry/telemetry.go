/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry is an opt-in sender for anonymous usage events and crash reports.
// It never sees image payloads or names; only counts, formats and durations are sent.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	applog "spritetool/internal/log"
	"spritetool/internal/version"
)

// Event names sent by the tool.
const (
	EventServe             = "serve_started"
	EventExport            = "export"
	EventBackgroundRemoved = "background_removed"
	EventUIOpened          = "ui_opened"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
// - SPRITE_TELEMETRY_OPT_IN: "1", "true", "yes" to enable events
// - SPRITE_TELEMETRY_URL: URL to POST JSON events to
// - SPRITE_CRASH_UPLOAD_URL: URL to POST crash reports to
// - SPRITE_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
// - SPRITE_TELEMETRY_DEBUG: "1", "true", "yes" to log send attempts
//
// If no URLs are set, events are dropped even if opt-in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// switchValue accepts "1", "true", "yes" and "on" (any case) as enabled.
type switchValue bool

func (v *switchValue) UnmarshalText(text []byte) error {
	*v = switchValue(parseBool(string(text)))
	return nil
}

// envConfig is the environment form of Config.
type envConfig struct {
	OptIn     switchValue `env:"SPRITE_TELEMETRY_OPT_IN"`
	EventsURL string      `env:"SPRITE_TELEMETRY_URL"`
	CrashURL  string      `env:"SPRITE_CRASH_UPLOAD_URL"`
	TimeoutMs int         `env:"SPRITE_TELEMETRY_TIMEOUT_MS" envDefault:"1500"`
	Debug     switchValue `env:"SPRITE_TELEMETRY_DEBUG"`
}

// FromEnv reads Config from the environment. Malformed values disable telemetry.
func FromEnv() Config {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		applog.WithComponent("telemetry").Warn("parse telemetry env", slog.Any("err", err))
		return Config{Timeout: 1500 * time.Millisecond}
	}
	cfg := Config{
		OptIn:        bool(raw.OptIn),
		EventsURL:    strings.TrimSpace(raw.EventsURL),
		CrashURL:     strings.TrimSpace(raw.CrashURL),
		Timeout:      time.Duration(raw.TimeoutMs) * time.Millisecond,
		DebugLogging: bool(raw.Debug),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	return cfg
}

// WithOptIn returns cfg with opt-in enabled when either the environment or the
// persisted setting asks for it.
func (c Config) WithOptIn(persisted bool) Config {
	c.OptIn = c.OptIn || persisted
	return c
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client is a minimal async sender; it drops events silently on errors.
// The queue is bounded so callers never block.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan any
	once   sync.Once
	closed chan struct{}
}

var (
	defaultMu   sync.Mutex
	defaultOnce sync.Once
	defaultCli  *Client
)

// InitDefault installs a default client from the environment when none is set.
func InitDefault() {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultCli == nil {
			defaultCli = New(FromEnv())
		}
	})
}

// NewDefault replaces the default client with one built from cfg.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultCli
	defaultCli = c
	defaultMu.Unlock()
	if old != nil {
		old.Close()
	}
}

func def() *Client {
	InitDefault()
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultCli
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the default client sends events.
func Enabled() bool { return def().Enabled() }

// Event queues a small JSON event if enabled. Property values other than numbers,
// booleans and short strings are dropped, as are props named like the envelope fields.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; reserved || !safeValue(v) {
			continue
		}
		payload[k] = v
	}
	select {
	case c.q <- payload:
	default:
		// queue full
	}
}

func safeValue(v any) bool {
	switch x := v.(type) {
	case bool, int, int64, float64:
		return true
	case string:
		return len(x) <= 32
	}
	return false
}

// Event sends through the default client.
func Event(name string, props map[string]any) { def().Event(name, props) }

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
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

// Flush drains the default client.
func Flush(ctx context.Context) { def().Flush(ctx) }

// Close stops the sender goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
		}
	}
}

func (c *Client) send(item any) {
	buf, _ := json.Marshal(item)
	c.post(c.cfg.EventsURL, "application/json", buf, "telemetry event")
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug(what+" failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug(what+" sent", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts an already serialized crash report to the crash URL if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", append([]byte(nil), report...), "crash upload")
}

// UploadCrash uploads through the default client.
func UploadCrash(report []byte) { def().UploadCrash(report) }
