/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables (including a .env file in the working directory) are treated as
// read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type StorageConfig struct {
	Backend     string `yaml:"backend"` // "sqlite" | "file" | "redis" | "postgres" | "memory"
	Dir         string `yaml:"dir"`
	Key         string `yaml:"key"`
	RedisAddr   string `yaml:"redis_addr"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

type ExportConfig struct {
	Dir     string `yaml:"dir"`
	DelayMs int    `yaml:"delay_ms"`
}

type SegmentationConfig struct {
	Mode      string `yaml:"mode"` // "local" | "http"
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int                `yaml:"config_version"`
	General       GeneralConfig      `yaml:"general"`
	Storage       StorageConfig      `yaml:"storage"`
	Server        ServerConfig       `yaml:"server"`
	Export        ExportConfig       `yaml:"export"`
	Segmentation  SegmentationConfig `yaml:"segmentation"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DefaultStorageKey is the single key holding the project collection.
const DefaultStorageKey = "sprite-tool-projects"

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Storage:       StorageConfig{Backend: "sqlite", Dir: defaultDataDir(), Key: DefaultStorageKey, RedisAddr: "localhost:6379"},
		Server:        ServerConfig{Addr: ":8080", AllowOrigins: []string{"*"}},
		Export:        ExportConfig{Dir: "exports", DelayMs: 500},
		Segmentation:  SegmentationConfig{Mode: "local", URL: "http://localhost:7000/segment", TimeoutMs: 0},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "SPRITE_CONFIG"
	EnvStorageBackend  = "SPRITE_STORAGE_BACKEND"
	EnvStorageDir      = "SPRITE_STORAGE_DIR"
	EnvStorageKey      = "SPRITE_STORAGE_KEY"
	EnvRedisAddr       = "SPRITE_REDIS_ADDR"
	EnvPostgresDSN     = "SPRITE_POSTGRES_DSN"
	EnvServerAddr      = "SPRITE_SERVER_ADDR"
	EnvAllowOrigins    = "SPRITE_ALLOW_ORIGINS"
	EnvExportDir       = "SPRITE_EXPORT_DIR"
	EnvExportDelayMs   = "SPRITE_EXPORT_DELAY_MS"
	EnvSegmentMode     = "SPRITE_SEGMENT_MODE"
	EnvSegmentURL      = "SPRITE_SEGMENT_URL"
	EnvSegmentTimeout  = "SPRITE_SEGMENT_TIMEOUT_MS"
	EnvTelemetryOptIn  = "SPRITE_TELEMETRY_OPT_IN"
	EnvLogLevel        = "SPRITE_LOG_LEVEL"
	EnvLogFormat       = "SPRITE_LOG_FORMAT"
	EnvLogSource       = "SPRITE_LOG_SOURCE"
	EnvLogFile         = "SPRITE_LOG_FILE"
	EnvSegmentToken    = "SPRITE_SEGMENT_TOKEN"
	dotenvDefaultFile  = ".env"
	keyringService     = "SpriteTool"
	keyringSegmentUser = "segmentation_token"
)

// tokenStore abstracts the OS keyring so tests can stub it.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error { return keyring.Delete(service, key) }

// SetTokenStore replaces the token store and returns a restore func.
func SetTokenStore(ts TokenStore) func() {
	old := tokenStore
	tokenStore = ts
	return func() { tokenStore = old }
}

func defaultDataDir() string {
	base, err := userDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(base, "data")
}

func userDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SpriteTool")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SpriteTool")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "spritetool")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path. SPRITE_CONFIG takes precedence.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := userDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default .env) into the process
// environment without overwriting variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{dotenvDefaultFile}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// Load reads the user config file (if present), applies defaults, and merges environment
// overrides. The segmentation token is read from SPRITE_SEGMENT_TOKEN or the keyring and
// returned separately.
func Load() (AppConfig, string, error) {
	LoadDotEnv()
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok := strings.TrimSpace(os.Getenv(EnvSegmentToken))
	if tok == "" {
		tok, _ = tokenStore.Get(keyringService, keyringSegmentUser)
	}
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringSegmentUser, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	// storage
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); v != "" {
		dst.Storage.Backend = v
	}
	if v := strings.TrimSpace(src.Storage.Dir); v != "" {
		dst.Storage.Dir = v
	}
	if v := strings.TrimSpace(src.Storage.Key); v != "" {
		dst.Storage.Key = v
	}
	if v := strings.TrimSpace(src.Storage.RedisAddr); v != "" {
		dst.Storage.RedisAddr = v
	}
	if v := strings.TrimSpace(src.Storage.PostgresDSN); v != "" {
		dst.Storage.PostgresDSN = v
	}
	// server
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	if len(src.Server.AllowOrigins) > 0 {
		dst.Server.AllowOrigins = append([]string(nil), src.Server.AllowOrigins...)
	}
	// export
	if v := strings.TrimSpace(src.Export.Dir); v != "" {
		dst.Export.Dir = v
	}
	if src.Export.DelayMs != 0 {
		dst.Export.DelayMs = src.Export.DelayMs
	}
	// segmentation
	if v := strings.ToLower(strings.TrimSpace(src.Segmentation.Mode)); v != "" {
		dst.Segmentation.Mode = v
	}
	if v := strings.TrimSpace(src.Segmentation.URL); v != "" {
		dst.Segmentation.URL = v
	}
	if src.Segmentation.TimeoutMs != 0 {
		dst.Segmentation.TimeoutMs = src.Segmentation.TimeoutMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	str := func(key string, dst *string, lower bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if lower {
				v = strings.ToLower(v)
			}
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = truthy(v)
		}
	}

	str(EnvStorageBackend, &cfg.Storage.Backend, true)
	str(EnvStorageDir, &cfg.Storage.Dir, false)
	str(EnvStorageKey, &cfg.Storage.Key, false)
	str(EnvRedisAddr, &cfg.Storage.RedisAddr, false)
	str(EnvPostgresDSN, &cfg.Storage.PostgresDSN, false)
	str(EnvServerAddr, &cfg.Server.Addr, false)
	if v := strings.TrimSpace(os.Getenv(EnvAllowOrigins)); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowOrigins = origins
	}
	str(EnvExportDir, &cfg.Export.Dir, false)
	num(EnvExportDelayMs, &cfg.Export.DelayMs)
	str(EnvSegmentMode, &cfg.Segmentation.Mode, true)
	str(EnvSegmentURL, &cfg.Segmentation.URL, false)
	num(EnvSegmentTimeout, &cfg.Segmentation.TimeoutMs)
	flag(EnvTelemetryOptIn, &cfg.General.TelemetryOptIn)
	str(EnvLogLevel, &cfg.Logging.Level, true)
	str(EnvLogFormat, &cfg.Logging.Format, true)
	flag(EnvLogSource, &cfg.Logging.Source)
	str(EnvLogFile, &cfg.Logging.File, false)
}

var overrideKeys = map[string]string{
	"storage.backend":          EnvStorageBackend,
	"storage.dir":              EnvStorageDir,
	"storage.key":              EnvStorageKey,
	"storage.redis_addr":       EnvRedisAddr,
	"storage.postgres_dsn":     EnvPostgresDSN,
	"server.addr":              EnvServerAddr,
	"server.allow_origins":     EnvAllowOrigins,
	"export.dir":               EnvExportDir,
	"export.delay_ms":          EnvExportDelayMs,
	"segmentation.mode":        EnvSegmentMode,
	"segmentation.url":         EnvSegmentURL,
	"segmentation.timeout_ms":  EnvSegmentTimeout,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := overrideKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// ExportDelay returns the inter-export delay. A negative value disables it.
func (e ExportConfig) ExportDelay() time.Duration {
	if e.DelayMs < 0 {
		return 0
	}
	return time.Duration(e.DelayMs) * time.Millisecond
}

// Timeout returns the HTTP client timeout for the segmentation service; zero means none.
func (s SegmentationConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}
