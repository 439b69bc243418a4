/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"spritetool/internal/config"
)

// OpenKV builds the backend selected by cfg.Backend.
func OpenKV(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "sqlite":
		return OpenSQLiteKV(ctx, filepath.Join(cfg.Dir, SQLiteFileName))
	case "file":
		return NewFileKV(cfg.Dir)
	case "redis":
		return DialRedisKV(ctx, cfg.RedisAddr)
	case "postgres":
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, fmt.Errorf("storage backend postgres requires a DSN")
		}
		return OpenPostgresKV(ctx, cfg.PostgresDSN)
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Open builds the configured backend and wraps it in a Gateway.
func Open(ctx context.Context, cfg config.StorageConfig) (*Gateway, error) {
	kv, err := OpenKV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewGateway(kv, cfg.Key), nil
}
