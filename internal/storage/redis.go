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
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores values as plain Redis strings without expiry.
type RedisKV struct {
	client *redis.Client
	owned  bool
}

// NewRedisKV wraps an existing client. Close does not close it.
func NewRedisKV(client *redis.Client) *RedisKV { return &RedisKV{client: client} }

// DialRedisKV connects to addr and pings it.
func DialRedisKV(ctx context.Context, addr string) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisKV{client: client, owned: true}, nil
}

func (k *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, true, nil
}

func (k *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := k.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (k *RedisKV) Close() error {
	if !k.owned {
		return nil
	}
	return k.client.Close()
}
