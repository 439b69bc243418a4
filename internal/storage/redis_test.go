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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKVRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	kv, err := DialRedisKV(ctx, mr.Addr())
	require.NoError(t, err)
	defer func() { _ = kv.Close() }()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	g := NewGateway(kv, DefaultKey)
	p := sampleProject("project-r", "Redis")
	require.NoError(t, g.Save(ctx, p))

	raw, err := mr.Get(DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"schemaVersion":2`)
	assert.Zero(t, mr.TTL(DefaultKey), "values must not expire")

	got, err := g.Load(ctx, "project-r")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	require.NoError(t, g.Delete(ctx, "project-r"))
	all, err := g.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRedisKVSharedClientNotClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	kv := NewRedisKV(client)
	require.NoError(t, kv.Close())
	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestDialRedisKVFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := DialRedisKV(context.Background(), addr)
	assert.Error(t, err)
}
