/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps bounded per-frame payload history for undo/redo.
package undo

import (
	"sync"
	"time"
)

// Snapshot is one state of a frame payload. Blob is opaque to the manager;
// size is estimated as len(Blob). TS is when the snapshot was captured.
type Snapshot struct {
	Key  string
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerKey limits the undo depth per key (0 means unlimited).
	MaxPerKey int
	// MinInterval coalesces pushes for the same key within the interval: the earlier
	// snapshot is kept so one undo returns to the state before the burst. Zero disables it.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per key with memory safeguards.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting across both stacks
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 * 1024 * 1024 // 64 MiB
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records the state a key had before a change and clears its redo stack.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.Key)
	stack := m.undo[s.Key]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 && s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
		return
	}
	m.undo[s.Key] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Key)
}

// Undo swaps current onto the redo stack and returns the previous state of the key.
func (m *Manager) Undo(key string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[key]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.setUndoLocked(key, stack[:len(stack)-1])
	m.totalBytes -= len(s.Blob)
	current.Key = key
	m.redo[key] = append(m.redo[key], current)
	m.totalBytes += len(current.Blob)
	m.enforceCapsLocked(key)
	return s, true
}

// Redo swaps current back onto the undo stack and returns the state that was undone.
func (m *Manager) Redo(key string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[key]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	if len(r) == 1 {
		delete(m.redo, key)
	} else {
		m.redo[key] = r[:len(r)-1]
	}
	m.totalBytes -= len(s.Blob)
	current.Key = key
	m.undo[key] = append(m.undo[key], current)
	m.totalBytes += len(current.Blob)
	m.enforceCapsLocked(key)
	return s, true
}

// CanUndo and CanRedo report whether history exists for key.
func (m *Manager) CanUndo(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[key]) > 0
}

func (m *Manager) CanRedo(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[key]) > 0
}

// Clear drops all history for key, e.g. when its frame is deleted.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[key] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, key)
	m.dropRedoLocked(key)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, keys int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, keys, totalSnapshots
}

func (m *Manager) dropRedoLocked(key string) {
	for _, s := range m.redo[key] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, key)
}

func (m *Manager) setUndoLocked(key string, stack []Snapshot) {
	if len(stack) == 0 {
		delete(m.undo, key)
		return
	}
	m.undo[key] = stack
}

func (m *Manager) enforceCapsLocked(key string) {
	if m.cfg.MaxPerKey > 0 {
		stack := m.undo[key]
		if len(stack) > m.cfg.MaxPerKey {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerKey
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[key] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune the oldest undo entry across all keys
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestKey := ""
		found := false
		var oldestTS time.Time
		for k, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestKey = k
				oldestTS = stack[0].TS
				found = true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestKey]
		m.totalBytes -= len(stack[0].Blob)
		m.setUndoLocked(oldestKey, stack[1:])
	}
}
