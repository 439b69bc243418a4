/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink delivers a finished export file.
type Sink interface {
	Deliver(ctx context.Context, name string, data []byte) error
}

// DirSink writes exports under Dir, replacing files of the same name atomically.
type DirSink struct {
	Dir string
}

func (d DirSink) Deliver(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(name))
	tmp, err := os.CreateTemp(d.Dir, ".export-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Path returns where a delivered file named name ends up.
func (d DirSink) Path(name string) string { return filepath.Join(d.Dir, filepath.Base(name)) }

// WriterSink streams the file to W. Before, when set, runs first with the file name and
// size, e.g. to set attachment headers.
type WriterSink struct {
	W      io.Writer
	Before func(name string, size int)
}

func (s WriterSink) Deliver(_ context.Context, name string, data []byte) error {
	if s.Before != nil {
		s.Before(name, len(data))
	}
	_, err := s.W.Write(data)
	return err
}

// MemorySink keeps delivered files in order.
type MemorySink struct {
	mu    sync.Mutex
	names []string
	files map[string][]byte
}

func (m *MemorySink) Deliver(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.names = append(m.names, name)
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// Names lists delivered file names in delivery order.
func (m *MemorySink) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}

// File returns a delivered file.
func (m *MemorySink) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[name]
	return b, ok
}
