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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupsDirName holds timestamped copies of previous values under the data dir.
const BackupsDirName = "backups"

// DefaultMaxBackups is the number of backups kept per key.
const DefaultMaxBackups = 10

// FileKV stores every key as <dir>/<key>.json with transactional writes.
// Before a value is replaced the previous file is copied to a timestamped backup.
// A file that cannot be read or is not valid JSON falls back to the latest valid backup.
type FileKV struct {
	Dir        string
	MaxBackups int
}

// NewFileKV creates dir (and its backups folder) if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileKV{Dir: dir, MaxBackups: DefaultMaxBackups}, nil
}

func (k *FileKV) path(key string) string {
	return filepath.Join(k.Dir, fileName(key))
}

func fileName(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return r.Replace(key) + ".json"
}

func (k *FileKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(k.path(key))
	if err == nil && json.Valid(b) {
		return b, true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		if bb, berr := k.latestBackup(key); berr == nil {
			return bb, true, nil
		}
		return nil, false, nil
	}
	if bb, berr := k.latestBackup(key); berr == nil {
		return bb, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	// Corrupt with no usable backup: hand the bytes up, the gateway treats them as empty.
	return b, true, nil
}

// Set writes value to a temp file in the same directory, then renames it over the target.
func (k *FileKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := k.path(key)
	bdir := filepath.Join(k.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", fileName(key), stamp))
		if cerr := copyFile(target, bpath); cerr != nil {
			return fmt.Errorf("backup current value: %w", cerr)
		}
		k.pruneBackups(key)
	}
	temp := filepath.Join(k.Dir, fmt.Sprintf(".%s.tmp-%d-%d", fileName(key), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, value); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", key, rerr)
	}
	return nil
}

func (k *FileKV) Close() error { return nil }

func (k *FileKV) backups(key string) []string {
	bdir := filepath.Join(k.Dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	prefix := fileName(key) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out
}

func (k *FileKV) pruneBackups(key string) {
	limit := k.MaxBackups
	if limit <= 0 {
		return
	}
	list := k.backups(key)
	for len(list) > limit {
		_ = os.Remove(list[0])
		list = list[1:]
	}
}

// latestBackup returns the newest backup holding valid JSON.
func (k *FileKV) latestBackup(key string) ([]byte, error) {
	list := k.backups(key)
	for i := len(list) - 1; i >= 0; i-- {
		b, err := os.ReadFile(list[i])
		if err == nil && json.Valid(b) {
			return b, nil
		}
	}
	return nil, errors.New("no usable backup")
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
