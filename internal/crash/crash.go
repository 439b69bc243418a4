/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus a JSON snapshot of the open project.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"spritetool/internal/domain"
	applog "spritetool/internal/log"
	"spritetool/internal/telemetry"
	"spritetool/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Source yields the project to snapshot; nil Project means nothing is open.
type Source interface {
	Selection() Snapshot
}

// Snapshot is the part of the selection written next to a crash report.
type Snapshot struct {
	Project *domain.Project
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Snapshot

func (f SourceFunc) Selection() Snapshot { return f() }

// Target describes where reports go and what to snapshot.
// An empty Dir writes into the OS temp dir.
type Target struct {
	Dir    string
	Source Source
}

// Recover captures a panic, logs it with a stacktrace, writes a crash report and,
// when a project is open, a snapshot of it.
//
// Usage: defer crash.Recover(t)
func Recover(t *Target) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(t, r, stack)
		if path, err := writeSnapshot(t); err != nil {
			l.Error("crash snapshot failed", slog.Any("err", err))
		} else if path != "" {
			l.Info("crash snapshot written", slog.String("path", path))
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func reportDir(t *Target) string {
	if t != nil && t.Dir != "" {
		_ = os.MkdirAll(t.Dir, 0o755)
		return t.Dir
	}
	return os.TempDir()
}

func snapshotOf(t *Target) *domain.Project {
	if t == nil || t.Source == nil {
		return nil
	}
	return t.Source.Selection().Project
}

func writeReport(t *Target, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(t), fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Sprite Tool Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if p := snapshotOf(t); p != nil {
		frames := 0
		for _, f := range p.Figures {
			for _, a := range f.Animations {
				frames += len(a.Frames)
			}
		}
		_, _ = fmt.Fprintf(&buf, "Project: %s (%d figures, %d frames)\n", p.ID, len(p.Figures), frames)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	// opt-in only; the report carries ids and counts, never names or images
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// writeSnapshot stores the open project as indented JSON. It returns "" when nothing is open.
func writeSnapshot(t *Target) (string, error) {
	p := snapshotOf(t)
	if p == nil {
		return "", nil
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(t), fmt.Sprintf("crash-%s-project.json", stamp))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	return path, os.Rename(tmp, path)
}
