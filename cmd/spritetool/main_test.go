/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SPRITE_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("SPRITE_STORAGE_BACKEND", "file")
	t.Setenv("SPRITE_STORAGE_DIR", filepath.Join(dir, "data"))
	t.Setenv("SPRITE_SEGMENT_TOKEN", "test")
	t.Setenv("SPRITE_LOG_LEVEL", "error")
	t.Setenv("SPRITE_EXPORT_DELAY_MS", "-1")
	return dir
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if code := run(args, &out); code != 0 {
		t.Fatalf("run %v exited %d: %s", args, code, out.String())
	}
	return out.String()
}

// createdID extracts the id from "Created ... (<id>)" output.
func createdID(t *testing.T, out string) string {
	t.Helper()
	i, j := strings.LastIndex(out, "("), strings.LastIndex(out, ")")
	if i < 0 || j < i {
		t.Fatalf("no id in %q", out)
	}
	return out[i+1 : j]
}

func TestVersionAndUsage(t *testing.T) {
	setupEnv(t)
	if out := runOK(t, "version"); !strings.Contains(out, "Sprite Tool") {
		t.Fatalf("version output: %q", out)
	}
	if out := runOK(t); !strings.Contains(out, "Usage:") {
		t.Fatalf("usage output: %q", out)
	}
	var out bytes.Buffer
	if code := run([]string{"bogus"}, &out); code != 2 {
		t.Fatalf("unknown command should exit 2, got %d", code)
	}
}

func TestProjectFlowThroughExport(t *testing.T) {
	dir := setupEnv(t)

	pid := createdID(t, runOK(t, "init", "Demo"))
	fid := createdID(t, runOK(t, "figure", "add", pid, "Hero"))
	out := runOK(t, "animation", "add", "-frames", "2", pid, fid, "walk")
	aid := out[strings.Index(out, "(")+1 : strings.Index(out, ")")]

	img := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "in.png")
	if err := os.WriteFile(src, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	runOK(t, "frame", "set", pid, fid, aid, "2", src)

	list := runOK(t, "list")
	if !strings.Contains(list, "Demo") || !strings.Contains(list, "walk  1/2 frames") {
		t.Fatalf("list output: %s", list)
	}

	outDir := filepath.Join(dir, "out")
	runOK(t, "export", "-out", outDir, pid, fid, aid)
	zr, err := zip.OpenReader(filepath.Join(outDir, "Hero_walk.zip"))
	if err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	defer zr.Close()
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["metadata.json"] || !names["walk_01.png"] || len(names) != 2 {
		t.Fatalf("archive entries: %v", names)
	}

	gifPath := filepath.Join(dir, "walk.gif")
	runOK(t, "preview-gif", pid, fid, aid, gifPath)
	if st, err := os.Stat(gifPath); err != nil || st.Size() == 0 {
		t.Fatalf("gif not written: %v", err)
	}
}

func TestFrameDeleteLastIsRejected(t *testing.T) {
	setupEnv(t)
	pid := createdID(t, runOK(t, "init", "Solo"))
	fid := createdID(t, runOK(t, "figure", "add", pid, "F"))
	out := runOK(t, "animation", "add", "-frames", "1", pid, fid, "idle")
	aid := out[strings.Index(out, "(")+1 : strings.Index(out, ")")]

	var buf bytes.Buffer
	if code := run([]string{"frame", "delete", pid, fid, aid, "1"}, &buf); code != 1 {
		t.Fatalf("deleting the last frame should fail, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "at least one frame") {
		t.Fatalf("unexpected message: %s", buf.String())
	}
}

func TestUnknownProject(t *testing.T) {
	setupEnv(t)
	var buf bytes.Buffer
	if code := run([]string{"figure", "add", "project-missing", "X"}, &buf); code != 1 {
		t.Fatalf("expected failure, got %d", code)
	}
}
