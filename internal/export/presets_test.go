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
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"spritetool/internal/domain"
)

func sampleFigure(t *testing.T) domain.Figure {
	red := framePNG(t, color.NRGBA{R: 255, A: 255})
	walkAnim := walk(t, red, "", red)
	idle := walk(t, "")
	idle.Name = "idle"
	return domain.Figure{ID: "figure-hero", Name: "Hero", Animations: []domain.Animation{walkAnim, idle}}
}

func TestBatchExport_GamePreset(t *testing.T) {
	root := t.TempDir()
	written, err := fixedExporter().BatchExport(context.Background(), sampleFigure(t), BatchOptions{Preset: PresetGame, OutDir: root})
	if err != nil {
		t.Fatalf("batch export game: %v", err)
	}
	want := filepath.Join(root, "game", "zip", "Hero_walk.zip")
	if len(written) != 1 || written[0] != want {
		t.Fatalf("written %v", written)
	}
	if st, err := os.Stat(want); err != nil || st.Size() <= 0 {
		t.Fatalf("missing %s: %v", want, err)
	}
}

func TestBatchExport_ReviewPreset(t *testing.T) {
	root := t.TempDir()
	var calls int
	opt := BatchOptions{Preset: PresetReview, OutDir: root, OnProgress: func(int, int) { calls++ }}
	if _, err := fixedExporter().BatchExport(context.Background(), sampleFigure(t), opt); err != nil {
		t.Fatalf("batch export review: %v", err)
	}
	checks := []string{
		filepath.Join(root, "review", "zip", "Hero_walk.zip"),
		filepath.Join(root, "review", "pdf", "Hero_walk.pdf"),
		filepath.Join(root, "review", "gif", "Hero_walk.gif"),
	}
	for _, p := range checks {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
	if calls != 1 {
		t.Fatalf("progress calls %d", calls)
	}
}

func TestBatchExport_Errors(t *testing.T) {
	fig := sampleFigure(t)
	if _, err := fixedExporter().BatchExport(context.Background(), fig, BatchOptions{Formats: []string{"svg"}, OutDir: t.TempDir()}); err == nil {
		t.Fatalf("unknown format accepted")
	}
	fig.Animations = fig.Animations[1:]
	if _, err := fixedExporter().BatchExport(context.Background(), fig, BatchOptions{OutDir: t.TempDir()}); !errors.Is(err, ErrNoAnimations) {
		t.Fatalf("got %v", err)
	}
}
