//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"testing"

	"fyne.io/fyne/v2/test"

	"spritetool/internal/state"
	"spritetool/internal/storage"
)

func TestPreviewPanelFollowsSelection(t *testing.T) {
	test.NewApp()
	ctx := context.Background()
	st := state.New(storage.NewGateway(storage.NewMemoryKV(), ""))
	if _, err := st.CreateProject(ctx, "P"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateFigure(ctx, "Hero"); err != nil {
		t.Fatal(err)
	}
	a, err := st.CreateAnimation(ctx, "walk", 4)
	if err != nil {
		t.Fatal(err)
	}
	p := newPreviewPanel(st)
	if p.animID != a.ID {
		t.Fatalf("panel targets %q want %q", p.animID, a.ID)
	}
	if len(p.picker.Options) != 1 {
		t.Fatalf("picker options: %v", p.picker.Options)
	}
	p.applyFPS("30")
	if got := st.Selection().Animation.FPS; got != 30 {
		t.Fatalf("fps not persisted: %d", got)
	}
	p.togglePause()
	if p.play.Text != "Play" {
		t.Fatalf("button text %q", p.play.Text)
	}
}
