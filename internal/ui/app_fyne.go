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
	"errors"
	"fmt"
	"image"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"spritetool/internal/domain"
	"spritetool/internal/export"
	applog "spritetool/internal/log"
	"spritetool/internal/preview"
	"spritetool/internal/state"
)

// previewPanel is the animated preview with its playback controls.
type previewPanel struct {
	store    *state.Store
	renderer *preview.Renderer
	log      *slog.Logger

	image  *canvas.Image
	status *widget.Label
	play   *widget.Button
	fps    *widget.Entry
	picker *widget.Select
	ids    []string
	animID string
}

func newPreviewPanel(st *state.Store) *previewPanel {
	p := &previewPanel{store: st, log: applog.WithComponent("ui")}
	opts := preview.DefaultOptions()
	opts.Placeholder = "No frames"
	blank := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	p.image = canvas.NewImageFromImage(blank)
	p.image.FillMode = canvas.ImageFillContain
	p.image.SetMinSize(fyne.NewSize(float32(opts.Width), float32(opts.Height)))
	p.status = widget.NewLabel("Frame 0 / 0")
	p.renderer = preview.New(p.onFrame, opts)

	p.play = widget.NewButton("Pause", p.togglePause)
	p.fps = widget.NewEntry()
	p.fps.SetText(fmt.Sprint(domain.DefaultFPS))
	p.fps.OnSubmitted = p.applyFPS
	p.picker = widget.NewSelect(nil, p.onPick)
	p.reload()
	return p
}

// onFrame runs on the renderer goroutine; widget updates are marshalled to the UI thread.
func (p *previewPanel) onFrame(img *image.RGBA, index int) {
	_, _, _, total := p.renderer.Status()
	fyne.Do(func() {
		p.image.Image = img
		p.image.Refresh()
		if index < 0 {
			p.status.SetText("No frames")
			return
		}
		p.status.SetText(fmt.Sprintf("Frame %d / %d", index+1, total))
	})
}

func (p *previewPanel) togglePause() {
	if p.renderer.TogglePause() {
		p.play.SetText("Play")
	} else {
		p.play.SetText("Pause")
	}
}

func (p *previewPanel) applyFPS(text string) {
	fps := parseFPS(text)
	p.fps.SetText(fmt.Sprint(fps))
	p.renderer.SetFPS(fps)
	if p.animID == "" {
		return
	}
	if err := p.store.UpdateAnimation(context.Background(), p.animID, state.AnimationPatch{FPS: &fps}); err != nil {
		p.log.Warn("update fps failed", slog.Any("err", err))
	}
}

func (p *previewPanel) onPick(label string) {
	for i, l := range p.picker.Options {
		if l == label && i < len(p.ids) {
			if p.ids[i] != p.animID {
				p.store.SelectAnimation(p.ids[i])
			}
			return
		}
	}
}

// reload re-reads the selection and retargets the renderer when the animation changed.
func (p *previewPanel) reload() {
	sel := p.store.Selection()
	labels, ids := animationChoices(sel.Figure)
	p.ids = ids
	p.picker.Options = labels
	p.picker.Refresh()
	if sel.Animation == nil {
		p.animID = ""
		p.renderer.SetTarget(domain.Animation{})
		return
	}
	a := *sel.Animation
	p.animID = a.ID
	p.fps.SetText(fmt.Sprint(domain.ClampFPS(a.FPS)))
	for i, id := range ids {
		if id == a.ID {
			p.picker.SetSelectedIndex(i)
		}
	}
	p.renderer.SetTarget(a)
	p.status.SetText(frameLabel(0, len(a.Populated()), a.FrameCount))
}

func (p *previewPanel) exportCurrent(w fyne.Window) {
	sel := p.store.Selection()
	if sel.Animation == nil || sel.Figure == nil {
		dialog.ShowError(errors.New("select an animation first"), w)
		return
	}
	a, figName := *sel.Animation, sel.Figure.Name
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if dir == nil {
			return
		}
		go func() {
			err := export.ExportOne(context.Background(), a, figName, export.DirSink{Dir: dir.Path()})
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				dialog.ShowInformation("Export", "Saved "+export.ArchiveName(figName, a.Name), w)
			})
		}()
	}, w)
}

// Run opens the preview window for the store's current selection and blocks until it closes.
func Run(st *state.Store) error {
	if st == nil {
		return errors.New("no project store")
	}
	a := app.NewWithID("dev.spritetool.app")
	w := a.NewWindow("Sprite Tool")

	p := newPreviewPanel(st)
	unsubscribe := st.Subscribe(func(state.Change) { fyne.Do(p.reload) })
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := p.renderer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Warn("preview loop ended", slog.Any("err", err))
		}
	}()
	w.SetOnClosed(func() {
		cancel()
		p.renderer.Stop()
	})

	title := "No project open"
	if sel := st.Selection(); sel.Project != nil {
		title = sel.Project.Name
	}
	controls := container.NewHBox(
		p.play,
		widget.NewLabel("FPS"),
		container.NewGridWrap(fyne.NewSize(64, p.fps.MinSize().Height), p.fps),
		widget.NewButton("Export ZIP", func() { p.exportCurrent(w) }),
	)
	top := container.NewVBox(widget.NewLabelWithStyle(title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}), p.picker)
	bottom := container.NewVBox(p.status, controls)
	w.SetContent(container.NewBorder(top, bottom, nil, nil, container.NewCenter(p.image)))
	w.Resize(fyne.NewSize(420, 480))
	w.ShowAndRun()
	cancel()
	return nil
}
