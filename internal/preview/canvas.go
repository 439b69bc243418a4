/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preview plays animations onto an RGBA canvas: a checkerboard backdrop with the
// current frame scaled to fit and centered. A Renderer drives playback from a ticker; RenderGIF
// records one loop into an animated GIF.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Options control the canvas of a Renderer.
type Options struct {
	Width, Height int
	CheckSize     int
	Light, Dark   color.RGBA
	// Scale shrinks the fitted frame; 1 fills the canvas on the limiting side.
	Scale float64
	// Placeholder is drawn once when the target has no frames. Empty draws nothing.
	Placeholder      string
	PlaceholderColor color.RGBA
	// Refresh is the scheduler period of Run.
	Refresh time.Duration
}

func rgb(hex uint32) color.RGBA {
	return color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0xff}
}

// DefaultOptions is the main animation preview: 256×256, 10 px checks.
func DefaultOptions() Options {
	return Options{
		Width:     256,
		Height:    256,
		CheckSize: 10,
		Light:     rgb(0xe2e8f0),
		Dark:      rgb(0xcbd5e1),
		Scale:     1,
		Refresh:   time.Second / 60,
	}
}

// GalleryOptions is the small per-animation tile of the figure overview.
func GalleryOptions() Options {
	return Options{
		Width:            128,
		Height:           128,
		CheckSize:        8,
		Light:            rgb(0xf1f5f9),
		Dark:             rgb(0xe2e8f0),
		Scale:            0.9,
		Placeholder:      "No frames",
		PlaceholderColor: rgb(0xcbd5e1),
		Refresh:          time.Second / 60,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.CheckSize <= 0 {
		o.CheckSize = d.CheckSize
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Refresh <= 0 {
		o.Refresh = d.Refresh
	}
	return o
}

// checkerboard fills dst with alternating squares starting with Light at the origin.
func checkerboard(dst *image.RGBA, size int, light, dark color.RGBA) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += size {
		for x := b.Min.X; x < b.Max.X; x += size {
			c := dark
			if ((x-b.Min.X)/size+(y-b.Min.Y)/size)%2 == 0 {
				c = light
			}
			r := image.Rect(x, y, x+size, y+size).Intersect(b)
			draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
}

// composeFrame draws the checkerboard and frame fitted, scaled and centered.
func composeFrame(o Options, frame image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	checkerboard(dst, o.CheckSize, o.Light, o.Dark)
	fb := frame.Bounds()
	if fb.Empty() {
		return dst
	}
	s := min(float64(o.Width)/float64(fb.Dx()), float64(o.Height)/float64(fb.Dy())) * o.Scale
	w := float64(fb.Dx()) * s
	h := float64(fb.Dy()) * s
	x0 := int((float64(o.Width) - w) / 2)
	y0 := int((float64(o.Height) - h) / 2)
	r := image.Rect(x0, y0, x0+int(w+0.5), y0+int(h+0.5))
	xdraw.ApproxBiLinear.Scale(dst, r, frame, fb, draw.Over, nil)
	return dst
}

// composePlaceholder renders the placeholder text centered on a transparent canvas.
func composePlaceholder(o Options) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(o.PlaceholderColor), Face: basicfont.Face7x13}
	tw := d.MeasureString(o.Placeholder).Ceil()
	m := basicfont.Face7x13.Metrics()
	th := (m.Ascent + m.Descent).Ceil()
	d.Dot = fixed.P((o.Width-tw)/2, (o.Height-th)/2+m.Ascent.Ceil())
	d.DrawString(o.Placeholder)
	return dst
}
