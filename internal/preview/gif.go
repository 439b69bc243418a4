/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"time"

	"spritetool/internal/domain"
)

// ErrNoFrames is returned when an animation has nothing to record.
var ErrNoFrames = errors.New("no frames to preview")

// RenderGIF records one loop of a through a Renderer and returns it as an endlessly
// looping GIF.
func RenderGIF(a domain.Animation, opts Options) (*gif.GIF, error) {
	var canvases []*image.RGBA
	r := New(func(c *image.RGBA, _ int) { canvases = append(canvases, c) }, opts)
	r.SetTarget(a)
	_, _, _, total := r.Status()
	if total == 0 {
		return nil, ErrNoFrames
	}
	r.Start()
	delay := time.Second / time.Duration(domain.ClampFPS(a.FPS))
	t0 := time.Unix(0, 0)
	for i := 0; i < total; i++ {
		r.Tick(t0.Add(time.Duration(i) * delay))
	}

	cs := int(math.Max(2, math.Round(100/float64(domain.ClampFPS(a.FPS)))))
	out := &gif.GIF{LoopCount: 0}
	for _, c := range canvases {
		p := image.NewPaletted(c.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(p, p.Bounds(), c, image.Point{})
		out.Image = append(out.Image, p)
		out.Delay = append(out.Delay, cs)
	}
	return out, nil
}

// EncodeGIF writes RenderGIF's result to w.
func EncodeGIF(w io.Writer, a domain.Animation, opts Options) error {
	g, err := RenderGIF(a, opts)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(w, g); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}
