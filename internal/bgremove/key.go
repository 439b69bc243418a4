/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bgremove

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"

	"spritetool/internal/imaging"
)

// DefaultTolerance is the per-channel distance (0..255) within which a pixel still
// counts as background.
const DefaultTolerance = 32

// KeySegmenter is the local fallback: it flood-fills from every border pixel and makes
// connected pixels close to the border colour transparent.
type KeySegmenter struct {
	Tolerance int
}

func (k KeySegmenter) Segment(ctx context.Context, in []byte, progress func(cur, total int)) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	img := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)

	tol := k.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	total := w * h
	step := max(1, total/20)
	seen := make([]bool, total)
	done := 0
	var queue []int

	fill := func(seed int) error {
		ref := img.NRGBAAt(seed%w, seed/w)
		queue = append(queue[:0], seed)
		seen[seed] = true
		for len(queue) > 0 {
			p := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := p%w, p/w
			img.SetNRGBA(x, y, color.NRGBA{})
			done++
			if done%step == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
				if progress != nil {
					progress(done, total)
				}
			}
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				q := ny*w + nx
				if seen[q] || !near(img.NRGBAAt(nx, ny), ref, tol) {
					continue
				}
				seen[q] = true
				queue = append(queue, q)
			}
		}
		return nil
	}

	for x := 0; x < w; x++ {
		for _, y := range []int{0, h - 1} {
			if p := y*w + x; !seen[p] {
				if err := fill(p); err != nil {
					return nil, err
				}
			}
		}
	}
	for y := 0; y < h; y++ {
		for _, x := range []int{0, w - 1} {
			if p := y*w + x; !seen[p] {
				if err := fill(p); err != nil {
					return nil, err
				}
			}
		}
	}
	if progress != nil {
		progress(total, total)
	}
	return imaging.EncodePNG(img)
}

// near compares colours channel-wise. Fully transparent pixels match each other.
func near(a, b color.NRGBA, tol int) bool {
	if a.A < 16 && b.A < 16 {
		return true
	}
	d := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return d(a.R, b.R) <= tol && d(a.G, b.G) <= tol && d(a.B, b.B) <= tol && d(a.A, b.A) <= tol
}
