/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// CenterSquare crops the largest centered square out of src and resizes it to size×size.
func CenterSquare(src image.Image, size int) *image.NRGBA {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	return Scale(src, image.Rect(x0, y0, x0+side, y0+side), size, size)
}

// Scale resamples the r part of src to w×h with Catmull-Rom.
func Scale(src image.Image, r image.Rectangle, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if r.Empty() {
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, r, draw.Src, nil)
	return dst
}

// Fit returns the largest w×h that fits into box×box keeping the aspect ratio of b.
func Fit(b image.Rectangle, boxW, boxH int) (w, h int) {
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0, 0
	}
	sx := float64(boxW) / float64(b.Dx())
	sy := float64(boxH) / float64(b.Dy())
	s := min(sx, sy)
	w = max(1, int(float64(b.Dx())*s+0.5))
	h = max(1, int(float64(b.Dy())*s+0.5))
	return w, h
}
