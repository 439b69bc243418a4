/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"spritetool/internal/domain"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Editor defaults: the square crop box starts at half of the displayed image
// and large images open at 85% of the fitted size.
const (
	DefaultViewportW = 640
	DefaultViewportH = 480
	AutoCropArea     = 0.5
	FitMargin        = 0.85
	ZoomStep         = 0.1
)

var (
	ErrSessionClosed  = errors.New("editing session already closed")
	ErrInvalidSize    = errors.New("invalid output size")
	ErrEmptyCrop      = errors.New("crop box is empty")
	errEmptyImage     = errors.New("image has no pixels")
	errInvalidViewArg = errors.New("viewport must be positive")
)

// CropBox is the square crop area in viewport coordinates.
type CropBox struct {
	X, Y, Size float64
}

// View is the displayed placement of the image inside the viewport.
type View struct {
	CenterX, CenterY float64
	Ratio            float64 // viewport px per image px
	Rotation         float64 // degrees, clockwise
}

// Session is one interactive edit of a source image. It is not safe for concurrent use.
type Session struct {
	src      image.Image
	vw, vh   float64
	view     View
	crop     CropBox
	initView View
	initCrop CropBox
	closed   bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithViewport sets the editor area in pixels.
func WithViewport(w, h int) SessionOption {
	return func(s *Session) {
		s.vw, s.vh = float64(w), float64(h)
	}
}

// NewSession opens an editor on src. The image is fitted into the viewport and
// centered; if it is larger than the viewport it is shown at FitMargin of that fit.
func NewSession(src image.Image, opts ...SessionOption) (*Session, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, errEmptyImage
	}
	s := &Session{src: src, vw: DefaultViewportW, vh: DefaultViewportH}
	for _, o := range opts {
		o(s)
	}
	if s.vw <= 0 || s.vh <= 0 {
		return nil, errInvalidViewArg
	}
	w, h := s.imageSize()
	fit := s.fitRatio()
	s.view = View{CenterX: s.vw / 2, CenterY: s.vh / 2, Ratio: fit}
	side := AutoCropArea * math.Min(w*fit, h*fit)
	s.crop = CropBox{X: (s.vw - side) / 2, Y: (s.vh - side) / 2, Size: side}
	if w > s.vw || h > s.vh {
		s.view.Ratio = fit * FitMargin
	}
	s.initView, s.initCrop = s.view, s.crop
	return s, nil
}

func (s *Session) imageSize() (float64, float64) {
	b := s.src.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (s *Session) fitRatio() float64 {
	w, h := s.imageSize()
	return math.Min(s.vw/w, s.vh/h)
}

// View returns the current image placement.
func (s *Session) View() View { return s.view }

// Crop returns the current crop box.
func (s *Session) Crop() CropBox { return s.crop }

// Viewport returns the editor area size.
func (s *Session) Viewport() (w, h float64) { return s.vw, s.vh }

// Closed reports whether Confirm or Cancel ended the session.
func (s *Session) Closed() bool { return s.closed }

// Move pans the image by dx, dy viewport pixels.
func (s *Session) Move(dx, dy float64) {
	s.view.CenterX += dx
	s.view.CenterY += dy
}

// Zoom changes the ratio by a relative step around the image center.
// Positive steps enlarge by (1+d), negative steps shrink by 1/(1-d).
func (s *Session) Zoom(d float64) {
	if d >= 0 {
		s.ZoomTo(s.view.Ratio * (1 + d))
		return
	}
	s.ZoomTo(s.view.Ratio / (1 - d))
}

// ZoomTo sets an absolute ratio. Non-positive ratios are ignored.
func (s *Session) ZoomTo(ratio float64) {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return
	}
	s.view.Ratio = ratio
}

// FitToView zooms so the whole image fits with margin.
func (s *Session) FitToView() { s.ZoomTo(s.fitRatio() * FitMargin) }

// RotateLeft rotates 90 degrees counter-clockwise.
func (s *Session) RotateLeft() { s.RotateTo(s.view.Rotation - 90) }

// RotateRight rotates 90 degrees clockwise.
func (s *Session) RotateRight() { s.RotateTo(s.view.Rotation + 90) }

// RotateTo sets an absolute angle in degrees, normalized to (-360, 360).
func (s *Session) RotateTo(deg float64) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return
	}
	s.view.Rotation = math.Mod(deg, 360)
}

// Reset restores the placement and crop box the session opened with.
func (s *Session) Reset() {
	s.view, s.crop = s.initView, s.initCrop
}

// MoveCrop pans the crop box, keeping it inside the viewport.
func (s *Session) MoveCrop(dx, dy float64) {
	s.SetCrop(CropBox{X: s.crop.X + dx, Y: s.crop.Y + dy, Size: s.crop.Size})
}

// ResizeCrop grows or shrinks the crop box around its center.
func (s *Session) ResizeCrop(delta float64) {
	size := s.crop.Size + delta
	s.SetCrop(CropBox{X: s.crop.X - delta/2, Y: s.crop.Y - delta/2, Size: size})
}

// SetCrop replaces the crop box, clamped to the viewport.
func (s *Session) SetCrop(c CropBox) {
	c.Size = math.Max(1, math.Min(c.Size, math.Min(s.vw, s.vh)))
	c.X = math.Max(0, math.Min(c.X, s.vw-c.Size))
	c.Y = math.Max(0, math.Min(c.Y, s.vh-c.Size))
	s.crop = c
}

// transform maps source pixel coordinates to output pixel coordinates.
func (s *Session) transform(outputSize int) f64.Aff3 {
	k := float64(outputSize) / s.crop.Size
	rad := s.view.Rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)
	a := k * s.view.Ratio * cos
	b := -k * s.view.Ratio * sin
	d := k * s.view.Ratio * sin
	e := k * s.view.Ratio * cos
	bnd := s.src.Bounds()
	w, h := s.imageSize()
	px := float64(bnd.Min.X) + w/2
	py := float64(bnd.Min.Y) + h/2
	tx := k*(s.view.CenterX-s.crop.X) - (a*px + b*py)
	ty := k*(s.view.CenterY-s.crop.Y) - (d*px + e*py)
	return f64.Aff3{a, b, tx, d, e, ty}
}

// Render draws the crop box content at outputSize×outputSize without closing the session.
// Areas outside the image stay transparent.
func (s *Session) Render(outputSize int) (*image.RGBA, error) {
	if !domain.IsValidOutputSize(outputSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, outputSize)
	}
	if s.crop.Size <= 0 {
		return nil, ErrEmptyCrop
	}
	dst := image.NewRGBA(image.Rect(0, 0, outputSize, outputSize))
	xdraw.CatmullRom.Transform(dst, s.transform(outputSize), s.src, s.src.Bounds(), draw.Over, nil)
	return dst, nil
}

// Confirm renders the crop and closes the session, returning a PNG data URL.
func (s *Session) Confirm(outputSize int) (string, error) {
	if s.closed {
		return "", ErrSessionClosed
	}
	img, err := s.Render(outputSize)
	if err != nil {
		return "", err
	}
	out, err := ToDataURL(img)
	if err != nil {
		return "", err
	}
	s.closed = true
	return out, nil
}

// Cancel closes the session without output.
func (s *Session) Cancel() { s.closed = true }

// Edit is a non-interactive description of editor actions, applied in field order:
// Fit, Zoom, Rotation, Move, Crop.
type Edit struct {
	Fit      bool     `json:"fit,omitempty"`
	Zoom     float64  `json:"zoom,omitempty"`     // relative steps, as Session.Zoom
	Rotation float64  `json:"rotation,omitempty"` // absolute degrees
	MoveX    float64  `json:"moveX,omitempty"`
	MoveY    float64  `json:"moveY,omitempty"`
	Crop     *CropBox `json:"crop,omitempty"`
}

// ApplyEdit runs e on a fresh session over src and confirms at outputSize.
func ApplyEdit(src image.Image, e Edit, outputSize int, opts ...SessionOption) (string, error) {
	s, err := NewSession(src, opts...)
	if err != nil {
		return "", err
	}
	if e.Fit {
		s.FitToView()
	}
	if e.Zoom != 0 {
		s.Zoom(e.Zoom)
	}
	if e.Rotation != 0 {
		s.RotateTo(e.Rotation)
	}
	if e.MoveX != 0 || e.MoveY != 0 {
		s.Move(e.MoveX, e.MoveY)
	}
	if e.Crop != nil {
		s.SetCrop(*e.Crop)
	}
	return s.Confirm(outputSize)
}
