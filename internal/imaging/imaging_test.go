/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// halves returns a w×h image, left half red and right half blue.
func halves(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, red)
			} else {
				img.SetNRGBA(x, y, blue)
			}
		}
	}
	return img
}

func decode(t *testing.T, dataURL string) image.Image {
	t.Helper()
	if !strings.HasPrefix(dataURL, PNGPrefix) {
		t.Fatalf("payload is not a png data URL: %.40s", dataURL)
	}
	img, err := DecodeDataURL(dataURL)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func isRed(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return a > 0xf000 && r > 0xf000 && g < 0x1000 && b < 0x1000
}

func isBlue(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return a > 0xf000 && b > 0xf000 && g < 0x1000 && r < 0x1000
}

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		ct   string
		size int64
		want string
	}{
		{"image/png", 1024, ""},
		{"image/jpeg", MaxUploadBytes, ""},
		{"image/jpg", 10, ""},
		{"image/gif", 10, msgBadType},
		{"text/plain", 10, msgBadType},
		{"image/png", MaxUploadBytes + 1, msgTooLarge},
	}
	for _, c := range cases {
		err := ValidateUpload(c.ct, c.size)
		if c.want == "" {
			if err != nil {
				t.Fatalf("%s/%d: unexpected error %v", c.ct, c.size, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Message != c.want {
			t.Fatalf("%s/%d: got %v, want %q", c.ct, c.size, err, c.want)
		}
	}
}

func TestDecodeUpload(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, halves(8, 4)); err != nil {
		t.Fatal(err)
	}
	img, format, err := DecodeUpload(&buf)
	if err != nil || format != "png" {
		t.Fatalf("decode: %v %q", err, format)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Fatalf("bounds %v", img.Bounds())
	}

	_, _, err = DecodeUpload(bytes.NewReader(make([]byte, MaxUploadBytes+1)))
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Message != msgTooLarge {
		t.Fatalf("oversized upload: %v", err)
	}
	if _, _, err := DecodeUpload(strings.NewReader("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	u, err := ToDataURL(halves(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	mt, data, err := ParseDataURL(u)
	if err != nil || mt != "image/png" || len(data) == 0 {
		t.Fatalf("parse: %q %d %v", mt, len(data), err)
	}
	b, err := PNGBytes(u)
	if err != nil || !bytes.Equal(b, data) {
		t.Fatalf("png bytes differ: %v", err)
	}
	for _, bad := range []string{"", "image/png;base64,AAAA", "data:image/png,AAAA", "data:image/png;base64"} {
		if _, _, err := ParseDataURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestCenterSquare(t *testing.T) {
	// 300x100: the centered square is x 100..200, which straddles the color split at 150.
	out := CenterSquare(halves(300, 100), 64)
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
		t.Fatalf("size %v", out.Bounds())
	}
	if !isRed(out.At(5, 32)) || !isBlue(out.At(58, 32)) {
		t.Fatalf("unexpected colors %v %v", out.At(5, 32), out.At(58, 32))
	}
	w, h := Fit(image.Rect(0, 0, 200, 100), 50, 50)
	if w != 50 || h != 25 {
		t.Fatalf("fit %dx%d", w, h)
	}
}

func TestSessionInitialPlacement(t *testing.T) {
	small, err := NewSession(halves(100, 100), WithViewport(200, 200))
	if err != nil {
		t.Fatal(err)
	}
	if v := small.View(); v.Ratio != 2 || v.CenterX != 100 || v.CenterY != 100 {
		t.Fatalf("small view %+v", v)
	}
	if c := small.Crop(); c.Size != 100 || c.X != 50 || c.Y != 50 {
		t.Fatalf("small crop %+v", c)
	}

	large, err := NewSession(halves(1280, 960), WithViewport(640, 480))
	if err != nil {
		t.Fatal(err)
	}
	if r := large.View().Ratio; math.Abs(r-0.5*FitMargin) > 1e-9 {
		t.Fatalf("large ratio %v", r)
	}
	if c := large.Crop(); c.Size != 240 {
		t.Fatalf("large crop %+v", c)
	}
}

func TestSessionZoomRotateReset(t *testing.T) {
	s, _ := NewSession(halves(100, 100), WithViewport(200, 200))
	r0 := s.View().Ratio
	s.Zoom(ZoomStep)
	if math.Abs(s.View().Ratio-r0*1.1) > 1e-9 {
		t.Fatalf("zoom in %v", s.View().Ratio)
	}
	s.Zoom(-ZoomStep)
	if math.Abs(s.View().Ratio-r0) > 1e-9 {
		t.Fatalf("zoom out %v", s.View().Ratio)
	}
	s.ZoomTo(-1)
	if math.Abs(s.View().Ratio-r0) > 1e-9 {
		t.Fatalf("negative ratio applied")
	}
	s.FitToView()
	if math.Abs(s.View().Ratio-2*FitMargin) > 1e-9 {
		t.Fatalf("fit %v", s.View().Ratio)
	}
	s.RotateRight()
	s.RotateRight()
	s.RotateLeft()
	if s.View().Rotation != 90 {
		t.Fatalf("rotation %v", s.View().Rotation)
	}
	s.RotateTo(405)
	if s.View().Rotation != 45 {
		t.Fatalf("free rotation %v", s.View().Rotation)
	}
	s.Move(10, -5)
	s.MoveCrop(1000, 1000)
	if c := s.Crop(); c.X != 100 || c.Y != 100 {
		t.Fatalf("crop not clamped %+v", c)
	}
	s.Reset()
	if s.View().Rotation != 0 || s.View().Ratio != r0 || s.View().CenterX != 100 || s.Crop().X != 50 {
		t.Fatalf("reset %+v %+v", s.View(), s.Crop())
	}
}

func TestSessionConfirm(t *testing.T) {
	s, _ := NewSession(halves(100, 100), WithViewport(200, 200))
	out := decode(t, mustConfirm(t, s, 64))
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
		t.Fatalf("size %v", out.Bounds())
	}
	if !isRed(out.At(10, 32)) || !isBlue(out.At(54, 32)) {
		t.Fatalf("colors %v %v", out.At(10, 32), out.At(54, 32))
	}
	if !s.Closed() {
		t.Fatalf("session should be closed")
	}
	if _, err := s.Confirm(64); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("second confirm: %v", err)
	}
}

func TestSessionConfirmRotated(t *testing.T) {
	s, _ := NewSession(halves(100, 100), WithViewport(200, 200))
	s.RotateRight()
	out := decode(t, mustConfirm(t, s, 128))
	// Clockwise: the red left half ends up on top.
	if !isRed(out.At(64, 10)) || !isBlue(out.At(64, 118)) {
		t.Fatalf("colors %v %v", out.At(64, 10), out.At(64, 118))
	}
}

func TestSessionConfirmOutsideImageIsTransparent(t *testing.T) {
	s, _ := NewSession(halves(100, 100), WithViewport(200, 200))
	s.Move(1000, 0)
	out := decode(t, mustConfirm(t, s, 64))
	if _, _, _, a := out.At(32, 32).RGBA(); a != 0 {
		t.Fatalf("expected transparent pixel, alpha %d", a)
	}
}

func TestSessionCancelAndInvalidSize(t *testing.T) {
	s, _ := NewSession(halves(10, 10))
	if _, err := s.Confirm(100); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("invalid size: %v", err)
	}
	if s.Closed() {
		t.Fatalf("failed confirm must not close")
	}
	s.Cancel()
	if _, err := s.Confirm(64); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("after cancel: %v", err)
	}
	if _, err := NewSession(image.NewNRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Fatalf("empty image accepted")
	}
}

func TestApplyEdit(t *testing.T) {
	u, err := ApplyEdit(halves(100, 100), Edit{Rotation: 180}, 64, WithViewport(200, 200))
	if err != nil {
		t.Fatal(err)
	}
	out := decode(t, u)
	if !isBlue(out.At(10, 32)) || !isRed(out.At(54, 32)) {
		t.Fatalf("colors %v %v", out.At(10, 32), out.At(54, 32))
	}
}

func mustConfirm(t *testing.T, s *Session, size int) string {
	t.Helper()
	u, err := s.Confirm(size)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return u
}
