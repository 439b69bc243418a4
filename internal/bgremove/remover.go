/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bgremove strips the background from frame payloads. The segmentation itself is
// delegated to a Segmenter; the Remover adds progress reporting and result checks, and the
// Service commits results to the project store.
package bgremove

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"spritetool/internal/imaging"
	applog "spritetool/internal/log"
)

// Progress messages reported through the onProgress callback.
const (
	MsgLoadingModel = "Loading AI model (first time only, ~30 MB)..."
	MsgRemoving     = "Removing background..."
	MsgDone         = "Background removed successfully!"
)

// ErrRemovalFailed is the only error Remove returns; the cause is logged.
var ErrRemovalFailed = errors.New("Failed to remove background. Please try again.")

// Segmenter returns a copy of the PNG with background pixels made transparent.
// progress may be called any number of times with cur <= total.
type Segmenter interface {
	Segment(ctx context.Context, png []byte, progress func(cur, total int)) ([]byte, error)
}

// SegmenterFunc adapts a function to Segmenter.
type SegmenterFunc func(ctx context.Context, png []byte, progress func(cur, total int)) ([]byte, error)

func (f SegmenterFunc) Segment(ctx context.Context, png []byte, progress func(cur, total int)) ([]byte, error) {
	return f(ctx, png, progress)
}

// Remover runs a Segmenter over data URL payloads.
type Remover struct {
	seg Segmenter
	log *slog.Logger

	mu     sync.Mutex
	loaded bool
}

// NewRemover wraps seg.
func NewRemover(seg Segmenter) *Remover {
	return &Remover{seg: seg, log: applog.WithComponent("bgremove")}
}

// ModelLoaded reports whether a removal has succeeded before.
func (r *Remover) ModelLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Remove returns dataURL with its background removed as a PNG data URL of the same
// dimensions. onProgress may be nil.
func (r *Remover) Remove(ctx context.Context, dataURL string, onProgress func(string)) (string, error) {
	report := func(msg string) {
		if onProgress != nil {
			onProgress(msg)
		}
	}
	if !r.ModelLoaded() {
		report(MsgLoadingModel)
	}
	report(MsgRemoving)

	out, err := r.remove(ctx, dataURL, func(cur, total int) {
		if total <= 0 {
			return
		}
		pct := int(math.Round(float64(cur) / float64(total) * 100))
		report(fmt.Sprintf("Processing: %d%%", pct))
	})
	if err != nil {
		applog.WithOperation(r.log, "remove").ErrorContext(ctx, "background removal failed", slog.Any("err", err))
		return "", ErrRemovalFailed
	}

	r.mu.Lock()
	r.loaded = true
	r.mu.Unlock()
	report(MsgDone)
	return out, nil
}

func (r *Remover) remove(ctx context.Context, dataURL string, progress func(cur, total int)) (string, error) {
	if r.seg == nil {
		return "", errors.New("no segmenter configured")
	}
	in, err := imaging.PNGBytes(dataURL)
	if err != nil {
		return "", err
	}
	inCfg, _, err := image.DecodeConfig(bytes.NewReader(in))
	if err != nil {
		return "", fmt.Errorf("input: %w", err)
	}
	res, err := r.seg.Segment(ctx, in, progress)
	if err != nil {
		return "", fmt.Errorf("segment: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(res))
	if err != nil {
		return "", fmt.Errorf("result: %w", err)
	}
	if b := img.Bounds(); b.Dx() != inCfg.Width || b.Dy() != inCfg.Height {
		return "", fmt.Errorf("result is %dx%d, input was %dx%d", b.Dx(), b.Dy(), inCfg.Width, inCfg.Height)
	}
	return imaging.ToDataURL(img)
}
