/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bgremove

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"spritetool/internal/domain"
)

var (
	// ErrBusy rejects a second removal on a frame that already has one in flight.
	ErrBusy = errors.New("background removal already running for this frame")
	// ErrNoImage rejects frames without a payload.
	ErrNoImage = errors.New("frame has no image")
	// ErrUnknownFrame is returned when the frame is not in the current animation.
	ErrUnknownFrame = errors.New("frame not found")
)

// FrameStore is the part of the project store the Service needs.
type FrameStore interface {
	Frame(id string) (domain.Frame, bool)
	UpdateFrame(ctx context.Context, id, payload string) error
}

// Service applies removals to frames of a store, one at a time per frame.
type Service struct {
	remover *Remover

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates a Service around r.
func NewService(r *Remover) *Service {
	return &Service{remover: r, inflight: map[string]struct{}{}}
}

// Remover returns the wrapped remover.
func (s *Service) Remover() *Remover { return s.remover }

// Busy reports whether frameID has a removal in flight.
func (s *Service) Busy(frameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[frameID]
	return ok
}

// Apply removes the background of the frame's payload and commits the result with
// UpdateFrame. The store is not touched when removal fails.
func (s *Service) Apply(ctx context.Context, store FrameStore, frameID string, onProgress func(string)) error {
	s.mu.Lock()
	if _, ok := s.inflight[frameID]; ok {
		s.mu.Unlock()
		return ErrBusy
	}
	s.inflight[frameID] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, frameID)
		s.mu.Unlock()
	}()

	f, ok := store.Frame(frameID)
	if !ok {
		return ErrUnknownFrame
	}
	if !f.HasImage() {
		return ErrNoImage
	}
	out, err := s.remover.Remove(ctx, f.ImageData, onProgress)
	if err != nil {
		return err
	}
	if err := store.UpdateFrame(ctx, frameID, out); err != nil {
		return fmt.Errorf("commit frame: %w", err)
	}
	return nil
}
