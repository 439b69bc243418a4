/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package state

import (
	"context"
	"errors"

	"spritetool/internal/domain"
	"spritetool/internal/undo"
)

var errNoHistory = errors.New("no frame history")

// frameOp runs fn on the current animation inside mutate.
func (s *Store) frameOp(ctx context.Context, op, frameID string, fn func(a *domain.Animation) error) error {
	s.mu.Lock()
	err := s.mutate(ctx, op, func(p *domain.Project) (*domain.Figure, error) {
		f := s.figureLocked()
		a := s.animationLocked()
		if f == nil || a == nil {
			return nil, ErrNoSelection
		}
		if err := fn(a); err != nil {
			return nil, err
		}
		return f, nil
	})
	c := s.currentIDsLocked()
	s.mu.Unlock()
	if err == nil {
		c.Op, c.FrameID = op, frameID
		s.emit(c)
	}
	return err
}

// AddFrame appends an empty frame to the current animation.
func (s *Store) AddFrame(ctx context.Context) (domain.Frame, error) {
	fr := domain.Frame{ID: domain.NewID(domain.FrameIDPrefix)}
	err := s.frameOp(ctx, "add_frame", fr.ID, func(a *domain.Animation) error {
		a.Frames = append(a.Frames, fr)
		a.FrameCount = len(a.Frames)
		return nil
	})
	if err != nil {
		return domain.Frame{}, err
	}
	return fr, nil
}

// DeleteFrame removes a frame slot from the current animation. The last remaining frame
// cannot be deleted (ErrLastFrame).
func (s *Store) DeleteFrame(ctx context.Context, id string) error {
	return s.frameOp(ctx, "delete_frame", id, func(a *domain.Animation) error {
		i := a.FrameIndex(id)
		if i < 0 {
			return ErrNotFound
		}
		if len(a.Frames) <= 1 {
			return ErrLastFrame
		}
		a.Frames = append(a.Frames[:i], a.Frames[i+1:]...)
		a.FrameCount = len(a.Frames)
		s.history.Clear(id)
		return nil
	})
}

// UpdateFrame assigns payload to a frame of the current animation and marks it processed.
// An empty payload clears the frame like RemoveFrame.
func (s *Store) UpdateFrame(ctx context.Context, id, payload string) error {
	return s.frameOp(ctx, "update_frame", id, func(a *domain.Animation) error {
		return s.setPayloadLocked(a, id, payload, true)
	})
}

// RemoveFrame clears the payload of a frame; the slot itself stays.
func (s *Store) RemoveFrame(ctx context.Context, id string) error {
	return s.frameOp(ctx, "remove_frame", id, func(a *domain.Animation) error {
		return s.setPayloadLocked(a, id, "", true)
	})
}

// UndoFrame restores the previous payload of a frame. It reports false when the frame has
// no history.
func (s *Store) UndoFrame(ctx context.Context, id string) (bool, error) {
	return s.stepHistory(ctx, "undo_frame", id, s.history.Undo)
}

// RedoFrame re-applies a payload undone by UndoFrame.
func (s *Store) RedoFrame(ctx context.Context, id string) (bool, error) {
	return s.stepHistory(ctx, "redo_frame", id, s.history.Redo)
}

func (s *Store) stepHistory(ctx context.Context, op, id string, step func(string, undo.Snapshot) (undo.Snapshot, bool)) (bool, error) {
	applied := false
	err := s.frameOp(ctx, op, id, func(a *domain.Animation) error {
		i := a.FrameIndex(id)
		if i < 0 {
			return ErrNotFound
		}
		cur := undo.Snapshot{Key: id, Blob: []byte(a.Frames[i].ImageData), TS: s.now()}
		prev, ok := step(id, cur)
		if !ok {
			return errNoHistory
		}
		applied = true
		return s.setPayloadLocked(a, id, string(prev.Blob), false)
	})
	if errors.Is(err, errNoHistory) {
		return false, nil
	}
	return applied, err
}

// setPayloadLocked assigns payload and keeps processed == (payload != "").
// When record is set the previous payload is pushed onto the frame history.
func (s *Store) setPayloadLocked(a *domain.Animation, id, payload string, record bool) error {
	i := a.FrameIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	fr := &a.Frames[i]
	if record {
		s.history.Push(undo.Snapshot{Key: id, Blob: []byte(fr.ImageData), TS: s.now()})
	}
	fr.ImageData = payload
	fr.Processed = payload != ""
	return nil
}
