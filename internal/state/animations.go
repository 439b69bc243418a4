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

	"spritetool/internal/domain"
)

// AnimationPatch lists the editable animation fields. FPS is clamped to 1..60; an
// OutputSize outside domain.ValidOutputSizes is rejected. Frames already baked at another
// size keep it until they are edited again.
type AnimationPatch struct {
	Name       *string
	FPS        *int
	OutputSize *int
}

// CreateAnimation appends an animation with frameCount empty frames to the current figure
// and selects it. New animations play at 12 fps with a 128 px output size.
func (s *Store) CreateAnimation(ctx context.Context, name string, frameCount int) (domain.Animation, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.Animation{}, err
	}
	if frameCount < 1 || frameCount > domain.MaxInitialFrames {
		return domain.Animation{}, ErrInvalidFrameCount
	}
	var out domain.Animation
	s.mu.Lock()
	err = s.mutate(ctx, "create_animation", func(p *domain.Project) (*domain.Figure, error) {
		f := s.figureLocked()
		if f == nil {
			return nil, ErrNoSelection
		}
		frames := make([]domain.Frame, frameCount)
		for i := range frames {
			frames[i] = domain.Frame{ID: domain.NewID(domain.FrameIDPrefix)}
		}
		f.Animations = append(f.Animations, domain.Animation{
			ID:         domain.NewID(domain.AnimationIDPrefix),
			Name:       name,
			FrameCount: frameCount,
			FPS:        domain.DefaultFPS,
			OutputSize: domain.DefaultOutputSize,
			Frames:     frames,
		})
		a := &f.Animations[len(f.Animations)-1]
		s.animationID = a.ID
		out = a.Clone()
		return f, nil
	})
	c := s.currentIDsLocked()
	s.mu.Unlock()
	if err == nil {
		c.Op = "create_animation"
		s.emit(c)
	}
	return out, err
}

// SelectAnimation makes an animation of the current figure current.
// A missing id leaves the state unchanged and returns false.
func (s *Store) SelectAnimation(id string) bool {
	s.mu.Lock()
	f := s.figureLocked()
	if f == nil || f.AnimationByID(id) == nil {
		s.mu.Unlock()
		return false
	}
	s.animationID = id
	c := s.currentIDsLocked()
	s.mu.Unlock()
	c.Op = "select_animation"
	s.emit(c)
	return true
}

// UpdateAnimation applies patch to an animation of the current figure.
func (s *Store) UpdateAnimation(ctx context.Context, id string, patch AnimationPatch) error {
	var name string
	if patch.Name != nil {
		n, err := cleanName(*patch.Name)
		if err != nil {
			return err
		}
		name = n
	}
	if patch.OutputSize != nil && !domain.IsValidOutputSize(*patch.OutputSize) {
		return ErrInvalidOutputSize
	}
	s.mu.Lock()
	err := s.mutate(ctx, "update_animation", func(p *domain.Project) (*domain.Figure, error) {
		f := s.figureLocked()
		if f == nil {
			return nil, ErrNoSelection
		}
		a := f.AnimationByID(id)
		if a == nil {
			return nil, ErrNotFound
		}
		if patch.Name != nil {
			a.Name = name
		}
		if patch.FPS != nil {
			a.FPS = domain.ClampFPS(*patch.FPS)
		}
		if patch.OutputSize != nil {
			a.OutputSize = *patch.OutputSize
		}
		return f, nil
	})
	c := s.currentIDsLocked()
	s.mu.Unlock()
	if err == nil {
		c.Op, c.AnimationID = "update_animation", id
		s.emit(c)
	}
	return err
}

// DeleteAnimation removes an animation of the current figure with its frames.
// Deleting the current animation clears its pointer.
func (s *Store) DeleteAnimation(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.mutate(ctx, "delete_animation", func(p *domain.Project) (*domain.Figure, error) {
		f := s.figureLocked()
		if f == nil {
			return nil, ErrNoSelection
		}
		for i := range f.Animations {
			if f.Animations[i].ID != id {
				continue
			}
			s.clearAnimationHistoryLocked(f.Animations[i])
			f.Animations = append(f.Animations[:i], f.Animations[i+1:]...)
			if s.animationID == id {
				s.animationID = ""
			}
			return f, nil
		}
		return nil, ErrNotFound
	})
	c := s.currentIDsLocked()
	s.mu.Unlock()
	if err == nil {
		c.Op = "delete_animation"
		s.emit(c)
	}
	return err
}
