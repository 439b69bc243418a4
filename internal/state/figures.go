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

// FigurePatch lists the editable figure fields.
type FigurePatch struct {
	Name *string
}

// CreateFigure appends a figure to the current project and selects it.
func (s *Store) CreateFigure(ctx context.Context, name string) (domain.Figure, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.Figure{}, err
	}
	var out domain.Figure
	s.mu.Lock()
	err = s.mutate(ctx, "create_figure", func(p *domain.Project) (*domain.Figure, error) {
		now := s.now()
		p.Figures = append(p.Figures, domain.Figure{
			ID:           domain.NewID(domain.FigureIDPrefix),
			Name:         name,
			Created:      now,
			LastModified: now,
			Animations:   []domain.Animation{},
		})
		f := &p.Figures[len(p.Figures)-1]
		s.figureID, s.animationID = f.ID, ""
		return f, nil
	})
	if err == nil {
		out = s.figureLocked().Clone()
	}
	c := s.currentIDsLocked()
	s.mu.Unlock()
	if err == nil {
		c.Op = "create_figure"
		s.emit(c)
	}
	return out, err
}

// SelectFigure makes the figure current. Switching figures clears the animation pointer.
// A missing id leaves the state unchanged and returns false.
func (s *Store) SelectFigure(id string) bool {
	s.mu.Lock()
	if s.project == nil || s.project.FigureByID(id) == nil {
		s.mu.Unlock()
		return false
	}
	if s.figureID != id {
		s.figureID, s.animationID = id, ""
	}
	c := s.currentIDsLocked()
	s.mu.Unlock()
	c.Op = "select_figure"
	s.emit(c)
	return true
}

// UpdateFigure applies patch to a figure of the current project.
func (s *Store) UpdateFigure(ctx context.Context, id string, patch FigurePatch) error {
	var name string
	if patch.Name != nil {
		n, err := cleanName(*patch.Name)
		if err != nil {
			return err
		}
		name = n
	}
	s.mu.Lock()
	err := s.mutate(ctx, "update_figure", func(p *domain.Project) (*domain.Figure, error) {
		f := p.FigureByID(id)
		if f == nil {
			return nil, ErrNotFound
		}
		if patch.Name != nil {
			f.Name = name
		}
		return f, nil
	})
	c := s.currentIDsLocked()
	s.mu.Unlock()
	if err == nil {
		c.Op, c.FigureID = "update_figure", id
		s.emit(c)
	}
	return err
}

// DeleteFigure removes a figure with its animations and frames. Deleting the current
// figure clears the figure and animation pointers.
func (s *Store) DeleteFigure(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.mutate(ctx, "delete_figure", func(p *domain.Project) (*domain.Figure, error) {
		for i := range p.Figures {
			if p.Figures[i].ID != id {
				continue
			}
			s.clearFramesHistoryLocked(p.Figures[i])
			p.Figures = append(p.Figures[:i], p.Figures[i+1:]...)
			if s.figureID == id {
				s.figureID, s.animationID = "", ""
			}
			return nil, nil
		}
		return nil, ErrNotFound
	})
	c := s.currentIDsLocked()
	s.mu.Unlock()
	if err == nil {
		c.Op = "delete_figure"
		s.emit(c)
	}
	return err
}
