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
	"log/slog"

	"spritetool/internal/domain"
	applog "spritetool/internal/log"
)

// ProjectPatch lists the editable project fields; nil fields are left unchanged.
type ProjectPatch struct {
	Name *string
}

// CreateProject creates an empty project, makes it current and persists it.
func (s *Store) CreateProject(ctx context.Context, name string) (domain.Project, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.Project{}, err
	}
	s.mu.Lock()
	now := s.now()
	p := domain.Project{
		ID:           domain.NewID(domain.ProjectIDPrefix),
		Name:         name,
		Created:      now,
		LastModified: now,
		Figures:      []domain.Figure{},
	}
	s.project = &p
	s.figureID, s.animationID = "", ""
	s.persistLocked(ctx, "create_project")
	out := p.Clone()
	c := s.currentIDsLocked()
	s.mu.Unlock()
	c.Op = "create_project"
	s.emit(c)
	return out, nil
}

// ListProjects returns every stored project. Storage failures yield an empty list.
func (s *Store) ListProjects(ctx context.Context) []domain.Project {
	if s.gw == nil {
		return []domain.Project{}
	}
	all, err := s.gw.LoadAll(ctx)
	if err != nil {
		applog.WithOperation(s.log, "list_projects").WarnContext(ctx, "load projects failed", slog.Any("err", err))
		return []domain.Project{}
	}
	return all
}

// SelectProject loads the project with id and makes it current, clearing the figure and
// animation pointers. A missing id leaves the state unchanged and returns false.
func (s *Store) SelectProject(ctx context.Context, id string) bool {
	if s.gw == nil {
		return false
	}
	p, err := s.gw.Load(ctx, id)
	if err != nil {
		applog.WithOperation(s.log, "select_project").DebugContext(ctx, "project not loaded", slog.String("id", id), slog.Any("err", err))
		return false
	}
	if p.Figures == nil {
		p.Figures = []domain.Figure{}
	}
	s.mu.Lock()
	s.project = &p
	s.figureID, s.animationID = "", ""
	c := s.currentIDsLocked()
	s.mu.Unlock()
	c.Op = "select_project"
	s.emit(c)
	return true
}

// UpdateProject applies patch to the current project.
func (s *Store) UpdateProject(ctx context.Context, patch ProjectPatch) error {
	var name string
	if patch.Name != nil {
		n, err := cleanName(*patch.Name)
		if err != nil {
			return err
		}
		name = n
	}
	s.mu.Lock()
	err := s.mutate(ctx, "update_project", func(p *domain.Project) (*domain.Figure, error) {
		if patch.Name != nil {
			p.Name = name
		}
		return nil, nil
	})
	c := s.currentIDsLocked()
	s.mu.Unlock()
	if err == nil {
		c.Op = "update_project"
		s.emit(c)
	}
	return err
}

// DeleteProject removes the project from storage. Deleting the current project also
// clears every current pointer.
func (s *Store) DeleteProject(ctx context.Context, id string) {
	s.mu.Lock()
	if s.gw != nil {
		if err := s.gw.Delete(ctx, id); err != nil {
			applog.WithOperation(s.log, "delete_project").WarnContext(ctx, "delete failed", slog.String("id", id), slog.Any("err", err))
		}
	}
	if s.project != nil && s.project.ID == id {
		s.clearFramesHistoryLocked(s.project.Figures...)
		s.project = nil
		s.figureID, s.animationID = "", ""
	}
	s.mu.Unlock()
	s.emit(Change{Op: "delete_project", ProjectID: id})
}

// CloseProject clears every current pointer without touching storage.
func (s *Store) CloseProject() {
	s.mu.Lock()
	s.project = nil
	s.figureID, s.animationID = "", ""
	s.mu.Unlock()
	s.emit(Change{Op: "close_project"})
}

// SelectPath selects a project, then optionally a figure and an animation within it.
// The project is only reloaded when it is not already current. It reports whether every
// non-empty id resolved; resolution stops at the first miss.
func (s *Store) SelectPath(ctx context.Context, projectID, figureID, animationID string) bool {
	if projectID != "" {
		s.mu.Lock()
		current := s.project != nil && s.project.ID == projectID
		s.mu.Unlock()
		if !current && !s.SelectProject(ctx, projectID) {
			return false
		}
	}
	if figureID != "" && !s.SelectFigure(figureID) {
		return false
	}
	if animationID != "" && !s.SelectAnimation(animationID) {
		return false
	}
	return true
}

func (s *Store) clearFramesHistoryLocked(figs ...domain.Figure) {
	for _, f := range figs {
		for _, a := range f.Animations {
			s.clearAnimationHistoryLocked(a)
		}
	}
}

func (s *Store) clearAnimationHistoryLocked(a domain.Animation) {
	for _, fr := range a.Frames {
		s.history.Clear(fr.ID)
	}
}
