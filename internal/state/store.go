/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package state holds the open project and the current selection, and applies every
// mutation of the project hierarchy. Each mutation runs inside one transactional update
// that edits the owned entities in place, re-stamps lastModified and writes the project
// through to the persistence gateway.
package state

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"spritetool/internal/domain"
	applog "spritetool/internal/log"
	"spritetool/internal/undo"
)

var (
	// ErrNoSelection is returned when an operation needs a current project, figure or
	// animation and none is selected. Callers treat it as a no-op.
	ErrNoSelection = errors.New("nothing selected")
	// ErrNotFound is returned when an id does not resolve within the current selection.
	ErrNotFound = errors.New("not found")
	// ErrLastFrame rejects deleting the only remaining frame of an animation.
	ErrLastFrame = errors.New("an animation must have at least one frame")
	// ErrInvalidName rejects blank names.
	ErrInvalidName = errors.New("name must not be empty")
	// ErrInvalidFrameCount rejects a new animation with fewer than one or too many slots.
	ErrInvalidFrameCount = errors.New("frame count must be between 1 and 60")
	// ErrInvalidOutputSize rejects sizes outside domain.ValidOutputSizes.
	ErrInvalidOutputSize = errors.New("output size must be 64, 128, 256 or 512")
)

// Gateway is the persistence the store writes through to.
type Gateway interface {
	Save(ctx context.Context, p domain.Project) error
	Load(ctx context.Context, id string) (domain.Project, error)
	LoadAll(ctx context.Context) ([]domain.Project, error)
	Delete(ctx context.Context, id string) error
}

// Change describes a completed mutation or selection change.
type Change struct {
	Op          string
	ProjectID   string
	FigureID    string
	AnimationID string
	FrameID     string
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithHistory replaces the default frame history manager.
func WithHistory(m *undo.Manager) Option { return func(s *Store) { s.history = m } }

// Store is the single source of truth for the open project and the current selection.
// It is safe for concurrent use; mutations are serialized.
type Store struct {
	mu      sync.Mutex
	gw      Gateway
	now     func() time.Time
	history *undo.Manager
	log     *slog.Logger

	project     *domain.Project
	figureID    string
	animationID string

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// New constructs a store writing through to gw. No project is open initially.
func New(gw Gateway, opts ...Option) *Store {
	s := &Store{
		gw:   gw,
		now:  func() time.Time { return time.Now().UTC() },
		log:  applog.WithComponent("state"),
		subs: map[int]func(Change){},
	}
	for _, o := range opts {
		o(s)
	}
	if s.history == nil {
		s.history = undo.NewManager(undo.Config{MaxPerKey: 20})
	}
	return s
}

// Subscribe registers fn for every completed change. The returned func unsubscribes.
// fn runs outside the store lock and may call back into the store.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Selection is a deep copy of the current pointers; nil fields are not selected.
type Selection struct {
	Project   *domain.Project
	Figure    *domain.Figure
	Animation *domain.Animation
}

// Selection returns deep copies of the current project, figure and animation.
func (s *Store) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

// TrySelection is Selection without blocking. It reports false when the store lock is
// held, for instance by a mutation that panicked on the calling goroutine.
func (s *Store) TrySelection() (Selection, bool) {
	if !s.mu.TryLock() {
		return Selection{}, false
	}
	defer s.mu.Unlock()
	return s.selectionLocked(), true
}

func (s *Store) selectionLocked() Selection {
	var sel Selection
	if s.project == nil {
		return sel
	}
	p := s.project.Clone()
	sel.Project = &p
	if f := s.figureLocked(); f != nil {
		fc := f.Clone()
		sel.Figure = &fc
	}
	if a := s.animationLocked(); a != nil {
		ac := a.Clone()
		sel.Animation = &ac
	}
	return sel
}

// Frame returns a copy of the frame with id in the current animation.
func (s *Store) Frame(id string) (domain.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.animationLocked()
	if a == nil {
		return domain.Frame{}, false
	}
	i := a.FrameIndex(id)
	if i < 0 {
		return domain.Frame{}, false
	}
	return a.Frames[i], true
}

// figureLocked resolves the current figure pointer; nil when unset or dangling.
func (s *Store) figureLocked() *domain.Figure {
	if s.project == nil || s.figureID == "" {
		return nil
	}
	return s.project.FigureByID(s.figureID)
}

func (s *Store) animationLocked() *domain.Animation {
	f := s.figureLocked()
	if f == nil || s.animationID == "" {
		return nil
	}
	return f.AnimationByID(s.animationID)
}

func (s *Store) currentIDsLocked() Change {
	c := Change{FigureID: s.figureID, AnimationID: s.animationID}
	if s.project != nil {
		c.ProjectID = s.project.ID
	}
	return c
}

// mutate applies fn to the open project, re-stamps lastModified on the project and on the
// figure fn reports as touched, and writes the project through. Must hold s.mu.
func (s *Store) mutate(ctx context.Context, op string, fn func(p *domain.Project) (touched *domain.Figure, err error)) error {
	if s.project == nil {
		return ErrNoSelection
	}
	fig, err := fn(s.project)
	if err != nil {
		return err
	}
	now := s.now()
	s.project.LastModified = now
	if fig != nil {
		fig.LastModified = now
	}
	s.persistLocked(ctx, op)
	return nil
}

// persistLocked writes the open project through. Failures are logged, never returned.
func (s *Store) persistLocked(ctx context.Context, op string) {
	if s.project == nil || s.gw == nil {
		return
	}
	ctx = applog.ContextWithProject(ctx, s.project.ID)
	if err := s.gw.Save(ctx, *s.project); err != nil {
		applog.WithOperation(s.log, op).WarnContext(ctx, "persist failed", slog.Any("err", err))
	}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}
