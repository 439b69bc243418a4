/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"spritetool/internal/domain"
	"spritetool/internal/imaging"
	applog "spritetool/internal/log"
)

// State is the playback state of a Renderer. Pausing is a separate flag so a paused
// renderer keeps its scheduler alive.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Sink receives every drawn canvas together with the index of the frame it shows.
type Sink func(canvas *image.RGBA, index int)

// Renderer plays the populated frames of one animation. It is safe for concurrent use.
type Renderer struct {
	opts Options
	sink Sink
	log  *slog.Logger

	mu      sync.Mutex
	anim    domain.Animation
	frames  []image.Image
	state   State
	paused  bool
	index   int
	last    time.Time
	drawn   bool
	stop    chan struct{} // owned by the active Run loop, nil otherwise
}

// New creates a stopped renderer emitting to sink.
func New(sink Sink, opts Options) *Renderer {
	return &Renderer{opts: opts.normalized(), sink: sink, log: applog.WithComponent("preview")}
}

// Options returns the normalized canvas options.
func (r *Renderer) Options() Options { return r.opts }

// SetTarget switches playback to a and restarts from its first frame. Frames whose payload
// cannot be decoded are skipped.
func (r *Renderer) SetTarget(a domain.Animation) {
	frames := decodeFrames(r.log, a)
	r.mu.Lock()
	r.anim = a.Clone()
	r.frames = frames
	r.index = 0
	r.drawn = false
	r.last = time.Time{}
	empty := len(frames) == 0
	r.mu.Unlock()
	if empty && r.opts.Placeholder != "" && r.sink != nil {
		r.sink(composePlaceholder(r.opts), -1)
	}
}

func decodeFrames(log *slog.Logger, a domain.Animation) []image.Image {
	pop := a.Populated()
	out := make([]image.Image, 0, len(pop))
	for _, f := range pop {
		img, err := imaging.DecodeDataURL(f.ImageData)
		if err != nil {
			log.Warn("skip undecodable frame", slog.String("frame", f.ID), slog.Any("err", err))
			continue
		}
		out = append(out, img)
	}
	return out
}

// SetFPS changes the playback rate of the current target, clamped to the supported range.
func (r *Renderer) SetFPS(fps int) {
	r.mu.Lock()
	r.anim.FPS = domain.ClampFPS(fps)
	r.mu.Unlock()
}

// Start switches to running without starting a scheduler; callers drive Tick themselves.
func (r *Renderer) Start() {
	r.mu.Lock()
	r.state = Running
	r.mu.Unlock()
}

// Pause and Resume toggle the paused flag.
func (r *Renderer) Pause()  { r.setPaused(true) }
func (r *Renderer) Resume() { r.setPaused(false) }

// TogglePause flips the paused flag and returns the new value.
func (r *Renderer) TogglePause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = !r.paused
	return r.paused
}

func (r *Renderer) setPaused(p bool) {
	r.mu.Lock()
	r.paused = p
	r.mu.Unlock()
}

// Status reports the state, the paused flag and the next frame position.
func (r *Renderer) Status() (state State, paused bool, index, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.paused, r.index, len(r.frames)
}

// frameDelay is the minimum time between two drawn frames. Must hold r.mu.
func (r *Renderer) frameDelay() time.Duration {
	return time.Second / time.Duration(domain.ClampFPS(r.anim.FPS))
}

// Tick draws the next frame if playback is running, not paused, has frames, and at least one
// frame delay has passed since the last draw. It reports whether a frame was drawn.
func (r *Renderer) Tick(now time.Time) bool {
	r.mu.Lock()
	if r.state != Running || r.paused || len(r.frames) == 0 {
		r.mu.Unlock()
		return false
	}
	if r.drawn && now.Sub(r.last) < r.frameDelay() {
		r.mu.Unlock()
		return false
	}
	idx := r.index % len(r.frames)
	frame := r.frames[idx]
	r.last = now
	r.drawn = true
	r.index = (idx + 1) % len(r.frames)
	r.mu.Unlock()

	canvas := composeFrame(r.opts, frame)
	if r.sink != nil {
		r.sink(canvas, idx)
	}
	return true
}

// Run schedules Tick every Options.Refresh until ctx is done or Stop is called. The loop
// stays alive while there are no frames or playback is paused. Retargeting restarts
// playback without ending the loop.
func (r *Renderer) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.stop != nil {
		r.mu.Unlock()
		return nil
	}
	r.state = Running
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()

	// A Stop followed by a new Run hands r.stop to the new loop; only the owner resets it.
	defer func() {
		r.mu.Lock()
		if r.stop == stop {
			r.stop = nil
			r.state = Stopped
		}
		r.mu.Unlock()
	}()

	t := time.NewTicker(r.opts.Refresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case now := <-t.C:
			r.Tick(now)
		}
	}
}

// Stop ends a running Run loop and switches to stopped.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	r.state = Stopped
}
