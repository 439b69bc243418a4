/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model of the sprite tool.
// The hierarchy is strictly owned: Project -> Figure -> Animation -> Frame.
// Field names follow the JSON records written by earlier releases so that
// stored collections stay readable.

import "time"

// Project is the root workspace. Only one project is open at a time.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
	Figures      []Figure  `json:"figures"`
}

// Figure is a character or entity grouping several animations.
type Figure struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Created      time.Time   `json:"created"`
	LastModified time.Time   `json:"lastModified"`
	Animations   []Animation `json:"animations"`
}

// Animation is a named, ordered sequence of frame slots.
// FrameCount must equal len(Frames) after every add/delete.
type Animation struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	FrameCount int     `json:"frameCount"`
	FPS        int     `json:"fps"`
	OutputSize int     `json:"outputSize"` // one of ValidOutputSizes
	Frames     []Frame `json:"frames"`
}

// Frame is one slot of an animation. ImageData holds a data URL
// (data:image/png;base64,...) or is empty when the slot has no image.
type Frame struct {
	ID        string `json:"id"`
	ImageData string `json:"imageData"`
	Processed bool   `json:"processed"`
}

// ExportMetadata is written as metadata.json into every exported archive.
type ExportMetadata struct {
	FigureName    string `json:"figureName"`
	AnimationName string `json:"animationName"`
	FrameCount    int    `json:"frameCount"`
	FPS           int    `json:"fps"`
	OutputSize    int    `json:"outputSize"`
	Exported      string `json:"exported"`
}

const (
	DefaultFPS        = 12
	MinFPS            = 1
	MaxFPS            = 60
	DefaultOutputSize = 128

	// DefaultFrameCount and MaxInitialFrames bound the slots created with a new animation.
	DefaultFrameCount = 8
	MaxInitialFrames  = 60
)

// ValidOutputSizes enumerates the square output sizes in pixels.
var ValidOutputSizes = []int{64, 128, 256, 512}

// IsValidOutputSize reports whether n is one of ValidOutputSizes.
func IsValidOutputSize(n int) bool {
	for _, v := range ValidOutputSizes {
		if v == n {
			return true
		}
	}
	return false
}

// ClampFPS clamps n to the supported playback range.
func ClampFPS(n int) int {
	if n < MinFPS {
		return MinFPS
	}
	if n > MaxFPS {
		return MaxFPS
	}
	return n
}

// HasImage reports whether the frame carries a payload.
func (f Frame) HasImage() bool { return f.ImageData != "" }

// Populated returns the frames with a payload, in slot order.
func (a *Animation) Populated() []Frame {
	out := make([]Frame, 0, len(a.Frames))
	for _, f := range a.Frames {
		if f.HasImage() {
			out = append(out, f)
		}
	}
	return out
}

// FrameIndex returns the slot index of the frame with id, or -1.
func (a *Animation) FrameIndex(id string) int {
	for i := range a.Frames {
		if a.Frames[i].ID == id {
			return i
		}
	}
	return -1
}

// FigureByID returns a pointer into p.Figures, or nil.
func (p *Project) FigureByID(id string) *Figure {
	for i := range p.Figures {
		if p.Figures[i].ID == id {
			return &p.Figures[i]
		}
	}
	return nil
}

// AnimationByID returns a pointer into f.Animations, or nil.
func (f *Figure) AnimationByID(id string) *Animation {
	for i := range f.Animations {
		if f.Animations[i].ID == id {
			return &f.Animations[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	out := p
	if p.Figures != nil {
		out.Figures = make([]Figure, len(p.Figures))
		for i, f := range p.Figures {
			out.Figures[i] = f.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the figure.
func (f Figure) Clone() Figure {
	out := f
	if f.Animations != nil {
		out.Animations = make([]Animation, len(f.Animations))
		for i, a := range f.Animations {
			out.Animations[i] = a.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the animation.
func (a Animation) Clone() Animation {
	out := a
	if a.Frames != nil {
		out.Frames = make([]Frame, len(a.Frames))
		copy(out.Frames, a.Frames)
	}
	return out
}
