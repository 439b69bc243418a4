/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"spritetool/internal/domain"
	"spritetool/internal/preview"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetGame produces only the frame archives a game engine imports.
	PresetGame PresetName = "game"
	// PresetReview adds a printable sheet and a looping GIF per animation.
	PresetReview PresetName = "review"
)

// BatchOptions controls a batch export of every animation of a figure.
//
// Outputs land in <OutDir>/<preset>/<format>/: {figure}_{animation}.zip, .pdf or .gif.
type BatchOptions struct {
	Preset     PresetName
	Formats    []string // allowed: zip, pdf, gif; empty means preset defaults
	OutDir     string
	Sheet      SheetOptions
	OnProgress func(current, total int) // called before each animation
}

// BatchExport runs the formats of a preset over the animations of fig that have frames.
// It returns the written file paths.
func (e *Exporter) BatchExport(ctx context.Context, fig domain.Figure, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	preset := string(opt.Preset)
	if preset == "" {
		preset = string(PresetGame)
	}
	var todo []domain.Animation
	for _, a := range fig.Animations {
		if len(a.Populated()) > 0 {
			todo = append(todo, a)
		}
	}
	if len(todo) == 0 {
		return nil, ErrNoAnimations
	}

	var written []string
	for i, a := range todo {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if opt.OnProgress != nil {
			opt.OnProgress(i+1, len(todo))
		}
		for _, f := range formats {
			f = strings.ToLower(strings.TrimSpace(f))
			sink := DirSink{Dir: filepath.Join(opt.OutDir, preset, f)}
			var name string
			switch f {
			case "zip":
				name = ArchiveName(fig.Name, a.Name)
				if err := e.ExportOne(ctx, a, fig.Name, sink); err != nil {
					return written, fmt.Errorf("zip %s: %w", a.Name, err)
				}
			case "pdf":
				name = SheetName(fig.Name, a.Name)
				var buf bytes.Buffer
				if err := ExportSheetPDF(&buf, a, fig.Name, opt.Sheet); err != nil {
					return written, fmt.Errorf("pdf %s: %w", a.Name, err)
				}
				if err := sink.Deliver(ctx, name, buf.Bytes()); err != nil {
					return written, err
				}
			case "gif":
				name = safeName(fig.Name) + "_" + safeName(a.Name) + ".gif"
				var buf bytes.Buffer
				if err := preview.EncodeGIF(&buf, a, preview.DefaultOptions()); err != nil {
					return written, fmt.Errorf("gif %s: %w", a.Name, err)
				}
				if err := sink.Deliver(ctx, name, buf.Bytes()); err != nil {
					return written, err
				}
			default:
				return written, fmt.Errorf("unknown format: %s", f)
			}
			written = append(written, sink.Path(name))
		}
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetReview:
		return []string{"zip", "pdf", "gif"}
	default:
		return []string{"zip"}
	}
}
