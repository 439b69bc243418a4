/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export packages animations for download: one ZIP archive per animation with the
// populated frames as numbered PNGs plus a metadata.json manifest. It also renders printable
// reference sheets and runs preset batch exports for a whole figure.
package export

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"spritetool/internal/domain"
	"spritetool/internal/imaging"
	applog "spritetool/internal/log"
)

var (
	ErrNoFrames     = errors.New("No frames to export. Please add at least one image.")
	ErrNoAnimations = errors.New("No animations with frames to export.")
)

const (
	// DefaultDelay separates consecutive deliveries of ExportAll.
	DefaultDelay = 500 * time.Millisecond
	// CompressionLevel is the DEFLATE level of every archive entry.
	CompressionLevel = 6
	MetadataName     = "metadata.json"
)

// Exporter builds archives and hands them to a Sink.
type Exporter struct {
	Delay time.Duration
	Now   func() time.Time
	log   *slog.Logger
}

// New returns an exporter with the given delay between ExportAll deliveries.
// A negative delay means none.
func New(delay time.Duration) *Exporter {
	return &Exporter{Delay: max(0, delay), Now: time.Now, log: applog.WithComponent("export")}
}

var defaultExporter = New(DefaultDelay)

// ExportOne exports a with the default exporter.
func ExportOne(ctx context.Context, a domain.Animation, figureName string, sink Sink) error {
	return defaultExporter.ExportOne(ctx, a, figureName, sink)
}

// ExportAll exports animations with the default exporter.
func ExportAll(ctx context.Context, animations []domain.Animation, figureName string, sink Sink, onProgress func(current, total int)) error {
	return defaultExporter.ExportAll(ctx, animations, figureName, sink, onProgress)
}

// ArchiveName is the delivered file name of an animation archive.
func ArchiveName(figureName, animationName string) string {
	return safeName(figureName) + "_" + safeName(animationName) + ".zip"
}

// FrameName is the archive entry of the n-th populated frame, 1-based.
func FrameName(animationName string, n int) string {
	return fmt.Sprintf("%s_%02d.png", safeName(animationName), n)
}

// safeName keeps names from escaping the archive root or the export directory.
func safeName(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(s)
}

// ExportOne writes the archive of a and delivers it as {figure}_{animation}.zip.
// Empty slots are skipped and the remaining frames numbered contiguously.
func (e *Exporter) ExportOne(ctx context.Context, a domain.Animation, figureName string, sink Sink) error {
	l := applog.WithOperation(e.log, "export_one")
	ctx = applog.ContextWithAnimation(ctx, a.ID)
	var buf bytes.Buffer
	n, err := e.WriteArchive(&buf, a, figureName)
	if err != nil {
		l.WarnContext(ctx, "export failed", slog.String("animation", a.Name), slog.Any("err", err))
		return err
	}
	name := ArchiveName(figureName, a.Name)
	if err := sink.Deliver(ctx, name, buf.Bytes()); err != nil {
		l.ErrorContext(ctx, "delivery failed", slog.String("file", name), slog.Any("err", err))
		return fmt.Errorf("deliver %s: %w", name, err)
	}
	l.InfoContext(ctx, "exported", slog.String("file", name), slog.Int("frames", n), slog.Int("bytes", buf.Len()))
	return nil
}

// WriteArchive writes the ZIP archive of a to w and returns the number of frames written.
func (e *Exporter) WriteArchive(w io.Writer, a domain.Animation, figureName string) (int, error) {
	frames := a.Populated()
	if len(frames) == 0 {
		return 0, ErrNoFrames
	}
	now := e.now()
	meta := domain.ExportMetadata{
		FigureName:    figureName,
		AnimationName: a.Name,
		FrameCount:    len(frames),
		FPS:           a.FPS,
		OutputSize:    a.OutputSize,
		Exported:      now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	mj, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode metadata: %w", err)
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, CompressionLevel)
	})
	if err := addZipFile(zw, MetadataName, mj, now); err != nil {
		return 0, fmt.Errorf("zip add metadata: %w", err)
	}
	for i, f := range frames {
		data, err := imaging.PNGBytes(f.ImageData)
		if err != nil {
			return 0, fmt.Errorf("frame %d: %w", i+1, err)
		}
		if err := addZipFile(zw, FrameName(a.Name, i+1), data, now); err != nil {
			return 0, fmt.Errorf("zip add frame %d: %w", i+1, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("close zip: %w", err)
	}
	return len(frames), nil
}

// ExportAll exports every animation that has at least one populated frame, in order.
// onProgress is called with the 1-based position before each export. Deliveries are
// separated by the exporter delay; cancelling ctx stops between exports.
func (e *Exporter) ExportAll(ctx context.Context, animations []domain.Animation, figureName string, sink Sink, onProgress func(current, total int)) error {
	var todo []domain.Animation
	for _, a := range animations {
		if len(a.Populated()) > 0 {
			todo = append(todo, a)
		}
	}
	if len(todo) == 0 {
		return ErrNoAnimations
	}
	for i, a := range todo {
		if onProgress != nil {
			onProgress(i+1, len(todo))
		}
		if err := e.ExportOne(ctx, a, figureName, sink); err != nil {
			return err
		}
		if i < len(todo)-1 && e.Delay > 0 {
			t := time.NewTimer(e.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil
}

func (e *Exporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func addZipFile(zw *zip.Writer, name string, data []byte, mod time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
