/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"spritetool/internal/api"
	"spritetool/internal/export"
	"spritetool/internal/imaging"
	"spritetool/internal/preview"
	"spritetool/internal/state"
	"spritetool/internal/telemetry"
	"spritetool/internal/ui"
)

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// frame handles "frame <verb> <project> <figure> <animation> [<slot> ...]".
func (c *cli) frame(ctx context.Context, args []string) error {
	if err := need(args, 4, "frame <add|delete|clear|set|remove-bg> <project> <figure> <animation> ..."); err != nil {
		return err
	}
	verb := args[0]
	if err := c.open(ctx, args[1], args[2], args[3]); err != nil {
		return err
	}
	rest := args[4:]
	if verb == "add" {
		f, err := c.store.AddFrame(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.out, "Added frame %s\n", f.ID)
		return nil
	}
	if err := need(rest, 1, "frame "+verb+" requires <slot>"); err != nil {
		return err
	}
	id, err := c.slotID(rest[0])
	if err != nil {
		return err
	}
	switch verb {
	case "delete":
		if err := c.store.DeleteFrame(ctx, id); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.out, "Deleted frame %s\n", rest[0])
		return nil
	case "clear":
		if err := c.store.RemoveFrame(ctx, id); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.out, "Cleared frame %s\n", rest[0])
		return nil
	case "set":
		if err := need(rest, 2, "frame set requires <slot> <image>"); err != nil {
			return err
		}
		return c.setFrameImage(ctx, id, rest[1])
	case "remove-bg":
		err := c.background().Apply(ctx, c.store, id, func(msg string) {
			_, _ = fmt.Fprintln(c.out, msg)
		})
		if err != nil {
			return err
		}
		telemetry.Event(telemetry.EventBackgroundRemoved, nil)
		return nil
	}
	return fmt.Errorf("%w: unknown frame command %q", errUsage, verb)
}

// setFrameImage validates a PNG/JPEG file, crops it to the centered square at the
// animation's output size and stores it in the frame.
func (c *cli) setFrameImage(ctx context.Context, frameID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := imaging.ValidateUpload(http.DetectContentType(data), int64(len(data))); err != nil {
		return err
	}
	img, _, err := imaging.DecodeUpload(bytes.NewReader(data))
	if err != nil {
		return err
	}
	a := c.store.Selection().Animation
	if a == nil {
		return state.ErrNoSelection
	}
	url, err := imaging.ToDataURL(imaging.CenterSquare(img, a.OutputSize))
	if err != nil {
		return err
	}
	if err := c.store.UpdateFrame(ctx, frameID, url); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Stored %s (%dx%d) in frame %s\n", path, a.OutputSize, a.OutputSize, frameID)
	return nil
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := newFlagSet("export", c.out)
	preset := fs.String("preset", string(export.PresetGame), "export preset: game or review")
	formats := fs.String("formats", "", "comma separated formats (zip,pdf,gif); empty uses the preset")
	out := fs.String("out", c.cfg.Export.Dir, "output directory")
	guides := fs.Bool("guides", false, "draw cut guides on PDF sheets")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if err := need(rest, 2, "export requires <project> <figure>"); err != nil {
		return err
	}
	animationID := ""
	if len(rest) > 2 {
		animationID = rest[2]
	}
	if err := c.open(ctx, rest[0], rest[1], animationID); err != nil {
		return err
	}
	sel := c.store.Selection()
	e := export.New(c.cfg.Export.ExportDelay())

	if animationID != "" {
		sink := export.DirSink{Dir: *out}
		if err := e.ExportOne(ctx, *sel.Animation, sel.Figure.Name, sink); err != nil {
			return err
		}
		telemetry.Event(telemetry.EventExport, map[string]any{"format": "zip", "frames": len(sel.Animation.Populated())})
		_, _ = fmt.Fprintln(c.out, sink.Path(export.ArchiveName(sel.Figure.Name, sel.Animation.Name)))
		return nil
	}

	opt := export.BatchOptions{
		Preset: export.PresetName(*preset),
		OutDir: *out,
		Sheet:  export.SheetOptions{Guides: *guides},
		OnProgress: func(cur, total int) {
			_, _ = fmt.Fprintf(c.out, "Exporting %d of %d...\n", cur, total)
		},
	}
	if *formats != "" {
		opt.Formats = strings.Split(*formats, ",")
	}
	files, err := e.BatchExport(ctx, *sel.Figure, opt)
	for _, f := range files {
		_, _ = fmt.Fprintln(c.out, f)
	}
	if err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"preset": *preset, "files": len(files)})
	return nil
}

func (c *cli) previewGIF(ctx context.Context, args []string) error {
	if err := need(args, 4, "preview-gif requires <project> <figure> <animation> <out.gif>"); err != nil {
		return err
	}
	if err := c.open(ctx, args[0], args[1], args[2]); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := preview.EncodeGIF(&buf, *c.store.Selection().Animation, preview.DefaultOptions()); err != nil {
		return err
	}
	if err := os.WriteFile(args[3], buf.Bytes(), 0o644); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.out, args[3])
	return nil
}

func (c *cli) serve(ctx context.Context, args []string) error {
	fs := newFlagSet("serve", c.out)
	addr := fs.String("addr", c.cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	srv := api.New(api.Options{
		Store:        c.store,
		Background:   c.background(),
		Exporter:     export.New(c.cfg.Export.ExportDelay()),
		ExportDir:    c.cfg.Export.Dir,
		AllowOrigins: c.cfg.Server.AllowOrigins,
	})
	hs := &http.Server{Addr: *addr, Handler: srv.Router(), ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	c.log.Info("listening", slog.String("addr", *addr), slog.String("backend", c.cfg.Storage.Backend))
	telemetry.Event(telemetry.EventServe, map[string]any{"backend": c.cfg.Storage.Backend})

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.log.Info("shutting down")
	return hs.Shutdown(shutdownCtx)
}

func (c *cli) ui(ctx context.Context, args []string) error {
	if err := need(args, 1, "ui requires <project>"); err != nil {
		return err
	}
	ids := append(args[:1:1], "", "")
	copy(ids[1:], args[1:])
	if err := c.open(ctx, ids[0], ids[1], ids[2]); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventUIOpened, nil)
	return ui.Run(c.store)
}
