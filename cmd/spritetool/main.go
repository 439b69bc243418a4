/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"spritetool/internal/bgremove"
	"spritetool/internal/config"
	"spritetool/internal/crash"
	applog "spritetool/internal/log"
	"spritetool/internal/state"
	"spritetool/internal/storage"
	"spritetool/internal/telemetry"
	"spritetool/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Sprite Tool")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  spritetool version|-v|--version                       Show version")
	_, _ = fmt.Fprintln(w, "  spritetool list                                       List projects")
	_, _ = fmt.Fprintln(w, "  spritetool init <name>                                Create a project")
	_, _ = fmt.Fprintln(w, "  spritetool figure add <project> <name>                Add a figure")
	_, _ = fmt.Fprintln(w, "  spritetool animation add [-frames N] <project> <figure> <name>")
	_, _ = fmt.Fprintln(w, "  spritetool frame add|delete|clear|set|remove-bg ...   Edit frame slots")
	_, _ = fmt.Fprintln(w, "  spritetool export [-preset game|review] [-formats zip,pdf,gif] [-out dir] <project> <figure> [<animation>]")
	_, _ = fmt.Fprintln(w, "  spritetool preview-gif <project> <figure> <animation> <out.gif>")
	_, _ = fmt.Fprintln(w, "  spritetool serve [-addr :8080]                        Start the HTTP API")
	_, _ = fmt.Fprintln(w, "  spritetool ui <project> [<figure> [<animation>]]      Launch the preview window (build with -tags fyne)")
}

// cli carries the wiring shared by every command.
type cli struct {
	cfg   config.AppConfig
	token string
	gw    *storage.Gateway
	store *state.Store
	out   io.Writer
	log   *slog.Logger
}

// errUsage signals a malformed command line; the caller prints usage and exits with 2.
var errUsage = errors.New("invalid arguments")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) (code int) {
	cfg, token, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}
	telemetry.NewDefault(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))
	defer telemetry.Flush(context.Background())

	if len(args) == 0 {
		usage(out)
		return 0
	}
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(out, "Sprite Tool")
		_, _ = fmt.Fprintln(out, version.String())
		return 0
	case "help", "-h", "--help":
		usage(out)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		l.Error("open storage failed", slog.String("backend", cfg.Storage.Backend), slog.Any("err", err))
		_, _ = fmt.Fprintln(out, "Error:", err)
		return 1
	}
	defer func() {
		if err := gw.Close(); err != nil {
			l.Warn("close storage", slog.Any("err", err))
		}
	}()

	c := &cli{cfg: cfg, token: token, gw: gw, store: state.New(gw), out: out, log: l}
	target := &crash.Target{
		Dir:    filepath.Join(cfg.Storage.Dir, "crash"),
		Source: crash.SourceFunc(c.crashSnapshot),
	}
	defer crash.Recover(target)

	l.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)))
	if err := c.dispatch(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			_, _ = fmt.Fprintln(out, err)
			usage(out)
			return 2
		}
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		_, _ = fmt.Fprintln(out, "Error:", err)
		return 1
	}
	return 0
}

// crashSnapshot never blocks: a panic inside a store mutation leaves the store locked.
func (c *cli) crashSnapshot() crash.Snapshot {
	sel, ok := c.store.TrySelection()
	if !ok {
		c.log.Warn("store busy, crash snapshot skipped")
		return crash.Snapshot{}
	}
	return crash.Snapshot{Project: sel.Project}
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return c.list(ctx)
	case "init":
		return c.initProject(ctx, args)
	case "figure":
		return c.figure(ctx, args)
	case "animation":
		return c.animation(ctx, args)
	case "frame":
		return c.frame(ctx, args)
	case "export":
		return c.export(ctx, args)
	case "preview-gif":
		return c.previewGIF(ctx, args)
	case "serve":
		return c.serve(ctx, args)
	case "ui":
		return c.ui(ctx, args)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// need checks the positional argument count.
func need(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s", errUsage, what)
	}
	return nil
}

// open selects the given path in the store. Empty ids stop the walk.
func (c *cli) open(ctx context.Context, projectID, figureID, animationID string) error {
	if !c.store.SelectPath(ctx, projectID, figureID, animationID) {
		return fmt.Errorf("%w: project %q figure %q animation %q", state.ErrNotFound, projectID, figureID, animationID)
	}
	return nil
}

func (c *cli) list(ctx context.Context) error {
	projects := c.store.ListProjects(ctx)
	if len(projects) == 0 {
		_, _ = fmt.Fprintln(c.out, "No projects.")
		return nil
	}
	for _, p := range projects {
		_, _ = fmt.Fprintf(c.out, "%s  %s  (%d figures)\n", p.ID, p.Name, len(p.Figures))
		for _, f := range p.Figures {
			_, _ = fmt.Fprintf(c.out, "  %s  %s\n", f.ID, f.Name)
			for _, a := range f.Animations {
				_, _ = fmt.Fprintf(c.out, "    %s  %s  %d/%d frames  %d fps  %dpx\n",
					a.ID, a.Name, len(a.Populated()), a.FrameCount, a.FPS, a.OutputSize)
			}
		}
	}
	return nil
}

func (c *cli) initProject(ctx context.Context, args []string) error {
	if err := need(args, 1, "init requires <name>"); err != nil {
		return err
	}
	p, err := c.store.CreateProject(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	c.log.Info("project created", slog.String("project", p.ID))
	_, _ = fmt.Fprintf(c.out, "Created project %s (%s)\n", p.Name, p.ID)
	return nil
}

func (c *cli) figure(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "add" {
		return fmt.Errorf("%w: figure add <project> <name>", errUsage)
	}
	if err := need(args[1:], 2, "figure add requires <project> <name>"); err != nil {
		return err
	}
	if err := c.open(ctx, args[1], "", ""); err != nil {
		return err
	}
	f, err := c.store.CreateFigure(ctx, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Created figure %s (%s)\n", f.Name, f.ID)
	return nil
}

func (c *cli) animation(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "add" {
		return fmt.Errorf("%w: animation add [-frames N] <project> <figure> <name>", errUsage)
	}
	fs := newFlagSet("animation add", c.out)
	frames := fs.Int("frames", 8, "number of empty frame slots")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if err := need(rest, 3, "animation add requires <project> <figure> <name>"); err != nil {
		return err
	}
	if err := c.open(ctx, rest[0], rest[1], ""); err != nil {
		return err
	}
	a, err := c.store.CreateAnimation(ctx, strings.Join(rest[2:], " "), *frames)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.out, "Created animation %s (%s) with %d frames\n", a.Name, a.ID, a.FrameCount)
	return nil
}

// slotID resolves a 1-based slot number of the current animation to a frame id.
func (c *cli) slotID(slot string) (string, error) {
	n, err := strconv.Atoi(slot)
	if err != nil {
		return "", fmt.Errorf("%w: slot must be a number", errUsage)
	}
	a := c.store.Selection().Animation
	if a == nil {
		return "", state.ErrNoSelection
	}
	if n < 1 || n > len(a.Frames) {
		return "", fmt.Errorf("%w: slot %d of %d", state.ErrNotFound, n, len(a.Frames))
	}
	return a.Frames[n-1].ID, nil
}

func (c *cli) background() *bgremove.Service {
	var seg bgremove.Segmenter = bgremove.KeySegmenter{}
	if strings.EqualFold(c.cfg.Segmentation.Mode, "http") {
		seg = bgremove.NewHTTPSegmenter(c.cfg.Segmentation.URL, c.token, c.cfg.Segmentation.Timeout())
	}
	return bgremove.NewService(bgremove.NewRemover(seg))
}
