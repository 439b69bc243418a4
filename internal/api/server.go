/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package api exposes the project store and the editing, background removal, preview and
// export pipelines over HTTP. Responses are JSON objects with an "ok" flag; file downloads
// are sent as attachments.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"spritetool/internal/bgremove"
	"spritetool/internal/export"
	"spritetool/internal/imaging"
	applog "spritetool/internal/log"
	"spritetool/internal/preview"
	"spritetool/internal/state"
	"spritetool/internal/version"
)

// Options wires a Server.
type Options struct {
	Store        *state.Store
	Background   *bgremove.Service
	Exporter     *export.Exporter
	ExportDir    string
	AllowOrigins []string
}

// Server holds the handlers.
type Server struct {
	store     *state.Store
	bg        *bgremove.Service
	exporter  *export.Exporter
	exportDir string
	origins   []string
	log       *slog.Logger
}

// New creates a Server. A nil Background falls back to the local key segmenter and a nil
// Exporter uses export.DefaultDelay.
func New(opts Options) *Server {
	s := &Server{
		store:     opts.Store,
		bg:        opts.Background,
		exporter:  opts.Exporter,
		exportDir: opts.ExportDir,
		origins:   opts.AllowOrigins,
		log:       applog.WithComponent("api"),
	}
	if s.bg == nil {
		s.bg = bgremove.NewService(bgremove.NewRemover(bgremove.KeySegmenter{}))
	}
	if s.exporter == nil {
		s.exporter = export.New(export.DefaultDelay)
	}
	if s.exportDir == "" {
		s.exportDir = "exports"
	}
	return s
}

// Router builds a gin engine with CORS, request logging and all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors.New(s.corsConfig()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "version": version.Version, "commit": version.Commit})
	})
	s.Register(r.Group("/api"))
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	all := len(s.origins) == 0
	for _, o := range s.origins {
		if o == "*" {
			all = true
		}
	}
	if all {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.origins
	}
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)))
	}
}

// Register attaches the API routes to rg.
func (s *Server) Register(rg *gin.RouterGroup) {
	rg.GET("/state", s.getState)

	rg.GET("/projects", s.listProjects)
	rg.POST("/projects", s.createProject)
	rg.POST("/projects/:id/select", s.selectProject)
	rg.DELETE("/projects/:id", s.deleteProject)
	rg.PATCH("/project", s.updateProject)
	rg.POST("/project/close", s.closeProject)

	rg.POST("/figures", s.createFigure)
	rg.POST("/figures/:id/select", s.selectFigure)
	rg.PATCH("/figures/:id", s.updateFigure)
	rg.DELETE("/figures/:id", s.deleteFigure)
	rg.POST("/figures/current/export", s.exportAll)

	rg.POST("/animations", s.createAnimation)
	rg.POST("/animations/:id/select", s.selectAnimation)
	rg.PATCH("/animations/:id", s.updateAnimation)
	rg.DELETE("/animations/:id", s.deleteAnimation)
	rg.GET("/animations/:id/export", s.exportOne)
	rg.GET("/animations/:id/info", s.exportInfo)
	rg.GET("/animations/:id/preview.gif", s.previewGIF)
	rg.GET("/animations/:id/sheet.pdf", s.sheetPDF)

	rg.POST("/frames", s.addFrame)
	rg.DELETE("/frames/:id", s.deleteFrame)
	rg.PUT("/frames/:id/image", s.uploadFrameImage)
	rg.DELETE("/frames/:id/image", s.removeFrameImage)
	rg.POST("/frames/:id/undo", s.undoFrame)
	rg.POST("/frames/:id/redo", s.redoFrame)
	rg.POST("/frames/:id/remove-background", s.removeBackground)
}

// fail writes the error body with the status statusFor picks.
func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"ok": false, "error": err.Error()})
}

// statusFor maps domain errors to status codes.
func statusFor(err error) int {
	status := http.StatusInternalServerError
	var ve *imaging.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.Is(err, state.ErrNotFound), errors.Is(err, bgremove.ErrUnknownFrame), errors.Is(err, errAnimationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, state.ErrNoSelection), errors.Is(err, state.ErrLastFrame), errors.Is(err, bgremove.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, state.ErrInvalidName), errors.Is(err, state.ErrInvalidFrameCount),
		errors.Is(err, state.ErrInvalidOutputSize), errors.Is(err, export.ErrNoFrames),
		errors.Is(err, export.ErrNoAnimations), errors.Is(err, preview.ErrNoFrames),
		errors.Is(err, bgremove.ErrNoImage), errors.Is(err, imaging.ErrInvalidSize), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, bgremove.ErrRemovalFailed):
		status = http.StatusBadGateway
	}
	return status
}
