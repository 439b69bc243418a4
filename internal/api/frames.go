/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"spritetool/internal/imaging"
	"spritetool/internal/state"
	"spritetool/internal/telemetry"
)

func (s *Server) addFrame(c *gin.Context) {
	f, err := s.store.AddFrame(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "frame": f})
}

func (s *Server) deleteFrame(c *gin.Context) {
	err := s.store.DeleteFrame(c.Request.Context(), c.Param("id"))
	if errors.Is(err, state.ErrLastFrame) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "warning": err.Error()})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// uploadFrameImage accepts a multipart "image" file and an optional "edit" JSON field with
// the editor actions. mode=square skips the editor and center-crops instead.
func (s *Server) uploadFrameImage(c *gin.Context) {
	id := c.Param("id")
	sel := s.store.Selection()
	if sel.Animation == nil {
		fail(c, state.ErrNoSelection)
		return
	}
	if sel.Animation.FrameIndex(id) < 0 {
		fail(c, state.ErrNotFound)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, errBadRequest)
		return
	}
	if err := imaging.ValidateUpload(fh.Header.Get("Content-Type"), fh.Size); err != nil {
		fail(c, err)
		return
	}
	file, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer file.Close()
	img, _, err := imaging.DecodeUpload(file)
	if err != nil {
		var ve *imaging.ValidationError
		if !errors.As(err, &ve) {
			err = errors.Join(errBadRequest, err)
		}
		fail(c, err)
		return
	}

	size := sel.Animation.OutputSize
	var payload string
	if strings.EqualFold(c.PostForm("mode"), "square") {
		payload, err = imaging.ToDataURL(imaging.CenterSquare(img, size))
	} else {
		var edit imaging.Edit
		if raw := c.PostForm("edit"); raw != "" {
			if jerr := json.Unmarshal([]byte(raw), &edit); jerr != nil {
				fail(c, errBadRequest)
				return
			}
		}
		payload, err = imaging.ApplyEdit(img, edit, size)
	}
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.UpdateFrame(c.Request.Context(), id, payload); err != nil {
		fail(c, err)
		return
	}
	f, _ := s.store.Frame(id)
	c.JSON(http.StatusOK, gin.H{"ok": true, "frame": f})
}

func (s *Server) removeFrameImage(c *gin.Context) {
	if err := s.store.RemoveFrame(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) undoFrame(c *gin.Context) { s.history(c, s.store.UndoFrame) }
func (s *Server) redoFrame(c *gin.Context) { s.history(c, s.store.RedoFrame) }

func (s *Server) history(c *gin.Context, step func(ctx context.Context, id string) (bool, error)) {
	id := c.Param("id")
	changed, err := step(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	f, _ := s.store.Frame(id)
	c.JSON(http.StatusOK, gin.H{"ok": true, "changed": changed, "frame": f})
}

func (s *Server) removeBackground(c *gin.Context) {
	id := c.Param("id")
	var progress []string
	err := s.bg.Apply(c.Request.Context(), s.store, id, func(msg string) { progress = append(progress, msg) })
	if err != nil {
		s.log.Warn("background removal", slog.String("frame", id), slog.Any("err", err))
		c.JSON(statusFor(err), gin.H{"ok": false, "error": err.Error(), "progress": progress})
		return
	}
	telemetry.Event(telemetry.EventBackgroundRemoved, nil)
	f, _ := s.store.Frame(id)
	c.JSON(http.StatusOK, gin.H{"ok": true, "frame": f, "progress": progress})
}
