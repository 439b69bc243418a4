/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"spritetool/internal/export"
	"spritetool/internal/preview"
	"spritetool/internal/state"
	"spritetool/internal/telemetry"
)

func attachment(c *gin.Context, name string, size int) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Length", strconv.Itoa(size))
}

func (s *Server) exportOne(c *gin.Context) {
	fig, a, err := s.animation(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if _, err := s.exporter.WriteArchive(&buf, a, fig.Name); err != nil {
		fail(c, err)
		return
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"format": "zip", "frames": len(a.Populated())})
	attachment(c, export.ArchiveName(fig.Name, a.Name), buf.Len())
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (s *Server) exportInfo(c *gin.Context) {
	_, a, err := s.animation(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "info": export.InfoFor(a)})
}

// exportAll writes one archive per animation of the current figure into the export dir.
func (s *Server) exportAll(c *gin.Context) {
	sel := s.store.Selection()
	if sel.Figure == nil {
		fail(c, state.ErrNoSelection)
		return
	}
	sink := &recordingSink{dir: export.DirSink{Dir: s.exportDir}}
	var progress []gin.H
	err := s.exporter.ExportAll(c.Request.Context(), sel.Figure.Animations, sel.Figure.Name, sink, func(cur, total int) {
		progress = append(progress, gin.H{"current": cur, "total": total})
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"ok": false, "error": err.Error(), "files": sink.files, "progress": progress})
		return
	}
	telemetry.Event(telemetry.EventExport, map[string]any{"format": "zip", "archives": len(sink.files)})
	c.JSON(http.StatusOK, gin.H{"ok": true, "files": sink.files, "progress": progress})
}

// recordingSink remembers where each delivered file was written.
type recordingSink struct {
	dir   export.DirSink
	files []string
}

func (r *recordingSink) Deliver(ctx context.Context, name string, data []byte) error {
	if err := r.dir.Deliver(ctx, name, data); err != nil {
		return err
	}
	r.files = append(r.files, r.dir.Path(name))
	return nil
}

func (s *Server) previewGIF(c *gin.Context) {
	opts := preview.DefaultOptions()
	if c.Query("gallery") != "" {
		opts = preview.GalleryOptions()
	}
	_, a, err := s.animation(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := preview.EncodeGIF(&buf, a, opts); err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/gif", buf.Bytes())
}

func (s *Server) sheetPDF(c *gin.Context) {
	fig, a, err := s.animation(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.ExportSheetPDF(&buf, a, fig.Name, export.SheetOptions{Guides: c.Query("guides") != ""}); err != nil {
		fail(c, err)
		return
	}
	attachment(c, export.SheetName(fig.Name, a.Name), buf.Len())
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
