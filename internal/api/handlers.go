/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spritetool/internal/domain"
	"spritetool/internal/state"
)

var (
	errBadRequest        = errors.New("invalid body")
	errAnimationNotFound = errors.New("animation not found")
)

type nameReq struct {
	Name string `json:"name"`
}

type createAnimationReq struct {
	Name       string `json:"name"`
	FrameCount int    `json:"frameCount"`
}

type updateAnimationReq struct {
	Name       *string `json:"name"`
	FPS        *int    `json:"fps"`
	OutputSize *int    `json:"outputSize"`
}

func (s *Server) getState(c *gin.Context) {
	sel := s.store.Selection()
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": sel.Project, "figure": sel.Figure, "animation": sel.Animation})
}

func (s *Server) listProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": s.store.ListProjects(c.Request.Context())})
}

func (s *Server) createProject(c *gin.Context) {
	var req nameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadRequest)
		return
	}
	p, err := s.store.CreateProject(c.Request.Context(), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (s *Server) selectProject(c *gin.Context) {
	if !s.store.SelectProject(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		return
	}
	s.getState(c)
}

func (s *Server) deleteProject(c *gin.Context) {
	s.store.DeleteProject(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) updateProject(c *gin.Context) {
	var req nameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadRequest)
		return
	}
	if err := s.store.UpdateProject(c.Request.Context(), state.ProjectPatch{Name: &req.Name}); err != nil {
		fail(c, err)
		return
	}
	s.getState(c)
}

func (s *Server) closeProject(c *gin.Context) {
	s.store.CloseProject()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) createFigure(c *gin.Context) {
	var req nameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadRequest)
		return
	}
	f, err := s.store.CreateFigure(c.Request.Context(), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "figure": f})
}

func (s *Server) selectFigure(c *gin.Context) {
	if !s.store.SelectFigure(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "figure not found"})
		return
	}
	s.getState(c)
}

func (s *Server) updateFigure(c *gin.Context) {
	var req nameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadRequest)
		return
	}
	if err := s.store.UpdateFigure(c.Request.Context(), c.Param("id"), state.FigurePatch{Name: &req.Name}); err != nil {
		fail(c, err)
		return
	}
	s.getState(c)
}

func (s *Server) deleteFigure(c *gin.Context) {
	if err := s.store.DeleteFigure(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) createAnimation(c *gin.Context) {
	req := createAnimationReq{FrameCount: domain.DefaultFrameCount}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadRequest)
		return
	}
	a, err := s.store.CreateAnimation(c.Request.Context(), req.Name, req.FrameCount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "animation": a})
}

func (s *Server) selectAnimation(c *gin.Context) {
	if !s.store.SelectAnimation(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "animation not found"})
		return
	}
	s.getState(c)
}

func (s *Server) updateAnimation(c *gin.Context) {
	var req updateAnimationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errBadRequest)
		return
	}
	patch := state.AnimationPatch{Name: req.Name, FPS: req.FPS, OutputSize: req.OutputSize}
	if err := s.store.UpdateAnimation(c.Request.Context(), c.Param("id"), patch); err != nil {
		fail(c, err)
		return
	}
	s.getState(c)
}

func (s *Server) deleteAnimation(c *gin.Context) {
	if err := s.store.DeleteAnimation(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// animation resolves an animation of the current figure by id.
func (s *Server) animation(id string) (domain.Figure, domain.Animation, error) {
	sel := s.store.Selection()
	if sel.Figure == nil {
		return domain.Figure{}, domain.Animation{}, state.ErrNoSelection
	}
	a := sel.Figure.AnimationByID(id)
	if a == nil {
		return domain.Figure{}, domain.Animation{}, errAnimationNotFound
	}
	return *sel.Figure, *a, nil
}
