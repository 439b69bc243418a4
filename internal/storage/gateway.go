/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"spritetool/internal/domain"
	applog "spritetool/internal/log"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// SchemaVersion is the envelope version written by Save.
// Version 1 is the bare JSON array of projects written by earlier releases.
const SchemaVersion = 2

var (
	// ErrNotFound is returned by Load when no project has the requested id.
	ErrNotFound = errors.New("project not found")
	// ErrFutureSchema means the stored envelope was written by a newer release.
	// Save refuses to overwrite such a document.
	ErrFutureSchema = errors.New("stored projects use a newer schema version")
)

//go:embed schema/projects.schema.json
var envelopeSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(envelopeSchema)

type envelope struct {
	SchemaVersion int              `json:"schemaVersion"`
	Projects      []domain.Project `json:"projects"`
}

// Gateway reads and writes the whole project collection under one key.
type Gateway struct {
	kv  KV
	key string
	log *slog.Logger
}

// NewGateway returns a Gateway persisting under key (DefaultKey when empty).
func NewGateway(kv KV, key string) *Gateway {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &Gateway{kv: kv, key: key, log: applog.WithComponent("storage")}
}

// DefaultKey is the storage key used when none is configured.
const DefaultKey = "sprite-tool-projects"

// Key returns the storage key.
func (g *Gateway) Key() string { return g.key }

// Close releases the underlying backend.
func (g *Gateway) Close() error { return g.kv.Close() }

// LoadAll returns the stored collection. Absent or corrupt documents yield an empty
// collection and no error; backend failures and ErrFutureSchema are returned.
func (g *Gateway) LoadAll(ctx context.Context) ([]domain.Project, error) {
	return g.read(ctx)
}

// Load returns the project with id or ErrNotFound.
func (g *Gateway) Load(ctx context.Context, id string) (domain.Project, error) {
	projects, err := g.read(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, ErrNotFound
}

// Save replaces the entry with the same id, or appends it, and writes the collection back.
func (g *Gateway) Save(ctx context.Context, p domain.Project) error {
	projects, err := g.read(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range projects {
		if projects[i].ID == p.ID {
			projects[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		projects = append(projects, p)
	}
	return g.write(ctx, projects)
}

// Delete filters the project out and rewrites the collection. Deleting an unknown id is not an error.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	projects, err := g.read(ctx)
	if err != nil {
		return err
	}
	kept := projects[:0]
	for _, p := range projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	return g.write(ctx, kept)
}

func (g *Gateway) read(ctx context.Context) ([]domain.Project, error) {
	data, ok, err := g.kv.Get(ctx, g.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", g.key, err)
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return []domain.Project{}, nil
	}
	projects, err := Decode(data)
	if errors.Is(err, ErrFutureSchema) {
		return nil, err
	}
	if err != nil {
		g.log.WarnContext(ctx, "stored projects unreadable, treating as empty", slog.String("key", g.key), slog.Any("err", err))
		return []domain.Project{}, nil
	}
	return projects, nil
}

func (g *Gateway) write(ctx context.Context, projects []domain.Project) error {
	data, err := Encode(projects)
	if err != nil {
		return err
	}
	if err := g.kv.Set(ctx, g.key, data); err != nil {
		return fmt.Errorf("write %s: %w", g.key, err)
	}
	return nil
}

// Encode serializes projects into the current envelope.
func Encode(projects []domain.Project) ([]byte, error) {
	if projects == nil {
		projects = []domain.Project{}
	}
	data, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Projects: projects})
	if err != nil {
		return nil, fmt.Errorf("marshal projects: %w", err)
	}
	return data, nil
}

// Decode parses a stored document of any known version, migrating it to the current
// model, and validates it against the embedded schema.
func Decode(data []byte) ([]domain.Project, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		migrated, err := migrateV1(data)
		if err != nil {
			return nil, err
		}
		data = migrated
	}
	var head struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if head.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrFutureSchema, head.SchemaVersion)
	}
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate envelope: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid envelope: %s", strings.Join(msgs, "; "))
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse projects: %w", err)
	}
	if env.Projects == nil {
		env.Projects = []domain.Project{}
	}
	return env.Projects, nil
}

// legacyProject is a version 1 record. The earliest records kept animations directly on
// the project; those are folded into a single figure named after the project.
type legacyProject struct {
	domain.Project
	Animations []domain.Animation `json:"animations,omitempty"`
}

func migrateV1(data []byte) ([]byte, error) {
	var legacy []legacyProject
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parse v1 array: %w", err)
	}
	projects := make([]domain.Project, 0, len(legacy))
	for _, lp := range legacy {
		p := lp.Project
		if len(p.Figures) == 0 && len(lp.Animations) > 0 {
			p.Figures = []domain.Figure{{
				ID:           domain.DerivedID(domain.FigureIDPrefix, p.ID),
				Name:         p.Name,
				Created:      p.Created,
				LastModified: p.LastModified,
				Animations:   lp.Animations,
			}}
		}
		if p.Figures == nil {
			p.Figures = []domain.Figure{}
		}
		if p.LastModified.IsZero() {
			p.LastModified = p.Created
		}
		if p.LastModified.IsZero() {
			p.LastModified = time.Now().UTC()
		}
		projects = append(projects, p)
	}
	return Encode(projects)
}
