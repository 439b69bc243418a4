/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"spritetool/internal/domain"
)

func sampleProject(id, name string) domain.Project {
	ts := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	return domain.Project{
		ID: id, Name: name, Created: ts, LastModified: ts,
		Figures: []domain.Figure{{
			ID: "figure-1", Name: "Hero", Created: ts, LastModified: ts,
			Animations: []domain.Animation{{
				ID: "animation-1", Name: "walk", FrameCount: 3, FPS: 12, OutputSize: 128,
				Frames: []domain.Frame{
					{ID: "frame-1", ImageData: "data:image/png;base64,AAAA", Processed: true},
					{ID: "frame-2"},
					{ID: "frame-3", ImageData: "data:image/png;base64,BBBB", Processed: true},
				},
			}},
		}},
	}
}

func TestGatewaySaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryKV(), "")
	if g.Key() != DefaultKey {
		t.Fatalf("key = %q", g.Key())
	}
	p := sampleProject("project-a", "Demo")
	if err := g.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := g.Load(ctx, "project-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, p)
	}
	if _, err := g.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGatewayReplaceOrAppendAndDelete(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryKV(), "k")
	a := sampleProject("project-a", "A")
	b := sampleProject("project-b", "B")
	for _, p := range []domain.Project{a, b} {
		if err := g.Save(ctx, p); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	a.Name = "A2"
	if err := g.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	all, err := g.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 || all[0].Name != "A2" || all[1].ID != "project-b" {
		t.Fatalf("unexpected collection: %+v", all)
	}
	if err := g.Delete(ctx, "project-a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := g.Delete(ctx, "nope"); err != nil {
		t.Fatalf("Delete unknown: %v", err)
	}
	all, _ = g.LoadAll(ctx)
	if len(all) != 1 || all[0].ID != "project-b" {
		t.Fatalf("delete did not filter: %+v", all)
	}
}

func TestGatewayWritesVersionedEnvelope(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	g := NewGateway(kv, "k")
	if err := g.Save(ctx, sampleProject("project-a", "A")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, ok, _ := kv.Get(ctx, "k")
	if !ok {
		t.Fatalf("nothing written")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["schemaVersion"] != float64(SchemaVersion) {
		t.Fatalf("schemaVersion = %v", m["schemaVersion"])
	}
	if !strings.Contains(string(raw), `"imageData":"data:image/png;base64,AAAA"`) || !strings.Contains(string(raw), `"frameCount":3`) {
		t.Fatalf("field names not preserved: %s", raw)
	}
}

func TestGatewayCorruptionIsSwallowed(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"not json":       "{{{",
		"wrong shape":    `{"schemaVersion":2,"projects":{"id":1}}`,
		"missing fields": `{"schemaVersion":2,"projects":[{"name":"x"}]}`,
		"bad frame":      `{"schemaVersion":2,"projects":[{"id":"p","name":"x","figures":[{"id":"f","name":"f","animations":[{"id":"a","name":"a","frameCount":"two","fps":12,"outputSize":128,"frames":[]}]}]}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			kv := NewMemoryKV()
			_ = kv.Set(ctx, "k", []byte(doc))
			g := NewGateway(kv, "k")
			all, err := g.LoadAll(ctx)
			if err != nil {
				t.Fatalf("LoadAll: %v", err)
			}
			if len(all) != 0 {
				t.Fatalf("expected empty collection, got %+v", all)
			}
			// Save over corruption starts a fresh collection.
			if err := g.Save(ctx, sampleProject("project-a", "A")); err != nil {
				t.Fatalf("Save: %v", err)
			}
			all, _ = g.LoadAll(ctx)
			if len(all) != 1 {
				t.Fatalf("expected 1 project after save, got %d", len(all))
			}
		})
	}
}

func TestGatewayMigratesV1Array(t *testing.T) {
	ctx := context.Background()
	v1 := `[
	  {"id":"project-1","name":"Old","created":"2024-01-02T03:04:05.000Z","lastModified":"2024-01-02T03:04:05.000Z",
	   "figures":[{"id":"figure-1","name":"Hero","created":"2024-01-02T03:04:05.000Z","lastModified":"2024-01-02T03:04:05.000Z",
	     "animations":[{"id":"animation-1","name":"run","frameCount":2,"fps":8,"outputSize":64,
	       "frames":[{"id":"frame-1","imageData":null,"processed":false},{"id":"frame-2","imageData":"data:image/png;base64,QQ==","processed":true}]}]}]},
	  {"id":"project-2","name":"Flat","created":"2024-01-02T03:04:05.000Z","lastModified":"2024-01-02T03:04:05.000Z",
	   "animations":[{"id":"animation-9","name":"idle","frameCount":1,"fps":12,"outputSize":128,"frames":[{"id":"frame-9","imageData":null,"processed":false}]}]}
	]`
	kv := NewMemoryKV()
	_ = kv.Set(ctx, "k", []byte(v1))
	g := NewGateway(kv, "k")
	all, err := g.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(all))
	}
	run := all[0].Figures[0].Animations[0]
	if run.FPS != 8 || run.OutputSize != 64 || run.Frames[0].ImageData != "" || !run.Frames[1].Processed {
		t.Fatalf("v1 animation not preserved: %+v", run)
	}
	flat := all[1]
	if len(flat.Figures) != 1 || flat.Figures[0].Name != "Flat" || flat.Figures[0].Animations[0].ID != "animation-9" {
		t.Fatalf("flat animations not folded into a figure: %+v", flat)
	}
	if !strings.HasPrefix(flat.Figures[0].ID, domain.FigureIDPrefix+"-") {
		t.Fatalf("folded figure id = %q", flat.Figures[0].ID)
	}

	// The next save upgrades the stored document.
	if err := g.Save(ctx, all[0]); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, _, _ := kv.Get(ctx, "k")
	if !strings.HasPrefix(string(raw), `{"schemaVersion":2`) {
		t.Fatalf("document not upgraded: %.60s", raw)
	}
}

func TestGatewayMigratedFigureIDIsStable(t *testing.T) {
	ctx := context.Background()
	v1 := `[{"id":"project-1","name":"Flat","created":"2024-01-02T03:04:05.000Z","lastModified":"2024-01-02T03:04:05.000Z",
	  "animations":[{"id":"animation-9","name":"idle","frameCount":1,"fps":12,"outputSize":128,"frames":[{"id":"frame-9","imageData":null,"processed":false}]}]}]`
	kv := NewMemoryKV()
	_ = kv.Set(ctx, "k", []byte(v1))
	g := NewGateway(kv, "k")

	first, err := g.Load(ctx, "project-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := g.Load(ctx, "project-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	all, err := g.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	id := first.Figures[0].ID
	if second.Figures[0].ID != id || all[0].Figures[0].ID != id {
		t.Fatalf("figure id changed between reads: %q %q %q", id, second.Figures[0].ID, all[0].Figures[0].ID)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated reads differ:\n%+v\n%+v", first, second)
	}
}

func TestGatewayRefusesFutureSchema(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	future := `{"schemaVersion":99,"projects":[]}`
	_ = kv.Set(ctx, "k", []byte(future))
	g := NewGateway(kv, "k")
	if _, err := g.LoadAll(ctx); !errors.Is(err, ErrFutureSchema) {
		t.Fatalf("LoadAll err = %v, want ErrFutureSchema", err)
	}
	if err := g.Save(ctx, sampleProject("project-a", "A")); !errors.Is(err, ErrFutureSchema) {
		t.Fatalf("Save err = %v, want ErrFutureSchema", err)
	}
	raw, _, _ := kv.Get(ctx, "k")
	if string(raw) != future {
		t.Fatalf("future document was overwritten: %s", raw)
	}
}

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingKV) Set(context.Context, string, []byte) error { return f.err }
func (f failingKV) Close() error { return nil }

func TestGatewaySurfacesBackendErrors(t *testing.T) {
	boom := errors.New("boom")
	g := NewGateway(failingKV{err: boom}, "k")
	if _, err := g.LoadAll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("LoadAll err = %v", err)
	}
	if err := g.Save(context.Background(), sampleProject("p", "p")); !errors.Is(err, boom) {
		t.Fatalf("Save err = %v", err)
	}
}
