package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestProjectJSONRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Project{
		ID:           "project-1",
		Name:         "RoundTrip",
		Created:      now,
		LastModified: now,
		Figures: []Figure{{
			ID:   "figure-1",
			Name: "Hero",
			Animations: []Animation{{
				ID:         "animation-1",
				Name:       "walk",
				FrameCount: 2,
				FPS:        12,
				OutputSize: 128,
				Frames: []Frame{
					{ID: "frame-1", ImageData: "data:image/png;base64,AAAA", Processed: true},
					{ID: "frame-2"},
				},
			}},
		}},
	}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"lastModified"`, `"frameCount"`, `"outputSize"`, `"imageData"`, `"fps"`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("missing %s in %s", key, b)
		}
	}
	var got Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != p.Name || len(got.Figures) != 1 || len(got.Figures[0].Animations[0].Frames) != 2 {
		t.Fatalf("unexpected structure: %+v", got)
	}
}

func TestNullImageDataDecodesAsEmpty(t *testing.T) {
	var f Frame
	if err := json.Unmarshal([]byte(`{"id":"frame-1","imageData":null,"processed":false}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.HasImage() {
		t.Fatalf("expected empty payload")
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := Project{Figures: []Figure{{Animations: []Animation{{Frames: []Frame{{ID: "a"}}}}}}}
	c := p.Clone()
	c.Figures[0].Animations[0].Frames[0].ID = "b"
	c.Figures[0].Name = "changed"
	if p.Figures[0].Animations[0].Frames[0].ID != "a" || p.Figures[0].Name != "" {
		t.Fatalf("clone shares memory with original")
	}
}

func TestPopulatedAndLookups(t *testing.T) {
	a := Animation{Frames: []Frame{{ID: "1", ImageData: "x"}, {ID: "2"}, {ID: "3", ImageData: "y"}}}
	pop := a.Populated()
	if len(pop) != 2 || pop[0].ID != "1" || pop[1].ID != "3" {
		t.Fatalf("populated = %+v", pop)
	}
	if a.FrameIndex("3") != 2 || a.FrameIndex("nope") != -1 {
		t.Fatalf("FrameIndex mismatch")
	}
	p := Project{Figures: []Figure{{ID: "f", Animations: []Animation{{ID: "an"}}}}}
	fig := p.FigureByID("f")
	if fig == nil || fig.AnimationByID("an") == nil || p.FigureByID("x") != nil {
		t.Fatalf("lookups failed")
	}
	fig.Name = "mutated"
	if p.Figures[0].Name != "mutated" {
		t.Fatalf("FigureByID should return an owned pointer")
	}
}

func TestClampFPSAndOutputSizes(t *testing.T) {
	cases := map[int]int{-5: 1, 0: 1, 1: 1, 30: 30, 60: 60, 61: 60}
	for in, want := range cases {
		if got := ClampFPS(in); got != want {
			t.Fatalf("ClampFPS(%d) = %d, want %d", in, got, want)
		}
	}
	for _, n := range []int{64, 128, 256, 512} {
		if !IsValidOutputSize(n) {
			t.Fatalf("%d should be valid", n)
		}
	}
	if IsValidOutputSize(100) {
		t.Fatalf("100 should be invalid")
	}
}

func TestNewIDPrefix(t *testing.T) {
	id := NewID(FrameIDPrefix)
	if !strings.HasPrefix(id, "frame-") || len(id) != len("frame-")+36 {
		t.Fatalf("unexpected id %q", id)
	}
	if NewID(FrameIDPrefix) == id {
		t.Fatalf("ids must be unique")
	}
}

func TestDerivedIDIsStable(t *testing.T) {
	a := DerivedID(FigureIDPrefix, "project-1")
	if a != DerivedID(FigureIDPrefix, "project-1") {
		t.Fatalf("derived id not stable")
	}
	if a == DerivedID(FigureIDPrefix, "project-2") {
		t.Fatalf("different names share an id")
	}
	if len(a) != len("figure-")+36 {
		t.Fatalf("unexpected id %q", a)
	}
}
