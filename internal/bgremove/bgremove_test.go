/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bgremove

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"spritetool/internal/domain"
	"spritetool/internal/imaging"
)

// framed returns a white w×w image with a red square in the middle.
func framed(t *testing.T, w int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, w))
	for y := 0; y < w; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 250, G: 250, B: 250, A: 255}
			if x >= w/4 && x < 3*w/4 && y >= w/4 && y < 3*w/4 {
				c = color.NRGBA{R: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	u, err := imaging.ToDataURL(img)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) add(m string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func TestRemoveWithKeySegmenter(t *testing.T) {
	r := NewRemover(KeySegmenter{})
	var rec recorder
	out, err := r.Remove(context.Background(), framed(t, 40), rec.add)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	img, err := imaging.DecodeDataURL(out)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 40 {
		t.Fatalf("dimensions changed: %v", img.Bounds())
	}
	if _, _, _, a := img.At(1, 1).RGBA(); a != 0 {
		t.Fatalf("border pixel still opaque")
	}
	if r, _, _, a := img.At(20, 20).RGBA(); a != 0xffff || r != 0xffff {
		t.Fatalf("subject pixel changed")
	}
	if rec.msgs[0] != MsgLoadingModel || rec.msgs[1] != MsgRemoving || rec.msgs[len(rec.msgs)-1] != MsgDone {
		t.Fatalf("messages %q", rec.msgs)
	}
	if !slices.Contains(rec.msgs, "Processing: 100%") {
		t.Fatalf("missing final percentage in %q", rec.msgs)
	}
	if !r.ModelLoaded() {
		t.Fatalf("model should count as loaded")
	}

	var again recorder
	if _, err := r.Remove(context.Background(), framed(t, 8), again.add); err != nil {
		t.Fatal(err)
	}
	if slices.Contains(again.msgs, MsgLoadingModel) {
		t.Fatalf("loading message repeated: %q", again.msgs)
	}
}

func TestRemoveFailures(t *testing.T) {
	failing := SegmenterFunc(func(context.Context, []byte, func(int, int)) ([]byte, error) {
		return nil, errors.New("model crashed")
	})
	r := NewRemover(failing)
	var rec recorder
	if _, err := r.Remove(context.Background(), framed(t, 8), rec.add); !errors.Is(err, ErrRemovalFailed) {
		t.Fatalf("got %v", err)
	}
	if r.ModelLoaded() || slices.Contains(rec.msgs, MsgDone) {
		t.Fatalf("failure must not report success: %q", rec.msgs)
	}
	if err := ErrRemovalFailed.Error(); err != "Failed to remove background. Please try again." {
		t.Fatalf("message %q", err)
	}

	resized := SegmenterFunc(func(context.Context, []byte, func(int, int)) ([]byte, error) {
		return imaging.EncodePNG(image.NewNRGBA(image.Rect(0, 0, 3, 3)))
	})
	if _, err := NewRemover(resized).Remove(context.Background(), framed(t, 8), nil); !errors.Is(err, ErrRemovalFailed) {
		t.Fatalf("dimension mismatch accepted: %v", err)
	}
	if _, err := NewRemover(KeySegmenter{}).Remove(context.Background(), "not a data url", nil); !errors.Is(err, ErrRemovalFailed) {
		t.Fatalf("bad payload accepted: %v", err)
	}
}

func TestHTTPSegmenter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("Content-Type") != "image/png" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	var rec recorder
	r := NewRemover(NewHTTPSegmenter(srv.URL, "secret", 0))
	out, err := r.Remove(context.Background(), framed(t, 16), rec.add)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if out == "" || !slices.Contains(rec.msgs, "Processing: 0%") || !slices.Contains(rec.msgs, "Processing: 100%") {
		t.Fatalf("progress %q", rec.msgs)
	}

	bad := NewRemover(NewHTTPSegmenter(srv.URL, "wrong", 0))
	if _, err := bad.Remove(context.Background(), framed(t, 16), nil); !errors.Is(err, ErrRemovalFailed) {
		t.Fatalf("unauthorized accepted: %v", err)
	}
}

type fakeStore struct {
	mu      sync.Mutex
	frames  map[string]domain.Frame
	updates int
}

func (f *fakeStore) Frame(id string) (domain.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fr, ok := f.frames[id]
	return fr, ok
}

func (f *fakeStore) UpdateFrame(_ context.Context, id, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[id] = domain.Frame{ID: id, ImageData: payload, Processed: payload != ""}
	f.updates++
	return nil
}

func TestServiceApply(t *testing.T) {
	in := framed(t, 12)
	st := &fakeStore{frames: map[string]domain.Frame{
		"frame-1": {ID: "frame-1", ImageData: in, Processed: true},
		"frame-2": {ID: "frame-2"},
	}}
	svc := NewService(NewRemover(KeySegmenter{}))
	ctx := context.Background()

	if err := svc.Apply(ctx, st, "frame-1", nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if f, _ := st.Frame("frame-1"); f.ImageData == in || !f.Processed {
		t.Fatalf("frame not updated")
	}
	if err := svc.Apply(ctx, st, "frame-2", nil); !errors.Is(err, ErrNoImage) {
		t.Fatalf("empty frame: %v", err)
	}
	if err := svc.Apply(ctx, st, "nope", nil); !errors.Is(err, ErrUnknownFrame) {
		t.Fatalf("unknown frame: %v", err)
	}
	if st.updates != 1 {
		t.Fatalf("updates %d", st.updates)
	}
}

func TestServiceFailureLeavesFrame(t *testing.T) {
	in := framed(t, 12)
	st := &fakeStore{frames: map[string]domain.Frame{"f": {ID: "f", ImageData: in, Processed: true}}}
	svc := NewService(NewRemover(SegmenterFunc(func(context.Context, []byte, func(int, int)) ([]byte, error) {
		return nil, errors.New("boom")
	})))
	if err := svc.Apply(context.Background(), st, "f", nil); !errors.Is(err, ErrRemovalFailed) {
		t.Fatalf("got %v", err)
	}
	if f, _ := st.Frame("f"); f.ImageData != in || st.updates != 0 {
		t.Fatalf("frame mutated on failure")
	}
}

func TestServiceBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	seg := SegmenterFunc(func(ctx context.Context, png []byte, _ func(int, int)) ([]byte, error) {
		close(started)
		<-release
		return png, nil
	})
	st := &fakeStore{frames: map[string]domain.Frame{"f": {ID: "f", ImageData: framed(t, 8), Processed: true}}}
	svc := NewService(NewRemover(seg))

	errc := make(chan error, 1)
	go func() { errc <- svc.Apply(context.Background(), st, "f", nil) }()
	<-started
	if !svc.Busy("f") {
		t.Fatalf("frame should be busy")
	}
	if err := svc.Apply(context.Background(), st, "f", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("second apply: %v", err)
	}
	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if svc.Busy("f") {
		t.Fatalf("busy flag not cleared")
	}
}
