/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"image/color"
	"testing"
)

func TestExportSheetPDF(t *testing.T) {
	red := framePNG(t, color.NRGBA{R: 255, A: 255})
	payloads := make([]string, 40)
	for i := range payloads {
		if i%4 != 1 {
			payloads[i] = red
		}
	}
	var buf bytes.Buffer
	if err := ExportSheetPDF(&buf, walk(t, payloads...), "Hero", SheetOptions{Guides: true}); err != nil {
		t.Fatalf("export pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
	// 30 frames at 4 columns need more than one A4 page.
	if n := bytes.Count(buf.Bytes(), []byte("/Type /Page\n")); n < 2 {
		t.Fatalf("pages %d", n)
	}
}

func TestExportSheetPDFWithoutFrames(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportSheetPDF(&buf, walk(t, ""), "Hero", SheetOptions{}); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote output for empty animation")
	}
}
