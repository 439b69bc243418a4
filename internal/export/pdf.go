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
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"spritetool/internal/domain"
	"spritetool/internal/imaging"
)

// SheetOptions controls the printable reference sheet. Units are points.
type SheetOptions struct {
	Columns  int     // default 4
	CellSize float64 // default 110
	Margin   float64 // default 36
	Guides   bool    // draw a hairline around every cell
}

func (o SheetOptions) withDefaults() SheetOptions {
	if o.Columns <= 0 {
		o.Columns = 4
	}
	if o.CellSize <= 0 {
		o.CellSize = 110
	}
	if o.Margin <= 0 {
		o.Margin = 36
	}
	return o
}

// SheetName is the delivered file name of a reference sheet.
func SheetName(figureName, animationName string) string {
	return safeName(figureName) + "_" + safeName(animationName) + ".pdf"
}

// ExportSheetPDF writes an A4 sheet with the populated frames of a in a numbered grid.
func ExportSheetPDF(w io.Writer, a domain.Animation, figureName string, opt SheetOptions) error {
	frames := a.Populated()
	if len(frames) == 0 {
		return ErrNoFrames
	}
	opt = opt.withDefaults()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", SizeStr: "A4", OrientationStr: "P"})
	pdf.SetTitle(fmt.Sprintf("%s / %s", figureName, a.Name), true)
	pdf.SetCreator("spritetool", false)
	pdf.SetMargins(opt.Margin, opt.Margin, opt.Margin)
	pdf.SetAutoPageBreak(false, opt.Margin)
	pageW, pageH := pdf.GetPageSize()

	header := func() float64 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.Text(opt.Margin, opt.Margin+12, fmt.Sprintf("%s / %s", figureName, a.Name))
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(opt.Margin, opt.Margin+28, fmt.Sprintf("%d frames, %d fps, %dx%d px", len(frames), a.FPS, a.OutputSize, a.OutputSize))
		return opt.Margin + 44
	}

	gap := 8.0
	label := 12.0
	cols := opt.Columns
	if fit := int((pageW - 2*opt.Margin + gap) / (opt.CellSize + gap)); fit > 0 && fit < cols {
		cols = fit
	}
	y := header()
	for i, f := range frames {
		col := i % cols
		if col == 0 && i > 0 {
			y += opt.CellSize + label + gap
		}
		if y+opt.CellSize+label > pageH-opt.Margin {
			y = header()
		}
		x := opt.Margin + float64(col)*(opt.CellSize+gap)

		data, err := imaging.PNGBytes(f.ImageData)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		name := FrameName(a.Name, i+1)
		imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, imgOpt, bytes.NewReader(data))
		pdf.ImageOptions(name, x, y, opt.CellSize, opt.CellSize, false, imgOpt, 0, "")
		if opt.Guides {
			pdf.SetDrawColor(203, 213, 225)
			pdf.SetLineWidth(0.5)
			pdf.Rect(x, y, opt.CellSize, opt.CellSize, "D")
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.Text(x, y+opt.CellSize+10, fmt.Sprintf("%02d", i+1))
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
