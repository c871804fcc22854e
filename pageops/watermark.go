package pageops

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/progress"
)

// TextWatermark defines the appearance of a text watermark. Zero fields
// take the defaults noted below.
type TextWatermark struct {
	FontSize float64  // font size in points (default: 60)
	Color    RGBColor // text color (default: light gray)
	Opacity  float64  // 0.0 to 1.0 (default: 0.3)
	Angle    float64  // rotation angle in degrees (default: 45)
}

// RGBColor represents an RGB color value.
type RGBColor struct {
	R, G, B int
}

func (wm TextWatermark) withDefaults() TextWatermark {
	if wm.FontSize == 0 {
		wm.FontSize = 60
	}
	if wm.Opacity == 0 {
		wm.Opacity = 0.3
	}
	if wm.Angle == 0 {
		wm.Angle = 45
	}
	if wm.Color == (RGBColor{}) {
		wm.Color = RGBColor{200, 200, 200}
	}
	return wm
}

// description renders wm in pdfcpu's watermark description syntax.
func (wm TextWatermark) description() string {
	return fmt.Sprintf("fontname:Helvetica, points:%g, scalefactor:1 abs, rotation:%g, opacity:%g, fillcolor:#%02X%02X%02X",
		wm.FontSize, wm.Angle, wm.Opacity, wm.Color.R&0xff, wm.Color.G&0xff, wm.Color.B&0xff)
}

// Watermark stamps op.Text over the selected pages and rebuilds the
// document like Rotate does, so the output is written the same way as
// every other operation.
func (e *Engine) Watermark(op WatermarkOp, fn progress.Func) (*Result, error) {
	j := e.newJob(KindWatermark, fn)
	in := Input{Name: inputName(op.Input, 1), Data: op.Input.Data}

	docs, err := j.loadAll([]Input{in})
	if err != nil {
		return j.fail(err)
	}
	doc := docs[0]

	if op.Text == "" {
		return j.fail(&pdfcompose.Error{
			Op: KindWatermark, Kind: pdfcompose.ErrInsufficientInputs, File: in.Name,
			Msg: "Watermark text is empty",
		})
	}
	pages := slices.Clone(op.Pages)
	slices.Sort(pages)
	pages = slices.Compact(pages)
	if bad := outOfRange(pages, doc.PageCount); len(bad) > 0 {
		return j.fail(pdfcompose.InvalidPageNumbers(KindWatermark, in.Name, bad, doc.PageCount))
	}
	j.validated()

	wm, err := api.TextWatermark(op.Text, op.Style.withDefaults().description(), true, false, types.POINTS)
	if err != nil {
		return j.fail(fmt.Errorf("pageops: watermark style: %w", err))
	}

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var stamped bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(doc.data), &stamped, selected, wm, conf); err != nil {
		return j.fail(pdfcompose.Corrupted(KindWatermark, in.Name, err))
	}
	j.rep.Update(validateEnd+5, "Stamped watermark")

	marked, err := j.e.loadRelaxed(KindWatermark, Input{Name: in.Name, Data: stamped.Bytes()})
	if err != nil {
		return j.fail(err)
	}

	sel := make([]page, marked.PageCount)
	for i := range sel {
		sel[i] = page{doc: marked, number: i + 1}
	}

	out, err := j.build([][]page{sel})
	if err != nil {
		return j.fail(err)
	}
	res := &Result{Files: []File{{Name: defaultName(op.Name, "watermarked.pdf"), Data: out[0]}}}
	return j.done(res, fmt.Sprintf("Watermarked %d pages", watermarked(len(pages), doc.PageCount)))
}

func watermarked(selected, total int) int {
	if selected == 0 {
		return total
	}
	return selected
}
