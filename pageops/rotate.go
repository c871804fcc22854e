package pageops

import (
	"fmt"
	"maps"
	"slices"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/progress"
)

// Rotate rebuilds the document with every page in its original order,
// setting the rotation of the pages present in op.Rotations. An entry of 0
// resets that page to upright; pages without an entry keep their source
// rotation.
func (e *Engine) Rotate(op RotateOp, fn progress.Func) (*Result, error) {
	j := e.newJob(KindRotate, fn)
	in := Input{Name: inputName(op.Input, 1), Data: op.Input.Data}

	docs, err := j.loadAll([]Input{in})
	if err != nil {
		return j.fail(err)
	}
	doc := docs[0]

	var bad []int
	rotations := make(map[int]int, len(op.Rotations))
	for _, idx := range slices.Sorted(maps.Keys(op.Rotations)) {
		deg := op.Rotations[idx]
		if idx < 0 || idx >= doc.PageCount {
			bad = append(bad, idx+1)
			continue
		}
		norm, ok := normalizeRotation(deg)
		if !ok {
			return j.fail(invalidRotation(KindRotate, in.Name, idx+1, deg))
		}
		rotations[idx] = norm
	}
	if len(bad) > 0 {
		return j.fail(pdfcompose.InvalidPageNumbers(KindRotate, in.Name, bad, doc.PageCount))
	}
	j.validated()

	sel := make([]page, doc.PageCount)
	for i := range sel {
		sel[i] = page{doc: doc, number: i + 1}
		if deg, ok := rotations[i]; ok {
			sel[i].rotate = Rotation(deg)
		}
	}

	out, err := j.build([][]page{sel})
	if err != nil {
		return j.fail(err)
	}
	res := &Result{Files: []File{{Name: defaultName(op.Name, "rotated.pdf"), Data: out[0]}}}
	return j.done(res, fmt.Sprintf("Rotated %d of %d pages", len(rotations), doc.PageCount))
}

func invalidRotation(op, file string, pageNum, deg int) *pdfcompose.Error {
	return &pdfcompose.Error{
		Op:    op,
		Kind:  pdfcompose.ErrInvalidRotation,
		File:  file,
		Msg:   fmt.Sprintf("Invalid rotation %d for page %d (must be a multiple of 90)", deg, pageNum),
		Pages: []int{pageNum},
	}
}
