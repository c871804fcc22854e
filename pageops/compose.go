package pageops

import (
	"fmt"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/progress"
)

// Compose builds one document from op.Pages in the given order. Pages may
// come from any number of sources and each may carry its own rotation.
// A source referenced many times is parsed once.
func (e *Engine) Compose(op ComposeOp, fn progress.Func) (*Result, error) {
	j := e.newJob(KindCompose, fn)

	if len(op.Pages) == 0 {
		return j.fail(&pdfcompose.Error{
			Op: KindCompose, Kind: pdfcompose.ErrInvalidPageNumbers,
			Msg: "No valid page numbers specified",
		})
	}

	// Distinct sources in order of first use.
	slot := make(map[bufferKey]int)
	var sources []Input
	refSource := make([]int, len(op.Pages))
	for i, ref := range op.Pages {
		k := keyOf(ref.Source.Data)
		idx, ok := slot[k]
		if !ok || k == (bufferKey{}) {
			idx = len(sources)
			sources = append(sources, Input{Name: inputName(ref.Source, idx+1), Data: ref.Source.Data})
			slot[k] = idx
		}
		refSource[i] = idx
	}

	docs, err := j.loadAll(sources)
	if err != nil {
		return j.fail(err)
	}

	sel := make([]page, len(op.Pages))
	bad := make(map[int][]int)
	for i, ref := range op.Pages {
		doc := docs[refSource[i]]
		if ref.Index < 0 || ref.Index >= doc.PageCount {
			bad[refSource[i]] = append(bad[refSource[i]], ref.Index+1)
			continue
		}
		sel[i] = page{doc: doc, number: ref.Index + 1}
		if ref.Rotation != nil {
			deg, ok := normalizeRotation(*ref.Rotation)
			if !ok {
				return j.fail(invalidRotation(KindCompose, doc.Name, ref.Index+1, *ref.Rotation))
			}
			sel[i].rotate = Rotation(deg)
		}
	}
	for idx := range sources {
		if pages, ok := bad[idx]; ok {
			return j.fail(pdfcompose.InvalidPageNumbers(KindCompose, docs[idx].Name, pages, docs[idx].PageCount))
		}
	}
	j.validated()

	out, err := j.build([][]page{sel})
	if err != nil {
		return j.fail(err)
	}
	res := &Result{Files: []File{{Name: defaultName(op.Name, "composed.pdf"), Data: out[0]}}}
	return j.done(res, fmt.Sprintf("Composed %d pages from %d files", len(sel), len(sources)))
}
