package pageops

import (
	"fmt"
	"slices"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/progress"
)

// Split produces one document per range, each holding only that
// contiguous run of pages. Ranges are checked against the real page
// count; any range outside it fails the whole split.
func (e *Engine) Split(op SplitOp, fn progress.Func) (*Result, error) {
	j := e.newJob(KindSplit, fn)
	in := Input{Name: inputName(op.Input, 1), Data: op.Input.Data}

	docs, err := j.loadAll([]Input{in})
	if err != nil {
		return j.fail(err)
	}
	doc := docs[0]

	if len(op.Ranges) == 0 {
		return j.fail(&pdfcompose.Error{
			Op: KindSplit, Kind: pdfcompose.ErrInvalidPageRange, File: in.Name,
			Msg: "No valid page ranges specified", Total: doc.PageCount,
		})
	}
	var bad []string
	for _, r := range op.Ranges {
		if r.Start < 1 || r.End > doc.PageCount || r.Start > r.End {
			bad = append(bad, fmt.Sprintf("%d-%d", r.Start, r.End))
		}
	}
	if len(bad) > 0 {
		return j.fail(pdfcompose.InvalidPageRanges(KindSplit, in.Name, bad, doc.PageCount))
	}
	j.validated()

	selectors := make([][]page, len(op.Ranges))
	for i, r := range op.Ranges {
		for _, n := range r.Pages() {
			selectors[i] = append(selectors[i], page{doc: doc, number: n})
		}
	}

	out, err := j.build(selectors)
	if err != nil {
		return j.fail(err)
	}

	res := &Result{Files: make([]File, len(out))}
	for i, r := range op.Ranges {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("split_%d_pages_%d-%d.pdf", i+1, r.Start, r.End)
		}
		res.Files[i] = File{Name: name, Data: out[i]}
	}
	return j.done(res, fmt.Sprintf("Split into %d files", len(res.Files)))
}

// Extract copies the given pages into one document. Pages are sorted
// ascending and deduplicated first, so the output order never depends on
// the order they were requested in.
func (e *Engine) Extract(op ExtractOp, fn progress.Func) (*Result, error) {
	j := e.newJob(KindExtract, fn)
	in := Input{Name: inputName(op.Input, 1), Data: op.Input.Data}

	docs, err := j.loadAll([]Input{in})
	if err != nil {
		return j.fail(err)
	}
	doc := docs[0]

	pages := slices.Clone(op.Pages)
	slices.Sort(pages)
	pages = slices.Compact(pages)

	if len(pages) == 0 {
		return j.fail(&pdfcompose.Error{
			Op: KindExtract, Kind: pdfcompose.ErrInvalidPageNumbers, File: in.Name,
			Msg: "No valid page numbers specified", Total: doc.PageCount,
		})
	}
	if bad := outOfRange(pages, doc.PageCount); len(bad) > 0 {
		return j.fail(pdfcompose.InvalidPageNumbers(KindExtract, in.Name, bad, doc.PageCount))
	}
	j.validated()

	sel := make([]page, len(pages))
	for i, n := range pages {
		sel[i] = page{doc: doc, number: n}
	}

	out, err := j.build([][]page{sel})
	if err != nil {
		return j.fail(err)
	}
	res := &Result{Files: []File{{Name: defaultName(op.Name, "extracted_pages.pdf"), Data: out[0]}}}
	return j.done(res, fmt.Sprintf("Extracted %d pages", len(pages)))
}
