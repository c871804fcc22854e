package pageops

import (
	"fmt"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/progress"
)

// Merge combines every page of every input into one document. Pages are
// added in order: all pages of the first input, then all of the second,
// and so on. A load failure aborts the merge and names the failing input.
func (e *Engine) Merge(op MergeOp, fn progress.Func) (*Result, error) {
	j := e.newJob(KindMerge, fn)

	inputs := make([]Input, len(op.Inputs))
	for i, in := range op.Inputs {
		inputs[i] = Input{Name: inputName(in, i+1), Data: in.Data}
	}

	docs, err := j.loadAll(inputs)
	if err != nil {
		return j.fail(err)
	}
	if len(docs) < 2 {
		return j.fail(&pdfcompose.Error{
			Op:   KindMerge,
			Kind: pdfcompose.ErrInsufficientInputs,
			Msg:  fmt.Sprintf("At least two PDF files are required to merge (got %d)", len(docs)),
		})
	}
	j.validated()

	var sel []page
	for _, doc := range docs {
		for n := 1; n <= doc.PageCount; n++ {
			sel = append(sel, page{doc: doc, number: n})
		}
	}

	out, err := j.build([][]page{sel})
	if err != nil {
		return j.fail(err)
	}
	res := &Result{Files: []File{{Name: defaultName(op.Name, "merged.pdf"), Data: out[0]}}}
	return j.done(res, fmt.Sprintf("Merged %d files (%d pages)", len(docs), len(sel)))
}
