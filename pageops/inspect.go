package pageops

import (
	"fmt"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/progress"
)

// Inspect loads a document and reports its page count, encryption flag
// and per-page geometry. It produces no output file.
func (e *Engine) Inspect(op InspectOp, fn progress.Func) (*Result, error) {
	j := e.newJob(KindInspect, fn)
	in := Input{Name: inputName(op.Input, 1), Data: op.Input.Data}

	docs, err := j.loadAll([]Input{in})
	if err != nil {
		return j.fail(err)
	}
	doc := docs[0]

	info := &Info{
		PageCount:  doc.PageCount,
		Encrypted:  doc.Encrypted,
		ByteLength: doc.ByteLength(),
		Pages:      make([]PageInfo, 0, doc.PageCount),
	}
	for n := 1; n <= doc.PageCount; n++ {
		_, _, inh, err := doc.ctx.PageDict(n, false)
		if err != nil {
			return j.fail(pdfcompose.Corrupted(KindInspect, in.Name, err))
		}
		pi := PageInfo{Number: n}
		if inh != nil {
			pi.Rotation = inh.Rotate
			if box := inh.MediaBox; box != nil {
				pi.Width, pi.Height = box.Width(), box.Height()
			}
		}
		info.Pages = append(info.Pages, pi)
		j.rep.Step(loadEnd, serializeTo-loadEnd, n, doc.PageCount, fmt.Sprintf("Inspected page %d", n))
	}
	return j.done(&Result{Info: info}, fmt.Sprintf("%d pages", doc.PageCount))
}

// Protect always fails with ErrUnsupported. No output is produced.
func (e *Engine) Protect(op ProtectOp, fn progress.Func) (*Result, error) {
	j := e.newJob(KindProtect, fn)
	return j.fail(&pdfcompose.Error{
		Op:   KindProtect,
		Kind: pdfcompose.ErrUnsupported,
		File: op.Input.Name,
		Msg:  "Password protection is not supported; the document was not modified",
	})
}
