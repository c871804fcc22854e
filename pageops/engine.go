package pageops

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/progress"
)

// Phase boundaries of the progress scale.
const (
	loadEnd     = 20
	validateEnd = 25
	assembleEnd = 85
	serializeTo = 99
)

// Engine executes operations. It holds no per-operation state, so one
// Engine may run any number of operations concurrently.
type Engine struct {
	cfg *engineConfig
	log *logrus.Logger
}

// New returns an Engine configured by opts.
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{cfg: cfg, log: cfg.logger}
}

// Run executes op, reporting progress to fn (which may be nil).
func (e *Engine) Run(op Operation, fn progress.Func) (*Result, error) {
	switch op := op.(type) {
	case MergeOp:
		return e.Merge(op, fn)
	case SplitOp:
		return e.Split(op, fn)
	case ExtractOp:
		return e.Extract(op, fn)
	case RotateOp:
		return e.Rotate(op, fn)
	case ComposeOp:
		return e.Compose(op, fn)
	case WatermarkOp:
		return e.Watermark(op, fn)
	case InspectOp:
		return e.Inspect(op, fn)
	case ProtectOp:
		return e.Protect(op, fn)
	default:
		// Pointer variants land here too.
		return e.newJob("run", fn).fail(&pdfcompose.Error{
			Op:   "run",
			Kind: pdfcompose.ErrUnsupported,
			Msg:  fmt.Sprintf("Unsupported operation %T", op),
		})
	}
}

// job carries the state of one running operation.
type job struct {
	e     *Engine
	op    string
	id    string
	rep   *progress.Reporter
	cache *loadCache
	log   *logrus.Entry
}

func (e *Engine) newJob(op string, fn progress.Func) *job {
	id := uuid.NewString()
	return &job{
		e:     e,
		op:    op,
		id:    id,
		rep:   progress.NewReporter(fn),
		cache: e.newLoadCache(op),
		log:   e.log.WithFields(logrus.Fields{"op": op, "job": id}),
	}
}

// fail reports err as the terminal event and returns it.
func (j *job) fail(err error) (*Result, error) {
	j.log.WithError(err).Debug("operation failed")
	j.rep.Fail(err)
	return nil, err
}

func (j *job) done(res *Result, msg string) (*Result, error) {
	j.log.WithField("files", len(res.Files)).Debug("operation complete")
	j.rep.Complete(msg)
	return res, nil
}

// loadAll loads inputs in order through the job's cache.
func (j *job) loadAll(inputs []Input) ([]*Document, error) {
	docs := make([]*Document, 0, len(inputs))
	for i, in := range inputs {
		j.rep.Step(0, loadEnd, i, len(inputs), "Loading "+in.Name)
		doc, err := j.cache.get(in)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	j.rep.Update(loadEnd, "Loaded")
	runtime.Gosched()
	return docs, nil
}

func (j *job) validated() {
	j.rep.Update(validateEnd, "Validated page selection")
	runtime.Gosched()
}

// page is one resolved page reference: a document and a 1-based page number.
type page struct {
	doc    *Document
	number int
	rotate *int
}

// build assembles and serializes one output per selector. Each output owns
// a share of the progress scale after validation proportional to its page
// count, split between copying its pages and serializing it, so progress
// keeps moving across every output.
func (j *job) build(selectors [][]page) ([][]byte, error) {
	total := 0
	for _, sel := range selectors {
		total += len(sel)
	}
	total = max(total, 1)

	span := float64(serializeTo - validateEnd)
	copyShare := float64(assembleEnd-validateEnd) / span

	outputs := make([][]byte, 0, len(selectors))
	done := 0
	for _, sel := range selectors {
		lo := validateEnd + span*float64(done)/float64(total)
		width := span * float64(len(sel)) / float64(total)

		a := newAssembler()
		nums := make([]int, len(sel))
		for i, p := range sel {
			n, err := a.reservePage(p.doc, p.number)
			if err != nil {
				return nil, j.copyFailed(p, err)
			}
			nums[i] = n
		}
		for i, p := range sel {
			if err := a.addPage(p.doc, p.number, nums[i], p.rotate); err != nil {
				return nil, j.copyFailed(p, err)
			}
			done++
			j.rep.Step(lo, width*copyShare, i+1, len(sel), fmt.Sprintf("Copied page %d of %d", done, total))
			if n := j.e.cfg.yieldEvery; n > 0 && done%n == 0 {
				runtime.Gosched()
			}
		}
		outputs = append(outputs, a.bytes())
		j.rep.Update(lo+width, fmt.Sprintf("Serialized output %d of %d", len(outputs), len(selectors)))
		runtime.Gosched()
	}
	return outputs, nil
}

func (j *job) copyFailed(p page, err error) error {
	return pdfcompose.Corrupted(j.op, p.doc.Name, fmt.Errorf("copying page %d: %w", p.number, err))
}

// outOfRange returns the 1-based pages not in [1, total].
func outOfRange(pages []int, total int) []int {
	var bad []int
	for _, p := range pages {
		if p < 1 || p > total {
			bad = append(bad, p)
		}
	}
	return bad
}
