// Package dispatch runs composition operations on a background worker when
// one is available and on the calling goroutine otherwise.
//
// Both paths run the same engine code on the same bytes and return
// identical results, including identical errors: a validation or
// corruption failure inside the worker reaches the caller as the same
// *pdfcompose.Error a foreground run would return. Worker availability
// only affects where the work happens.
package dispatch

import (
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfcompose/pageops"
	"github.com/lvillar/pdfcompose/pagerange"
	"github.com/lvillar/pdfcompose/progress"
	"github.com/lvillar/pdfcompose/worker"
)

// Spawner creates a background worker.
type Spawner func() (*worker.Client, error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSpawner sets how the background worker is created. A nil spawner
// disables the background path.
func WithSpawner(spawn Spawner) Option {
	return func(d *Dispatcher) {
		d.spawn = spawn
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.log = logger
		}
	}
}

// Dispatcher chooses the execution path for each operation. It is safe for
// concurrent use; operations sent to the worker run one at a time.
type Dispatcher struct {
	engine *pageops.Engine
	spawn  Spawner
	log    *logrus.Logger

	mu       sync.Mutex
	client   *worker.Client
	disabled bool
}

// New returns a Dispatcher whose foreground path runs on engine. By
// default the background worker is an engine served behind in-memory pipes.
func New(engine *pageops.Engine, opts ...Option) *Dispatcher {
	if engine == nil {
		engine = pageops.New()
	}
	d := &Dispatcher{
		engine: engine,
		spawn:  func() (*worker.Client, error) { return worker.Pipe(engine), nil },
	}
	d.log = logrus.New()
	d.log.SetOutput(io.Discard)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes op and reports progress to fn.
func (d *Dispatcher) Run(op pageops.Operation, fn progress.Func) (*pageops.Result, error) {
	c := d.worker()
	if c == nil {
		return d.engine.Run(op, fn)
	}

	fn = progress.Monotonic(fn)
	res, err := c.Call(op, fn)
	if !errors.Is(err, worker.ErrUnavailable) {
		return res, err
	}

	d.log.WithError(err).WithField("op", op.Kind()).Debug("worker failed, running in foreground")
	d.discard(c)
	return d.engine.Run(op, fn)
}

// worker returns the background worker, creating it on first use. It
// returns nil when the foreground path must be used.
func (d *Dispatcher) worker() *worker.Client {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil {
		return d.client
	}
	if d.disabled || d.spawn == nil {
		return nil
	}

	c, err := d.spawn()
	if err != nil {
		d.log.WithError(err).Debug("worker unavailable, using foreground execution")
		d.disabled = true
		return nil
	}
	d.client = c
	return c
}

func (d *Dispatcher) discard(c *worker.Client) {
	d.mu.Lock()
	if d.client == c {
		d.client = nil
	}
	d.mu.Unlock()
	c.Close()
}

// Close tears down the background worker. The next operation spawns a new
// one, and a spawner that failed before is tried again.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	c := d.client
	d.client = nil
	d.disabled = false
	d.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

// Background reports whether a background worker is currently running.
func (d *Dispatcher) Background() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.client != nil
}

// Merge concatenates every page of inputs, in order, into one document.
func (d *Dispatcher) Merge(inputs []pageops.Input, fn progress.Func) (pageops.File, error) {
	return single(d.Run(pageops.MergeOp{Inputs: inputs}, fn))
}

// Split produces one document per range.
func (d *Dispatcher) Split(in pageops.Input, ranges []pagerange.Range, fn progress.Func) ([]pageops.File, error) {
	res, err := d.Run(pageops.SplitOp{Input: in, Ranges: ranges}, fn)
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// Extract copies the given 1-based pages into a new document.
func (d *Dispatcher) Extract(in pageops.Input, pages []int, fn progress.Func) (pageops.File, error) {
	return single(d.Run(pageops.ExtractOp{Input: in, Pages: pages}, fn))
}

// Rotate rebuilds in with the rotations keyed by 0-based page index.
func (d *Dispatcher) Rotate(in pageops.Input, rotations map[int]int, fn progress.Func) (pageops.File, error) {
	return single(d.Run(pageops.RotateOp{Input: in, Rotations: rotations}, fn))
}

// Compose assembles a document from pages of any number of sources.
func (d *Dispatcher) Compose(pages []pageops.PageRef, fn progress.Func) (pageops.File, error) {
	return single(d.Run(pageops.ComposeOp{Pages: pages}, fn))
}

// Watermark stamps text on every page of in.
func (d *Dispatcher) Watermark(in pageops.Input, text string, fn progress.Func) (pageops.File, error) {
	return single(d.Run(pageops.WatermarkOp{Input: in, Text: text}, fn))
}

// Inspect reports page count and page geometry.
func (d *Dispatcher) Inspect(in pageops.Input) (*pageops.Info, error) {
	res, err := d.Run(pageops.InspectOp{Input: in}, nil)
	if err != nil {
		return nil, err
	}
	return res.Info, nil
}

func single(res *pageops.Result, err error) (pageops.File, error) {
	if err != nil {
		return pageops.File{}, err
	}
	return res.File(), nil
}
