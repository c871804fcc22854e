package pageops

import (
	"bytes"
	"errors"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfcompose"
)

var (
	errEmptyInput = errors.New("empty input")
	errNoPages    = errors.New("document has no pages")
)

var disableConfigDir sync.Once

// Document is a loaded source PDF. It owns a private copy of the input
// bytes and is read-only once loaded.
type Document struct {
	Name      string
	PageCount int
	Encrypted bool // best effort: the file carries an /Encrypt entry

	data []byte
	ctx  *model.Context
}

// ByteLength returns the size of the source buffer.
func (d *Document) ByteLength() int {
	return len(d.data)
}

// Load parses in into a Document. Failures are *pdfcompose.Error values
// classified as ErrCorruptedDocument or ErrEncryptedOrCorrupted.
func (e *Engine) Load(in Input) (*Document, error) {
	return e.load("load", in)
}

// load parses in with the engine's validation mode. The bytes are copied
// before parsing and copied again for the retry, so the parser never sees
// memory the caller still owns.
func (e *Engine) load(op string, in Input) (*Document, error) {
	mode := model.ValidationStrict
	if e.cfg.relaxed {
		mode = model.ValidationRelaxed
	}
	return e.loadMode(op, in, mode)
}

// loadRelaxed parses a buffer the engine produced itself, such as a pdfcpu
// watermark stamp. pdfcpu writes core fonts without metrics, which strict
// validation rejects.
func (e *Engine) loadRelaxed(op string, in Input) (*Document, error) {
	return e.loadMode(op, in, model.ValidationRelaxed)
}

func (e *Engine) loadMode(op string, in Input, mode int) (*Document, error) {
	log := e.log.WithFields(logrus.Fields{"op": op, "file": in.Name, "phase": "load"})

	if len(in.Data) == 0 {
		return nil, pdfcompose.Corrupted(op, in.Name, errEmptyInput)
	}

	data := bytes.Clone(in.Data)
	encrypted := bytes.Contains(data, []byte("/Encrypt"))

	ctx, err := parse(data, mode)
	if err != nil {
		if !encrypted && !encryptionFailure(err) {
			log.WithError(err).Debug("parse failed")
			return nil, pdfcompose.Corrupted(op, in.Name, err)
		}
		if !relaxedRetry(err, mode) {
			log.WithError(err).Debug("encrypted source")
			return nil, pdfcompose.EncryptedOrCorrupted(op, in.Name, err)
		}

		log.WithError(err).Debug("encrypted source, retrying with relaxed validation")
		data = bytes.Clone(in.Data)
		if ctx, err = parse(data, model.ValidationRelaxed); err != nil {
			log.WithError(err).Debug("retry failed")
			return nil, pdfcompose.EncryptedOrCorrupted(op, in.Name, err)
		}
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdfcompose.Corrupted(op, in.Name, err)
	}
	if ctx.PageCount == 0 {
		return nil, pdfcompose.Corrupted(op, in.Name, errNoPages)
	}

	log.WithField("pages", ctx.PageCount).Debug("loaded")
	return &Document{
		Name:      in.Name,
		PageCount: ctx.PageCount,
		Encrypted: encrypted,
		data:      data,
		ctx:       ctx,
	}, nil
}

func parse(data []byte, mode int) (*model.Context, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = mode
	return api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
}

// relaxedRetry reports whether a failed parse of an encrypted source is
// worth repeating with relaxed validation. The retry only gets past
// validation errors: relaxed mode does not bypass encryption, so a
// password failure is final.
func relaxedRetry(err error, mode int) bool {
	return mode != model.ValidationRelaxed && !errors.Is(err, pdfcpu.ErrWrongPassword)
}

func encryptionFailure(err error) bool {
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}

// bufferKey identifies an input buffer by the address of its first byte
// and its length.
type bufferKey struct {
	ptr *byte
	n   int
}

func keyOf(data []byte) bufferKey {
	if len(data) == 0 {
		return bufferKey{}
	}
	return bufferKey{ptr: &data[0], n: len(data)}
}

// loadCache holds the documents of one operation. It is never shared
// between operations.
type loadCache struct {
	engine *Engine
	op     string
	docs   map[bufferKey]*Document
	order  []*Document
	loads  int
}

func (e *Engine) newLoadCache(op string) *loadCache {
	return &loadCache{engine: e, op: op, docs: make(map[bufferKey]*Document)}
}

// get returns the document for in, loading it on first use.
func (c *loadCache) get(in Input) (*Document, error) {
	k := keyOf(in.Data)
	if doc, ok := c.docs[k]; ok && k != (bufferKey{}) {
		return doc, nil
	}
	c.loads++
	doc, err := c.engine.load(c.op, in)
	if err != nil {
		return nil, err
	}
	c.docs[k] = doc
	c.order = append(c.order, doc)
	return doc, nil
}
