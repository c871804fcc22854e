package pageops

import "github.com/lvillar/pdfcompose/pagerange"

// Operation kinds, as used in logs, errors and the worker protocol.
const (
	KindMerge     = "merge"
	KindSplit     = "split"
	KindExtract   = "extract"
	KindRotate    = "rotate"
	KindCompose   = "compose"
	KindWatermark = "watermark"
	KindInspect   = "inspect"
	KindProtect   = "protect"
)

// Operation is a sealed sum type: each variant carries exactly the
// parameters of its operation. Engine.Run switches over the variants.
type Operation interface {
	Kind() string
	operation()
}

// MergeOp concatenates every page of every input, in input order.
type MergeOp struct {
	Inputs []Input
	Name   string // default merged.pdf
}

// SplitOp produces one output per range. A Range's Name overrides the
// default split_{ordinal}_pages_{start}-{end}.pdf.
type SplitOp struct {
	Input  Input
	Ranges []pagerange.Range
}

// ExtractOp copies the given 1-based pages, ascending and deduplicated.
type ExtractOp struct {
	Input Input
	Pages []int
	Name  string // default extracted_pages.pdf
}

// RotateOp rebuilds the whole document, setting the rotation of the pages
// present in Rotations. Keys are 0-based page indexes; a value of 0 resets
// the page to upright.
type RotateOp struct {
	Input     Input
	Rotations map[int]int
	Name      string // default rotated.pdf
}

// ComposeOp builds one document from an arbitrary ordered list of pages
// drawn from any number of sources.
type ComposeOp struct {
	Pages []PageRef
	Name  string // default composed.pdf
}

// WatermarkOp stamps Text across the given 1-based pages, or every page
// when Pages is empty.
type WatermarkOp struct {
	Input Input
	Text  string
	Style TextWatermark
	Pages []int
	Name  string // default watermarked.pdf
}

// InspectOp loads a document and reports its page geometry.
type InspectOp struct {
	Input Input
}

// ProtectOp requests password protection, which is not supported.
type ProtectOp struct {
	Input    Input
	Password string
}

func (MergeOp) Kind() string     { return KindMerge }
func (SplitOp) Kind() string     { return KindSplit }
func (ExtractOp) Kind() string   { return KindExtract }
func (RotateOp) Kind() string    { return KindRotate }
func (ComposeOp) Kind() string   { return KindCompose }
func (WatermarkOp) Kind() string { return KindWatermark }
func (InspectOp) Kind() string   { return KindInspect }
func (ProtectOp) Kind() string   { return KindProtect }

func (MergeOp) operation()     {}
func (SplitOp) operation()     {}
func (ExtractOp) operation()   {}
func (RotateOp) operation()    {}
func (ComposeOp) operation()   {}
func (WatermarkOp) operation() {}
func (InspectOp) operation()   {}
func (ProtectOp) operation()   {}
