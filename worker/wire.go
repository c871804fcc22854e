package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lvillar/pdfcompose"
	"github.com/lvillar/pdfcompose/pageops"
	"github.com/lvillar/pdfcompose/pagerange"
)

// JSON-RPC types. Requests and responses are newline-delimited JSON.
type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// jsonrpcMessage is anything the worker writes: a response, or a
// notification when Method is set.
type jsonrpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *errorData `json:"data,omitempty"`
}

// errorData carries a *pdfcompose.Error across the boundary.
type errorData struct {
	Kind  string `json:"kind"`
	Op    string `json:"op"`
	File  string `json:"file,omitempty"`
	Msg   string `json:"msg"`
	Pages []int  `json:"pages,omitempty"`
	Total int    `json:"total,omitempty"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeOperation      = -32000
)

const methodProgress = "progress"

// Binary inputs travel once per distinct buffer in a source table and are
// referenced by index, so buffers shared between inputs stay shared on the
// other side.
type sourceTable struct {
	Sources [][]byte `json:"sources"`
}

type inputRef struct {
	Source int    `json:"source"`
	Name   string `json:"name,omitempty"`
}

type pageRef struct {
	inputRef
	Index    int  `json:"index"`
	Rotation *int `json:"rotation,omitempty"`
}

type mergeParams struct {
	sourceTable
	Inputs []inputRef `json:"inputs"`
	Name   string     `json:"name,omitempty"`
}

type splitParams struct {
	sourceTable
	Input  inputRef          `json:"input"`
	Ranges []pagerange.Range `json:"ranges"`
}

type extractParams struct {
	sourceTable
	Input inputRef `json:"input"`
	Pages []int    `json:"pages"`
	Name  string   `json:"name,omitempty"`
}

type rotateParams struct {
	sourceTable
	Input     inputRef    `json:"input"`
	Rotations map[int]int `json:"rotations,omitempty"`
	Name      string      `json:"name,omitempty"`
}

type composeParams struct {
	sourceTable
	Pages []pageRef `json:"pages"`
	Name  string    `json:"name,omitempty"`
}

type watermarkParams struct {
	sourceTable
	Input inputRef              `json:"input"`
	Text  string                `json:"text"`
	Style pageops.TextWatermark `json:"style"`
	Pages []int                 `json:"pages,omitempty"`
	Name  string                `json:"name,omitempty"`
}

type inspectParams struct {
	sourceTable
	Input inputRef `json:"input"`
}

type protectParams struct {
	sourceTable
	Input    inputRef `json:"input"`
	Password string   `json:"password"`
}

type bufferKey struct {
	ptr *byte
	n   int
}

// sourceEncoder builds a source table, adding each distinct buffer once.
type sourceEncoder struct {
	table sourceTable
	index map[bufferKey]int
}

func newSourceEncoder() *sourceEncoder {
	return &sourceEncoder{index: make(map[bufferKey]int)}
}

func (e *sourceEncoder) ref(in pageops.Input) inputRef {
	if len(in.Data) == 0 {
		e.table.Sources = append(e.table.Sources, nil)
		return inputRef{Source: len(e.table.Sources) - 1, Name: in.Name}
	}
	k := bufferKey{ptr: &in.Data[0], n: len(in.Data)}
	idx, ok := e.index[k]
	if !ok {
		idx = len(e.table.Sources)
		e.table.Sources = append(e.table.Sources, in.Data)
		e.index[k] = idx
	}
	return inputRef{Source: idx, Name: in.Name}
}

func (t sourceTable) input(r inputRef) (pageops.Input, error) {
	if r.Source < 0 || r.Source >= len(t.Sources) {
		return pageops.Input{}, fmt.Errorf("source %d out of range", r.Source)
	}
	return pageops.Input{Name: r.Name, Data: t.Sources[r.Source]}, nil
}

// encodeOperation returns the method name and parameters for op.
func encodeOperation(op pageops.Operation) (string, any, error) {
	enc := newSourceEncoder()
	switch op := op.(type) {
	case pageops.MergeOp:
		p := mergeParams{Name: op.Name}
		for _, in := range op.Inputs {
			p.Inputs = append(p.Inputs, enc.ref(in))
		}
		p.sourceTable = enc.table
		return op.Kind(), p, nil
	case pageops.SplitOp:
		p := splitParams{Input: enc.ref(op.Input), Ranges: op.Ranges}
		p.sourceTable = enc.table
		return op.Kind(), p, nil
	case pageops.ExtractOp:
		p := extractParams{Input: enc.ref(op.Input), Pages: op.Pages, Name: op.Name}
		p.sourceTable = enc.table
		return op.Kind(), p, nil
	case pageops.RotateOp:
		p := rotateParams{Input: enc.ref(op.Input), Rotations: op.Rotations, Name: op.Name}
		p.sourceTable = enc.table
		return op.Kind(), p, nil
	case pageops.ComposeOp:
		p := composeParams{Name: op.Name}
		for _, r := range op.Pages {
			p.Pages = append(p.Pages, pageRef{inputRef: enc.ref(r.Source), Index: r.Index, Rotation: r.Rotation})
		}
		p.sourceTable = enc.table
		return op.Kind(), p, nil
	case pageops.WatermarkOp:
		p := watermarkParams{Input: enc.ref(op.Input), Text: op.Text, Style: op.Style, Pages: op.Pages, Name: op.Name}
		p.sourceTable = enc.table
		return op.Kind(), p, nil
	case pageops.InspectOp:
		p := inspectParams{Input: enc.ref(op.Input)}
		p.sourceTable = enc.table
		return op.Kind(), p, nil
	case pageops.ProtectOp:
		p := protectParams{Input: enc.ref(op.Input), Password: op.Password}
		p.sourceTable = enc.table
		return op.Kind(), p, nil
	default:
		return "", nil, fmt.Errorf("worker: unknown operation %T", op)
	}
}

// decodeOperation is the inverse of encodeOperation.
func decodeOperation(method string, raw json.RawMessage) (pageops.Operation, error) {
	switch method {
	case pageops.KindMerge:
		var p mergeParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		op := pageops.MergeOp{Name: p.Name}
		for _, r := range p.Inputs {
			in, err := p.input(r)
			if err != nil {
				return nil, err
			}
			op.Inputs = append(op.Inputs, in)
		}
		return op, nil
	case pageops.KindSplit:
		var p splitParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		in, err := p.input(p.Input)
		if err != nil {
			return nil, err
		}
		return pageops.SplitOp{Input: in, Ranges: p.Ranges}, nil
	case pageops.KindExtract:
		var p extractParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		in, err := p.input(p.Input)
		if err != nil {
			return nil, err
		}
		return pageops.ExtractOp{Input: in, Pages: p.Pages, Name: p.Name}, nil
	case pageops.KindRotate:
		var p rotateParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		in, err := p.input(p.Input)
		if err != nil {
			return nil, err
		}
		return pageops.RotateOp{Input: in, Rotations: p.Rotations, Name: p.Name}, nil
	case pageops.KindCompose:
		var p composeParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		op := pageops.ComposeOp{Name: p.Name}
		for _, r := range p.Pages {
			in, err := p.input(r.inputRef)
			if err != nil {
				return nil, err
			}
			op.Pages = append(op.Pages, pageops.PageRef{Source: in, Index: r.Index, Rotation: r.Rotation})
		}
		return op, nil
	case pageops.KindWatermark:
		var p watermarkParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		in, err := p.input(p.Input)
		if err != nil {
			return nil, err
		}
		return pageops.WatermarkOp{Input: in, Text: p.Text, Style: p.Style, Pages: p.Pages, Name: p.Name}, nil
	case pageops.KindInspect:
		var p inspectParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		in, err := p.input(p.Input)
		if err != nil {
			return nil, err
		}
		return pageops.InspectOp{Input: in}, nil
	case pageops.KindProtect:
		var p protectParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		in, err := p.input(p.Input)
		if err != nil {
			return nil, err
		}
		return pageops.ProtectOp{Input: in, Password: p.Password}, nil
	default:
		return nil, errUnknownMethod
	}
}

// encodeError maps err onto a JSON-RPC error, keeping taxonomy details.
func encodeError(err error) *jsonrpcError {
	var perr *pdfcompose.Error
	if !errors.As(err, &perr) {
		return &jsonrpcError{Code: codeInternal, Message: err.Error()}
	}
	return &jsonrpcError{
		Code:    codeOperation,
		Message: perr.Error(),
		Data: &errorData{
			Kind:  pdfcompose.KindName(perr.Kind),
			Op:    perr.Op,
			File:  perr.File,
			Msg:   perr.Msg,
			Pages: perr.Pages,
			Total: perr.Total,
		},
	}
}

// decodeError rebuilds the error the worker's engine returned.
func decodeError(e *jsonrpcError) error {
	if e.Data != nil {
		if kind := pdfcompose.KindByName(e.Data.Kind); kind != nil {
			return &pdfcompose.Error{
				Op:    e.Data.Op,
				Kind:  kind,
				File:  e.Data.File,
				Msg:   e.Data.Msg,
				Pages: e.Data.Pages,
				Total: e.Data.Total,
			}
		}
	}
	return &RemoteError{Code: e.Code, Message: e.Message}
}

// RemoteError is a worker failure outside the error taxonomy, such as a
// malformed request.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("worker: %s (code %d)", e.Message, e.Code)
}
