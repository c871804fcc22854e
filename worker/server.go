// Package worker runs composition operations behind a request/response
// boundary.
//
// A Server hosts its own pageops.Engine and speaks JSON-RPC 2.0 over a
// byte stream: one request at a time, answered by any number of progress
// notifications followed by exactly one response. A Client sends
// operations to a Server running in a child process (Spawn) or in a
// goroutine behind in-memory pipes (Pipe).
package worker

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfcompose/pageops"
	"github.com/lvillar/pdfcompose/progress"
)

var errUnknownMethod = errors.New("method not found")

// Server answers worker requests read from input.
type Server struct {
	engine *pageops.Engine
	input  io.Reader
	output io.Writer
	log    *logrus.Logger
	mu     sync.Mutex
	enc    *json.Encoder
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger.
func WithServerLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// NewServer creates a Server running operations on engine.
func NewServer(engine *pageops.Engine, in io.Reader, out io.Writer, opts ...ServerOption) *Server {
	s := &Server{
		engine: engine,
		input:  in,
		output: out,
		log:    discardLogger(),
		enc:    json.NewEncoder(out),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve processes requests until the input reaches EOF.
func (s *Server) Serve() error {
	dec := json.NewDecoder(s.input)
	for {
		var req jsonrpcRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var syntax *json.SyntaxError
			if errors.As(err, &syntax) {
				// The stream position is lost; nothing more can be read.
				s.sendError(nil, &jsonrpcError{Code: codeParseError, Message: "Parse error: " + err.Error()})
			}
			return err
		}
		s.handleRequest(req)
	}
}

func (s *Server) handleRequest(req jsonrpcRequest) {
	log := s.log.WithFields(logrus.Fields{"method": req.Method, "id": string(req.ID)})

	if req.Method == "ping" {
		s.sendResult(req.ID, struct{}{})
		return
	}

	op, err := decodeOperation(req.Method, req.Params)
	if errors.Is(err, errUnknownMethod) {
		s.sendError(req.ID, &jsonrpcError{Code: codeMethodNotFound, Message: "Method not found: " + req.Method})
		return
	}
	if err != nil {
		s.sendError(req.ID, &jsonrpcError{Code: codeInvalidParams, Message: "Invalid params: " + err.Error()})
		return
	}

	log.Debug("running operation")
	res, err := s.engine.Run(op, s.notify)
	if err != nil {
		log.WithError(err).Debug("operation failed")
		s.sendError(req.ID, encodeError(err))
		return
	}
	s.sendResult(req.ID, res)
}

func (s *Server) notify(ev progress.Event) {
	params, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.send(jsonrpcMessage{JSONRPC: "2.0", Method: methodProgress, Params: params})
}

func (s *Server) sendResult(id json.RawMessage, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		s.sendError(id, &jsonrpcError{Code: codeInternal, Message: err.Error()})
		return
	}
	s.send(jsonrpcMessage{JSONRPC: "2.0", ID: id, Result: data})
}

func (s *Server) sendError(id json.RawMessage, e *jsonrpcError) {
	s.send(jsonrpcMessage{JSONRPC: "2.0", ID: id, Error: e})
}

func (s *Server) send(msg jsonrpcMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(msg); err != nil {
		s.log.WithError(err).Debug("writing message")
	}
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
