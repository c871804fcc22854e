package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfcompose/pageops"
	"github.com/lvillar/pdfcompose/progress"
)

// ErrUnavailable reports that the worker could not be reached or stopped
// answering. Operation failures are never wrapped in it.
var ErrUnavailable = errors.New("worker: unavailable")

var errClosed = fmt.Errorf("%w: closed", ErrUnavailable)

// Client sends operations to one worker. At most one request is in flight;
// concurrent callers wait their turn.
type Client struct {
	mu     sync.Mutex
	enc    *json.Encoder
	dec    *json.Decoder
	log    *logrus.Logger
	broken error

	closer    io.Closer
	closeOnce sync.Once
	closed    atomic.Bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client's logger.
func WithClientLogger(logger *logrus.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// NewClient returns a Client reading responses from r and writing requests
// to w. closer, which may be nil, releases the transport on Close.
func NewClient(r io.Reader, w io.Writer, closer io.Closer, opts ...ClientOption) *Client {
	c := &Client{
		enc:    json.NewEncoder(w),
		dec:    json.NewDecoder(r),
		closer: closer,
		log:    discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the worker answers.
func (c *Client) Ping() error {
	_, err := c.call("ping", struct{}{}, nil)
	return err
}

// Call runs op on the worker. Progress notifications are delivered to fn
// as they arrive. Errors from the worker's engine are returned as the same
// *pdfcompose.Error values a local engine would return; transport failures
// wrap ErrUnavailable.
func (c *Client) Call(op pageops.Operation, fn progress.Func) (*pageops.Result, error) {
	method, params, err := encodeOperation(op)
	if err != nil {
		return nil, err
	}
	raw, err := c.call(method, params, fn)
	if err != nil {
		return nil, err
	}
	var res pageops.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.fail(fmt.Errorf("decoding result: %w", err))
	}
	return &res, nil
}

func (c *Client) call(method string, params any, fn progress.Func) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, errClosed
	}
	if c.broken != nil {
		return nil, c.broken
	}

	id := uuid.NewString()
	rawID, _ := json.Marshal(id)
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("worker: encoding %s: %w", method, err)
	}

	log := c.log.WithFields(logrus.Fields{"method": method, "id": id})
	log.Debug("sending request")

	req := jsonrpcRequest{JSONRPC: "2.0", ID: rawID, Method: method, Params: rawParams}
	if err := c.enc.Encode(req); err != nil {
		return nil, c.fail(fmt.Errorf("sending %s: %w", method, err))
	}

	for {
		var msg jsonrpcMessage
		if err := c.dec.Decode(&msg); err != nil {
			return nil, c.fail(fmt.Errorf("reading response to %s: %w", method, err))
		}

		if msg.Method == methodProgress {
			var ev progress.Event
			if err := json.Unmarshal(msg.Params, &ev); err == nil && fn != nil {
				fn(ev)
			}
			continue
		}
		if string(msg.ID) != string(rawID) {
			log.WithField("got", string(msg.ID)).Debug("dropping message for another request")
			continue
		}

		if msg.Error != nil {
			log.WithField("code", msg.Error.Code).Debug("worker returned error")
			return nil, decodeError(msg.Error)
		}
		return msg.Result, nil
	}
}

// fail marks the client unusable and returns err wrapped in ErrUnavailable.
func (c *Client) fail(err error) error {
	c.broken = fmt.Errorf("%w: %v", ErrUnavailable, err)
	return c.broken
}

// Close releases the transport, interrupting a call in flight. Calls after
// Close fail with ErrUnavailable.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}
