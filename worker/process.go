package worker

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/lvillar/pdfcompose/pageops"
)

// HandshakeTimeout bounds how long Spawn waits for a new worker to answer
// its first ping.
var HandshakeTimeout = 10 * time.Second

// Spawn starts path with args as a worker process serving the protocol on
// its stdin and stdout, typically "pdfcompose worker".
func Spawn(path string, args ...string) (*Client, error) {
	return SpawnCommand(exec.Command(path, args...))
}

// SpawnCommand starts cmd as a worker process. cmd's Stdin and Stdout
// must be unset.
func SpawnCommand(cmd *exec.Cmd, opts ...ClientOption) (*Client, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %v", ErrUnavailable, cmd.Path, err)
	}

	c := NewClient(stdout, stdin, &process{cmd: cmd, stdin: stdin}, opts...)

	done := make(chan error, 1)
	go func() { done <- c.Ping() }()

	select {
	case err = <-done:
	case <-time.After(HandshakeTimeout):
		_ = cmd.Process.Kill()
		<-done
		err = fmt.Errorf("%w: no answer after %s", ErrUnavailable, HandshakeTimeout)
	}
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// process closes a worker by closing its stdin, which ends Serve, and
// kills it if it does not exit promptly.
type process struct {
	cmd   *exec.Cmd
	stdin io.Closer
}

func (p *process) Close() error {
	p.stdin.Close()

	exited := make(chan error, 1)
	go func() { exited <- p.cmd.Wait() }()

	select {
	case err := <-exited:
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return nil
		}
		return err
	case <-time.After(2 * time.Second):
		_ = p.cmd.Process.Kill()
		<-exited
		return nil
	}
}

// Pipe runs a Server for engine in a goroutine and returns a Client
// connected to it through in-memory pipes. Everything crosses the pipes
// serialized, exactly as it would cross a process boundary.
func Pipe(engine *pageops.Engine, opts ...ServerOption) *Client {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	srv := NewServer(engine, reqR, respW, opts...)
	go func() {
		err := srv.Serve()
		reqR.CloseWithError(err)
		respW.CloseWithError(err)
	}()

	return NewClient(respR, reqW, closeAll{reqW, respR})
}

type closeAll []io.Closer

func (cs closeAll) Close() error {
	var errs []error
	for _, c := range cs {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
