package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// ExternalProvider is the full replacement for dynamically-loaded
// plugins: it launches configured executable once, keeps it running for
// the worker's lifetime, and frames one request/response pair per Call
// as newline-delimited JSON over its stdin/stdout.
type ExternalProvider struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader
}

type rpcRequest struct {
	Function      string `json:"function"`
	Configuration string `json:"configuration"`
	TimeoutSeconds int64 `json:"timeout_seconds"`
}

type rpcResponse struct {
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

// NewExternalProvider starts executable (with args) and returns a
// Provider that proxies Call over its stdin/stdout for as long as the
// process stays alive. The process is not restarted if it exits; a
// subsequent Call returns an error.
func NewExternalProvider(ctx context.Context, executable string, args ...string) (*ExternalProvider, error) {
	cmd := exec.Command(executable, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("provider: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("provider: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("provider: start %s: %w", executable, err)
	}

	return &ExternalProvider{
		cmd:    cmd,
		stdin:  stdin,
		reader: bufio.NewReader(stdout),
	}, nil
}

// RegisterAs registers p under actionName in the package registry, so
// the worker's normal Lookup(action_name) resolves to it.
func (p *ExternalProvider) RegisterAs(actionName string) {
	Register(actionName, p)
}

func (p *ExternalProvider) Call(ctx context.Context, function, configuration string, timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req := rpcRequest{Function: function, Configuration: configuration, TimeoutSeconds: int64(timeout.Seconds())}
	data, err := json.Marshal(req)
	if err != nil {
		return -1, err
	}
	data = append(data, '\n')

	if _, err := p.stdin.Write(data); err != nil {
		return -1, fmt.Errorf("provider: write request: %w", err)
	}

	type result struct {
		resp rpcResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := p.reader.ReadBytes('\n')
		if err != nil {
			done <- result{err: fmt.Errorf("provider: read response: %w", err)}
			return
		}
		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			done <- result{err: fmt.Errorf("provider: decode response: %w", err)}
			return
		}
		done <- result{resp: resp}
	}()

	select {
	case <-ctx.Done():
		return -1, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return -1, r.err
		}
		if r.resp.Error != "" {
			return r.resp.ExitCode, fmt.Errorf("provider: %s", r.resp.Error)
		}
		return r.resp.ExitCode, nil
	}
}

// Close terminates the backing process.
func (p *ExternalProvider) Close() error {
	_ = p.stdin.Close()
	return p.cmd.Process.Kill()
}
