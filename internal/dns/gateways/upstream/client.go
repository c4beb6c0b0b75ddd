// Package upstream sends encoded queries to a DNS server over UDP and waits
// for the reply, retrying on timeout.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/haukened/dnsq/internal/dns/common/log"
)

// Error message constants for consistent error handling
const (
	errTimeoutRequired  = "timeout must be positive"
	errRetriesRequired  = "max retries must be at least 1"
	errFailedToConnect  = "failed to connect: %w"
	errSetDeadline      = "failed to set deadline: %w"
	errWriteFailed      = "write failed: %w"
	errReadFailed       = "read failed: %w"
	errRetriesExhausted = "%w: maximum number of retries [%d] exceeded"
)

// ErrNoResponse is returned once every attempt has timed out.
var ErrNoResponse = errors.New("no response from server")

// maxUDPSize is the largest plain DNS over UDP payload (no EDNS).
const maxUDPSize = 512

// DialFunc defines a function type for establishing a network connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Options configures a Client.
type Options struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxRetries is the maximum number of attempts.
	MaxRetries int
	Logger     log.Logger
	// Dial is injectable for tests; defaults to net.Dialer.DialContext.
	Dial DialFunc
}

// Client performs one blocking request/response exchange at a time. There is
// never more than one attempt in flight for a query.
type Client struct {
	timeout    time.Duration
	maxRetries int
	logger     log.Logger
	dial       DialFunc
}

// NewClient validates opts and returns a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		return nil, errors.New(errTimeoutRequired)
	}
	if opts.MaxRetries < 1 {
		return nil, errors.New(errRetriesRequired)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	return &Client{
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
		dial:       opts.Dial,
	}, nil
}

// Exchange sends payload to server and returns the first datagram received in
// reply along with the number of retries it took. Only timeouts are retried;
// any other failure, or cancellation of ctx, ends the exchange immediately.
func (c *Client) Exchange(ctx context.Context, server string, payload []byte) ([]byte, int, error) {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt, err
		}

		c.logger.Debug(map[string]any{
			"server":  server,
			"attempt": attempt + 1,
			"size":    len(payload),
		}, "Sending DNS query")

		resp, err := c.attempt(ctx, server, payload)
		if err == nil {
			return resp, attempt, nil
		}
		if !isTimeout(err) || ctx.Err() != nil {
			return nil, attempt, err
		}

		c.logger.Warn(map[string]any{
			"server":  server,
			"attempt": attempt + 1,
			"timeout": c.timeout,
		}, "DNS query timed out")
	}
	return nil, c.maxRetries - 1, fmt.Errorf(errRetriesExhausted, ErrNoResponse, c.maxRetries)
}

// attempt performs a single write/read bounded by the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, server string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx, "udp", server)
	if err != nil {
		return nil, fmt.Errorf(errFailedToConnect, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf(errSetDeadline, err)
		}
	}

	type result struct {
		data []byte
		err  error
	}
	resultChan := make(chan result, 1)

	go func() {
		if _, err := conn.Write(payload); err != nil {
			resultChan <- result{err: fmt.Errorf(errWriteFailed, err)}
			return
		}

		buffer := make([]byte, maxUDPSize)
		n, err := conn.Read(buffer)
		if err != nil {
			resultChan <- result{err: fmt.Errorf(errReadFailed, err)}
			return
		}
		resultChan <- result{data: buffer[:n]}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// isTimeout reports whether err is a deadline expiry worth retrying.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
