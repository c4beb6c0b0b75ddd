// Package resolver runs a single query/response cycle: encode the question,
// exchange it with the server, then decode the reply.
package resolver

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/haukened/dnsq/internal/dns/common/clock"
	"github.com/haukened/dnsq/internal/dns/common/log"
	"github.com/haukened/dnsq/internal/dns/domain"
)

// Request names the server to ask and the question to ask it.
type Request struct {
	Server string
	Port   int
	Name   string
	Type   domain.RRType
}

// Result carries the decoded response plus exchange statistics.
type Result struct {
	Response domain.DNSResponse
	Elapsed  time.Duration
	Retries  int
	// Received is true once a datagram came back, even if it failed to decode.
	Received bool
}

type Resolver struct {
	codec    Codec
	upstream UpstreamClient
	clock    clock.Clock
	logger   log.Logger
}

type ResolverOptions struct {
	Codec    Codec
	Upstream UpstreamClient
	Clock    clock.Clock
	Logger   log.Logger
}

func NewResolver(opts ResolverOptions) *Resolver {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Resolver{
		codec:    opts.Codec,
		upstream: opts.Upstream,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// Resolve performs one query/response cycle. Decoding starts only after a
// full datagram has arrived, and a decode failure is never retried. When a
// reply was received but could not be decoded, the returned Result still
// carries the timing and retry count alongside the error.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	id, payload, err := r.codec.EncodeQuery(req.Name, req.Type)
	if err != nil {
		return Result{}, fmt.Errorf("encode query: %w", err)
	}

	server := net.JoinHostPort(req.Server, strconv.Itoa(req.Port))
	r.logger.Debug(map[string]any{
		"server": server,
		"name":   req.Name,
		"type":   req.Type.String(),
		"id":     id,
	}, "Resolving")

	start := r.clock.Now()
	raw, retries, err := r.upstream.Exchange(ctx, server, payload)
	elapsed := r.clock.Since(start)
	if err != nil {
		r.logger.Error(map[string]any{
			"server":  server,
			"retries": retries,
			"error":   err.Error(),
		}, "Exchange failed")
		return Result{Elapsed: elapsed, Retries: retries}, err
	}

	result := Result{Elapsed: elapsed, Retries: retries, Received: true}
	resp, err := r.codec.DecodeResponse(raw, id)
	if err != nil {
		r.logger.Debug(map[string]any{
			"server": server,
			"size":   len(raw),
			"error":  err.Error(),
		}, "Response rejected")
		return result, err
	}

	r.logger.Info(map[string]any{
		"server":     server,
		"elapsed":    elapsed,
		"retries":    retries,
		"answers":    resp.AnswerCount(),
		"additional": resp.AdditionalCount(),
		"auth":       resp.Authoritative(),
	}, "Response decoded")

	result.Response = resp
	return result, nil
}
