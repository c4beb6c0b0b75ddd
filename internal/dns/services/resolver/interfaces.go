package resolver

import (
	"context"

	"github.com/haukened/dnsq/internal/dns/domain"
)

// Codec builds the query and decodes the matching response.
type Codec interface {
	EncodeQuery(name string, rrtype domain.RRType) (uint16, []byte, error)
	DecodeResponse(data []byte, expectedID uint16) (domain.DNSResponse, error)
}

// UpstreamClient sends one encoded query and waits for the reply datagram.
type UpstreamClient interface {
	Exchange(ctx context.Context, server string, payload []byte) ([]byte, int, error)
}
