// Package wire provides encoding of DNS queries and decoding of DNS responses
// in the RFC 1035 wire format, including name compression on receive.
package wire

import (
	"github.com/haukened/dnsq/internal/dns/domain"
)

// DNSCodec builds queries for one (name, type) pair and decodes the matching
// response. Implementations are stateless per call and safe for concurrent use.
type DNSCodec interface {
	// EncodeQuery returns the transaction ID chosen for the query and its wire bytes.
	EncodeQuery(name string, rrtype domain.RRType) (uint16, []byte, error)
	// DecodeResponse parses a response and checks it answers expectedID.
	DecodeResponse(data []byte, expectedID uint16) (domain.DNSResponse, error)
}
