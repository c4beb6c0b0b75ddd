// Package report renders the outcome of a query for the console.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/haukened/dnsq/internal/dns/domain"
	"github.com/haukened/dnsq/internal/dns/services/resolver"
)

const (
	FormatText = "text"
	FormatYAML = "yaml"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Report is everything a renderer needs: what was asked, what came back and
// the error, if any, that ended the exchange.
type Report struct {
	Request resolver.Request
	Result  resolver.Result
	Err     error
}

// Renderer writes a Report to w.
type Renderer interface {
	Render(w io.Writer, rep Report) error
}

// New returns the renderer for format.
func New(format string) (Renderer, error) {
	switch format {
	case FormatText, "":
		return TextRenderer{}, nil
	case FormatYAML:
		return YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// NotFound reports whether the query produced a negative answer: a NameError
// from the server or a clean response with no answers.
func (rep Report) NotFound() bool {
	if rep.Err != nil {
		return isNameError(rep.Err)
	}
	return rep.Result.Received && rep.Result.Response.NotFound()
}

// Failed reports whether the exchange ended in an error that is not a
// negative answer.
func (rep Report) Failed() bool {
	return rep.Err != nil && !isNameError(rep.Err)
}

// recordLine formats a single answer or additional record.
func recordLine(o domain.RecordOutcome, auth string) string {
	if !o.OK() {
		return "ERROR\t" + o.Err.Error()
	}
	rr := o.Record
	switch rr.Type {
	case domain.RRTypeA:
		return fmt.Sprintf("IP %s %d %s", rr.Address, rr.TTL, auth)
	case domain.RRTypeNS:
		return fmt.Sprintf("NS %s %d %s", rr.Target, rr.TTL, auth)
	case domain.RRTypeCNAME:
		return fmt.Sprintf("CNAME %s %d %s", rr.Target, rr.TTL, auth)
	case domain.RRTypeMX:
		return fmt.Sprintf("MX %s %d %d %s", rr.Target, rr.Preference, rr.TTL, auth)
	default:
		return fmt.Sprintf("ERROR\tunsupported record type: %d", uint16(rr.Type))
	}
}
