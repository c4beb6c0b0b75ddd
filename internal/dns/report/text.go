package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/haukened/dnsq/internal/dns/domain"
	"github.com/haukened/dnsq/internal/dns/gateways/wire"
)

// TextRenderer prints the classic line-oriented client output.
type TextRenderer struct{}

func (TextRenderer) Render(w io.Writer, rep Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "DnsClient sending request for %s\n", rep.Request.Name)
	fmt.Fprintf(bw, "Server: %s\n", rep.Request.Server)
	fmt.Fprintf(bw, "Request type: %s\n", rep.Request.Type)

	res := rep.Result
	if res.Received {
		fmt.Fprintf(bw, "Response received after %.3f seconds (%d retries)\n", res.Elapsed.Seconds(), res.Retries)
	}

	switch {
	case rep.Err != nil && isNameError(rep.Err):
		fmt.Fprintln(bw, "NOTFOUND")
		return bw.Flush()
	case rep.Err != nil:
		fmt.Fprintf(bw, "ERROR\t%s\n", rep.Err)
		return bw.Flush()
	}

	resp := res.Response
	for _, warning := range resp.Warnings {
		fmt.Fprintf(bw, "ERROR\t%s\n", warning)
	}

	auth := resp.AuthLabel()
	if resp.NotFound() {
		fmt.Fprintln(bw, "NOTFOUND")
	} else {
		writeSection(bw, "Answer", resp.Answers, auth)
	}
	writeSection(bw, "Additional", resp.Additional, auth)

	return bw.Flush()
}

func writeSection(w io.Writer, title string, records []domain.RecordOutcome, auth string) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(w, "*** %s Section (%d records) ***\n", title, len(records))
	for _, o := range records {
		fmt.Fprintln(w, recordLine(o, auth))
	}
}

func isNameError(err error) bool {
	return errors.Is(err, wire.ErrNameError)
}
