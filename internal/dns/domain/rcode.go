package domain

import "fmt"

// RCode represents a DNS response code indicating the result of a query.
type RCode uint8

const (
	RCodeNoError        RCode = 0
	RCodeFormatError    RCode = 1
	RCodeServerFailure  RCode = 2
	RCodeNameError      RCode = 3
	RCodeNotImplemented RCode = 4
	RCodeRefused        RCode = 5
)

// IsValid returns true if the RCode is one this client knows how to name.
func (r RCode) IsValid() bool {
	return r <= RCodeRefused
}

// String returns the mnemonic of the RCode.
func (r RCode) String() string {
	switch r {
	case RCodeNoError:
		return "NOERROR"
	case RCodeFormatError:
		return "FORMERR"
	case RCodeServerFailure:
		return "SERVFAIL"
	case RCodeNameError:
		return "NXDOMAIN"
	case RCodeNotImplemented:
		return "NOTIMP"
	case RCodeRefused:
		return "REFUSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", r)
	}
}

// Description returns a human readable explanation of the RCode.
func (r RCode) Description() string {
	switch r {
	case RCodeNoError:
		return "no error"
	case RCodeFormatError:
		return "format error: the name server was unable to interpret the query"
	case RCodeServerFailure:
		return "server failure: the name server was unable to process this query"
	case RCodeNameError:
		return "domain not found"
	case RCodeNotImplemented:
		return "not implemented: the name server does not support the requested kind of query"
	case RCodeRefused:
		return "refused: the name server refuses to perform the requested operation"
	default:
		return fmt.Sprintf("unknown response code %d", r)
	}
}
