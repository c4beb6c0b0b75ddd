package wire

import (
	"errors"
	"fmt"

	"github.com/haukened/dnsq/internal/dns/domain"
)

// Message-level errors. Any of these aborts decoding of the whole response.
var (
	ErrTruncated      = errors.New("message truncated")
	ErrIDMismatch     = errors.New("transaction ID mismatch")
	ErrNotAResponse   = errors.New("message is not a response")
	ErrInvalidPointer = errors.New("invalid compression pointer")
	ErrInvalidLabel   = errors.New("invalid label type")
	ErrNameTooLong    = errors.New("domain name exceeds 255 bytes")

	ErrFormatError    = errors.New(domain.RCodeFormatError.Description())
	ErrServerFailure  = errors.New(domain.RCodeServerFailure.Description())
	ErrNameError      = errors.New(domain.RCodeNameError.Description())
	ErrNotImplemented = errors.New(domain.RCodeNotImplemented.Description())
	ErrRefused        = errors.New(domain.RCodeRefused.Description())
	ErrUnknownRcode   = errors.New("unknown response code")
)

// Record-level errors. The offending record is reported and skipped.
var (
	ErrInvalidClass         = errors.New("unsupported record class")
	ErrInvalidAddressLength = errors.New("invalid address length")
	ErrUnsupportedType      = errors.New("unsupported record type")
	ErrMalformedRData       = errors.New("malformed record data")
)

// rcodeError maps a non-zero RCODE to its message-level error.
func rcodeError(rc domain.RCode) error {
	switch rc {
	case domain.RCodeNoError:
		return nil
	case domain.RCodeFormatError:
		return ErrFormatError
	case domain.RCodeServerFailure:
		return ErrServerFailure
	case domain.RCodeNameError:
		return ErrNameError
	case domain.RCodeNotImplemented:
		return ErrNotImplemented
	case domain.RCodeRefused:
		return ErrRefused
	default:
		return fmt.Errorf("%w: %d", ErrUnknownRcode, rc)
	}
}

// IsRecordError reports whether err only invalidates a single record.
func IsRecordError(err error) bool {
	return errors.Is(err, ErrInvalidClass) ||
		errors.Is(err, ErrInvalidAddressLength) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrMalformedRData)
}
