package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haukened/dnsq/internal/dns/common/utils"
)

const (
	// MaxLabelLength is the longest label allowed by RFC 1035.
	MaxLabelLength = 63
	// MaxNameLength bounds the wire-encoded length of a name, terminator included.
	MaxNameLength = 255
)

// ErrInvalidDomainName is returned when a name cannot be encoded on the wire.
var ErrInvalidDomainName = errors.New("invalid domain name")

// NormalizeName prepares user input for encoding: surrounding whitespace and a
// single trailing dot are removed and internationalised labels are converted
// to punycode. The result is validated with SplitLabels.
func NormalizeName(name string) (string, error) {
	name = utils.PresentationDNSName(name)
	ascii, err := utils.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomainName, err)
	}
	if _, err := SplitLabels(ascii); err != nil {
		return "", err
	}
	return ascii, nil
}

// SplitLabels splits a dotted name into labels and enforces the wire rules:
// every label holds 1-63 ASCII bytes and the encoded name fits in 255 bytes.
func SplitLabels(name string) ([]string, error) {
	labels := strings.Split(name, ".")
	encoded := 1 // root terminator
	for _, label := range labels {
		if len(label) == 0 {
			return nil, fmt.Errorf("%w: empty label in %q", ErrInvalidDomainName, name)
		}
		if len(label) > MaxLabelLength {
			return nil, fmt.Errorf("%w: label %q is %d bytes (max %d)", ErrInvalidDomainName, label, len(label), MaxLabelLength)
		}
		for i := 0; i < len(label); i++ {
			if label[i] > 0x7F {
				return nil, fmt.Errorf("%w: label %q is not ASCII", ErrInvalidDomainName, label)
			}
		}
		encoded += 1 + len(label)
	}
	if encoded > MaxNameLength {
		return nil, fmt.Errorf("%w: encoded name is %d bytes (max %d)", ErrInvalidDomainName, encoded, MaxNameLength)
	}
	return labels, nil
}
