package wire

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/haukened/dnsq/internal/dns/domain"
)

const (
	labelTagMask      = 0xC0
	labelTagLiteral   = 0x00
	labelTagPointer   = 0xC0
	pointerOffsetMask = 0x3FFF
)

// encodeName writes labels as length-prefixed runs followed by the root label.
// Labels must already be validated with domain.SplitLabels.
func encodeName(labels []string) []byte {
	size := 1
	for _, label := range labels {
		size += 1 + len(label)
	}
	buf := make([]byte, 0, size)
	for _, label := range labels {
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}
	return append(buf, 0)
}

// decodeName decodes the name starting at offset in msg, following
// compression pointers per RFC 1035 section 4.1.4. It returns the dotted name
// and the number of bytes the name occupies at offset: a pointer counts as two
// bytes no matter how long the chain behind it is.
//
// Each pointer must target an offset strictly below its own position and
// strictly below the previous pointer's target, so every chain terminates.
// The hop count is additionally capped at the message length.
func decodeName(msg []byte, offset int) (string, int, error) {
	var (
		labels   []string
		pos      = offset
		consumed = 0
		jumped   = false
		limit    = len(msg)
		hops     = 0
		wireLen  = 1
	)
	for {
		if pos >= len(msg) {
			return "", 0, fmt.Errorf("%w: name at offset %d runs past the end", ErrTruncated, offset)
		}
		length := int(msg[pos])

		switch length & labelTagMask {
		case labelTagLiteral:
			if length == 0 {
				if !jumped {
					consumed = pos + 1 - offset
				}
				return strings.Join(labels, "."), consumed, nil
			}
			if pos+1+length > len(msg) {
				return "", 0, fmt.Errorf("%w: label at offset %d runs past the end", ErrTruncated, pos)
			}
			wireLen += 1 + length
			if wireLen > domain.MaxNameLength {
				return "", 0, fmt.Errorf("%w: name at offset %d", ErrNameTooLong, offset)
			}
			labels = append(labels, string(msg[pos+1:pos+1+length]))
			pos += 1 + length

		case labelTagPointer:
			if pos+1 >= len(msg) {
				return "", 0, fmt.Errorf("%w: pointer at offset %d runs past the end", ErrTruncated, pos)
			}
			target := int(binary.BigEndian.Uint16(msg[pos:pos+2]) & pointerOffsetMask)
			if target >= pos || target >= limit {
				return "", 0, fmt.Errorf("%w: pointer at offset %d targets offset %d", ErrInvalidPointer, pos, target)
			}
			hops++
			if hops > len(msg) {
				return "", 0, fmt.Errorf("%w: too many pointers in name at offset %d", ErrInvalidPointer, offset)
			}
			if !jumped {
				consumed = pos + 2 - offset
				jumped = true
			}
			limit = target
			pos = target

		default:
			return "", 0, fmt.Errorf("%w: reserved tag 0x%02x at offset %d", ErrInvalidLabel, length&labelTagMask, pos)
		}
	}
}
