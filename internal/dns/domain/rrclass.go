package domain

import "fmt"

// RRClass represents a DNS class. Only IN is accepted.
type RRClass uint16

// RRClassIN is the Internet class.
const RRClassIN RRClass = 1

// IsValid returns true for the Internet class.
func (c RRClass) IsValid() bool {
	return c == RRClassIN
}

// String returns the textual representation of the RRClass.
func (c RRClass) String() string {
	if c == RRClassIN {
		return "IN"
	}
	return fmt.Sprintf("CLASS%d", uint16(c))
}
