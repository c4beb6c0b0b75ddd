package domain

// HeaderSize is the fixed length of a DNS message header in bytes.
const HeaderSize = 12

// Flags is the 16-bit flag word of a DNS header:
//
//	 15 | 14..11 | 10 |  9 |  8 |  7 | 6..4 | 3..0
//	 QR | OPCODE | AA | TC | RD | RA |  Z   | RCODE
//
// Every accessor shifts first and masks second.
type Flags uint16

// QueryFlags is the flag word sent on every query: a standard query with RD set.
const QueryFlags Flags = 0x0100

func (f Flags) QR() bool      { return (f>>15)&0x1 == 1 }
func (f Flags) Opcode() uint8 { return uint8((f >> 11) & 0xF) }
func (f Flags) AA() bool      { return (f>>10)&0x1 == 1 }
func (f Flags) TC() bool      { return (f>>9)&0x1 == 1 }
func (f Flags) RD() bool      { return (f>>8)&0x1 == 1 }
func (f Flags) RA() bool      { return (f>>7)&0x1 == 1 }
func (f Flags) Z() uint8      { return uint8((f >> 4) & 0x7) }
func (f Flags) RCode() RCode  { return RCode(f & 0xF) }

// Header is the decoded fixed-size header of a DNS message.
type Header struct {
	ID      uint16
	Flags   Flags
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}
