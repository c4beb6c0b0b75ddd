package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/miekg/dns"

	"github.com/haukened/dnsq/internal/dns/common/log"
	"github.com/haukened/dnsq/internal/dns/domain"
)

// rrFixedSize is TYPE(2) + CLASS(2) + TTL(4) + RDLENGTH(2).
const rrFixedSize = 10

// udpCodec implements the DNSCodec interface for standard DNS over UDP messages.
type udpCodec struct {
	logger log.Logger
	newID  func() uint16
}

// NewUDPCodec creates and returns a new instance of udpCodec using the provided logger.
// Transaction IDs are drawn uniformly from [0, 65535] with dns.Id.
func NewUDPCodec(logger log.Logger) *udpCodec {
	return &udpCodec{
		logger: logger,
		newID:  dns.Id,
	}
}

// EncodeQuery validates name, picks a random transaction ID and serializes a
// single-question query with RD set.
func (c *udpCodec) EncodeQuery(name string, rrtype domain.RRType) (uint16, []byte, error) {
	ascii, err := domain.NormalizeName(name)
	if err != nil {
		return 0, nil, err
	}
	q, err := domain.NewQuestion(c.newID(), ascii, rrtype, domain.RRClassIN)
	if err != nil {
		return 0, nil, err
	}
	data, err := encodeQuestion(q)
	if err != nil {
		return 0, nil, err
	}

	c.logger.Debug(map[string]any{
		"id":   q.ID,
		"name": q.Name,
		"type": q.Type.String(),
		"size": len(data),
	}, "Encoded DNS query")

	return q.ID, data, nil
}

// encodeQuestion serializes the header and question section for q.
func encodeQuestion(q domain.Question) ([]byte, error) {
	labels, err := domain.SplitLabels(q.Name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, q.ID)                       // ID
	_ = binary.Write(&buf, binary.BigEndian, uint16(domain.QueryFlags)) // Flags: standard query, RD=1
	_ = binary.Write(&buf, binary.BigEndian, uint16(1))                  // QDCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(0))                  // ANCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(0))                  // NSCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(0))                  // ARCOUNT

	buf.Write(encodeName(labels))
	_ = binary.Write(&buf, binary.BigEndian, uint16(q.Type))
	_ = binary.Write(&buf, binary.BigEndian, uint16(q.Class))

	return buf.Bytes(), nil
}

// decodeHeader reads the fixed header fields. data must hold at least HeaderSize bytes.
func decodeHeader(data []byte) domain.Header {
	return domain.Header{
		ID:      binary.BigEndian.Uint16(data[0:2]),
		Flags:   domain.Flags(binary.BigEndian.Uint16(data[2:4])),
		QDCount: binary.BigEndian.Uint16(data[4:6]),
		ANCount: binary.BigEndian.Uint16(data[6:8]),
		NSCount: binary.BigEndian.Uint16(data[8:10]),
		ARCount: binary.BigEndian.Uint16(data[10:12]),
	}
}

// DecodeResponse parses a raw DNS response, validating it against expectedID.
// Message-level problems are returned as errors; record-level problems are
// carried in the RecordOutcome of the affected record.
func (c *udpCodec) DecodeResponse(data []byte, expectedID uint16) (domain.DNSResponse, error) {
	if len(data) < domain.HeaderSize {
		return domain.DNSResponse{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrTruncated, len(data))
	}

	header := decodeHeader(data)
	c.logger.Debug(map[string]any{
		"id":    header.ID,
		"flags": fmt.Sprintf("0x%04x", uint16(header.Flags)),
		"qd":    header.QDCount,
		"an":    header.ANCount,
		"ns":    header.NSCount,
		"ar":    header.ARCount,
	}, "Parsed DNS response header")

	if header.ID != expectedID {
		return domain.DNSResponse{}, fmt.Errorf("%w: expected %d, got %d", ErrIDMismatch, expectedID, header.ID)
	}
	if !header.Flags.QR() {
		return domain.DNSResponse{}, ErrNotAResponse
	}
	if err := rcodeError(header.Flags.RCode()); err != nil {
		return domain.DNSResponse{}, err
	}

	resp := domain.DNSResponse{Header: header}
	if !header.Flags.RA() {
		resp.Warnings = append(resp.Warnings, domain.WarningNoRecursion)
		c.logger.Warn(map[string]any{"id": header.ID}, "Server does not support recursion")
	}

	offset := domain.HeaderSize
	for i := 0; i < int(header.QDCount); i++ {
		_, n, err := decodeName(data, offset)
		if err != nil {
			return domain.DNSResponse{}, fmt.Errorf("question %d: %w", i, err)
		}
		offset += n + 4 // QTYPE + QCLASS
		if offset > len(data) {
			return domain.DNSResponse{}, fmt.Errorf("%w: question %d", ErrTruncated, i)
		}
	}

	var err error
	resp.Answers, offset, err = c.decodeSection(data, offset, header.ANCount, "answer")
	if err != nil {
		return domain.DNSResponse{}, err
	}
	offset, err = skipSection(data, offset, header.NSCount, "authority")
	if err != nil {
		return domain.DNSResponse{}, err
	}
	resp.Additional, _, err = c.decodeSection(data, offset, header.ARCount, "additional")
	if err != nil {
		return domain.DNSResponse{}, err
	}

	return resp, nil
}

// decodeSection decodes count records starting at offset.
func (c *udpCodec) decodeSection(data []byte, offset int, count uint16, section string) ([]domain.RecordOutcome, int, error) {
	outcomes := make([]domain.RecordOutcome, 0, count)
	for i := 0; i < int(count); i++ {
		outcome, next, err := c.decodeRecord(data, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("%s record %d: %w", section, i, err)
		}
		if outcome.OK() {
			c.logger.Debug(map[string]any{
				"section": section,
				"name":    outcome.Record.Name,
				"type":    outcome.Record.Type.String(),
				"ttl":     outcome.Record.TTL,
			}, "Decoded resource record")
		} else {
			c.logger.Debug(map[string]any{
				"section": section,
				"name":    outcome.Record.Name,
				"type":    outcome.Record.Type.String(),
				"error":   outcome.Err.Error(),
			}, "Rejected resource record")
		}
		outcomes = append(outcomes, outcome)
		offset = next
	}
	return outcomes, offset, nil
}

// readRecordHeader decodes the owner name and fixed fields of the record at
// offset and returns the offset of its RDATA. The RDATA is bounds-checked.
func readRecordHeader(data []byte, offset int) (domain.ResourceRecord, int, error) {
	name, n, err := decodeName(data, offset)
	if err != nil {
		return domain.ResourceRecord{}, 0, err
	}
	offset += n
	if offset+rrFixedSize > len(data) {
		return domain.ResourceRecord{}, 0, fmt.Errorf("%w: record fields after %q", ErrTruncated, name)
	}
	rr := domain.ResourceRecord{
		Name:     name,
		Type:     domain.RRType(binary.BigEndian.Uint16(data[offset : offset+2])),
		Class:    domain.RRClass(binary.BigEndian.Uint16(data[offset+2 : offset+4])),
		TTL:      binary.BigEndian.Uint32(data[offset+4 : offset+8]),
		RDLength: binary.BigEndian.Uint16(data[offset+8 : offset+10]),
	}
	offset += rrFixedSize
	if offset+int(rr.RDLength) > len(data) {
		return domain.ResourceRecord{}, 0, fmt.Errorf("%w: rdata of %q", ErrTruncated, name)
	}
	return rr, offset, nil
}

// skipSection walks count records without decoding their RDATA.
func skipSection(data []byte, offset int, count uint16, section string) (int, error) {
	for i := 0; i < int(count); i++ {
		rr, rdata, err := readRecordHeader(data, offset)
		if err != nil {
			return 0, fmt.Errorf("%s record %d: %w", section, i, err)
		}
		offset = rdata + int(rr.RDLength)
	}
	return offset, nil
}

// decodeRecord decodes the record at offset. The returned offset always
// advances past RDATA, even when the record itself is rejected.
func (c *udpCodec) decodeRecord(data []byte, offset int) (domain.RecordOutcome, int, error) {
	rr, rdata, err := readRecordHeader(data, offset)
	if err != nil {
		return domain.RecordOutcome{}, 0, err
	}
	next := rdata + int(rr.RDLength)

	if !rr.Class.IsValid() {
		return domain.RecordOutcome{
			Record: rr,
			Err:    fmt.Errorf("%w: %s", ErrInvalidClass, rr.Class),
		}, next, nil
	}

	if err := decodeRData(data, rdata, &rr); err != nil {
		if IsRecordError(err) {
			return domain.RecordOutcome{Record: rr, Err: err}, next, nil
		}
		return domain.RecordOutcome{}, 0, err
	}
	return domain.RecordOutcome{Record: rr}, next, nil
}

// decodeRData fills the type-specific fields of rr from the RDATA at offset.
// Names inside RDATA are resolved against the whole message.
func decodeRData(data []byte, offset int, rr *domain.ResourceRecord) error {
	rdlen := int(rr.RDLength)

	switch rr.Type {
	case domain.RRTypeA:
		if rdlen != 4 {
			return fmt.Errorf("%w: A record has %d bytes of data, want 4", ErrInvalidAddressLength, rdlen)
		}
		rr.Address = netip.AddrFrom4([4]byte(data[offset : offset+4]))
		return nil

	case domain.RRTypeNS, domain.RRTypeCNAME:
		target, err := decodeRDataName(data, offset, rdlen, rr.Type)
		if err != nil {
			return err
		}
		rr.Target = target
		return nil

	case domain.RRTypeMX:
		if rdlen < 3 {
			return fmt.Errorf("%w: MX record has %d bytes of data", ErrMalformedRData, rdlen)
		}
		rr.Preference = binary.BigEndian.Uint16(data[offset : offset+2])
		target, err := decodeRDataName(data, offset+2, rdlen-2, rr.Type)
		if err != nil {
			return err
		}
		rr.Target = target
		return nil

	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedType, uint16(rr.Type))
	}
}

// decodeRDataName decodes a name that must occupy exactly size bytes at offset.
func decodeRDataName(data []byte, offset, size int, t domain.RRType) (string, error) {
	name, n, err := decodeName(data, offset)
	if err != nil {
		return "", err
	}
	if n != size {
		return "", fmt.Errorf("%w: %s name uses %d of %d bytes", ErrMalformedRData, t, n, size)
	}
	return name, nil
}

var _ DNSCodec = &udpCodec{}
