package wire

import (
	"encoding/binary"
	"net"
	"net/netip"
	"strings"
	"sync"
	"testing"

	"github.com/bassosimone/runtimex"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/dnsq/internal/dns/common/log"
	"github.com/haukened/dnsq/internal/dns/domain"
)

func newTestCodec(id uint16) *udpCodec {
	return &udpCodec{
		logger: log.NewNoopLogger(),
		newID:  func() uint16 { return id },
	}
}

// exampleAResponse is a response to "example.com A" with id 0x1234, flags
// 0x8180 and a single compressed A record for 93.184.216.34 with TTL 300.
func exampleAResponse() []byte {
	return []byte{
		0x12, 0x34, // ID
		0x81, 0x80, // QR RD RA
		0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0,
		0x00, 0x01, 0x00, 0x01, // A IN
		0xC0, 0x0C, // ptr to example.com
		0x00, 0x01, 0x00, 0x01, // A IN
		0x00, 0x00, 0x01, 0x2C, // TTL 300
		0x00, 0x04, // RDLENGTH
		93, 184, 216, 34,
	}
}

// record builds one answer record whose owner is a pointer to offset 12.
func record(rrtype domain.RRType, class domain.RRClass, ttl uint32, rdata []byte) []byte {
	out := []byte{0xC0, 0x0C}
	out = binary.BigEndian.AppendUint16(out, uint16(rrtype))
	out = binary.BigEndian.AppendUint16(out, uint16(class))
	out = binary.BigEndian.AppendUint32(out, ttl)
	out = binary.BigEndian.AppendUint16(out, uint16(len(rdata)))
	return append(out, rdata...)
}

// response builds a response for example.com with the given flags and answer records.
func response(id uint16, flags uint16, answers ...[]byte) []byte {
	out := binary.BigEndian.AppendUint16(nil, id)
	out = binary.BigEndian.AppendUint16(out, flags)
	out = binary.BigEndian.AppendUint16(out, 1)
	out = binary.BigEndian.AppendUint16(out, uint16(len(answers)))
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = append(out, encodeName([]string{"example", "com"})...)
	out = append(out, 0x00, 0x01, 0x00, 0x01)
	for _, a := range answers {
		out = append(out, a...)
	}
	return out
}

func TestUdpCodec_EncodeQuery(t *testing.T) {
	codec := newTestCodec(0x1234)

	id, data, err := codec.EncodeQuery("www.example.com", domain.RRTypeA)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), id)
	assert.Equal(t, []byte{
		0x12, 0x34, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		3, 'w', 'w', 'w', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0,
		0x00, 0x01, 0x00, 0x01,
	}, data)
}

func TestUdpCodec_EncodeQuery_Types(t *testing.T) {
	codec := newTestCodec(7)

	tests := []struct {
		name    string
		domain  string
		rrtype  domain.RRType
		qname   string
		qtype   uint16
		wantErr string
	}{
		{name: "A", domain: "mcgill.ca", rrtype: domain.RRTypeA, qname: "mcgill.ca", qtype: 0x0001},
		{name: "NS", domain: "mcgill.ca", rrtype: domain.RRTypeNS, qname: "mcgill.ca", qtype: 0x0002},
		{name: "MX", domain: "mcgill.ca", rrtype: domain.RRTypeMX, qname: "mcgill.ca", qtype: 0x000F},
		{name: "fqdn input", domain: "mcgill.ca.", rrtype: domain.RRTypeA, qname: "mcgill.ca", qtype: 0x0001},
		{name: "idn input", domain: "bücher.example", rrtype: domain.RRTypeA, qname: "xn--bcher-kva.example", qtype: 0x0001},
		{name: "CNAME not queryable", domain: "mcgill.ca", rrtype: domain.RRTypeCNAME, wantErr: "unsupported query type"},
		{name: "empty label", domain: "www..ca", rrtype: domain.RRTypeA, wantErr: "empty label"},
		{name: "long label", domain: strings.Repeat("a", 64) + ".com", rrtype: domain.RRTypeA, wantErr: "max 63"},
		{name: "empty name", domain: "", rrtype: domain.RRTypeA, wantErr: "empty label"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, data, err := codec.EncodeQuery(tt.domain, tt.rrtype)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, data)
				return
			}
			require.NoError(t, err)

			name, n, err := decodeName(data, 12)
			require.NoError(t, err)
			assert.Equal(t, tt.qname, name)
			assert.Equal(t, tt.qtype, binary.BigEndian.Uint16(data[12+n:]))
			assert.Equal(t, uint16(1), binary.BigEndian.Uint16(data[12+n+2:]))
			assert.Len(t, data, 12+n+4)
		})
	}
}

func TestUdpCodec_EncodeQuery_ParsesWithMiekg(t *testing.T) {
	codec := NewUDPCodec(log.NewNoopLogger())

	for _, name := range []string{"www.example.com", "a.b.c.d.example.org", strings.Repeat("z", 63) + ".net"} {
		id, data, err := codec.EncodeQuery(name, domain.RRTypeMX)
		require.NoError(t, err)

		var msg dns.Msg
		require.NoError(t, msg.Unpack(data))
		assert.Equal(t, id, msg.Id)
		assert.False(t, msg.Response)
		assert.True(t, msg.RecursionDesired)
		assert.Equal(t, dns.OpcodeQuery, msg.Opcode)
		require.Len(t, msg.Question, 1)
		assert.Equal(t, name+".", msg.Question[0].Name)
		assert.Equal(t, dns.TypeMX, msg.Question[0].Qtype)
		assert.Equal(t, uint16(dns.ClassINET), msg.Question[0].Qclass)
		assert.Empty(t, msg.Answer)
		assert.Empty(t, msg.Ns)
		assert.Empty(t, msg.Extra)
	}
}

func TestUdpCodec_DecodeResponse_Example(t *testing.T) {
	codec := newTestCodec(0)

	resp, err := codec.DecodeResponse(exampleAResponse(), 0x1234)
	require.NoError(t, err)

	assert.Equal(t, "nonauth", resp.AuthLabel())
	assert.Empty(t, resp.Warnings)
	assert.Empty(t, resp.Additional)
	require.Len(t, resp.Answers, 1)

	got := resp.Answers[0]
	require.NoError(t, got.Err)
	assert.Equal(t, domain.ResourceRecord{
		Name:     "example.com",
		Type:     domain.RRTypeA,
		Class:    domain.RRClassIN,
		TTL:      300,
		RDLength: 4,
		Address:  netip.MustParseAddr("93.184.216.34"),
	}, got.Record)
}

func TestUdpCodec_DecodeResponse_MessageErrors(t *testing.T) {
	codec := newTestCodec(0)
	good := exampleAResponse()

	withFlags := func(flags uint16) []byte {
		data := append([]byte(nil), good...)
		binary.BigEndian.PutUint16(data[2:4], flags)
		return data
	}

	tests := []struct {
		name       string
		data       []byte
		expectedID uint16
		wantErr    error
	}{
		{name: "empty", data: nil, expectedID: 0x1234, wantErr: ErrTruncated},
		{name: "short header", data: good[:11], expectedID: 0x1234, wantErr: ErrTruncated},
		{name: "id mismatch", data: good, expectedID: 0x4321, wantErr: ErrIDMismatch},
		{name: "not a response", data: withFlags(0x0100), expectedID: 0x1234, wantErr: ErrNotAResponse},
		{name: "format error", data: withFlags(0x8181), expectedID: 0x1234, wantErr: ErrFormatError},
		{name: "server failure", data: withFlags(0x8182), expectedID: 0x1234, wantErr: ErrServerFailure},
		{name: "name error", data: withFlags(0x8183), expectedID: 0x1234, wantErr: ErrNameError},
		{name: "not implemented", data: withFlags(0x8184), expectedID: 0x1234, wantErr: ErrNotImplemented},
		{name: "refused", data: withFlags(0x8185), expectedID: 0x1234, wantErr: ErrRefused},
		{name: "unknown rcode", data: withFlags(0x8186), expectedID: 0x1234, wantErr: ErrUnknownRcode},
		{name: "truncated question", data: good[:20], expectedID: 0x1234, wantErr: ErrTruncated},
		{name: "truncated record fields", data: good[:len(good)-8], expectedID: 0x1234, wantErr: ErrTruncated},
		{name: "truncated rdata", data: good[:len(good)-1], expectedID: 0x1234, wantErr: ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := codec.DecodeResponse(tt.data, tt.expectedID)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, resp.Answers)
			assert.Empty(t, resp.Additional)
		})
	}
}

func TestUdpCodec_DecodeResponse_NameErrorIgnoresCounts(t *testing.T) {
	codec := newTestCodec(0)
	// ANCOUNT claims 5 records but none follow: nothing may be parsed.
	data := response(0xBEEF, 0x8183)
	binary.BigEndian.PutUint16(data[6:8], 5)

	resp, err := codec.DecodeResponse(data, 0xBEEF)
	assert.ErrorIs(t, err, ErrNameError)
	assert.Empty(t, resp.Answers)
}

func TestUdpCodec_DecodeResponse_Flags(t *testing.T) {
	codec := newTestCodec(0)

	t.Run("authoritative", func(t *testing.T) {
		resp, err := codec.DecodeResponse(response(1, 0x8580), 1)
		require.NoError(t, err)
		assert.True(t, resp.Authoritative())
		assert.Equal(t, "auth", resp.AuthLabel())
		assert.True(t, resp.NotFound())
	})

	t.Run("authoritative without recursion", func(t *testing.T) {
		resp, err := codec.DecodeResponse(response(1, 0x8400), 1)
		require.NoError(t, err)
		assert.True(t, resp.Authoritative())
		assert.Equal(t, []string{domain.WarningNoRecursion}, resp.Warnings)
	})

	t.Run("recursion available", func(t *testing.T) {
		resp, err := codec.DecodeResponse(response(1, 0x8180), 1)
		require.NoError(t, err)
		assert.False(t, resp.Authoritative())
		assert.Empty(t, resp.Warnings)
	})
}

func TestUdpCodec_DecodeResponse_RecordErrors(t *testing.T) {
	codec := newTestCodec(0)
	valid := record(domain.RRTypeA, domain.RRClassIN, 60, []byte{192, 0, 2, 1})

	tests := []struct {
		name    string
		bad     []byte
		wantErr error
	}{
		{
			name:    "A with six bytes",
			bad:     record(domain.RRTypeA, domain.RRClassIN, 60, []byte{1, 2, 3, 4, 5, 6}),
			wantErr: ErrInvalidAddressLength,
		},
		{
			name:    "A with three bytes",
			bad:     record(domain.RRTypeA, domain.RRClassIN, 60, []byte{1, 2, 3}),
			wantErr: ErrInvalidAddressLength,
		},
		{
			name:    "chaos class",
			bad:     record(domain.RRTypeA, 3, 60, []byte{1, 2, 3, 4}),
			wantErr: ErrInvalidClass,
		},
		{
			name:    "AAAA unsupported",
			bad:     record(domain.RRTypeAAAA, domain.RRClassIN, 60, net.ParseIP("2001:db8::1").To16()),
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "unknown type with empty rdata",
			bad:     record(99, domain.RRClassIN, 60, nil),
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "MX too short",
			bad:     record(domain.RRTypeMX, domain.RRClassIN, 60, []byte{0, 10}),
			wantErr: ErrMalformedRData,
		},
		{
			// the label is followed by the next record's owner pointer
			name:    "NS name longer than rdata",
			bad:     record(domain.RRTypeNS, domain.RRClassIN, 60, []byte{1, 'a'}),
			wantErr: ErrMalformedRData,
		},
		{
			name:    "CNAME name shorter than rdata",
			bad:     record(domain.RRTypeCNAME, domain.RRClassIN, 60, []byte{1, 'a', 0, 0xFF}),
			wantErr: ErrMalformedRData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := codec.DecodeResponse(response(9, 0x8180, tt.bad, valid), 9)
			require.NoError(t, err)
			require.Len(t, resp.Answers, 2)

			assert.ErrorIs(t, resp.Answers[0].Err, tt.wantErr)
			assert.True(t, IsRecordError(resp.Answers[0].Err))

			// the cursor stayed in sync: the following record decodes cleanly
			require.NoError(t, resp.Answers[1].Err)
			assert.Equal(t, netip.MustParseAddr("192.0.2.1"), resp.Answers[1].Record.Address)
			assert.Equal(t, uint32(60), resp.Answers[1].Record.TTL)
		})
	}
}

func TestUdpCodec_DecodeResponse_UnsupportedTypeValue(t *testing.T) {
	codec := newTestCodec(0)
	data := response(9, 0x8180, record(domain.RRTypeTXT, domain.RRClassIN, 1, []byte{2, 'h', 'i'}))

	resp, err := codec.DecodeResponse(data, 9)
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	assert.EqualError(t, resp.Answers[0].Err, "unsupported record type: 16")
}

func TestUdpCodec_DecodeResponse_InvalidPointerIsFatal(t *testing.T) {
	codec := newTestCodec(0)
	// owner name pointer targets its own offset
	bad := record(domain.RRTypeA, domain.RRClassIN, 1, []byte{1, 2, 3, 4})
	data := response(9, 0x8180, bad)
	ownerOffset := len(data) - len(bad)
	binary.BigEndian.PutUint16(data[ownerOffset:], 0xC000|uint16(ownerOffset))

	resp, err := codec.DecodeResponse(data, 9)
	assert.ErrorIs(t, err, ErrInvalidPointer)
	assert.Empty(t, resp.Answers)
}

func TestUdpCodec_DecodeResponse_CompressedSections(t *testing.T) {
	codec := newTestCodec(0)

	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeMX)
	msg.Id = 0x4242
	msg.Response = true
	msg.RecursionAvailable = true
	msg.Compress = true
	msg.Answer = []dns.RR{
		&dns.MX{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 3600}, Preference: 10, Mx: "mail.example.com."},
		&dns.MX{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 3600}, Preference: 20, Mx: "backup.mail.example.com."},
		&dns.CNAME{Hdr: dns.RR_Header{Name: "www.example.com.", Rrtype: dns.TypeCNAME, Class: dns.ClassINET, Ttl: 120}, Target: "example.com."},
	}
	msg.Ns = []dns.RR{
		&dns.SOA{
			Hdr:     dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: 900},
			Ns:      "ns1.example.com.",
			Mbox:    "hostmaster.example.com.",
			Serial:  2025080101,
			Refresh: 7200,
			Retry:   3600,
			Expire:  1209600,
			Minttl:  300,
		},
		&dns.NS{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 900}, Ns: "ns1.example.com."},
	}
	msg.Extra = []dns.RR{
		&dns.A{Hdr: dns.RR_Header{Name: "mail.example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 600}, A: net.ParseIP("192.0.2.25")},
		&dns.AAAA{Hdr: dns.RR_Header{Name: "mail.example.com.", Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: 600}, AAAA: net.ParseIP("2001:db8::25")},
		&dns.NS{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 900}, Ns: "ns1.example.com."},
	}
	data := runtimex.PanicOnError1(msg.Pack())

	resp, err := codec.DecodeResponse(data, 0x4242)
	require.NoError(t, err)
	assert.True(t, resp.HasAuthority())

	require.Len(t, resp.Answers, 3)
	for _, a := range resp.Answers {
		require.NoError(t, a.Err)
	}
	assert.Equal(t, "example.com", resp.Answers[0].Record.Name)
	assert.Equal(t, uint16(10), resp.Answers[0].Record.Preference)
	assert.Equal(t, "mail.example.com", resp.Answers[0].Record.Target)
	assert.Equal(t, uint16(20), resp.Answers[1].Record.Preference)
	assert.Equal(t, "backup.mail.example.com", resp.Answers[1].Record.Target)
	assert.Equal(t, "www.example.com", resp.Answers[2].Record.Name)
	assert.Equal(t, domain.RRTypeCNAME, resp.Answers[2].Record.Type)
	assert.Equal(t, "example.com", resp.Answers[2].Record.Target)
	assert.Equal(t, uint32(120), resp.Answers[2].Record.TTL)

	require.Len(t, resp.Additional, 3)
	require.NoError(t, resp.Additional[0].Err)
	assert.Equal(t, "mail.example.com", resp.Additional[0].Record.Name)
	assert.Equal(t, netip.MustParseAddr("192.0.2.25"), resp.Additional[0].Record.Address)
	assert.ErrorIs(t, resp.Additional[1].Err, ErrUnsupportedType)
	require.NoError(t, resp.Additional[2].Err)
	assert.Equal(t, "ns1.example.com", resp.Additional[2].Record.Target)
}

func TestUdpCodec_DecodeResponse_MalformedAuthority(t *testing.T) {
	codec := newTestCodec(0)
	data := response(9, 0x8180)
	binary.BigEndian.PutUint16(data[8:10], 1) // NSCOUNT=1 but no record follows

	_, err := codec.DecodeResponse(data, 9)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Contains(t, err.Error(), "authority record 0")
}

func TestUdpCodec_DecodeResponse_Concurrent(t *testing.T) {
	codec := newTestCodec(0)
	data := exampleAResponse()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := codec.DecodeResponse(data, 0x1234)
			if err == nil && len(resp.Answers) != 1 {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRcodeError(t *testing.T) {
	assert.NoError(t, rcodeError(domain.RCodeNoError))
	assert.ErrorIs(t, rcodeError(domain.RCodeNameError), ErrNameError)
	assert.EqualError(t, rcodeError(9), "unknown response code: 9")
	assert.False(t, IsRecordError(ErrNameError))
	assert.True(t, IsRecordError(ErrUnsupportedType))
}
