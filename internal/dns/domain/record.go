package domain

import "net/netip"

// ResourceRecord is one decoded answer or additional record. Only the fields
// relevant to Type are populated: Address for A, Target for NS and CNAME,
// Preference and Target for MX.
type ResourceRecord struct {
	Name       string
	Type       RRType
	Class      RRClass
	TTL        uint32
	RDLength   uint16
	Address    netip.Addr
	Target     string
	Preference uint16
}

// RecordOutcome pairs a record with the record-level error that rejected it,
// if any. Rejected records still carry the fields decoded before the failure.
type RecordOutcome struct {
	Record ResourceRecord
	Err    error
}

// OK reports whether the record decoded cleanly.
func (o RecordOutcome) OK() bool {
	return o.Err == nil
}
