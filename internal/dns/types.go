package dns

import "fmt"

// Type is a DNS resource record type (RFC 1035 §3.2.2), closed over the
// values this resolver understands plus an Unknown escape that preserves
// the original wire number.
type Type struct {
	code    uint16
	unknown bool
}

var (
	TypeA     = Type{code: 1}
	TypeNS    = Type{code: 2}
	TypeCNAME = Type{code: 5}
	TypeSOA   = Type{code: 6}
	TypePTR   = Type{code: 12}
	TypeMX    = Type{code: 15}
	TypeTXT   = Type{code: 16}
	TypeAAAA  = Type{code: 28}
)

// UnknownType wraps an unrecognized type number, preserving it verbatim.
func UnknownType(code uint16) Type { return Type{code: code, unknown: true} }

// Code returns the wire value of t.
func (t Type) Code() uint16 { return t.code }

// IsUnknown reports whether t fell through to the Unknown escape variant.
func (t Type) IsUnknown() bool { return t.unknown }

func (t Type) String() string {
	switch t.code {
	case 1:
		return "A"
	case 2:
		return "NS"
	case 5:
		return "CNAME"
	case 6:
		return "SOA"
	case 12:
		return "PTR"
	case 15:
		return "MX"
	case 16:
		return "TXT"
	case 28:
		return "AAAA"
	default:
		return fmt.Sprintf("TYPE%d", t.code)
	}
}

// TypeFromUint16 maps a wire value to a Type, falling back to Unknown.
func TypeFromUint16(v uint16) Type {
	switch v {
	case 1:
		return TypeA
	case 2:
		return TypeNS
	case 5:
		return TypeCNAME
	case 6:
		return TypeSOA
	case 12:
		return TypePTR
	case 15:
		return TypeMX
	case 16:
		return TypeTXT
	case 28:
		return TypeAAAA
	default:
		return UnknownType(v)
	}
}

// QType is the query-section variant of Type: every Type is a valid QType,
// plus the meta-query values AXFR, MAILB, MAILA, and ANY.
type QType struct {
	code    uint16
	unknown bool
}

var (
	QTypeAXFR  = QType{code: 252}
	QTypeMAILB = QType{code: 253}
	QTypeMAILA = QType{code: 254}
	QTypeANY   = QType{code: 255}
)

// UnknownQType wraps an unrecognized qtype number.
func UnknownQType(code uint16) QType { return QType{code: code, unknown: true} }

func (q QType) Code() uint16   { return q.code }
func (q QType) IsUnknown() bool { return q.unknown }

func (q QType) String() string {
	switch q.code {
	case 252:
		return "AXFR"
	case 253:
		return "MAILB"
	case 254:
		return "MAILA"
	case 255:
		return "ANY"
	default:
		return TypeFromUint16(q.code).String()
	}
}

// QTypeFromUint16 maps a wire value to a QType, falling back to Unknown.
func QTypeFromUint16(v uint16) QType {
	switch v {
	case 252:
		return QTypeAXFR
	case 253:
		return QTypeMAILB
	case 254:
		return QTypeMAILA
	case 255:
		return QTypeANY
	default:
		t := TypeFromUint16(v)
		return QType{code: t.code, unknown: t.unknown}
	}
}

// AsType converts q to a Type when q is not one of the QType-only meta
// values; ok is false for AXFR/MAILB/MAILA/ANY.
func (q QType) AsType() (t Type, ok bool) {
	switch q.code {
	case 252, 253, 254, 255:
		return Type{}, false
	default:
		return Type{code: q.code, unknown: q.unknown}, true
	}
}

// Class is a DNS resource record class (RFC 1035 §3.2.4). IN is the only
// class with semantic meaning in this resolver; everything else round-trips
// as Unknown.
type Class struct {
	code    uint16
	unknown bool
}

var ClassIN = Class{code: 1}

// UnknownClass wraps an unrecognized class number.
func UnknownClass(code uint16) Class { return Class{code: code, unknown: true} }

func (c Class) Code() uint16    { return c.code }
func (c Class) IsUnknown() bool { return c.unknown }

func (c Class) String() string {
	if c.code == 1 {
		return "IN"
	}
	return fmt.Sprintf("CLASS%d", c.code)
}

// ClassFromUint16 maps a wire value to a Class, falling back to Unknown.
func ClassFromUint16(v uint16) Class {
	if v == 1 {
		return ClassIN
	}
	return UnknownClass(v)
}

// QClass is the query-section variant of Class: every Class plus the
// meta-value ANY.
type QClass struct {
	code    uint16
	unknown bool
}

var QClassANY = QClass{code: 255}

// UnknownQClass wraps an unrecognized qclass number.
func UnknownQClass(code uint16) QClass { return QClass{code: code, unknown: true} }

func (q QClass) Code() uint16    { return q.code }
func (q QClass) IsUnknown() bool { return q.unknown }

func (q QClass) String() string {
	if q.code == 255 {
		return "ANY"
	}
	return ClassFromUint16(q.code).String()
}

// QClassFromUint16 maps a wire value to a QClass, falling back to Unknown.
func QClassFromUint16(v uint16) QClass {
	if v == 255 {
		return QClassANY
	}
	c := ClassFromUint16(v)
	return QClass{code: c.code, unknown: c.unknown}
}
