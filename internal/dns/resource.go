package dns

// Resource is a zero-copy view of one resource-record entry: name, type,
// class, TTL, and an rdlength-prefixed data blob.
type Resource struct {
	Name  Name
	Type  Type
	Class Class
	TTL   uint32
	Data  []byte
	size  int
}

// ParseResource parses a resource record beginning at offset in buf.
func ParseResource(buf []byte, offset int) (Resource, error) {
	name, err := ParseName(buf, offset)
	if err != nil {
		return Resource{}, err
	}
	cursor := offset + name.SizeInPacket()
	if cursor+10 > len(buf) {
		return Resource{}, bufferTooSmall(len(buf)-cursor, 10)
	}
	typ := TypeFromUint16(uint16(buf[cursor])<<8 | uint16(buf[cursor+1]))
	class := ClassFromUint16(uint16(buf[cursor+2])<<8 | uint16(buf[cursor+3]))
	ttl := uint32(buf[cursor+4])<<24 | uint32(buf[cursor+5])<<16 | uint32(buf[cursor+6])<<8 | uint32(buf[cursor+7])
	rdlength := int(buf[cursor+8])<<8 | int(buf[cursor+9])
	dataStart := cursor + 10
	if dataStart+rdlength > len(buf) {
		return Resource{}, bufferTooSmall(len(buf)-dataStart, rdlength)
	}
	return Resource{
		Name:  name,
		Type:  typ,
		Class: class,
		TTL:   ttl,
		Data:  buf[dataStart : dataStart+rdlength],
		size:  name.SizeInPacket() + 10 + rdlength,
	}, nil
}

// SizeInPacket returns the number of bytes this record occupies starting at
// the offset it was parsed from.
func (r Resource) SizeInPacket() int { return r.size }

// ResourceData is the owned, cacheable representation of an answer's rdata.
// It is a closed set of two variants: A (the common case, stored typed so
// the cache can dedup/compare cheaply) and Generic (everything else,
// carried as opaque bytes).
type ResourceData struct {
	kind    resourceKind
	ttl     uint32
	addr    [4]byte
	typ     Type
	class   Class
	generic []byte
}

type resourceKind uint8

const (
	resourceKindA resourceKind = iota
	resourceKindGeneric
)

// NewAResourceData builds an A-record resource value.
func NewAResourceData(ttl uint32, addr [4]byte) ResourceData {
	return ResourceData{kind: resourceKindA, ttl: ttl, addr: addr}
}

// NewGenericResourceData builds a Generic resource value for any non-A type.
func NewGenericResourceData(typ Type, class Class, ttl uint32, data []byte) ResourceData {
	return ResourceData{kind: resourceKindGeneric, ttl: ttl, typ: typ, class: class, generic: append([]byte(nil), data...)}
}

// ResourceDataFromWire converts a parsed Resource view into an owned
// ResourceData, specializing A records and carrying everything else as
// Generic bytes.
func ResourceDataFromWire(r Resource) ResourceData {
	if r.Type == TypeA && len(r.Data) == 4 {
		var addr [4]byte
		copy(addr[:], r.Data)
		return NewAResourceData(r.TTL, addr)
	}
	return NewGenericResourceData(r.Type, r.Class, r.TTL, r.Data)
}

// Type returns the record's type.
func (d ResourceData) Type() Type {
	if d.kind == resourceKindA {
		return TypeA
	}
	return d.typ
}

// Class returns the record's class; A records are always IN.
func (d ResourceData) Class() Class {
	if d.kind == resourceKindA {
		return ClassIN
	}
	return d.class
}

// TTL returns the record's TTL in seconds.
func (d ResourceData) TTL() uint32 { return d.ttl }

// Data returns the record's rdata bytes.
func (d ResourceData) Data() []byte {
	if d.kind == resourceKindA {
		return d.addr[:]
	}
	return d.generic
}

// Equal reports whether two resource values are identical for cache
// deduplication purposes (type, class, ttl, and data all match).
func (d ResourceData) Equal(other ResourceData) bool {
	if d.Type() != other.Type() || d.Class() != other.Class() || d.ttl != other.ttl {
		return false
	}
	a, b := d.Data(), other.Data()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
