package dns

// MaxLabelSize is the largest number of octets a single label may contain.
const MaxLabelSize = 63

// MaxNameSize is the largest total expanded length of a domain name,
// including every length-prefix byte and the terminating zero octet.
const MaxNameSize = 255

// foldCase collapses ASCII letter case to a single 5-low-bit value so
// identity (hashing and equality) is case-insensitive while the original
// bytes remain available for display.
func foldCase(c byte) byte {
	return c & 0b01011111
}

// labelEqualFold reports whether a and b are equal ignoring ASCII case.
func labelEqualFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if foldCase(a[i]) != foldCase(b[i]) {
			return false
		}
	}
	return true
}

// validateLabel checks a label's bytes against the wire alphabet: letters
// anywhere, digits anywhere but the first position, '-' anywhere but the
// first or last position.
func validateLabel(b []byte) error {
	if len(b) == 0 || len(b) > MaxLabelSize {
		return &ParseError{Kind: ErrLabelLengthTooLong}
	}
	for i, c := range b {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
			// always legal
		case c >= '0' && c <= '9':
			if i == 0 {
				return &ParseError{Kind: ErrIllegalLabelChar}
			}
		case c == '-':
			if i == 0 || i == len(b)-1 {
				return &ParseError{Kind: ErrIllegalLabelChar}
			}
		default:
			return &ParseError{Kind: ErrIllegalLabelChar}
		}
	}
	return nil
}

// fnvHashFold computes a case-insensitive FNV-1a hash of b, used both for
// owned-name identity and for the serializer's compression table.
func fnvHashFold(b []byte) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, c := range b {
		h ^= uint64(foldCase(c))
		h *= prime64
	}
	return h
}
