package dns

// Question is a zero-copy view of one question-section entry: a name
// followed by a two-octet QTYPE and two-octet QCLASS.
type Question struct {
	Name   Name
	QType  QType
	QClass QClass
	size   int
}

// ParseQuestion parses a question beginning at offset in buf.
func ParseQuestion(buf []byte, offset int) (Question, error) {
	name, err := ParseName(buf, offset)
	if err != nil {
		return Question{}, err
	}
	end := offset + name.SizeInPacket()
	if end+4 > len(buf) {
		return Question{}, bufferTooSmall(len(buf)-end, 4)
	}
	qtype := QTypeFromUint16(uint16(buf[end])<<8 | uint16(buf[end+1]))
	qclass := QClassFromUint16(uint16(buf[end+2])<<8 | uint16(buf[end+3]))
	return Question{
		Name:   name,
		QType:  qtype,
		QClass: qclass,
		size:   name.SizeInPacket() + 4,
	}, nil
}

// SizeInPacket returns the number of bytes this question occupies starting
// at the offset it was parsed from.
func (q Question) SizeInPacket() int { return q.size }

// QuestionOwned is an owned copy of a question suitable for carrying across
// goroutines and into an outbound packet builder.
type QuestionOwned struct {
	Name   DomainName
	QType  QType
	QClass QClass
}

// ToOwned materializes q into an owned copy.
func (q Question) ToOwned() QuestionOwned {
	return QuestionOwned{Name: q.Name.ToOwned(), QType: q.QType, QClass: q.QClass}
}
