package dns

import "github.com/jroosing/hydradns/internal/helpers"

// maxPointerOffset is the largest absolute offset a 14-bit compression
// pointer can address.
const maxPointerOffset = 0x3FFF

// answer pairs an owner name with the data to serialize for it.
type answer struct {
	name DomainName
	data ResourceData
}

// Builder assembles an outbound DNS message: header plus questions and
// answers, written into a caller-supplied Buffer with optional name
// compression and build-time truncation.
type Builder struct {
	header   Header
	questions []QuestionOwned
	answers  []answer
	compress bool
}

// Respond builds a response builder that copies id/opcode/RD from an
// inbound parsed packet and sets QR=Response with the given rcode.
func Respond(p Packet, code ResponseCode) *Builder {
	return &Builder{
		header: Header{
			ID:               p.Header.ID,
			Type:             PacketTypeResponse,
			Opcode:           p.Header.Opcode,
			RecursionDesired: p.Header.RecursionDesired,
			ResponseCode:     code,
		},
		compress: true,
	}
}

// RespondTo builds a response builder from a best-effort HeaderView, for
// replies to a request whose header could not be fully parsed. Any field
// that could not be read defaults to its zero value — per the resolution of
// the source's ambiguity, a missing id is left at 0 rather than guessed.
func RespondTo(v HeaderView, code ResponseCode) *Builder {
	h := Header{Type: PacketTypeResponse, ResponseCode: code}
	if id, ok := v.ID(); ok {
		h.ID = id
	}
	if rd, ok := v.RecursionDesired(); ok {
		h.RecursionDesired = rd
	}
	if op, ok := v.Opcode(); ok {
		h.Opcode = op
	}
	return &Builder{header: h, compress: true}
}

// Query builds an outbound upstream query with the given transaction id.
func Query(id uint16) *Builder {
	return &Builder{
		header: Header{
			ID:               id,
			Type:             PacketTypeQuery,
			Opcode:           OpcodeQuery,
			RecursionDesired: true,
		},
		compress: true,
	}
}

// AddQuestion appends a question and increments QDCOUNT.
func (b *Builder) AddQuestion(q QuestionOwned) {
	b.questions = append(b.questions, q)
	b.header.QDCount++
}

// AddAnswer appends an answer and increments ANCOUNT.
func (b *Builder) AddAnswer(name DomainName, data ResourceData) {
	b.answers = append(b.answers, answer{name: name, data: data})
	b.header.ANCount++
}

// BuiltAnswer is one answer queued in a Builder, exposed to callers that
// need to inspect or re-emit them (merging a forwarder's answers into a
// client-facing response, or caching them).
type BuiltAnswer struct {
	Name DomainName
	Data ResourceData
}

// Answers returns every answer queued in the builder so far.
func (b *Builder) Answers() []BuiltAnswer {
	out := make([]BuiltAnswer, len(b.answers))
	for i, a := range b.answers {
		out[i] = BuiltAnswer{Name: a.name, Data: a.data}
	}
	return out
}

// BuildInto serializes the builder's contents into buf. If a question or
// answer does not fit within buf's remaining capacity, the write is rolled
// back to the snapshot taken before it, the TC bit is set, and no further
// records are written; the header counts reflect only what was actually
// serialized.
func (b *Builder) BuildInto(buf *Buffer) {
	headerOffset := buf.Len()
	buf.Put(make([]byte, HeaderSize)) // placeholder, patched below

	table := map[uint64]int{}
	writtenQuestions := uint16(0)
	writtenAnswers := uint16(0)

	for _, q := range b.questions {
		snapshot := buf.Len()
		if !b.tryWriteQuestion(buf, table, q) {
			buf.SetLen(snapshot)
			b.header.Truncated = true
			b.finish(buf, headerOffset, writtenQuestions, writtenAnswers)
			return
		}
		writtenQuestions++
	}

	for _, a := range b.answers {
		snapshot := buf.Len()
		if !b.tryWriteAnswer(buf, table, a) {
			buf.SetLen(snapshot)
			b.header.Truncated = true
			b.finish(buf, headerOffset, writtenQuestions, writtenAnswers)
			return
		}
		writtenAnswers++
	}

	b.finish(buf, headerOffset, writtenQuestions, writtenAnswers)
}

func (b *Builder) finish(buf *Buffer, headerOffset int, qd, an uint16) {
	b.header.QDCount = qd
	b.header.ANCount = an
	b.header.NSCount = 0
	b.header.ARCount = 0
	b.header.Marshal(buf.Bytes()[headerOffset : headerOffset+HeaderSize])
}

// tryWriteQuestion writes q and reports true, or reports false without
// writing anything if it would not fit.
func (b *Builder) tryWriteQuestion(buf *Buffer, table map[uint64]int, q QuestionOwned) bool {
	needed := q.Name.Len() + 4
	if buf.RemainingMut() < needed {
		return false
	}
	writeName(buf, table, q.Name.Labels(), b.compress)
	buf.PutUint16(q.QType.Code())
	buf.PutUint16(q.QClass.Code())
	return true
}

// tryWriteAnswer writes a, reporting false if it would not fit.
func (b *Builder) tryWriteAnswer(buf *Buffer, table map[uint64]int, a answer) bool {
	data := a.data.Data()
	needed := a.name.Len() + 10 + len(data)
	if buf.RemainingMut() < needed {
		return false
	}
	writeName(buf, table, a.name.Labels(), b.compress)
	buf.PutUint16(a.data.Type().Code())
	buf.PutUint16(a.data.Class().Code())
	buf.PutUint32(a.data.TTL())
	buf.PutUint16(helpers.ClampIntToUint16(len(data)))
	buf.Put(data)
	return true
}

// writeName implements the compression algorithm from the spec: a full-name
// hash match emits a single pointer; otherwise each label is written and,
// after each one, the remaining suffix is checked against the table. Every
// non-empty suffix of what was actually written is recorded afterward so
// later names in the same message can point back to it.
func writeName(buf *Buffer, table map[uint64]int, labels [][]byte, compress bool) {
	if compress && len(labels) > 0 {
		if off, ok := table[hashLabels(labels)]; ok {
			buf.PutUint16(uint16(0xC000 | off))
			return
		}
	}

	offsets := make([]int, len(labels))
	wrote := len(labels)
	pointerEmitted := false
	for i, label := range labels {
		offsets[i] = buf.Len()
		buf.PutByte(byte(len(label)))
		buf.Put(label)
		if compress {
			suffix := labels[i+1:]
			if len(suffix) > 0 {
				if off, ok := table[hashLabels(suffix)]; ok {
					buf.PutUint16(uint16(0xC000 | off))
					wrote = i + 1
					pointerEmitted = true
					break
				}
			}
		}
	}
	if !pointerEmitted {
		buf.PutByte(0)
	}

	if compress {
		for i := 0; i < wrote; i++ {
			if offsets[i] > maxPointerOffset {
				continue
			}
			table[hashLabels(labels[i:])] = offsets[i]
		}
	}
}
