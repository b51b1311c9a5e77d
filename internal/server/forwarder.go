package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jroosing/hydradns/internal/dns"
)

// perQuestionTimeout bounds a single upstream query. batchTimeout bounds an
// entire forwarding pass across every unresolved question in one inbound
// packet. Neither value is specified by the wire protocol; both are the
// bounded-timeout liberty the design notes call out explicitly.
const (
	perQuestionTimeout = 2 * time.Second
	batchTimeout       = 5 * time.Second
)

// ErrForwardIO covers any upstream socket failure: dial, send, receive, or
// timeout.
var ErrForwardIO = errors.New("forwarder: upstream i/o error")

// ErrForwardParse covers a response datagram that failed to parse.
var ErrForwardParse = errors.New("forwarder: upstream response did not parse")

// Forwarder issues one upstream UDP query per unresolved question and
// merges matching answers into an outbound Builder.
type Forwarder struct {
	Upstream *net.UDPAddr
}

// Resolve sends one query for q (carrying the original transaction id) to
// the upstream resolver, validates the response's id, and appends every
// answer whose owner name case-insensitively matches the queried name into
// builder. No retry is attempted; callers surface ErrForwardIO/ErrForwardParse
// as Refused/ServerFailure per the pipeline's failure policy.
func (f *Forwarder) Resolve(ctx context.Context, id uint16, q dns.QuestionOwned, builder *dns.Builder) error {
	ctx, cancel := context.WithTimeout(ctx, perQuestionTimeout)
	defer cancel()

	conn, err := net.DialUDP("udp", nil, f.Upstream)
	if err != nil {
		return ErrForwardIO
	}
	defer conn.Close()

	query := dns.Query(id)
	query.AddQuestion(q)
	buf := dns.NewBuffer().WithMaxLen(65533)
	query.BuildInto(buf)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return ErrForwardIO
	}

	respBuf := make([]byte, 65535)
	n, err := conn.Read(respBuf)
	if err != nil {
		return ErrForwardIO
	}

	resp, err := dns.ParsePacket(respBuf[:n])
	if err != nil {
		return ErrForwardParse
	}
	if resp.Header.ID != id {
		return nil // P10: mismatched transaction id, discard silently
	}

	for _, a := range resp.Answers() {
		if !q.Name.EqualName(a.Name) {
			continue
		}
		builder.AddAnswer(a.Name.ToOwned(), dns.ResourceDataFromWire(a))
	}
	return nil
}

// ResolveBatch forwards every question in questions, stopping early (and
// returning the first error) if the whole-batch deadline expires.
func ResolveBatch(ctx context.Context, f *Forwarder, id uint16, questions []dns.QuestionOwned, builder *dns.Builder) error {
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()
	for _, q := range questions {
		builder.AddQuestion(q)
		if err := f.Resolve(ctx, id, q, builder); err != nil {
			return err
		}
	}
	return nil
}
